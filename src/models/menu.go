package models

import (
	"ucc/src/types"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type MenuItem struct {
	ID             uint   `gorm:"primarykey" json:"id"`
	ClubID         uint   `json:"club_id,omitempty"`
	Name           string `json:"name,omitempty"`
	Slug           string `json:"slug,omitempty"`
	Category       string `json:"category,omitempty"`
	Price          int64  `json:"price"`
	DynamicPricing bool   `json:"dynamic_pricing"`
	EventPrice     *int64 `json:"event_price,omitempty"`
	MaxPerPerson   uint   `gorm:"default:20" json:"max_per_person,omitempty"`
	Active         bool   `gorm:"default:true" json:"active"`

	Club     Club              `json:"-"`
	Variants []MenuItemVariant `json:"variants,omitempty"`

	types.Timestamps
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.Slug == "" {
		m.Slug = slug.Make(m.Name)
	}
	return nil
}

// MenuItemVariant overrides the parent item's base price when it carries
// its own. A cart line with a variant and one without are distinct lines.
type MenuItemVariant struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	MenuItemID uint   `json:"menu_item_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Price      *int64 `json:"price,omitempty"`
	Active     bool   `gorm:"default:true" json:"active"`

	MenuItem MenuItem `json:"-"`

	types.Timestamps
}
