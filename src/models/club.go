package models

import (
	"ucc/src/types"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type Club struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `json:"name,omitempty"`
	Slug     string `gorm:"uniqueIndex" json:"slug,omitempty"`
	Country  string `json:"country,omitempty"`
	Currency string `gorm:"default:'clp'" json:"currency,omitempty"`
	Active   bool   `gorm:"default:true" json:"active"`

	Tickets   []Ticket    `json:"tickets,omitempty"`
	MenuItems []MenuItem  `json:"menu_items,omitempty"`
	Events    []ClubEvent `json:"events,omitempty"`

	types.Timestamps
}

func (c *Club) BeforeCreate(tx *gorm.DB) error {
	if c.Slug == "" {
		c.Slug = slug.Make(c.Name)
	}
	return nil
}
