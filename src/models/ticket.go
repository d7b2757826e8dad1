package models

import (
	"ucc/src/types"
)

// Ticket is a date-entry ticket type sold by a club. Price is in minor
// units; the effective price for a given date comes from the pricing
// resolver, never from the row alone.
type Ticket struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	ClubID       uint   `json:"club_id,omitempty"`
	Name         string `json:"name,omitempty"`
	Tier         string `json:"tier,omitempty"`
	Price        int64  `json:"price"`
	MaxPerPerson uint   `gorm:"default:10" json:"max_per_person,omitempty"`
	Active       bool   `gorm:"default:true" json:"active"`

	Club Club `json:"-"`

	types.Timestamps
}
