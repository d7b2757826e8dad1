package models

import (
	"time"

	"ucc/src/types"
)

// ClubEvent is an event day at a venue. Tickets bought for the event date
// take the event's own price; dates inside the grace window before the event
// get the surcharge multiplier applied to the ticket's base price.
type ClubEvent struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	ClubID          uint      `json:"club_id,omitempty"`
	Name            string    `json:"name,omitempty"`
	Date            time.Time `gorm:"index" json:"date,omitempty"`
	TicketPrice     *int64    `json:"ticket_price,omitempty"`
	GraceDays       uint      `json:"grace_days,omitempty"`
	GraceMultiplier float64   `gorm:"default:1" json:"grace_multiplier,omitempty"`
	Active          bool      `gorm:"default:true" json:"active"`

	Club Club `json:"-"`

	types.Timestamps
}
