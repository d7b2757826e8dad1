package models

import (
	"time"

	"ucc/src/types"
)

// CartItem is a live cart line. It stores no price: prices are resolved at
// read time so a stale cart can never undercut a dynamic price change.
// All lines for one owner share one club.
type CartItem struct {
	ID       uint           `gorm:"primarykey" json:"id"`
	OwnerKey string         `gorm:"index" json:"-"`
	ClubID   uint           `json:"club_id"`
	ItemType types.ItemType `json:"item_type"`

	TicketID   *uint      `json:"ticket_id,omitempty"`
	MenuItemID *uint      `json:"menu_item_id,omitempty"`
	VariantID  *uint      `json:"variant_id,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	Qty        uint       `json:"qty"`

	Club     Club             `json:"-"`
	Ticket   *Ticket          `json:"ticket,omitempty"`
	MenuItem *MenuItem        `json:"menu_item,omitempty"`
	Variant  *MenuItemVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`

	types.Timestamps
}
