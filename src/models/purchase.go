package models

import (
	"time"

	"ucc/src/types"

	"github.com/google/uuid"
)

// TicketPurchase is a materialized downstream record created from one
// snapshot line when its transaction is approved. The unique index on
// (transaction_id, line_index) makes re-materialization a no-op.
type TicketPurchase struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_ticket_purchase_line" json:"transaction_id"`
	LineIndex     int       `gorm:"uniqueIndex:idx_ticket_purchase_line" json:"-"`

	OwnerKey      string               `gorm:"index" json:"-"`
	ClubID        uint                 `json:"club_id"`
	TicketID      uint                 `json:"ticket_id"`
	Date          *time.Time           `json:"date,omitempty"`
	Qty           uint                 `json:"qty"`
	UnitPrice     int64                `json:"unit_price"`
	Subtotal      int64                `json:"subtotal"`
	AdmissionCode string               `gorm:"uniqueIndex" json:"admission_code,omitempty"`
	Status        types.PurchaseStatus `gorm:"default:'issued'" json:"status,omitempty"`

	Transaction Transaction `json:"-"`
	Ticket      Ticket      `json:"ticket,omitempty"`

	types.Timestamps
}

type MenuPurchase struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	TransactionID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_menu_purchase_line" json:"transaction_id"`
	LineIndex     int       `gorm:"uniqueIndex:idx_menu_purchase_line" json:"-"`

	OwnerKey   string               `gorm:"index" json:"-"`
	ClubID     uint                 `json:"club_id"`
	MenuItemID uint                 `json:"menu_item_id"`
	VariantID  *uint                `json:"variant_id,omitempty"`
	Qty        uint                 `json:"qty"`
	UnitPrice  int64                `json:"unit_price"`
	Subtotal   int64                `json:"subtotal"`
	Status     types.PurchaseStatus `gorm:"default:'issued'" json:"status,omitempty"`

	Transaction Transaction `json:"-"`
	MenuItem    MenuItem    `json:"menu_item,omitempty"`

	types.Timestamps
}
