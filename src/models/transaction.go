package models

import (
	"encoding/json"
	"time"

	"ucc/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is the immutable ledger row for one checkout attempt. After
// creation only status, finalized_at, metadata and the gateway correlation
// fields may change, and status changes exactly once into a terminal value.
type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid" json:"id"`

	OwnerKey   string `gorm:"index" json:"-"`
	ClubID     uint   `json:"club_id"`
	BuyerName  string `json:"buyer_name,omitempty"`
	BuyerEmail string `json:"buyer_email,omitempty"`
	Currency   string `json:"currency,omitempty"`

	Snapshot       types.JSONBArray `gorm:"type:jsonb" json:"snapshot,omitempty"`
	TicketSubtotal int64            `json:"ticket_subtotal"`
	MenuSubtotal   int64            `json:"menu_subtotal"`
	PlatformFee    int64            `json:"platform_fee"`
	GatewayFee     int64            `json:"gateway_fee"`
	TotalPaid      int64            `json:"total_paid"`

	PaymentProvider       string  `json:"payment_provider,omitempty"`
	ProviderTransactionID *string `gorm:"index" json:"provider_transaction_id,omitempty"`
	ProviderReference     string  `gorm:"index" json:"provider_reference,omitempty"`

	Status      types.TransactionStatus `gorm:"default:'pending'" json:"status"`
	FinalizedAt *time.Time              `json:"finalized_at,omitempty"`
	Metadata    types.JSONB             `gorm:"type:jsonb" json:"metadata,omitempty"`

	Club Club `json:"-"`

	types.Timestamps
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// LineItems decodes the stored snapshot back into typed line items.
func (t *Transaction) LineItems() ([]types.LineItemSnapshot, error) {
	raw, err := json.Marshal(t.Snapshot)
	if err != nil {
		return nil, err
	}
	var lines []types.LineItemSnapshot
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// NewSnapshot packs typed line items into the jsonb array column.
func NewSnapshot(lines []types.LineItemSnapshot) types.JSONBArray {
	arr := make(types.JSONBArray, 0, len(lines))
	for _, l := range lines {
		arr = append(arr, l)
	}
	return arr
}
