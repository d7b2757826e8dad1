package models

import (
	"ucc/src/types"
)

// WebhookEvent records every processed provider event id. The unique index
// is the dedup gate: an insert that affects zero rows means the event was
// already handled and the delivery is a replay.
type WebhookEvent struct {
	ID                    uint        `gorm:"primarykey" json:"id"`
	Provider              string      `json:"provider,omitempty"`
	ProviderEventID       string      `gorm:"uniqueIndex" json:"provider_event_id"`
	EventType             string      `json:"event_type,omitempty"`
	ProviderTransactionID string      `json:"provider_transaction_id,omitempty"`
	Payload               types.JSONB `gorm:"type:jsonb" json:"payload,omitempty"`

	types.Timestamps
}
