package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any
type JSONBArray []any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &a)
}

func (a JSONBArray) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONBArray) Scan(value any) error {
	b, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &a)
}

// sqlite hands jsonb columns back as string, postgres as []byte
func jsonbBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported type for jsonb column")
	}
}

type ItemType string

const (
	ITEM_TICKET ItemType = "ticket"
	ITEM_MENU   ItemType = "menu"
)

type TransactionStatus string

const (
	TRANSACTION_PENDING  TransactionStatus = "pending"
	TRANSACTION_APPROVED TransactionStatus = "approved"
	TRANSACTION_DECLINED TransactionStatus = "declined"
	TRANSACTION_ERROR    TransactionStatus = "error"
	TRANSACTION_TIMEOUT  TransactionStatus = "timeout"
)

// Terminal reports whether no further transition is possible.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TRANSACTION_APPROVED, TRANSACTION_DECLINED, TRANSACTION_ERROR, TRANSACTION_TIMEOUT:
		return true
	}
	return false
}

type PurchaseStatus string

const (
	PURCHASE_ISSUED   PurchaseStatus = "issued"
	PURCHASE_REDEEMED PurchaseStatus = "redeemed"
)

// LineItemSnapshot is the frozen copy of a cart line's resolved price taken
// at checkout time. The snapshot, not the live cart, is authoritative for
// what was paid.
type LineItemSnapshot struct {
	Type       ItemType `json:"type"`
	Label      string   `json:"label"`
	TicketID   uint     `json:"ticket_id,omitempty"`
	MenuItemID uint     `json:"menu_item_id,omitempty"`
	VariantID  *uint    `json:"variant_id,omitempty"`
	Date       string   `json:"date,omitempty"`
	UnitPrice  int64    `json:"unit_price"`
	Qty        uint     `json:"qty"`
	Subtotal   int64    `json:"subtotal"`
}

type ResolvedPrice struct {
	BasePrice      int64  `json:"base_price"`
	DynamicPrice   *int64 `json:"dynamic_price,omitempty"`
	EffectivePrice int64  `json:"effective_price"`
}

type CartSummaryLine struct {
	ID         uint     `json:"id"`
	ItemType   ItemType `json:"item_type"`
	Label      string   `json:"label"`
	Date       string   `json:"date,omitempty"`
	TicketID   *uint    `json:"ticket_id,omitempty"`
	MenuItemID *uint    `json:"menu_item_id,omitempty"`
	VariantID  *uint    `json:"variant_id,omitempty"`
	Qty        uint     `json:"qty"`
	ResolvedPrice
	Subtotal int64 `json:"subtotal"`
}

type CartSummary struct {
	ClubID         uint              `json:"club_id,omitempty"`
	Lines          []CartSummaryLine `json:"lines"`
	TicketSubtotal int64             `json:"ticket_subtotal"`
	MenuSubtotal   int64             `json:"menu_subtotal"`
	Total          int64             `json:"total"`
	IsFreeCheckout bool              `json:"is_free_checkout"`
}

type CheckoutResult struct {
	TransactionID    string            `json:"transaction_id"`
	Status           TransactionStatus `json:"status"`
	RequiresRedirect bool              `json:"requires_redirect"`
	RedirectURL      string            `json:"redirect_url,omitempty"`
}

type AddCartItemRequestBody struct {
	ClubID     uint     `json:"club" binding:"required"`
	ItemType   ItemType `json:"item_type" binding:"required,oneof=ticket menu"`
	TicketID   *uint    `json:"ticket,omitempty"`
	MenuItemID *uint    `json:"menu_item,omitempty"`
	VariantID  *uint    `json:"variant,omitempty"`
	Date       string   `json:"date,omitempty" binding:"omitempty,purchasedate"`
	Qty        uint     `json:"qty" binding:"required,min=1"`
}

// Qty is a pointer so an explicit 0 binds; 0 removes the line.
type UpdateCartItemRequestBody struct {
	Qty *uint `json:"qty" binding:"required"`
}

type InitiateCheckoutRequestBody struct {
	BuyerName     string `json:"name,omitempty"`
	BuyerEmail    string `json:"email" binding:"required,email"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

type ConfirmCheckoutRequestBody struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	SessionID     string `json:"session_id,omitempty"`
}

type UnlockCartRequestBody struct {
	OwnerKey string `json:"owner_key" binding:"required"`
	Reason   string `json:"reason,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type TransactionURIParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type Claims struct {
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}
