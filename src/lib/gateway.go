package lib

import (
	"context"
	"fmt"
	"log"
	"os"

	"ucc/src/types"

	"github.com/stripe/stripe-go/v82"
)

type StartPaymentParams struct {
	Amount     int64
	Currency   string
	BuyerEmail string
	// Reference is our correlation id, round-tripped through the provider's
	// metadata so webhooks can be mapped back.
	Reference string
	LineItems []types.LineItemSnapshot
	Metadata  map[string]string
}

type StartPaymentResult struct {
	ProviderTransactionID string
	RedirectURL           string
	// Status is pending for redirect flows; a gateway that answers inline
	// (immediate decline) reports the terminal status here.
	Status types.TransactionStatus
}

// PaymentGateway models one provider contract: a redirect-confirm charge
// plus asynchronous webhooks. Kept as an interface so the provider can be
// re-targeted without touching the orchestrator.
type PaymentGateway interface {
	Name() string
	StartPayment(ctx context.Context, params *StartPaymentParams) (*StartPaymentResult, error)
	RetrievePayment(ctx context.Context, providerTransactionId string) (types.TransactionStatus, types.JSONB, error)
}

var paymentGateway PaymentGateway

func GetPaymentGateway() PaymentGateway {
	if paymentGateway != nil {
		return paymentGateway
	}
	paymentGateway = &StripeGateway{client: GetStripeClient()}
	return paymentGateway
}

// NewPaymentGateway Replace gateway instance with custom implementation
func NewPaymentGateway(g PaymentGateway) PaymentGateway {
	paymentGateway = g
	return paymentGateway
}

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// StripeGateway drives a hosted Checkout Session: the guest is redirected to
// the session URL and the outcome arrives on the webhook.
type StripeGateway struct {
	client *stripe.Client
}

func (s *StripeGateway) Name() string { return "stripe" }

func (s *StripeGateway) StartPayment(ctx context.Context, params *StartPaymentParams) (*StartPaymentResult, error) {
	successUrl := fmt.Sprintf("%s/checkout/callback/success", os.Getenv("APP_HOST"))
	cancelUrl := fmt.Sprintf("%s/checkout/callback/cancel", os.Getenv("APP_HOST"))
	metadata := map[string]string{"requestId": params.Reference}
	for k, v := range params.Metadata {
		metadata[k] = v
	}
	createParams := stripe.CheckoutSessionCreateParams{
		SuccessURL:    stripe.String(successUrl),
		CancelURL:     stripe.String(cancelUrl),
		UIMode:        stripe.String("hosted"),
		Mode:          stripe.String("payment"),
		CustomerEmail: stripe.String(params.BuyerEmail),
		Metadata:      metadata,
	}
	lineItems := []*stripe.CheckoutSessionCreateLineItemParams{}
	for _, line := range params.LineItems {
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(params.Currency),
				UnitAmount: stripe.Int64(line.UnitPrice),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Label),
				},
			},
			Quantity: stripe.Int64(int64(line.Qty)),
		})
	}
	createParams.LineItems = lineItems
	checkoutSession, err := s.client.V1CheckoutSessions.Create(ctx, &createParams)
	if err != nil {
		log.Printf("[Gateway] StartPayment failed: %s\n", err.Error())
		return nil, types.ErrGatewayUnavailable
	}
	log.Printf("[Gateway] CheckoutSessionID: %s\n", checkoutSession.ID)
	return &StartPaymentResult{
		ProviderTransactionID: checkoutSession.ID,
		RedirectURL:           checkoutSession.URL,
		Status:                types.TRANSACTION_PENDING,
	}, nil
}

func (s *StripeGateway) RetrievePayment(ctx context.Context, providerTransactionId string) (types.TransactionStatus, types.JSONB, error) {
	cs, err := s.client.V1CheckoutSessions.Retrieve(ctx, providerTransactionId, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		log.Printf("[Gateway] Unable to retrieve session %s: %s\n", providerTransactionId, err.Error())
		return "", nil, types.ErrGatewayUnavailable
	}
	data := types.JSONB{
		"session_status": string(cs.Status),
		"payment_status": string(cs.PaymentStatus),
	}
	return MapSessionStatus(string(cs.Status), string(cs.PaymentStatus)), data, nil
}

// MapSessionStatus folds the provider's session/payment status pair into
// the transaction state machine's vocabulary.
func MapSessionStatus(sessionStatus, paymentStatus string) types.TransactionStatus {
	switch {
	case paymentStatus == "paid" || paymentStatus == "no_payment_required":
		return types.TRANSACTION_APPROVED
	case sessionStatus == "expired":
		return types.TRANSACTION_TIMEOUT
	default:
		return types.TRANSACTION_PENDING
	}
}

// MapWebhookEventStatus maps a provider webhook event type to the status it
// implies. The second return is false for event types the reconciler
// ignores.
func MapWebhookEventStatus(eventType, paymentStatus string) (types.TransactionStatus, bool) {
	switch eventType {
	case "checkout.session.completed":
		if paymentStatus == "unpaid" {
			// async payment method, outcome arrives on a later event
			return types.TRANSACTION_PENDING, false
		}
		return types.TRANSACTION_APPROVED, true
	case "checkout.session.async_payment_succeeded":
		return types.TRANSACTION_APPROVED, true
	case "checkout.session.async_payment_failed":
		return types.TRANSACTION_DECLINED, true
	case "checkout.session.expired":
		return types.TRANSACTION_TIMEOUT, true
	default:
		return types.TRANSACTION_PENDING, false
	}
}
