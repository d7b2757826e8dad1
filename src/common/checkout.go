package common

import (
	"context"
	"log"
	"time"

	"ucc/src/config"
	"ucc/src/db"
	"ucc/src/lib"
	"ucc/src/models"
	"ucc/src/types"
	"ucc/src/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InitiateCheckout validates the cart, freezes every line's resolved price
// into an immutable snapshot, and either settles the transaction
// synchronously (free carts) or locks the cart and starts a gateway charge.
func InitiateCheckout(ownerKey string, params *types.InitiateCheckoutRequestBody) (*types.CheckoutResult, error) {
	summary, err := SummarizeCart(ownerKey)
	if err != nil {
		return nil, err
	}
	if len(summary.Lines) == 0 {
		return nil, types.ErrEmptyCart
	}

	snapshot := buildSnapshot(summary)
	platformFee, gatewayFee := utils.ComputeFees(summary.Total)

	txn := models.Transaction{
		ID:                uuid.New(),
		OwnerKey:          ownerKey,
		ClubID:            summary.ClubID,
		BuyerName:         params.BuyerName,
		BuyerEmail:        params.BuyerEmail,
		Currency:          config.Currency(),
		Snapshot:          models.NewSnapshot(snapshot),
		TicketSubtotal:    summary.TicketSubtotal,
		MenuSubtotal:      summary.MenuSubtotal,
		PlatformFee:       platformFee,
		GatewayFee:        gatewayFee,
		TotalPaid:         summary.Total,
		ProviderReference: uuid.NewString(),
		Status:            types.TRANSACTION_PENDING,
	}

	if summary.IsFreeCheckout {
		return initiateFreeCheckout(&txn)
	}
	return initiatePaidCheckout(&txn)
}

// initiateFreeCheckout settles a zero-total cart without ever touching the
// gateway or the lock: there is no payment window to protect. Approval and
// materialization are one atomic unit, same guarantee as the paid path.
func initiateFreeCheckout(txn *models.Transaction) (*types.CheckoutResult, error) {
	now := time.Now().UTC()
	txn.Status = types.TRANSACTION_APPROVED
	txn.FinalizedAt = &now
	txn.PaymentProvider = "none"
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		if err := materializePurchases(tx, txn); err != nil {
			return err
		}
		return tx.
			Where(&models.CartItem{OwnerKey: txn.OwnerKey}).
			Delete(&models.CartItem{}).
			Error
	})
	if err != nil {
		log.Printf("Free checkout failed for %s: %s\n", txn.OwnerKey, err.Error())
		return nil, err
	}
	if err := lib.PublishTransactionStatus(context.Background(), txn.ID.String(), txn.Status, types.JSONB{"source": "free-checkout"}); err != nil {
		log.Printf("Error publishing status for %s: %s\n", txn.ID.String(), err.Error())
	}
	go approvedSideEffects(txn)
	return &types.CheckoutResult{
		TransactionID: txn.ID.String(),
		Status:        types.TRANSACTION_APPROVED,
	}, nil
}

func initiatePaidCheckout(txn *models.Transaction) (*types.CheckoutResult, error) {
	ctx := context.Background()
	_, err := lib.AcquireCartLock(ctx, txn.OwnerKey, config.CART_LOCK_SCOPE_UNIFIED, "payment in progress", config.CartLockTTL())
	if err != nil {
		return nil, err
	}

	gateway := lib.GetPaymentGateway()
	txn.PaymentProvider = gateway.Name()
	db := db.GetDb()
	if err := db.Create(txn).Error; err != nil {
		lib.ReleaseCartLock(ctx, txn.OwnerKey, config.CART_LOCK_SCOPE_UNIFIED)
		return nil, err
	}

	lines, err := txn.LineItems()
	if err != nil {
		lib.ReleaseCartLock(ctx, txn.OwnerKey, config.CART_LOCK_SCOPE_UNIFIED)
		return nil, err
	}
	result, err := gateway.StartPayment(ctx, &lib.StartPaymentParams{
		Amount:     txn.TotalPaid,
		Currency:   txn.Currency,
		BuyerEmail: txn.BuyerEmail,
		Reference:  txn.ProviderReference,
		LineItems:  lines,
	})
	if err != nil {
		// a gateway fault becomes a terminal error transaction, never a bare
		// exception: the client keeps an id to poll
		log.Printf("Gateway error on checkout %s: %s\n", txn.ID.String(), err.Error())
		if _, ferr := FinalizeTransaction(txn.ID, types.TRANSACTION_ERROR, types.JSONB{"source": "gateway-error", "error": err.Error()}); ferr != nil {
			log.Printf("Error finalizing transaction %s: %s\n", txn.ID.String(), ferr.Error())
		}
		return &types.CheckoutResult{
			TransactionID: txn.ID.String(),
			Status:        types.TRANSACTION_ERROR,
		}, nil
	}

	if err := db.
		Model(&models.Transaction{}).
		Where("id = ?", txn.ID).
		Updates(&models.Transaction{ProviderTransactionID: &result.ProviderTransactionID}).
		Error; err != nil {
		log.Printf("Error storing gateway correlation id for %s: %s\n", txn.ID.String(), err.Error())
	}
	rd := lib.GetRedisClient()
	if _, err := rd.SetEx(ctx, txn.ProviderReference, txn.ID.String(), config.CartLockTTL()).Result(); err != nil {
		log.Printf("Error caching reference [%s]: %s\n", txn.ProviderReference, err.Error())
	}

	// inline terminal answer from the gateway (e.g. immediate decline)
	if result.Status.Terminal() {
		if _, err := FinalizeTransaction(txn.ID, result.Status, types.JSONB{"source": "gateway-inline"}); err != nil {
			log.Printf("Error finalizing transaction %s: %s\n", txn.ID.String(), err.Error())
		}
		return &types.CheckoutResult{
			TransactionID: txn.ID.String(),
			Status:        result.Status,
		}, nil
	}

	return &types.CheckoutResult{
		TransactionID:    txn.ID.String(),
		Status:           types.TRANSACTION_PENDING,
		RequiresRedirect: true,
		RedirectURL:      result.RedirectURL,
	}, nil
}

// buildSnapshot freezes the summary's lines. The summary is the only cart
// read in the checkout path, so the snapshot and the totals always describe
// the same cart state.
func buildSnapshot(summary *types.CartSummary) []types.LineItemSnapshot {
	snapshot := make([]types.LineItemSnapshot, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		s := types.LineItemSnapshot{
			Type:      line.ItemType,
			Label:     line.Label,
			Date:      line.Date,
			UnitPrice: line.EffectivePrice,
			Qty:       line.Qty,
			Subtotal:  line.Subtotal,
		}
		switch line.ItemType {
		case types.ITEM_TICKET:
			if line.TicketID != nil {
				s.TicketID = *line.TicketID
			}
		case types.ITEM_MENU:
			if line.MenuItemID != nil {
				s.MenuItemID = *line.MenuItemID
			}
			s.VariantID = line.VariantID
		}
		snapshot = append(snapshot, s)
	}
	return snapshot
}

// ConfirmCheckout is the client-side confirmation path for gateway flows
// that bounce the guest back with a token. Idempotent: it defers to the
// reconciler's transition rules, so a second call is a no-op.
func ConfirmCheckout(params *types.ConfirmCheckoutRequestBody) (*models.Transaction, error) {
	txnId, err := uuid.Parse(params.TransactionID)
	if err != nil {
		return nil, types.ErrUnknownTransaction
	}
	txn, err := GetTransaction(txnId)
	if err != nil {
		return nil, err
	}
	if txn.Status.Terminal() {
		return txn, nil
	}
	if txn.ProviderTransactionID == nil {
		return txn, nil
	}
	status, data, err := lib.GetPaymentGateway().RetrievePayment(context.Background(), *txn.ProviderTransactionID)
	if err != nil {
		return nil, err
	}
	if !status.Terminal() {
		return txn, nil
	}
	if data == nil {
		data = types.JSONB{}
	}
	data["source"] = "confirm"
	if _, err := FinalizeTransaction(txn.ID, status, data); err != nil {
		return nil, err
	}
	return GetTransaction(txnId)
}

// GetTransaction is a pure read, never mutates.
func GetTransaction(id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	db := db.GetDb()
	if err := db.
		Model(&models.Transaction{}).
		Where("id = ?", id).
		First(&txn).
		Error; err != nil {
		return nil, types.ErrUnknownTransaction
	}
	return &txn, nil
}
