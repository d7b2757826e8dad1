package common

import (
	"context"
	"fmt"
	"log"
	"time"

	"ucc/src/config"
	"ucc/src/db"
	"ucc/src/lib"
	"ucc/src/models"
	"ucc/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const transactionStatusTopic = "transaction-status"

// GatewayEvent is one webhook delivery after provider-specific decoding.
type GatewayEvent struct {
	ProviderEventID       string
	ProviderTransactionID string
	EventType             string
	Status                types.TransactionStatus
	Payload               types.JSONB
}

// HandleGatewayEvent applies one webhook delivery exactly once. The dedup
// insert, the conditional status flip and the purchase materialization
// share one database transaction: a crash rolls all three back together and
// the provider's retry reprocesses the event cleanly.
func HandleGatewayEvent(ev *GatewayEvent) error {
	var txn models.Transaction
	won := false
	duplicate := false
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		record := models.WebhookEvent{
			Provider:              lib.GetPaymentGateway().Name(),
			ProviderEventID:       ev.ProviderEventID,
			EventType:             ev.EventType,
			ProviderTransactionID: ev.ProviderTransactionID,
			Payload:               ev.Payload,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			log.Printf("[Reconciler] Duplicate delivery of event %s, skipping\n", ev.ProviderEventID)
			duplicate = true
			return nil
		}

		if err := tx.
			Model(&models.Transaction{}).
			Where("provider_transaction_id = ?", ev.ProviderTransactionID).
			First(&txn).
			Error; err != nil {
			return types.ErrUnknownTransaction
		}

		w, err := applyTransition(tx, &txn, ev.Status)
		won = w
		return err
	})
	if err != nil {
		return err
	}
	if won {
		postTerminalEffects(&txn, ev.Status, ev.Payload)
	} else if !duplicate {
		log.Printf("[Reconciler] Event %s for transaction %s observed a settled state, no-op\n", ev.ProviderEventID, txn.ID.String())
	}
	return nil
}

// FinalizeTransaction drives one pending transaction to a terminal status.
// Shared by the confirm path, the sweeper and gateway-fault handling; the
// conditional update makes every caller race-safe against the others.
func FinalizeTransaction(transactionId uuid.UUID, next types.TransactionStatus, data types.JSONB) (bool, error) {
	var txn models.Transaction
	won := false
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Transaction{}).
			Where("id = ?", transactionId).
			First(&txn).
			Error; err != nil {
			return types.ErrUnknownTransaction
		}
		w, err := applyTransition(tx, &txn, next)
		won = w
		return err
	})
	if err != nil {
		return false, err
	}
	if won {
		postTerminalEffects(&txn, next, data)
	}
	return won, nil
}

// applyTransition flips the status with a single conditional UPDATE: set
// only if still pending. Exactly one of reconciler, sweeper and confirm
// wins; every other contender sees zero affected rows and no-ops. On
// approval the downstream purchases are created in the same transaction, so
// an approved row without purchases is unobservable.
func applyTransition(tx *gorm.DB, txn *models.Transaction, next types.TransactionStatus) (bool, error) {
	if !next.Terminal() {
		return false, nil
	}
	now := time.Now().UTC()
	res := tx.
		Model(&models.Transaction{}).
		Where("id = ? AND status = ?", txn.ID, types.TRANSACTION_PENDING).
		Updates(&models.Transaction{
			Status:      next,
			FinalizedAt: &now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	txn.Status = next
	txn.FinalizedAt = &now

	if next == types.TRANSACTION_APPROVED {
		if err := materializePurchases(tx, txn); err != nil {
			return false, err
		}
		// the cart is cleared only on approval; a decline keeps the lines
		// so the guest can retry without re-adding
		if err := tx.
			Where(&models.CartItem{OwnerKey: txn.OwnerKey}).
			Delete(&models.CartItem{}).
			Error; err != nil {
			return false, err
		}
	}
	return true, nil
}

// materializePurchases creates one purchase record per snapshot line. The
// (transaction_id, line_index) unique key plus OnConflict DoNothing makes a
// second materialization of the same transaction a no-op.
func materializePurchases(tx *gorm.DB, txn *models.Transaction) error {
	lines, err := txn.LineItems()
	if err != nil {
		return fmt.Errorf("%w: %s", types.ErrMaterializationFailed, err.Error())
	}
	for i, line := range lines {
		switch line.Type {
		case types.ITEM_TICKET:
			var date *time.Time
			if line.Date != "" {
				if parsed, err := time.Parse(config.DATE_PARSE_FORMAT, line.Date); err == nil {
					date = &parsed
				}
			}
			purchase := models.TicketPurchase{
				TransactionID: txn.ID,
				LineIndex:     i,
				OwnerKey:      txn.OwnerKey,
				ClubID:        txn.ClubID,
				TicketID:      line.TicketID,
				Date:          date,
				Qty:           line.Qty,
				UnitPrice:     line.UnitPrice,
				Subtotal:      line.Subtotal,
				AdmissionCode: uuid.NewString(),
				Status:        types.PURCHASE_ISSUED,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&purchase).Error; err != nil {
				return fmt.Errorf("%w: %s", types.ErrMaterializationFailed, err.Error())
			}
		case types.ITEM_MENU:
			purchase := models.MenuPurchase{
				TransactionID: txn.ID,
				LineIndex:     i,
				OwnerKey:      txn.OwnerKey,
				ClubID:        txn.ClubID,
				MenuItemID:    line.MenuItemID,
				VariantID:     line.VariantID,
				Qty:           line.Qty,
				UnitPrice:     line.UnitPrice,
				Subtotal:      line.Subtotal,
				Status:        types.PURCHASE_ISSUED,
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&purchase).Error; err != nil {
				return fmt.Errorf("%w: %s", types.ErrMaterializationFailed, err.Error())
			}
		default:
			return fmt.Errorf("%w: unknown line type %q", types.ErrMaterializationFailed, line.Type)
		}
	}
	return nil
}

// postTerminalEffects runs after the transition commits: release the lock,
// notify subscribers, kick off the approved-only side effects.
func postTerminalEffects(txn *models.Transaction, status types.TransactionStatus, data types.JSONB) {
	ctx := context.Background()
	if err := lib.ReleaseCartLock(ctx, txn.OwnerKey, config.CART_LOCK_SCOPE_UNIFIED); err != nil {
		log.Printf("Error releasing cart lock for %s: %s\n", txn.OwnerKey, err.Error())
	}
	if err := lib.PublishTransactionStatus(ctx, txn.ID.String(), status, data); err != nil {
		log.Printf("Error publishing status for %s: %s\n", txn.ID.String(), err.Error())
	}
	log.Printf("[Reconciler] Transaction %s settled as %s\n", txn.ID.String(), status)
	if status == types.TRANSACTION_APPROVED {
		go approvedSideEffects(txn)
	}
}

// approvedSideEffects sends the receipt and feeds the status topic. Both
// are best-effort and env-guarded; the ledger row is already committed.
func approvedSideEffects(txn *models.Transaction) {
	if lib.KafkaEnabled() {
		if err := lib.KafkaProduceMessage(
			"TransactionStatusProducer",
			transactionStatusTopic,
			map[string]any{
				"id":         txn.ID.String(),
				"owner_key":  txn.OwnerKey,
				"club_id":    txn.ClubID,
				"status":     string(txn.Status),
				"total_paid": txn.TotalPaid,
				"currency":   txn.Currency,
			},
		); err != nil {
			log.Printf("Error producing status message for %s: %s\n", txn.ID.String(), err.Error())
		}
	}
	if txn.BuyerEmail != "" {
		if err := sendReceiptEmail(txn); err != nil {
			log.Printf("Error sending receipt for %s: %s\n", txn.ID.String(), err.Error())
		}
	}
}

func sendReceiptEmail(txn *models.Transaction) error {
	from := config.MailFrom()
	if from == "" {
		return nil
	}
	lines, err := txn.LineItems()
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Your order %s is confirmed.\n\n", txn.ID.String())
	for _, line := range lines {
		body += fmt.Sprintf("  %dx %s — %d %s\n", line.Qty, line.Label, line.Subtotal, txn.Currency)
	}
	body += fmt.Sprintf("\nTotal paid: %d %s\n", txn.TotalPaid, txn.Currency)
	return lib.SendMail(&lib.SendMailInput{
		From:     from,
		FromName: "Checkout",
		To:       []string{txn.BuyerEmail},
		Subject:  fmt.Sprintf("Order confirmation %s", txn.ID.String()),
		Body:     body,
	})
}
