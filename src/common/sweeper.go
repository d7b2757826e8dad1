package common

import (
	"log"
	"time"

	"ucc/src/config"
	"ucc/src/db"
	"ucc/src/models"
	"ucc/src/types"
)

// SweepPendingTransactions is the cron safety net: any transaction still
// pending past the timeout horizon is forced to timeout. The conditional
// update inside FinalizeTransaction means a webhook landing mid-sweep still
// wins cleanly.
func SweepPendingTransactions() {
	cutoff := time.Now().UTC().Add(-config.PendingTimeout())
	var stale []models.Transaction
	db := db.GetDb()
	if err := db.
		Where("status = ? AND created_at < ?", types.TRANSACTION_PENDING, cutoff).
		Find(&stale).
		Error; err != nil {
		log.Printf("[Sweeper] Query failed: %s\n", err.Error())
		return
	}
	if len(stale) == 0 {
		return
	}
	log.Printf("[Sweeper] Found %d stale pending transactions\n", len(stale))
	for _, txn := range stale {
		won, err := FinalizeTransaction(txn.ID, types.TRANSACTION_TIMEOUT, types.JSONB{"source": "sweeper"})
		if err != nil {
			log.Printf("[Sweeper] Could not time out transaction %s: %s\n", txn.ID.String(), err.Error())
			continue
		}
		if won {
			log.Printf("[Sweeper] Transaction %s timed out\n", txn.ID.String())
		}
	}
}
