package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ucc/src/types"

	"github.com/redis/go-redis/v9"
)

// TransactionStatusEvent is the payload fanned out to status subscribers.
// Delivery is best-effort: a client that misses an update falls back to the
// transaction read, which is the source of truth.
type TransactionStatusEvent struct {
	TransactionID string                  `json:"transaction_id"`
	Status        types.TransactionStatus `json:"status"`
	Data          types.JSONB             `json:"data,omitempty"`
	PublishedAt   time.Time               `json:"published_at"`
}

func transactionChannel(transactionId string) string {
	return fmt.Sprintf("txn:status:%s", transactionId)
}

// PublishTransactionStatus fans a status change out over redis pub/sub so
// every service instance holding a subscriber sees it.
func PublishTransactionStatus(ctx context.Context, transactionId string, status types.TransactionStatus, data types.JSONB) error {
	ev := TransactionStatusEvent{
		TransactionID: transactionId,
		Status:        status,
		Data:          data,
		PublishedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(&ev)
	if err != nil {
		return err
	}
	rd := GetRedisClient()
	if err := rd.Publish(ctx, transactionChannel(transactionId), string(payload)).Err(); err != nil {
		log.Printf("[Broadcast] Error publishing status for %s: %s\n", transactionId, err.Error())
		return err
	}
	return nil
}

// SubscribeTransactionStatus opens a typed stream of status events for one
// transaction. Closing the returned PubSub ends the stream; it cancels only
// this subscription, never the transaction.
func SubscribeTransactionStatus(ctx context.Context, transactionId string) (*redis.PubSub, <-chan TransactionStatusEvent) {
	rd := GetRedisClient()
	pubsub := rd.Subscribe(ctx, transactionChannel(transactionId))
	out := make(chan TransactionStatusEvent, 4)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev TransactionStatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[Broadcast] Error decoding event for %s: %s\n", transactionId, err.Error())
				continue
			}
			out <- ev
		}
	}()
	return pubsub, out
}
