package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ucc/src/types"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CartLock is the value stored behind the lock key. One active lock exists
// per (ownerKey, scope); the TTL on the key is the liveness guarantee.
type CartLock struct {
	OwnerKey  string    `json:"owner_key"`
	Scope     string    `json:"scope"`
	Token     string    `json:"token"`
	Reason    string    `json:"reason,omitempty"`
	HeldSince time.Time `json:"held_since"`
}

func cartLockKey(ownerKey, scope string) string {
	return fmt.Sprintf("cartlock:%s:%s", ownerKey, scope)
}

// AcquireCartLock takes the lock with a single SETNX so two concurrent
// checkouts can never both believe they hold it. The loser gets
// ErrAlreadyLocked.
func AcquireCartLock(ctx context.Context, ownerKey, scope, reason string, ttl time.Duration) (*CartLock, error) {
	lock := CartLock{
		OwnerKey:  ownerKey,
		Scope:     scope,
		Token:     uuid.NewString(),
		Reason:    reason,
		HeldSince: time.Now().UTC(),
	}
	payload, err := json.Marshal(&lock)
	if err != nil {
		return nil, err
	}
	rd := GetRedisClient()
	ok, err := rd.SetNX(ctx, cartLockKey(ownerKey, scope), string(payload), ttl).Result()
	if err != nil {
		log.Printf("[CartLock] Error acquiring lock for %s/%s: %s\n", ownerKey, scope, err.Error())
		return nil, err
	}
	if !ok {
		return nil, types.ErrAlreadyLocked
	}
	return &lock, nil
}

func ReleaseCartLock(ctx context.Context, ownerKey, scope string) error {
	rd := GetRedisClient()
	if err := rd.Del(ctx, cartLockKey(ownerKey, scope)).Err(); err != nil {
		log.Printf("[CartLock] Error releasing lock for %s/%s: %s\n", ownerKey, scope, err.Error())
		return err
	}
	return nil
}

// CartLockHeld is the advisory read used to reject cart writes during a
// checkout window. The atomic guard is AcquireCartLock; a failed read is
// treated as unlocked rather than blocking every cart mutation.
func CartLockHeld(ctx context.Context, ownerKey, scope string) (bool, *CartLock) {
	rd := GetRedisClient()
	val, err := rd.Get(ctx, cartLockKey(ownerKey, scope)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		log.Printf("[CartLock] Error reading lock for %s/%s: %s\n", ownerKey, scope, err.Error())
		return false, nil
	}
	var lock CartLock
	if err := json.Unmarshal([]byte(val), &lock); err != nil {
		log.Printf("[CartLock] Error decoding lock for %s/%s: %s\n", ownerKey, scope, err.Error())
		return true, nil
	}
	return true, &lock
}

// ForceUnlockCart is the administrative escape hatch. The actor is logged:
// TTL expiry alone is not always fast enough for support workflows.
func ForceUnlockCart(ctx context.Context, ownerKey, scope, actor string) error {
	held, lock := CartLockHeld(ctx, ownerKey, scope)
	if !held {
		log.Printf("[CartLock] Force-unlock by %s: no lock held for %s/%s\n", actor, ownerKey, scope)
		return nil
	}
	if lock != nil {
		log.Printf("[CartLock] Force-unlock by %s: %s/%s held since %s (%s)\n", actor, ownerKey, scope, lock.HeldSince, lock.Reason)
	} else {
		log.Printf("[CartLock] Force-unlock by %s: %s/%s\n", actor, ownerKey, scope)
	}
	return ReleaseCartLock(ctx, ownerKey, scope)
}
