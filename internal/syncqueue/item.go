package syncqueue

import (
	"context"
	"encoding/json"
	"time"
)

// ItemType identifies the kind of mutation carried by an item.
type ItemType string

const (
	ItemTransaction  ItemType = "transaction"
	ItemBudgetUpdate ItemType = "budget_update"
	ItemGoalUpdate   ItemType = "goal_update"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTransaction, ItemBudgetUpdate, ItemGoalUpdate:
		return true
	}
	return false
}

// Status is an item's position in the sync lifecycle.
type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

// Item is one buffered mutation. Fingerprint is the canonical hash of
// Payload.
type Item struct {
	ID            string          `json:"id"`
	Type          ItemType        `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Fingerprint   string          `json:"fingerprint"`
	CreatedAt     time.Time       `json:"created_at"`
	Status        Status          `json:"status"`
	RetryCount    int             `json:"retry_count"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
	Error         string          `json:"error,omitempty"`
}

func (it Item) clone() Item {
	c := it
	c.Payload = append(json.RawMessage(nil), it.Payload...)
	if it.LastAttemptAt != nil {
		at := *it.LastAttemptAt
		c.LastAttemptAt = &at
	}
	return c
}

// Syncer delivers one item to the remote side. A non-nil error marks the
// item failed; it never aborts the rest of the drain.
type Syncer interface {
	Sync(ctx context.Context, item Item) error
}

// SyncerFunc adapts a function to the Syncer interface.
type SyncerFunc func(ctx context.Context, item Item) error

// Sync calls f.
func (f SyncerFunc) Sync(ctx context.Context, item Item) error {
	return f(ctx, item)
}
