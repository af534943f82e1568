package syncqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/deployfin/internal/canon"
	"github.com/roach88/deployfin/internal/datemath"
	"github.com/roach88/deployfin/internal/ident"
)

// ErrUnknownType is returned by Add for an item type outside the known set.
var ErrUnknownType = errors.New("unknown queue item type")

// ErrNoSyncer is recorded on items drained without a Syncer.
var ErrNoSyncer = errors.New("no syncer configured")

// Snapshot is the persisted form of a queue.
type Snapshot struct {
	Items        []Item     `json:"items"`
	Online       bool       `json:"online"`
	PendingItems int        `json:"pending_items"`
	FailedItems  int        `json:"failed_items"`
	LastSyncAt   *time.Time `json:"last_sync_at,omitempty"`
}

// Stats summarises queue state.
type Stats struct {
	Online     bool       `json:"online"`
	Total      int        `json:"total"`
	Pending    int        `json:"pending"`
	Failed     int        `json:"failed"`
	Synced     int        `json:"synced"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
}

// Result reports one drain.
type Result struct {
	// Ran is false when the drain was skipped (offline or empty queue).
	Ran       bool `json:"ran"`
	Attempted int  `json:"attempted"`
	Synced    int  `json:"synced"`
	Failed    int  `json:"failed"`
}

// Queue is an ordered, mutex-guarded buffer of offline mutations.
//
// Thread-safety: all methods may be called from any goroutine. Process
// holds the lock for the whole drain, so items are attempted strictly one
// at a time in insertion order.
type Queue struct {
	mu         sync.Mutex
	items      []Item
	online     bool
	pending    int
	failed     int
	lastSyncAt *time.Time

	clock datemath.Clock
	ids   ident.Generator
}

// New creates an empty queue that starts online.
func New(clock datemath.Clock, ids ident.Generator) *Queue {
	return &Queue{
		items:  make([]Item, 0, 16),
		online: true,
		clock:  clock,
		ids:    ids,
	}
}

// Restore creates a queue from a persisted snapshot. Counters are
// recomputed from item statuses rather than trusted.
func Restore(s Snapshot, clock datemath.Clock, ids ident.Generator) *Queue {
	q := New(clock, ids)
	q.online = s.Online
	for _, it := range s.Items {
		q.items = append(q.items, it.clone())
	}
	if s.LastSyncAt != nil {
		at := *s.LastSyncAt
		q.lastSyncAt = &at
	}
	q.recount()
	return q
}

// Snapshot returns a deep copy of the queue state for persistence.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Snapshot{
		Items:        q.itemsLocked(),
		Online:       q.online,
		PendingItems: q.pending,
		FailedItems:  q.failed,
	}
	if q.lastSyncAt != nil {
		at := *q.lastSyncAt
		s.LastSyncAt = &at
	}
	return s
}

// Add appends a pending item. The payload must be valid JSON; it is
// stored verbatim and fingerprinted in canonical form.
func (q *Queue) Add(itemType ItemType, payload json.RawMessage) (Item, error) {
	if !itemType.Valid() {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownType, itemType)
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	fp, err := canon.Fingerprint(payload)
	if err != nil {
		return Item{}, fmt.Errorf("add %s item: %w", itemType, err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	it := Item{
		ID:          q.ids.Generate(),
		Type:        itemType,
		Payload:     append(json.RawMessage(nil), payload...),
		Fingerprint: fp,
		CreatedAt:   q.clock.Now(),
		Status:      StatusPending,
	}
	q.items = append(q.items, it)
	q.pending++

	slog.Debug("queue item added", "id", it.ID, "type", it.Type, "fingerprint", it.Fingerprint)
	return it.clone(), nil
}

// Process attempts every pending item in insertion order.
//
// It is a no-op when offline or when the queue is empty. A failing item is
// marked failed with its retry count incremented and the error recorded;
// the drain then moves on. Once started, every pending item is attempted
// even if ctx is cancelled; the Syncer is expected to fail fast in that
// case.
func (q *Queue) Process(ctx context.Context, syncer Syncer) Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.processLocked(ctx, syncer)
}

func (q *Queue) processLocked(ctx context.Context, syncer Syncer) Result {
	if !q.online || len(q.items) == 0 {
		return Result{}
	}

	res := Result{Ran: true}
	for i := range q.items {
		it := &q.items[i]
		if it.Status != StatusPending {
			continue
		}

		it.Status = StatusSyncing
		res.Attempted++

		var err error
		if syncer == nil {
			err = ErrNoSyncer
		} else {
			err = syncer.Sync(ctx, it.clone())
		}

		at := q.clock.Now()
		it.LastAttemptAt = &at
		if err != nil {
			it.Status = StatusFailed
			it.RetryCount++
			it.Error = err.Error()
			res.Failed++
			slog.Warn("queue item sync failed",
				"id", it.ID,
				"type", it.Type,
				"retry_count", it.RetryCount,
				"error", err)
			continue
		}
		it.Status = StatusSynced
		it.Error = ""
		res.Synced++
	}

	q.recount()
	now := q.clock.Now()
	q.lastSyncAt = &now

	slog.Info("queue drained",
		"attempted", res.Attempted,
		"synced", res.Synced,
		"failed", res.Failed)
	return res
}

// SetOnline records connectivity. Going from offline to online drains the
// queue; the drain result is returned (zero otherwise).
func (q *Queue) SetOnline(ctx context.Context, online bool, syncer Syncer) Result {
	q.mu.Lock()
	defer q.mu.Unlock()

	wasOnline := q.online
	q.online = online
	slog.Debug("queue connectivity changed", "online", online)

	if online && !wasOnline {
		return q.processLocked(ctx, syncer)
	}
	return Result{}
}

// RetryFailed moves every failed item back to pending and returns how
// many moved. Retry counts are kept.
func (q *Queue) RetryFailed() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for i := range q.items {
		if q.items[i].Status == StatusFailed {
			q.items[i].Status = StatusPending
			n++
		}
	}
	q.recount()
	return n
}

// ClearSynced removes synced items and returns how many were removed.
// Pending and failed items are always preserved.
func (q *Queue) ClearSynced() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	removed := 0
	for _, it := range q.items {
		if it.Status == StatusSynced {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	clear(q.items[len(kept):])
	q.items = kept
	q.recount()
	return removed
}

// Items returns a copy of every item in insertion order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.itemsLocked()
}

// Online reports the recorded connectivity.
func (q *Queue) Online() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.online
}

// Stats returns counters for the current items.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{
		Online:  q.online,
		Total:   len(q.items),
		Pending: q.pending,
		Failed:  q.failed,
	}
	for _, it := range q.items {
		if it.Status == StatusSynced {
			s.Synced++
		}
	}
	if q.lastSyncAt != nil {
		at := *q.lastSyncAt
		s.LastSyncAt = &at
	}
	return s
}

// Len returns the number of items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *Queue) itemsLocked() []Item {
	out := make([]Item, len(q.items))
	for i, it := range q.items {
		out[i] = it.clone()
	}
	return out
}

// recount derives the counters from item statuses. An item left in
// syncing (a drain interrupted by a crash) counts as pending.
func (q *Queue) recount() {
	q.pending, q.failed = 0, 0
	for i := range q.items {
		switch q.items[i].Status {
		case StatusSyncing:
			q.items[i].Status = StatusPending
			q.pending++
		case StatusPending:
			q.pending++
		case StatusFailed:
			q.failed++
		}
	}
}
