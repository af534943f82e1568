package lifecycle

import (
	"context"

	"github.com/roach88/deployfin/internal/deployment"
	"github.com/roach88/deployfin/internal/syncqueue"
)

// StateVersion is the layout version written into every State.
const StateVersion = 1

// State is the full engine state persisted after every mutation.
type State struct {
	Version int                        `json:"version"`
	Active  *deployment.Info           `json:"active,omitempty"`
	Budget  *deployment.Budget         `json:"budget,omitempty"`
	Tracker *deployment.SavingsTracker `json:"tracker,omitempty"`
	History []deployment.Info          `json:"history"`
	Queue   syncqueue.Snapshot         `json:"queue"`
}

// StateStore persists the engine state as one blob.
type StateStore interface {
	// Load returns the last saved state, or (nil, nil) if nothing has
	// been saved yet.
	Load(ctx context.Context) (*State, error)

	// Save replaces the stored state.
	Save(ctx context.Context, s *State) error
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := &State{
		Version: s.Version,
		Active:  s.Active.Clone(),
		Budget:  s.Budget.Clone(),
		Tracker: s.Tracker.Clone(),
		History: make([]deployment.Info, 0, len(s.History)),
		Queue:   cloneQueueSnapshot(s.Queue),
	}
	for i := range s.History {
		c.History = append(c.History, *s.History[i].Clone())
	}
	return c
}

func cloneQueueSnapshot(q syncqueue.Snapshot) syncqueue.Snapshot {
	c := q
	c.Items = append([]syncqueue.Item(nil), q.Items...)
	for i := range c.Items {
		c.Items[i].Payload = append([]byte(nil), q.Items[i].Payload...)
		if q.Items[i].LastAttemptAt != nil {
			at := *q.Items[i].LastAttemptAt
			c.Items[i].LastAttemptAt = &at
		}
	}
	if q.LastSyncAt != nil {
		at := *q.LastSyncAt
		c.LastSyncAt = &at
	}
	return c
}

// emptyState is the state of a fresh install. Its queue starts online,
// matching syncqueue.New.
func emptyState() *State {
	return &State{
		Version: StateVersion,
		History: []deployment.Info{},
		Queue:   syncqueue.Snapshot{Items: []syncqueue.Item{}, Online: true},
	}
}
