package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/deployfin/internal/syncqueue"
)

// HTTPSyncer posts queued items as JSON to a remote endpoint.
//
// Each request carries the item ID as Idempotency-Key; a drain that
// re-sends an item after a failed save relies on the server honouring it.
type HTTPSyncer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSyncer creates a syncer with a per-request timeout.
func NewHTTPSyncer(endpoint string, timeout time.Duration) *HTTPSyncer {
	return &HTTPSyncer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type syncRequest struct {
	ID          string             `json:"id"`
	Type        syncqueue.ItemType `json:"type"`
	Fingerprint string             `json:"fingerprint"`
	CreatedAt   time.Time          `json:"created_at"`
	Payload     json.RawMessage    `json:"payload"`
}

// Sync implements syncqueue.Syncer. Any non-2xx response is a failure.
func (s *HTTPSyncer) Sync(ctx context.Context, it syncqueue.Item) error {
	body, err := json.Marshal(syncRequest{
		ID:          it.ID,
		Type:        it.Type,
		Fingerprint: it.Fingerprint,
		CreatedAt:   it.CreatedAt,
		Payload:     it.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode item %s: %w", it.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", it.ID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post item %s: %w", it.ID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("post item %s: server returned %s", it.ID, resp.Status)
	}

	slog.Debug("queue item posted", "id", it.ID, "status", resp.StatusCode)
	return nil
}
