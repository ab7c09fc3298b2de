// Package audit keeps a bounded trail of attendance events, maintained
// by the worker outside the request path.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"timetrack/internal/kvstore"
	"timetrack/internal/queue"
)

const logKey = "timetrack:audit_log"

// Trail appends attendance events to a capped JSON list in the store.
type Trail struct {
	kv    kvstore.Store
	limit int
}

// NewTrail creates a trail keeping at most limit entries.
func NewTrail(kv kvstore.Store, limit int) *Trail {
	if limit <= 0 {
		limit = 1000
	}
	return &Trail{kv: kv, limit: limit}
}

// Append records the event, dropping the oldest entries past the cap.
func (t *Trail) Append(ctx context.Context, evt queue.Event) error {
	entries := t.Entries(ctx)
	entries = append(entries, evt)
	if len(entries) > t.limit {
		entries = entries[len(entries)-t.limit:]
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode audit log: %w", err)
	}
	if err := t.kv.Set(ctx, logKey, string(raw)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Entries returns the stored trail, empty on missing or corrupt storage.
func (t *Trail) Entries(ctx context.Context) []queue.Event {
	raw, ok, err := t.kv.Get(ctx, logKey)
	if err != nil {
		log.Printf("warning: read audit log failed: %v", err)
		return nil
	}
	if !ok {
		return nil
	}
	var entries []queue.Event
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		log.Printf("warning: decode audit log failed: %v", err)
		return nil
	}
	return entries
}
