// Package memory provides a fully in-memory dead letter store.
// Safe for concurrent access. Intended for unit testing, development, and
// single-process deployments that do not need the archive to survive
// restarts.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/dlq"
	"github.com/xraph/fairq/id"
)

// Ensure Store implements dlq.Store at compile time.
var _ dlq.Store = (*Store)(nil)

// Store is an in-memory implementation of dlq.Store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*dlq.Entry
}

// New returns a new empty Store.
func New() *Store {
	return &Store{entries: make(map[string]*dlq.Entry)}
}

// PushDLQ adds a failed item entry to the dead letter queue.
func (m *Store) PushDLQ(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[entry.ID.String()] = &cp
	return nil
}

// ListDLQ returns DLQ entries matching the given options, ordered by
// FailedAt descending (most recent failures first).
func (m *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	m.mu.RLock()
	out := make([]*dlq.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if opts.Tenant != "" && e.TenantID != opts.Tenant {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].FailedAt.After(out[j].FailedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// GetDLQ retrieves a DLQ entry by ID.
func (m *Store) GetDLQ(_ context.Context, entryID id.DeadLetterID) (*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[entryID.String()]
	if !ok {
		return nil, fairq.ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

// ReplayDLQ marks a DLQ entry as replayed.
func (m *Store) ReplayDLQ(_ context.Context, entryID id.DeadLetterID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[entryID.String()]
	if !ok {
		return fairq.ErrEntryNotFound
	}
	now := time.Now().UTC()
	e.ReplayedAt = &now
	return nil
}

// PurgeDLQ removes DLQ entries with FailedAt before the given time.
func (m *Store) PurgeDLQ(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for key, e := range m.entries {
		if e.FailedAt.Before(before) {
			delete(m.entries, key)
			purged++
		}
	}
	return purged, nil
}

// CountDLQ returns the total number of entries in the dead letter queue.
func (m *Store) CountDLQ(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.entries)), nil
}
