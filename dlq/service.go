package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/fairq/id"
	"github.com/xraph/fairq/item"
)

// Service provides high-level DLQ operations over a Store.
type Service struct {
	store Store
}

// NewService creates a DLQ service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Push builds a DLQ Entry from a failed item and persists it.
// The error string is captured from the final processing error; the payload
// is serialized to JSON so it survives any storage backend.
func (s *Service) Push(ctx context.Context, it *item.Item, itemErr error) error {
	payload, err := json.Marshal(it.Payload)
	if err != nil {
		return fmt.Errorf("dlq: marshal payload for item %s: %w", it.ID, err)
	}

	now := time.Now().UTC()
	entry := &Entry{
		ID:         id.NewDeadLetterID(),
		ItemID:     it.ID,
		TenantID:   it.TenantID,
		Tier:       it.Tier,
		Payload:    payload,
		Error:      itemErr.Error(),
		Cost:       it.Cost,
		RetryCount: it.RetryCount,
		MaxRetries: it.MaxRetries,
		FailedAt:   now,
		CreatedAt:  now,
	}
	return s.store.PushDLQ(ctx, entry)
}

// Replay rebuilds a fresh pending item from a DLQ entry and marks the entry
// as replayed. The new item gets a fresh ID and a zero retry count; the
// caller is responsible for enqueueing it through the scheduler. The payload
// comes back as json.RawMessage since the original Go type is not recoverable.
func (s *Service) Replay(ctx context.Context, entryID id.DeadLetterID) (*item.Item, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}

	it := item.New(entry.TenantID, json.RawMessage(entry.Payload),
		item.WithTier(entry.Tier),
		item.WithCost(entry.Cost),
		item.WithMaxRetries(entry.MaxRetries),
	)

	if err := s.store.ReplayDLQ(ctx, entryID); err != nil {
		// The item is already built. Return it alongside the marking error.
		return it, err
	}
	return it, nil
}

// Store returns the underlying DLQ store for direct access to List, Get,
// Purge, and Count operations.
func (s *Service) Store() Store {
	return s.store
}
