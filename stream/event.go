// Package stream provides a real-time event broker for fairq lifecycle events.
// It bridges the ext.Extension system to connected clients via topic-based pub/sub.
package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Item events.
	EventItemEnqueued  EventType = "item.enqueued"
	EventItemDequeued  EventType = "item.dequeued"
	EventItemProcessed EventType = "item.processed"
	EventItemRetried   EventType = "item.retried"
	EventItemFailed    EventType = "item.failed"

	// Scheduler events.
	EventPolicyUpdated  EventType = "policy.updated"
	EventBurstActivated EventType = "burst.activated"
	EventBurstCompleted EventType = "burst.completed"
)

// Event is the envelope sent to subscribers on a topic channel.
type Event struct {
	// Type identifies the lifecycle event.
	Type EventType `json:"type"`

	// Timestamp is when the event was emitted.
	Timestamp time.Time `json:"ts"`

	// Topic is the channel this event was published on.
	Topic string `json:"topic"`

	// Data is the event-specific payload.
	Data json.RawMessage `json:"data"`
}

// ItemEventData is the payload for item lifecycle events.
type ItemEventData struct {
	ItemID     string  `json:"item_id"`
	TenantID   string  `json:"tenant_id"`
	Tier       string  `json:"tier"`
	Priority   float64 `json:"priority"`
	WaitMs     int64   `json:"wait_ms,omitempty"`
	ElapsedMs  int64   `json:"elapsed_ms,omitempty"`
	Error      string  `json:"error,omitempty"`
	Attempt    int     `json:"attempt,omitempty"`
	RetryCount int     `json:"retry_count,omitempty"`
}

// PolicyEventData is the payload for policy update events.
type PolicyEventData struct {
	Algorithm        string             `json:"algorithm"`
	TierWeights      map[string]float64 `json:"tier_weights"`
	MaxStarvationMs  int64              `json:"max_starvation_ms"`
	AgingThresholdMs int64              `json:"aging_threshold_ms"`
}

// BurstEventData is the payload for burst lifecycle events.
type BurstEventData struct {
	Allowance float64 `json:"allowance"`
	Until     string  `json:"until,omitempty"`
}
