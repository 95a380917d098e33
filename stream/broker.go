package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/ext"
	"github.com/xraph/fairq/item"
)

// Compile-time interface checks.
var (
	_ ext.Extension      = (*Broker)(nil)
	_ ext.ItemEnqueued   = (*Broker)(nil)
	_ ext.ItemDequeued   = (*Broker)(nil)
	_ ext.ItemProcessed  = (*Broker)(nil)
	_ ext.ItemRetried    = (*Broker)(nil)
	_ ext.ItemFailed     = (*Broker)(nil)
	_ ext.PolicyUpdated  = (*Broker)(nil)
	_ ext.BurstActivated = (*Broker)(nil)
	_ ext.BurstCompleted = (*Broker)(nil)
	_ ext.Shutdown       = (*Broker)(nil)
)

// DefaultBufferSize is the default per-subscriber event buffer.
const DefaultBufferSize = 256

// DefaultCredits is the default initial credits for new subscribers.
const DefaultCredits int64 = 1000

// Broker is the real-time stream broker. It implements the ext.Extension
// interface to receive lifecycle events and fans them out to subscribers
// via topic-based pub/sub.
type Broker struct {
	topics *TopicRegistry
	logger *slog.Logger

	// Subscriber management.
	subscribers sync.Map // subscriberID → *Subscriber

	// Metrics.
	totalPublished atomic.Int64

	// Config.
	bufferSize     int
	defaultCredits int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBufferSize sets the per-subscriber event buffer size.
func WithBufferSize(size int) BrokerOption {
	return func(b *Broker) { b.bufferSize = size }
}

// WithDefaultCredits sets the initial credits for new subscribers.
func WithDefaultCredits(credits int64) BrokerOption {
	return func(b *Broker) { b.defaultCredits = credits }
}

// NewBroker creates a new stream broker.
func NewBroker(logger *slog.Logger, opts ...BrokerOption) *Broker {
	b := &Broker{
		topics:         NewTopicRegistry(),
		logger:         logger,
		bufferSize:     DefaultBufferSize,
		defaultCredits: DefaultCredits,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements ext.Extension.
func (b *Broker) Name() string { return "stream-broker" }

// Topics returns the topic registry for external use.
func (b *Broker) Topics() *TopicRegistry { return b.topics }

// Subscribe creates a new subscriber on the given topics.
func (b *Broker) Subscribe(subscriberID string, topics ...string) *Subscriber {
	sub := NewSubscriber(subscriberID, b.bufferSize, b.defaultCredits)
	b.subscribers.Store(subscriberID, sub)
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
	return sub
}

// SubscribeTo adds an existing subscriber to additional topics.
func (b *Broker) SubscribeTo(subscriberID string, topics ...string) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return
	}
	sub := val.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
	for _, topic := range topics {
		b.topics.Subscribe(topic, sub)
	}
}

// Unsubscribe removes a subscriber from specific topics.
func (b *Broker) Unsubscribe(subscriberID string, topics ...string) {
	for _, topic := range topics {
		b.topics.Unsubscribe(topic, subscriberID)
	}
}

// RemoveSubscriber removes a subscriber from all topics and closes it.
func (b *Broker) RemoveSubscriber(subscriberID string) {
	b.topics.UnsubscribeAll(subscriberID)
	if val, ok := b.subscribers.LoadAndDelete(subscriberID); ok {
		val.(*Subscriber).Close() //nolint:errcheck // sync.Map always stores *Subscriber
	}
}

// GetSubscriber returns a subscriber by ID.
func (b *Broker) GetSubscriber(subscriberID string) (*Subscriber, bool) {
	val, ok := b.subscribers.Load(subscriberID)
	if !ok {
		return nil, false
	}
	return val.(*Subscriber), true //nolint:errcheck // sync.Map always stores *Subscriber
}

// Stats returns broker statistics.
func (b *Broker) Stats() BrokerStats {
	count := 0
	b.subscribers.Range(func(_, _ any) bool {
		count++
		return true
	})
	return BrokerStats{
		TopicCount:      b.topics.TopicCount(),
		SubscriberCount: count,
		TotalPublished:  b.totalPublished.Load(),
	}
}

// BrokerStats contains broker metrics.
type BrokerStats struct {
	TopicCount      int   `json:"topic_count"`
	SubscriberCount int   `json:"subscriber_count"`
	TotalPublished  int64 `json:"total_published"`
}

// publish broadcasts an event to all matching topics. tenantTopic may be
// empty for scheduler-level events.
func (b *Broker) publish(evt *Event, tenantTopic string) {
	topics := resolveTopics(evt, tenantTopic)
	delivered := b.topics.Broadcast(topics, evt)
	b.totalPublished.Add(int64(delivered))
}

// mustMarshal marshals data to JSON, panicking on error (programming error).
func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("stream: marshal event data: " + err.Error())
	}
	return data
}

func itemData(it *item.Item) ItemEventData {
	return ItemEventData{
		ItemID:     it.ID.String(),
		TenantID:   it.TenantID,
		Tier:       string(it.Tier),
		Priority:   it.Priority,
		RetryCount: it.RetryCount,
	}
}

// ── Item lifecycle hooks ────────────────────────────

func (b *Broker) OnItemEnqueued(_ context.Context, it *item.Item) error {
	b.publish(&Event{
		Type:      EventItemEnqueued,
		Timestamp: time.Now().UTC(),
		Topic:     ItemTopic(it.ID.String()),
		Data:      mustMarshal(itemData(it)),
	}, TenantTopic(it.TenantID))
	return nil
}

func (b *Broker) OnItemDequeued(_ context.Context, it *item.Item, wait time.Duration) error {
	data := itemData(it)
	data.WaitMs = wait.Milliseconds()
	b.publish(&Event{
		Type:      EventItemDequeued,
		Timestamp: time.Now().UTC(),
		Topic:     ItemTopic(it.ID.String()),
		Data:      mustMarshal(data),
	}, TenantTopic(it.TenantID))
	return nil
}

func (b *Broker) OnItemProcessed(_ context.Context, it *item.Item, elapsed time.Duration) error {
	data := itemData(it)
	data.ElapsedMs = elapsed.Milliseconds()
	b.publish(&Event{
		Type:      EventItemProcessed,
		Timestamp: time.Now().UTC(),
		Topic:     ItemTopic(it.ID.String()),
		Data:      mustMarshal(data),
	}, TenantTopic(it.TenantID))
	return nil
}

func (b *Broker) OnItemRetried(_ context.Context, it *item.Item, attempt int, newPriority float64) error {
	data := itemData(it)
	data.Attempt = attempt
	data.Priority = newPriority
	b.publish(&Event{
		Type:      EventItemRetried,
		Timestamp: time.Now().UTC(),
		Topic:     ItemTopic(it.ID.String()),
		Data:      mustMarshal(data),
	}, TenantTopic(it.TenantID))
	return nil
}

func (b *Broker) OnItemFailed(_ context.Context, it *item.Item, itemErr error) error {
	data := itemData(it)
	data.Error = itemErr.Error()
	b.publish(&Event{
		Type:      EventItemFailed,
		Timestamp: time.Now().UTC(),
		Topic:     ItemTopic(it.ID.String()),
		Data:      mustMarshal(data),
	}, TenantTopic(it.TenantID))
	return nil
}

// ── Scheduler lifecycle hooks ───────────────────────

func (b *Broker) OnPolicyUpdated(_ context.Context, policy fairq.FairnessPolicy) error {
	weights := make(map[string]float64, len(policy.TierWeights))
	for tier, w := range policy.TierWeights {
		weights[string(tier)] = w
	}
	b.publish(&Event{
		Type:      EventPolicyUpdated,
		Timestamp: time.Now().UTC(),
		Data: mustMarshal(PolicyEventData{
			Algorithm:        policy.Algorithm.String(),
			TierWeights:      weights,
			MaxStarvationMs:  policy.MaxStarvationTime.Milliseconds(),
			AgingThresholdMs: policy.AgingThreshold.Milliseconds(),
		}),
	}, "")
	return nil
}

func (b *Broker) OnBurstActivated(_ context.Context, allowance float64, until time.Time) error {
	b.publish(&Event{
		Type:      EventBurstActivated,
		Timestamp: time.Now().UTC(),
		Data: mustMarshal(BurstEventData{
			Allowance: allowance,
			Until:     until.Format(time.RFC3339),
		}),
	}, "")
	return nil
}

func (b *Broker) OnBurstCompleted(_ context.Context, restored float64) error {
	b.publish(&Event{
		Type:      EventBurstCompleted,
		Timestamp: time.Now().UTC(),
		Data:      mustMarshal(BurstEventData{Allowance: restored}),
	}, "")
	return nil
}

// ── Shutdown ────────────────────────────────────────

func (b *Broker) OnShutdown(_ context.Context) error {
	b.subscribers.Range(func(key, value any) bool {
		sub := value.(*Subscriber) //nolint:errcheck // sync.Map always stores *Subscriber
		sub.Close()
		b.subscribers.Delete(key)
		return true
	})
	b.logger.Info("stream broker shut down")
	return nil
}
