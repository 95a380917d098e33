package stream_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/item"
	"github.com/xraph/fairq/stream"
)

func newBroker(opts ...stream.BrokerOption) *stream.Broker {
	return stream.NewBroker(slog.New(slog.DiscardHandler), opts...)
}

// drain reads all buffered events from a subscriber without blocking.
func drain(sub *stream.Subscriber) []*stream.Event {
	var out []*stream.Event
	for {
		select {
		case evt := <-sub.C():
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestBroker_FirehoseSeesEverything(t *testing.T) {
	b := newBroker()
	sub := b.Subscribe("s1", stream.TopicFirehose)

	it := item.New("acme", nil, item.WithTier(fairq.TierBasic))
	ctx := context.Background()
	if err := b.OnItemEnqueued(ctx, it); err != nil {
		t.Fatalf("OnItemEnqueued: %v", err)
	}
	if err := b.OnPolicyUpdated(ctx, fairq.DefaultPolicy()); err != nil {
		t.Fatalf("OnPolicyUpdated: %v", err)
	}
	if err := b.OnBurstActivated(ctx, 1200, time.Now().Add(time.Second)); err != nil {
		t.Fatalf("OnBurstActivated: %v", err)
	}

	events := drain(sub)
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	want := []stream.EventType{
		stream.EventItemEnqueued,
		stream.EventPolicyUpdated,
		stream.EventBurstActivated,
	}
	for i, evt := range events {
		if evt.Type != want[i] {
			t.Errorf("event %d type = %q, want %q", i, evt.Type, want[i])
		}
	}
}

func TestBroker_TopicsScopeDelivery(t *testing.T) {
	b := newBroker()
	items := b.Subscribe("items", stream.TopicItems)
	sched := b.Subscribe("sched", stream.TopicScheduler)
	acme := b.Subscribe("acme", stream.TenantTopic("acme"))
	other := b.Subscribe("other", stream.TenantTopic("globex"))

	ctx := context.Background()
	it := item.New("acme", nil, item.WithTier(fairq.TierBasic))
	b.OnItemDequeued(ctx, it, 2*time.Second)  //nolint:errcheck
	b.OnPolicyUpdated(ctx, fairq.DefaultPolicy()) //nolint:errcheck

	if got := drain(items); len(got) != 1 || got[0].Type != stream.EventItemDequeued {
		t.Errorf("items topic got %d events, want just the dequeue", len(got))
	}
	if got := drain(sched); len(got) != 1 || got[0].Type != stream.EventPolicyUpdated {
		t.Errorf("scheduler topic got %d events, want just the policy update", len(got))
	}
	if got := drain(acme); len(got) != 1 {
		t.Errorf("tenant topic got %d events, want 1", len(got))
	} else {
		var data stream.ItemEventData
		if err := json.Unmarshal(got[0].Data, &data); err != nil {
			t.Fatalf("unmarshal event data: %v", err)
		}
		if data.TenantID != "acme" || data.WaitMs != 2000 {
			t.Errorf("event data = %+v, want tenant acme with 2000ms wait", data)
		}
	}
	if got := drain(other); len(got) != 0 {
		t.Errorf("unrelated tenant got %d events, want 0", len(got))
	}
}

func TestBroker_SubscriberOnOverlappingTopicsGetsOneCopy(t *testing.T) {
	b := newBroker()
	sub := b.Subscribe("s1", stream.TopicFirehose, stream.TopicItems, stream.TenantTopic("acme"))

	it := item.New("acme", nil, item.WithTier(fairq.TierBasic))
	b.OnItemEnqueued(context.Background(), it) //nolint:errcheck

	if got := drain(sub); len(got) != 1 {
		t.Errorf("events = %d, want 1 (deduplicated across topics)", len(got))
	}
}

func TestBroker_CreditExhaustionDrops(t *testing.T) {
	b := newBroker(stream.WithDefaultCredits(2))
	sub := b.Subscribe("s1", stream.TopicFirehose)

	ctx := context.Background()
	it := item.New("acme", nil, item.WithTier(fairq.TierBasic))
	for range 5 {
		b.OnItemEnqueued(ctx, it) //nolint:errcheck
	}

	if got := drain(sub); len(got) != 2 {
		t.Fatalf("events = %d, want 2 before credits run out", len(got))
	}

	// Replenishing credits resumes delivery.
	sub.AddCredits(10)
	b.OnItemEnqueued(ctx, it) //nolint:errcheck
	if got := drain(sub); len(got) != 1 {
		t.Errorf("events after replenish = %d, want 1", len(got))
	}
}

func TestBroker_FullBufferDropsAndRestoresCredit(t *testing.T) {
	b := newBroker(stream.WithBufferSize(1))
	sub := b.Subscribe("s1", stream.TopicFirehose)
	before := sub.Credits()

	ctx := context.Background()
	it := item.New("acme", nil, item.WithTier(fairq.TierBasic))
	b.OnItemEnqueued(ctx, it) //nolint:errcheck
	b.OnItemEnqueued(ctx, it) //nolint:errcheck // dropped: buffer of 1 is full

	if got := drain(sub); len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	// Only the delivered event consumed a credit.
	if got := sub.Credits(); got != before-1 {
		t.Errorf("credits = %d, want %d (dropped send restores its credit)", got, before-1)
	}
}

func TestBroker_RemoveSubscriberClosesAndStops(t *testing.T) {
	b := newBroker()
	sub := b.Subscribe("s1", stream.TopicFirehose, stream.TopicItems)

	b.RemoveSubscriber("s1")

	if _, ok := b.GetSubscriber("s1"); ok {
		t.Error("subscriber should be gone")
	}
	if _, open := <-sub.C(); open {
		t.Error("subscriber channel should be closed")
	}
	if got := b.Topics().TopicCount(); got != 0 {
		t.Errorf("TopicCount = %d after removal, want 0", got)
	}

	// Publishing to no one is a no-op.
	b.OnItemEnqueued(context.Background(),
		item.New("acme", nil, item.WithTier(fairq.TierBasic))) //nolint:errcheck
}

func TestBroker_StatsCountDeliveries(t *testing.T) {
	b := newBroker()
	b.Subscribe("s1", stream.TopicFirehose)
	b.Subscribe("s2", stream.TopicItems)

	it := item.New("acme", nil, item.WithTier(fairq.TierBasic))
	b.OnItemEnqueued(context.Background(), it) //nolint:errcheck

	stats := b.Stats()
	if stats.SubscriberCount != 2 {
		t.Errorf("SubscriberCount = %d, want 2", stats.SubscriberCount)
	}
	if stats.TotalPublished != 2 {
		t.Errorf("TotalPublished = %d, want 2 (one delivery per subscriber)", stats.TotalPublished)
	}
	if stats.TopicCount != 2 {
		t.Errorf("TopicCount = %d, want 2", stats.TopicCount)
	}
}

func TestBroker_ShutdownClosesAllSubscribers(t *testing.T) {
	b := newBroker()
	s1 := b.Subscribe("s1", stream.TopicFirehose)
	s2 := b.Subscribe("s2", stream.TopicItems)

	if err := b.OnShutdown(context.Background()); err != nil {
		t.Fatalf("OnShutdown: %v", err)
	}
	for _, sub := range []*stream.Subscriber{s1, s2} {
		if _, open := <-sub.C(); open {
			t.Errorf("subscriber %s channel should be closed", sub.ID())
		}
	}
}

func TestValidateTopic(t *testing.T) {
	valid := []string{
		stream.TopicItems, stream.TopicScheduler, stream.TopicFirehose,
		stream.ItemTopic("item_abc"), stream.TenantTopic("acme"),
	}
	for _, topic := range valid {
		if err := stream.ValidateTopic(topic); err != nil {
			t.Errorf("ValidateTopic(%q) = %v, want nil", topic, err)
		}
	}

	invalid := []string{"", "bogus", "queue:abc", "item:", ":abc"}
	for _, topic := range invalid {
		if err := stream.ValidateTopic(topic); err == nil {
			t.Errorf("ValidateTopic(%q) = nil, want error", topic)
		}
	}
}

func TestSubscriber_FilterSkipsWithoutConsumingCredit(t *testing.T) {
	b := newBroker()
	sub := b.Subscribe("s1", stream.TopicFirehose)
	sub.SetFilter(func(evt *stream.Event) bool {
		return evt.Type == stream.EventItemFailed
	})
	before := sub.Credits()

	ctx := context.Background()
	it := item.New("acme", nil, item.WithTier(fairq.TierBasic))
	b.OnItemEnqueued(ctx, it)                        //nolint:errcheck
	b.OnItemFailed(ctx, it, errors.New("terminal")) //nolint:errcheck

	got := drain(sub)
	if len(got) != 1 || got[0].Type != stream.EventItemFailed {
		t.Fatalf("events = %v, want only the failure", got)
	}
	if sub.Credits() != before-1 {
		t.Errorf("credits = %d, want %d (filtered events are free)", sub.Credits(), before-1)
	}
}
