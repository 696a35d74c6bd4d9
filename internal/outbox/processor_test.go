package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"clubmail/internal/domain/event"
	"clubmail/internal/repository"
	"clubmail/internal/repository/memory"

	"github.com/google/uuid"
)

type fakePublisher struct {
	published map[string][][]byte
	fail      bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string][][]byte)}
}

func (p *fakePublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.published[channel] = append(p.published[channel], payload)
	return nil
}

func seedEvent(t *testing.T, store *memory.Store, eventType string) event.OutboxEvent {
	t.Helper()
	e := event.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "message",
		AggregateID:   uuid.New(),
		EventType:     eventType,
		Payload:       `{"k":"v"}`,
		Status:        event.StatusPending,
		MaxRetries:    3,
		CreatedAt:     time.Now(),
	}
	if err := store.CreateEvent(context.Background(), &e); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return e
}

func TestProcessBatchPublishesAndCompletes(t *testing.T) {
	store := memory.NewStore()
	publisher := newFakePublisher()
	processor := NewProcessor(store.Outbox(), publisher, 10, time.Second, nil)

	e := seedEvent(t, store, event.TypeMessageCreated)
	processor.processBatch(context.Background())

	channel := "channel:message:" + e.AggregateID.String()
	if len(publisher.published[channel]) != 1 {
		t.Fatalf("published %d envelopes on %s, want 1", len(publisher.published[channel]), channel)
	}

	pending, _ := store.GetPending(context.Background(), 10)
	if len(pending) != 0 {
		t.Errorf("event still pending after publish: %+v", pending)
	}
}

func TestProcessBatchRetriesOnFailure(t *testing.T) {
	store := memory.NewStore()
	publisher := newFakePublisher()
	publisher.fail = true
	processor := NewProcessor(store.Outbox(), publisher, 10, time.Second, nil)

	seedEvent(t, store, event.TypeMessageCreated)

	// Each failed batch bumps the retry count; the event stays pending
	// until the cap.
	processor.processBatch(context.Background())
	pending, _ := store.GetPending(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("event not returned to pending after failure: %+v", pending)
	}
	if pending[0].RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", pending[0].RetryCount)
	}

	processor.processBatch(context.Background())
	processor.processBatch(context.Background())

	// Retries exhausted; nothing left to drain.
	pending, _ = store.GetPending(context.Background(), 10)
	if len(pending) != 0 {
		t.Errorf("event still pending after retry cap: %+v", pending)
	}
}

type brokenQueue struct {
	repository.OutboxRepository
}

func (brokenQueue) GetPending(ctx context.Context, limit int) ([]event.OutboxEvent, error) {
	return nil, errors.New("relation outbox_events does not exist")
}

func TestProcessBatchSurvivesQueueError(t *testing.T) {
	publisher := newFakePublisher()
	processor := NewProcessor(brokenQueue{}, publisher, 10, time.Second, nil)

	processor.processBatch(context.Background())

	if len(publisher.published) != 0 {
		t.Errorf("published despite queue error: %+v", publisher.published)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := memory.NewStore()
	publisher := newFakePublisher()
	processor := NewProcessor(store.Outbox(), publisher, 10, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		processor.Run(ctx)
		close(done)
	}()

	seedEvent(t, store, event.TypeMessageRead)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	pending, _ := store.GetPending(context.Background(), 10)
	if len(pending) != 0 {
		t.Errorf("event not drained while running: %+v", pending)
	}
}
