package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"studio_sales_backend/platform/logger"
)

type pingEvent struct{ BaseEvent }

func (pingEvent) EventName() string { return "ping" }

func TestInMemoryBusPublishSyncJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls int32
	bus.Subscribe("ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))
	boom := errors.New("boom")
	bus.Subscribe("ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return boom
	}))

	err := bus.PublishSync(context.Background(), pingEvent{NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestInMemoryBusPublishAsync(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	var calls int32
	bus.Subscribe("ping", HandlerFunc(func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))
	bus.Subscribe("other", HandlerFunc(func(context.Context, Event) error {
		t.Error("handler for another event must not run")
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	bus.Publish(ctx, pingEvent{NewBaseEvent()})
	cancel()
	bus.Wait()

	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestNewBaseEventStampsDistinctIDs(t *testing.T) {
	a, b := NewBaseEvent(), NewBaseEvent()
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids = %q, %q", a.ID, b.ID)
	}
	if a.OccurredAt().IsZero() || a.OccurredAt().Location() != time.UTC {
		t.Fatalf("timestamp = %v", a.OccurredAt())
	}
}
