package events

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
	"github.com/redis/go-redis/v9"
)

func newTestRedisBus(t *testing.T) *RedisBus {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBus(client, logging.Default())
}

func TestRedisBusVisitChangeRoundTrip(t *testing.T) {
	bus := newTestRedisBus(t)
	ctx := context.Background()

	sub := bus.SubscribeVisitChanges(ctx)
	defer sub.Close()

	// go-redis establishes the subscription lazily; give it a beat.
	time.Sleep(50 * time.Millisecond)

	want := VisitChange{Date: "2026-03-01", At: time.Now().UTC().Truncate(time.Second)}
	if err := bus.PublishVisitChange(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-sub.Data:
		if got.Date != want.Date {
			t.Fatalf("expected date %s, got %s", want.Date, got.Date)
		}
	case err := <-sub.Errs:
		t.Fatalf("unexpected subscription error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for visit change")
	}
}

func TestRedisBusStatusRoundTrip(t *testing.T) {
	bus := newTestRedisBus(t)
	ctx := context.Background()

	sub := bus.SubscribeStatus(ctx)
	defer sub.Close()
	time.Sleep(50 * time.Millisecond)

	want := StatusUpdate{ActiveCount: 5, EstimatedWaitMinutes: 75, UpdatedAt: time.Now().UTC()}
	if err := bus.PublishStatus(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-sub.Data:
		if got.ActiveCount != 5 || got.EstimatedWaitMinutes != 75 {
			t.Fatalf("unexpected update: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for status update")
	}
}

func TestMemoryBusFanOut(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	a := bus.SubscribeVisitChanges(ctx)
	b := bus.SubscribeVisitChanges(ctx)
	defer a.Close()
	defer b.Close()

	if err := bus.PublishVisitChange(ctx, VisitChange{Date: "2026-03-01"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, sub := range []*Subscription[VisitChange]{a, b} {
		select {
		case got := <-sub.Data:
			if got.Date != "2026-03-01" {
				t.Fatalf("unexpected change: %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive change")
		}
	}
}

func TestMemoryBusCloseIsIdempotent(t *testing.T) {
	bus := NewMemoryBus()
	sub := bus.SubscribeVisitChanges(context.Background())
	sub.Close()
	sub.Close()

	if err := bus.PublishVisitChange(context.Background(), VisitChange{Date: "2026-03-01"}); err != nil {
		t.Fatalf("publish after close: %v", err)
	}
}

func TestMemoryBusCloseClosesBothChannels(t *testing.T) {
	bus := NewMemoryBus()
	sub := bus.SubscribeStatus(context.Background())
	sub.Close()

	if _, ok := <-sub.Data; ok {
		t.Fatal("expected data channel closed")
	}
	select {
	case _, ok := <-sub.Errs:
		if ok {
			t.Fatal("expected error channel closed, got a value")
		}
	case <-time.After(time.Second):
		t.Fatal("error channel still open after Close")
	}
}
