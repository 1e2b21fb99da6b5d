package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinvia/agenda-engine/internal/agenda"
)

func sampleEvent() agenda.SlotEvent {
	return agenda.SlotEvent{
		Action: agenda.ActionCreate,
		Slot: agenda.Slot{
			ID: "s1", Date: "2024-01-01", StartTime: "10:00", EndTime: "10:30",
			Status: agenda.SlotAvailable, Type: agenda.SlotManual,
		},
	}
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	require.NoError(t, bus.Publish(context.Background(), sampleEvent()))

	for _, ch := range []<-chan agenda.SlotEvent{a, b} {
		select {
		case ev := <-ch:
			assert.Equal(t, agenda.ActionCreate, ev.Action)
			assert.Equal(t, "s1", ev.Slot.ID)
		default:
			t.Fatal("expected a buffered event")
		}
	}
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus()
	_ = bus.Subscribe()

	// publishing well past the buffer must not block
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = bus.Publish(context.Background(), sampleEvent())
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisBus(rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := bus.Subscribe(ctx)
	// give the subscriber a beat to attach
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, bus.Publish(ctx, sampleEvent()))

	select {
	case ev := <-ch:
		assert.Equal(t, agenda.ActionCreate, ev.Action)
		assert.Equal(t, "s1", ev.Slot.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received over redis pub/sub")
	}
}
