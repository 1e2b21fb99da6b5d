// Package events carries the slot update broadcast between independently
// rendered agenda views: an in-process bus for single-binary setups and a
// Redis pub/sub bridge for multi-process ones.
package events

import (
	"context"
	"sync"

	"github.com/clinvia/agenda-engine/internal/agenda"
)

// Bus is an in-process fan-out of slot events. Subscribers that fall behind
// have events dropped rather than blocking the publisher.
type Bus struct {
	mu   sync.Mutex
	subs []chan agenda.SlotEvent
}

var _ agenda.Broadcaster = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new listener. The returned channel is buffered.
func (b *Bus) Subscribe() <-chan agenda.SlotEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan agenda.SlotEvent, 16)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(ctx context.Context, ev agenda.SlotEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}
