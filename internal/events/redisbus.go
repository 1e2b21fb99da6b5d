package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/clinvia/agenda-engine/internal/agenda"
)

// Channel is the Redis pub/sub channel slot events travel on. The name
// matches the browser client's historical DOM event.
const Channel = "timeSlotsUpdated"

// RedisBus publishes slot events over Redis pub/sub so separate processes
// showing the same week can resynchronize.
type RedisBus struct {
	rdb *redis.Client
}

var _ agenda.Broadcaster = (*RedisBus)(nil)

func NewRedisBus(rdb *redis.Client) *RedisBus {
	return &RedisBus{rdb: rdb}
}

func (b *RedisBus) Publish(ctx context.Context, ev agenda.SlotEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode slot event: %w", err)
	}
	if err := b.rdb.Publish(ctx, Channel, raw).Err(); err != nil {
		return fmt.Errorf("publish slot event: %w", err)
	}
	return nil
}

// Subscribe listens for slot events until ctx is cancelled. Undecodable
// payloads are skipped.
func (b *RedisBus) Subscribe(ctx context.Context) <-chan agenda.SlotEvent {
	out := make(chan agenda.SlotEvent, 16)
	sub := b.rdb.Subscribe(ctx, Channel)

	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var ev agenda.SlotEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
