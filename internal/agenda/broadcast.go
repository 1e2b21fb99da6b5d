package agenda

import "context"

type SlotAction string

const (
	ActionCreate SlotAction = "create"
	ActionUpdate SlotAction = "update"
	ActionDelete SlotAction = "delete"
)

// SlotEvent is emitted whenever a remote-backed mutation succeeds, so other
// independently rendered views of the same week can resynchronize.
type SlotEvent struct {
	Action SlotAction `json:"action"`
	Slot   Slot       `json:"slot"`
}

// Broadcaster fans slot events out to interested views. Implementations live
// in internal/events.
type Broadcaster interface {
	Publish(ctx context.Context, ev SlotEvent) error
}
