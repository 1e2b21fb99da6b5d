package agenda

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Gateway is the remote agenda backend consumed by the Service. The REST
// implementation lives in internal/gateway; tests use in-memory fakes.
type Gateway interface {
	// ListSlots fetches slots whose start falls inside [start, end).
	ListSlots(ctx context.Context, start, end time.Time) ([]Slot, error)
	// CreateSlot persists a draft slot; the server assigns id and status.
	CreateSlot(ctx context.Context, draft Slot) (Slot, error)
	// UpdateSlot sends the full merged slot representation.
	UpdateSlot(ctx context.Context, slot Slot) (Slot, error)
	DeleteSlot(ctx context.Context, id string) error

	// ListAppointments fetches appointments inside [start, end).
	ListAppointments(ctx context.Context, start, end time.Time) ([]Appointment, error)
	CreateAppointment(ctx context.Context, slotID, patientID, notes string) (Appointment, error)
	UpdateAppointment(ctx context.Context, id string, notes *string, status *string) (Appointment, error)
	DeleteAppointment(ctx context.Context, id string) error
}
