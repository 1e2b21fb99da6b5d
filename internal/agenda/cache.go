package agenda

import (
	"context"
	"time"
)

// Snapshot is the locally persisted agenda state, written after every
// successful local mutation and read once at startup to seed memory before
// any remote fetch completes.
type Snapshot struct {
	TimeRanges          map[time.Weekday][]TimeRange `json:"timeRanges"`
	TimeSlots           []Slot                       `json:"timeSlots"`
	Settings            Settings                     `json:"availabilitySettings"`
	AppointmentDuration int                          `json:"appointmentDuration"`
	IntervalBetween     int                          `json:"intervalBetween"`
}

// CacheStore persists snapshots. Save failures never fail the mutation that
// triggered them.
type CacheStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}
