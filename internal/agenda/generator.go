package agenda

import (
	"github.com/google/uuid"

	"github.com/clinvia/agenda-engine/internal/timegrid"
)

// GenerateSlots expands a recurring range into discrete bookable slots for a
// specific calendar date. Slots are emitted back to back separated by the
// range interval; a trailing slot that would cross the range end is never
// emitted. Inactive ranges generate nothing.
//
// The produced start/end sequence is deterministic for a given (range, date);
// ids are fresh local placeholders until the backend assigns real ones.
func GenerateSlots(r TimeRange, date string) ([]Slot, error) {
	if !r.IsActive {
		return nil, nil
	}

	start, err := timegrid.ToMinutes(r.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := timegrid.ToMinutes(r.EndTime)
	if err != nil {
		return nil, err
	}

	var slots []Slot
	for cursor := start; cursor+r.Duration <= end; cursor += r.Duration + r.Interval {
		startClock, err := timegrid.ToTimeString(cursor)
		if err != nil {
			return nil, err
		}
		endClock, err := timegrid.ToTimeString(cursor + r.Duration)
		if err != nil {
			return nil, err
		}
		slots = append(slots, Slot{
			ID:         uuid.NewString(),
			Date:       date,
			StartTime:  startClock,
			EndTime:    endClock,
			Modalities: append([]Modality(nil), r.Modalities...),
			Status:     SlotAvailable,
			Type:       SlotAuto,
			RangeID:    r.ID,
		})
	}
	return slots, nil
}
