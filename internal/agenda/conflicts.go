package agenda

import (
	"github.com/clinvia/agenda-engine/internal/timegrid"
)

// FindConflicts returns the subset of existing slots that temporally overlap
// the candidate: same date, half-open [start,end) interval overlap, skipping
// cancelled slots and the candidate itself. Touching endpoints do not
// conflict.
func FindConflicts(candidate Slot, existing []Slot) ([]Slot, error) {
	cStart, err := timegrid.ToMinutes(candidate.StartTime)
	if err != nil {
		return nil, err
	}
	cEnd, err := timegrid.ToMinutes(candidate.EndTime)
	if err != nil {
		return nil, err
	}

	var conflicts []Slot
	for _, s := range existing {
		if s.Date != candidate.Date {
			continue
		}
		if s.Status == SlotCancelled {
			continue
		}
		if candidate.ID != "" && s.ID == candidate.ID {
			continue
		}

		start, err := timegrid.ToMinutes(s.StartTime)
		if err != nil {
			continue
		}
		end, err := timegrid.ToMinutes(s.EndTime)
		if err != nil {
			continue
		}

		if cStart < end && cEnd > start {
			conflicts = append(conflicts, s)
		}
	}
	return conflicts, nil
}
