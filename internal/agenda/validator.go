package agenda

import (
	"github.com/clinvia/agenda-engine/internal/timegrid"
)

// ValidateRange checks a proposed recurring range against format, bounds and
// step-multiple constraints, then against the other active ranges already
// defined for the same weekday. Only the first weekday overlap is reported.
//
// Duration and interval are held to clean multiples so generated slot
// boundaries always land on nameable clock times.
func ValidateRange(r TimeRange, existing []TimeRange) error {
	verr := &ValidationError{}

	start, err := timegrid.ToMinutes(r.StartTime)
	if err != nil {
		verr.add("invalid start time %q", r.StartTime)
	}
	end, err := timegrid.ToMinutes(r.EndTime)
	if err != nil {
		verr.add("invalid end time %q", r.EndTime)
	}
	if len(verr.Messages) > 0 {
		return verr
	}

	if start >= end {
		verr.add("start time %s must be before end time %s", r.StartTime, r.EndTime)
	}
	if r.Duration < 15 || r.Duration > 180 {
		verr.add("duration must be between 15 and 180 minutes, got %d", r.Duration)
	} else if r.Duration%15 != 0 {
		verr.add("duration must be a multiple of 15 minutes, got %d", r.Duration)
	}
	if r.Interval < 0 || r.Interval > 60 {
		verr.add("interval must be between 0 and 60 minutes, got %d", r.Interval)
	} else if r.Interval%5 != 0 {
		verr.add("interval must be a multiple of 5 minutes, got %d", r.Interval)
	}
	if len(verr.Messages) > 0 {
		return verr
	}

	for _, other := range existing {
		if other.ID == r.ID || other.DayOfWeek != r.DayOfWeek || !other.IsActive {
			continue
		}
		oStart, err := timegrid.ToMinutes(other.StartTime)
		if err != nil {
			continue
		}
		oEnd, err := timegrid.ToMinutes(other.EndTime)
		if err != nil {
			continue
		}
		if start < oEnd && end > oStart {
			verr.add("range %s-%s overlaps existing range %s-%s on the same weekday",
				r.StartTime, r.EndTime, other.StartTime, other.EndTime)
			break
		}
	}

	return verr.orNil()
}
