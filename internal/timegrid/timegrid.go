// Package timegrid holds the clock arithmetic shared by the scheduling
// engine: "HH:MM" parsing, minute offsets from midnight, grid snapping and
// calendar date helpers. Everything here is pure.
package timegrid

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	// DateLayout is the calendar date format used across the engine.
	DateLayout = "2006-01-02"
	// ClockLayout is the user-facing 24h clock format.
	ClockLayout = "15:04"

	// MinutesPerDay is 24 hours expressed in minutes.
	MinutesPerDay = 1440
)

var (
	ErrBadTimeFormat = errors.New("time must be HH:MM in 24h format")
	ErrBadDateFormat = errors.New("date must be yyyy-MM-dd")
	ErrOutOfRange    = errors.New("minutes out of range")
)

var clockRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):([0-5][0-9])$`)

// ToMinutes parses an "HH:MM" string into minutes from midnight.
func ToMinutes(clock string) (int, error) {
	m := clockRe.FindStringSubmatch(clock)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimeFormat, clock)
	}
	var h, mm int
	fmt.Sscanf(m[1], "%d", &h)
	fmt.Sscanf(m[2], "%d", &mm)
	return h*60 + mm, nil
}

// ToTimeString formats minutes from midnight back to a zero-padded "HH:MM".
// 1440 is accepted so an exclusive day end can be rendered as "24:00".
func ToTimeString(minutes int) (string, error) {
	if minutes < 0 || minutes > MinutesPerDay {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, minutes)
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), nil
}

// SnapMode selects which way Snap rounds.
type SnapMode int

const (
	// SnapStart floors to the previous multiple of the step.
	SnapStart SnapMode = iota
	// SnapEnd ceils to the next multiple of the step, so a dragged interval
	// never shrinks below the gesture.
	SnapEnd
)

// Snap aligns a minute offset to the step grid (origin 0).
func Snap(minutes, step int, mode SnapMode) int {
	if step <= 0 {
		return minutes
	}
	rem := minutes % step
	if rem == 0 {
		return minutes
	}
	if mode == SnapEnd {
		return minutes + step - rem
	}
	return minutes - rem
}

// ParseDate parses a yyyy-MM-dd string at midnight in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateFormat, date)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// Combine merges a calendar date and an "HH:MM" clock time into a single
// instant in loc. This is the one place clock times become wire timestamps,
// keeping the timezone policy explicit instead of ambient.
func Combine(date, clock string, loc *time.Location) (time.Time, error) {
	day, err := ParseDate(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	minutes, err := ToMinutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(minutes) * time.Minute), nil
}

// WeekStart returns midnight of the Sunday beginning the week containing t.
func WeekStart(t time.Time) time.Time {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -int(midnight.Weekday()))
}

// DateForWeekday resolves the calendar date of the given weekday inside the
// week containing ref.
func DateForWeekday(ref time.Time, weekday time.Weekday) string {
	return WeekStart(ref).AddDate(0, 0, int(weekday)).Format(DateLayout)
}

// MonthBounds returns the first day of ref's month and the first day of the
// following month, both at midnight in ref's location.
func MonthBounds(ref time.Time) (time.Time, time.Time) {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	return first, first.AddDate(0, 1, 0)
}
