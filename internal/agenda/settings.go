package agenda

import (
	"fmt"
	"strings"
)

// Settings is the global scheduling policy. Updates are validated as a unit
// and rejected wholesale, never partially applied.
type Settings struct {
	MinWorkHour       int        `json:"minWorkHour"` // 0-23
	MaxWorkHour       int        `json:"maxWorkHour"` // 1-24, exclusive upper bound
	DefaultDuration   int        `json:"defaultDuration"`
	DefaultInterval   int        `json:"defaultInterval"`
	TimeStep          int        `json:"timeStep"` // grid snapping resolution
	Modalities        []Modality `json:"modalities"`
	AllowOverlap      bool       `json:"allowOverlap"`
	AutoConfirm       bool       `json:"autoConfirm"`
	ShowWeekends      bool       `json:"showWeekends"`
	MaxRangesPerDay   int        `json:"maxRangesPerDay"`
	MaxAdvanceBooking int        `json:"maxAdvanceBooking"` // days
}

func DefaultSettings() Settings {
	return Settings{
		MinWorkHour:       7,
		MaxWorkHour:       19,
		DefaultDuration:   30,
		DefaultInterval:   0,
		TimeStep:          15,
		Modalities:        []Modality{ModalityInPerson, ModalityTelemedicine},
		AllowOverlap:      false,
		AutoConfirm:       true,
		ShowWeekends:      false,
		MaxRangesPerDay:   3,
		MaxAdvanceBooking: 60,
	}
}

// ValidationError batches human-readable messages from a rejected input.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) add(format string, args ...any) {
	e.Messages = append(e.Messages, fmt.Sprintf(format, args...))
}

func (e *ValidationError) orNil() error {
	if len(e.Messages) == 0 {
		return nil
	}
	return e
}

// Validate checks the settings as a whole and returns every violation.
func (s Settings) Validate() error {
	verr := &ValidationError{}

	if s.MinWorkHour < 0 || s.MinWorkHour > 23 {
		verr.add("minWorkHour must be between 0 and 23, got %d", s.MinWorkHour)
	}
	if s.MaxWorkHour < 1 || s.MaxWorkHour > 24 {
		verr.add("maxWorkHour must be between 1 and 24, got %d", s.MaxWorkHour)
	}
	if s.MinWorkHour >= s.MaxWorkHour {
		verr.add("minWorkHour %d must be before maxWorkHour %d", s.MinWorkHour, s.MaxWorkHour)
	}
	if s.DefaultDuration < 15 || s.DefaultDuration > 180 || s.DefaultDuration%15 != 0 {
		verr.add("defaultDuration must be 15-180 in multiples of 15, got %d", s.DefaultDuration)
	}
	if s.DefaultInterval < 0 || s.DefaultInterval > 60 || s.DefaultInterval%5 != 0 {
		verr.add("defaultInterval must be 0-60 in multiples of 5, got %d", s.DefaultInterval)
	}
	if s.TimeStep < 5 || s.TimeStep > 60 {
		verr.add("timeStep must be between 5 and 60 minutes, got %d", s.TimeStep)
	}
	if len(s.Modalities) == 0 {
		verr.add("at least one modality must be enabled")
	}
	if s.MaxRangesPerDay < 1 || s.MaxRangesPerDay > 10 {
		verr.add("maxRangesPerDay must be between 1 and 10, got %d", s.MaxRangesPerDay)
	}
	if s.MaxAdvanceBooking < 1 || s.MaxAdvanceBooking > 365 {
		verr.add("maxAdvanceBooking must be between 1 and 365 days, got %d", s.MaxAdvanceBooking)
	}

	return verr.orNil()
}
