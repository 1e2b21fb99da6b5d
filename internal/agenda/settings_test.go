package agenda

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsValid(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidateCollectsEveryViolation(t *testing.T) {
	s := Settings{
		MinWorkHour:       20,
		MaxWorkHour:       8,
		DefaultDuration:   10,
		DefaultInterval:   7,
		TimeStep:          2,
		Modalities:        nil,
		MaxRangesPerDay:   0,
		MaxAdvanceBooking: 400,
	}

	err := s.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.GreaterOrEqual(t, len(verr.Messages), 7)
}

func TestSettingsValidateWorkingHours(t *testing.T) {
	s := DefaultSettings()
	s.MinWorkHour, s.MaxWorkHour = 9, 9
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be before")
}
