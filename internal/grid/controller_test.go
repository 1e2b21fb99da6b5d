package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController() *Controller {
	// 8:00-18:00 grid, 15 min rows of 20px
	return NewController(Geometry{
		RowHeightPx:    20,
		StepMinutes:    15,
		DayStartMinute: 8 * 60,
		DayEndMinute:   18 * 60,
	})
}

func TestDragProducesSnappedInterval(t *testing.T) {
	c := newTestController()

	c.PointerDown(1, 45) // row 2 -> 08:30
	c.PointerMove(130)   // row 6 -> 09:30

	iv, ok := c.Preview()
	require.True(t, ok)
	assert.Equal(t, 1, iv.Day)
	assert.Equal(t, 510, iv.StartMinute) // 08:30
	assert.Equal(t, 570, iv.EndMinute)   // 09:30

	commit := c.PointerUp()
	assert.Equal(t, CommitAvailability, commit.Kind)
	assert.Equal(t, iv, commit.Interval)

	// gesture state is cleared
	_, ok = c.Preview()
	assert.False(t, ok)
}

func TestUpwardDragIsNormalized(t *testing.T) {
	c := newTestController()

	c.PointerDown(3, 130)
	c.PointerMove(45)

	iv, ok := c.Preview()
	require.True(t, ok)
	assert.Less(t, iv.StartMinute, iv.EndMinute)
	assert.Equal(t, 510, iv.StartMinute)
	assert.Equal(t, 570, iv.EndMinute)
}

func TestClickIsDiscarded(t *testing.T) {
	c := newTestController()

	c.PointerDown(2, 45)
	commit := c.PointerUp()
	assert.Equal(t, CommitNone, commit.Kind)

	// release without any pointer down
	assert.Equal(t, CommitNone, c.PointerUp().Kind)
}

func TestNegativeAndOverflowCoordinatesClamp(t *testing.T) {
	c := newTestController()

	c.PointerDown(0, -50)
	c.PointerMove(1e6)

	iv, ok := c.Preview()
	require.True(t, ok)
	assert.Equal(t, 8*60, iv.StartMinute)
	assert.Equal(t, 18*60, iv.EndMinute)
}

func TestBookingModeActsOnSelectedSlotOnly(t *testing.T) {
	c := newTestController()
	c.SetMode(ModeBooking)

	// drag with no selection books nothing
	c.PointerDown(1, 45)
	c.PointerMove(130)
	assert.Equal(t, CommitNone, c.PointerUp().Kind)

	c.ToggleSelect("s1")
	c.PointerDown(1, 45)
	c.PointerMove(130)
	commit := c.PointerUp()
	assert.Equal(t, CommitBooking, commit.Kind)
	assert.Equal(t, "s1", commit.SlotID)
}

func TestEnteringBookingModeCollapsesSelection(t *testing.T) {
	c := newTestController()

	c.ToggleSelect("a")
	c.ToggleSelect("b")
	c.ToggleSelect("c")
	require.Len(t, c.Selection(), 3)

	c.SetMode(ModeBooking)
	assert.Len(t, c.Selection(), 1)

	// booking-mode selection replaces instead of accumulating
	c.ToggleSelect("z")
	assert.Equal(t, []string{"z"}, c.Selection())

	// toggling the selected slot clears it
	c.ToggleSelect("z")
	assert.Empty(t, c.Selection())
}
