// Package grid translates pointer coordinates on a rendered weekly grid into
// day/minute pairs and manages the drag-to-select gesture that previews a
// slot before it is committed.
package grid

import (
	"github.com/clinvia/agenda-engine/internal/timegrid"
)

// Mode is the active marking mode of the grid.
type Mode string

const (
	// ModeAvailability commits drags as new availability.
	ModeAvailability Mode = "availability"
	// ModeBooking acts on a single selected slot; dragging a fresh interval
	// does not book anything.
	ModeBooking Mode = "booking"
)

// Geometry describes the rendered grid: one row per time step.
type Geometry struct {
	RowHeightPx    float64
	StepMinutes    int
	DayStartMinute int // minute of the first rendered row
	DayEndMinute   int // exclusive minute of the last rendered row
}

// Interval is a snapped day/minute selection.
type Interval struct {
	Day         int
	StartMinute int
	EndMinute   int
}

type CommitKind int

const (
	// CommitNone means the gesture was discarded (a click, or nothing to act on).
	CommitNone CommitKind = iota
	CommitAvailability
	CommitBooking
)

// Commit is the outcome of releasing a drag.
type Commit struct {
	Kind     CommitKind
	Interval Interval
	SlotID   string // set for CommitBooking
}

// Controller holds the transient gesture and selection state of one grid.
type Controller struct {
	geom Geometry
	mode Mode

	dragging bool
	day      int
	anchor   int
	current  int

	selected []string
}

func NewController(geom Geometry) *Controller {
	if geom.DayEndMinute <= 0 {
		geom.DayEndMinute = timegrid.MinutesPerDay
	}
	return &Controller{geom: geom, mode: ModeAvailability}
}

func (c *Controller) Mode() Mode { return c.mode }

// SetMode switches the marking mode. Booking actions are inherently
// single-slot, so entering booking mode collapses any multi-selection down
// to at most one slot.
func (c *Controller) SetMode(m Mode) {
	c.mode = m
	if m == ModeBooking && len(c.selected) > 1 {
		c.selected = c.selected[:1]
	}
}

// ToggleSelect adds or removes a slot from the selection. In booking mode
// selecting replaces the current selection.
func (c *Controller) ToggleSelect(slotID string) {
	for i, id := range c.selected {
		if id == slotID {
			c.selected = append(append([]string(nil), c.selected[:i]...), c.selected[i+1:]...)
			return
		}
	}
	if c.mode == ModeBooking {
		c.selected = []string{slotID}
		return
	}
	c.selected = append(c.selected, slotID)
}

func (c *Controller) Selection() []string {
	return append([]string(nil), c.selected...)
}

// minuteAt converts a vertical pixel offset to a minute of day: floor
// division by the row height, then multiplication by the step.
func (c *Controller) minuteAt(y float64) int {
	if y < 0 {
		y = 0
	}
	row := int(y / c.geom.RowHeightPx)
	minute := c.geom.DayStartMinute + row*c.geom.StepMinutes
	if minute > c.geom.DayEndMinute {
		minute = c.geom.DayEndMinute
	}
	return minute
}

// PointerDown anchors a drag gesture at the given day column and y offset.
func (c *Controller) PointerDown(day int, y float64) {
	c.dragging = true
	c.day = day
	c.anchor = c.minuteAt(y)
	c.current = c.anchor
}

// PointerMove updates the live end of the gesture.
func (c *Controller) PointerMove(y float64) {
	if !c.dragging {
		return
	}
	c.current = c.minuteAt(y)
}

// Preview returns the snapped interval of the in-flight gesture. Start snaps
// down and end snaps up, so the preview never undershoots the gesture.
func (c *Controller) Preview() (Interval, bool) {
	if !c.dragging {
		return Interval{}, false
	}

	lo, hi := c.anchor, c.current
	if hi < lo {
		lo, hi = hi, lo
	}

	return Interval{
		Day:         c.day,
		StartMinute: timegrid.Snap(lo, c.geom.StepMinutes, timegrid.SnapStart),
		EndMinute:   timegrid.Snap(hi, c.geom.StepMinutes, timegrid.SnapEnd),
	}, true
}

// PointerUp ends the gesture. Intervals shorter than one grid step are
// treated as clicks and discarded.
func (c *Controller) PointerUp() Commit {
	iv, ok := c.Preview()
	c.dragging = false
	if !ok {
		return Commit{Kind: CommitNone}
	}

	if iv.EndMinute-iv.StartMinute < c.geom.StepMinutes {
		return Commit{Kind: CommitNone}
	}

	if c.mode == ModeBooking {
		if len(c.selected) != 1 {
			return Commit{Kind: CommitNone}
		}
		return Commit{Kind: CommitBooking, Interval: iv, SlotID: c.selected[0]}
	}

	return Commit{Kind: CommitAvailability, Interval: iv}
}
