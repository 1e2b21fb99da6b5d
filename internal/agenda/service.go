package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinvia/agenda-engine/internal/timegrid"
)

var (
	ErrSlotNotAvailable = errors.New("slot is not available for booking")
	ErrRangeNotFound    = errors.New("time range not found")
	ErrRangeLimit       = errors.New("maximum ranges per day reached")
	// ErrMarketplaceAppointment guards patient-self-booked appointments from
	// generic "free up this slot" cancellations.
	ErrMarketplaceAppointment = errors.New("appointment was booked by the patient through the marketplace")
)

// ConflictError reports the slots an operation would overlap.
type ConflictError struct {
	Conflicts []Slot
}

func (e *ConflictError) Error() string {
	if len(e.Conflicts) == 1 {
		c := e.Conflicts[0]
		return fmt.Sprintf("slot conflicts with %s %s-%s", c.Date, c.StartTime, c.EndTime)
	}
	return fmt.Sprintf("slot conflicts with %d existing slots", len(e.Conflicts))
}

// BatchResult reports the per-slot outcome of a range materialization.
// Partial failure is expected; the caller surfaces the summary.
type BatchResult struct {
	Created []Slot
	Errors  []error
}

// CancelOptions tunes appointment cancellation.
type CancelOptions struct {
	// AllowMarketplace permits cancelling patient-marketplace appointments.
	AllowMarketplace bool
}

// Service is the scheduling store: it owns the in-memory slot/range/settings
// state, exposes every mutation, reconciles with the remote backend and
// writes through to the local cache. The slot list is replaced by whole-value
// substitution on every mutation, never mutated in place.
//
// The service does no internal queuing; per the engine's concurrency model
// callers await one remote-backed mutation at a time.
type Service struct {
	gw    Gateway
	cache CacheStore
	bus   Broadcaster
	log   *zap.Logger

	loc *time.Location
	now func() time.Time

	settings Settings
	ranges   map[time.Weekday][]TimeRange
	slots    []Slot
}

type Option func(*Service)

func WithCache(c CacheStore) Option        { return func(s *Service) { s.cache = c } }
func WithBroadcaster(b Broadcaster) Option { return func(s *Service) { s.bus = b } }
func WithLogger(l *zap.Logger) Option      { return func(s *Service) { s.log = l } }
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithSettings(st Settings) Option       { return func(s *Service) { s.settings = st } }

func NewService(gw Gateway, opts ...Option) *Service {
	s := &Service{
		gw:       gw,
		log:      zap.NewNop(),
		loc:      time.Local,
		now:      time.Now,
		settings: DefaultSettings(),
		ranges:   make(map[time.Weekday][]TimeRange),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore seeds in-memory state from the local cache. Missing or unreadable
// caches are not fatal; the next remote load repopulates everything.
func (s *Service) Restore(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	snap, err := s.cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}
	if snap == nil {
		return nil
	}
	if snap.TimeRanges != nil {
		s.ranges = snap.TimeRanges
	}
	s.slots = snap.TimeSlots
	if err := snap.Settings.Validate(); err == nil {
		s.settings = snap.Settings
	}
	return nil
}

// Slots returns a copy of the current slot list.
func (s *Service) Slots() []Slot {
	return append([]Slot(nil), s.slots...)
}

// Ranges returns the recurring ranges defined for a weekday.
func (s *Service) Ranges(day time.Weekday) []TimeRange {
	return append([]TimeRange(nil), s.ranges[day]...)
}

func (s *Service) Settings() Settings { return s.settings }

// UpdateSettings validates the new policy as a unit; invalid updates are
// rejected wholesale and the current settings stay in force.
func (s *Service) UpdateSettings(ctx context.Context, st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	s.settings = st
	s.persistLocal(ctx)
	return nil
}

// AddTimeRange validates and stores a recurring range. Ranges are a local
// planning aid; nothing is sent to the backend until materialization.
func (s *Service) AddTimeRange(ctx context.Context, r TimeRange) (TimeRange, error) {
	existing := s.ranges[r.DayOfWeek]
	if len(existing) >= s.settings.MaxRangesPerDay {
		return TimeRange{}, fmt.Errorf("%w: %d", ErrRangeLimit, s.settings.MaxRangesPerDay)
	}
	if err := ValidateRange(r, existing); err != nil {
		return TimeRange{}, err
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.ranges[r.DayOfWeek] = append(append([]TimeRange(nil), existing...), r)
	s.persistLocal(ctx)
	return r, nil
}

// RemoveTimeRange drops a range definition. Already materialized slots are
// left alone.
func (s *Service) RemoveTimeRange(ctx context.Context, id string) error {
	for day, list := range s.ranges {
		for i, r := range list {
			if r.ID == id {
				s.ranges[day] = append(append([]TimeRange(nil), list[:i]...), list[i+1:]...)
				s.persistLocal(ctx)
				return nil
			}
		}
	}
	return ErrRangeNotFound
}

// MaterializeRange expands a range into slots for its weekday inside the
// week containing ref and persists them through the gateway one at a time.
// Conflicting slots (against known slots plus slots created earlier in the
// same batch) are skipped with a per-slot error. Previously generated auto
// slots for the same date/range are deleted remotely first so regeneration
// does not accumulate duplicates on the backend; a stale slot whose remote
// delete fails is kept and will surface as a conflict.
func (s *Service) MaterializeRange(ctx context.Context, rangeID string, ref time.Time) BatchResult {
	var res BatchResult

	r, ok := s.findRange(rangeID)
	if !ok {
		res.Errors = append(res.Errors, ErrRangeNotFound)
		return res
	}

	date := timegrid.DateForWeekday(ref.In(s.loc), r.DayOfWeek)

	generated, err := GenerateSlots(r, date)
	if err != nil {
		res.Errors = append(res.Errors, err)
		return res
	}

	known := s.discardStaleAuto(ctx, rangeID, date, &res)

	for _, draft := range generated {
		conflicts, err := FindConflicts(draft, append(known, res.Created...))
		if err != nil {
			res.Errors = append(res.Errors, err)
			continue
		}
		if len(conflicts) > 0 && !s.settings.AllowOverlap {
			res.Errors = append(res.Errors, fmt.Errorf("%s %s: %w",
				draft.Date, draft.StartTime, &ConflictError{Conflicts: conflicts}))
			continue
		}

		created, err := s.gw.CreateSlot(ctx, draft)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("create slot %s %s: %w", draft.Date, draft.StartTime, err))
			continue
		}
		res.Created = append(res.Created, created)
	}

	s.slots = append(known, res.Created...)
	s.persistLocal(ctx)
	for _, slot := range res.Created {
		s.broadcast(ctx, ActionCreate, slot)
	}
	return res
}

// CreateManualSlot persists a directly created slot, e.g. from a grid drag.
// The server-assigned id and status win over the draft's.
func (s *Service) CreateManualSlot(ctx context.Context, draft Slot) (Slot, error) {
	if _, err := timegrid.ParseDate(draft.Date, s.loc); err != nil {
		return Slot{}, err
	}
	start, err := timegrid.ToMinutes(draft.StartTime)
	if err != nil {
		return Slot{}, err
	}
	end, err := timegrid.ToMinutes(draft.EndTime)
	if err != nil {
		return Slot{}, err
	}
	if start >= end {
		return Slot{}, &ValidationError{Messages: []string{
			fmt.Sprintf("start time %s must be before end time %s", draft.StartTime, draft.EndTime),
		}}
	}

	if !s.settings.AllowOverlap {
		conflicts, err := FindConflicts(draft, s.slots)
		if err != nil {
			return Slot{}, err
		}
		if len(conflicts) > 0 {
			return Slot{}, &ConflictError{Conflicts: conflicts}
		}
	}

	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	draft.Type = SlotManual
	if len(draft.Modalities) == 0 {
		draft.Modalities = append([]Modality(nil), s.settings.Modalities...)
	}

	created, err := s.gw.CreateSlot(ctx, draft)
	if err != nil {
		return Slot{}, fmt.Errorf("create slot: %w", err)
	}

	s.slots = append(s.Slots(), created)
	s.persistLocal(ctx)
	s.broadcast(ctx, ActionCreate, created)
	return created, nil
}

// UpdateSlot merges the provided fields into the current slot, sends the
// merged representation and replaces local state with the server's response.
func (s *Service) UpdateSlot(ctx context.Context, id string, patch SlotPatch) (Slot, error) {
	idx, ok := s.findSlot(id)
	if !ok {
		return Slot{}, ErrSlotNotFound
	}

	merged := patch.applyTo(s.slots[idx])
	updated, err := s.gw.UpdateSlot(ctx, merged)
	if err != nil {
		return Slot{}, fmt.Errorf("update slot %s: %w", id, err)
	}
	if updated.Booking == nil {
		updated.Booking = s.slots[idx].Booking
	}

	s.replaceSlot(idx, updated)
	s.persistLocal(ctx)
	s.broadcast(ctx, ActionUpdate, updated)
	return updated, nil
}

// DeleteSlot removes the slot remotely, then locally. On gateway failure the
// local copy is left untouched so the UI never shows a resource as gone while
// the server still holds it.
func (s *Service) DeleteSlot(ctx context.Context, id string) error {
	idx, ok := s.findSlot(id)
	if !ok {
		return ErrSlotNotFound
	}
	removed := s.slots[idx]

	if err := s.gw.DeleteSlot(ctx, id); err != nil {
		return fmt.Errorf("delete slot %s: %w", id, err)
	}

	s.slots = append(append([]Slot(nil), s.slots[:idx]...), s.slots[idx+1:]...)
	s.persistLocal(ctx)
	s.broadcast(ctx, ActionDelete, removed)
	return nil
}

// CreateAppointmentForSlot books an available slot for a patient. The slot
// must currently be available; anything else fails before any network call.
func (s *Service) CreateAppointmentForSlot(ctx context.Context, slotID, patientID, notes string) (Appointment, error) {
	idx, ok := s.findSlot(slotID)
	if !ok {
		return Appointment{}, ErrSlotNotFound
	}
	slot := s.slots[idx]
	if slot.Status != SlotAvailable {
		return Appointment{}, fmt.Errorf("%w: status is %s", ErrSlotNotAvailable, slot.Status)
	}

	appt, err := s.gw.CreateAppointment(ctx, slotID, patientID, notes)
	if err != nil {
		return Appointment{}, fmt.Errorf("create appointment: %w", err)
	}

	slot.Status = SlotBooked
	slot.Booking = &Booking{PatientName: notes, CreatedAt: s.now(), Origin: appt.Origin}
	s.replaceSlot(idx, slot)
	s.persistLocal(ctx)
	s.broadcast(ctx, ActionUpdate, slot)
	return appt, nil
}

// CancelAppointmentForSlot releases a booked slot. Appointment identity is
// not cached locally, so the backing appointment is looked up by the slot's
// date/time window. Marketplace appointments are refused unless the caller
// opts in.
func (s *Service) CancelAppointmentForSlot(ctx context.Context, slotID string, opts CancelOptions) error {
	idx, ok := s.findSlot(slotID)
	if !ok {
		return ErrSlotNotFound
	}
	slot := s.slots[idx]

	appt, err := s.appointmentForSlot(ctx, slot)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return fmt.Errorf("find appointment: %w", err)
	}

	if appt != nil {
		if appt.Origin == OriginPatientMarketplace && !opts.AllowMarketplace {
			return ErrMarketplaceAppointment
		}
		if err := s.gw.DeleteAppointment(ctx, appt.ID); err != nil {
			return fmt.Errorf("cancel appointment %s: %w", appt.ID, err)
		}
	} else {
		s.log.Warn("no appointment found for booked slot, releasing anyway",
			zap.String("slot_id", slotID), zap.String("date", slot.Date))
	}

	return s.releaseSlot(ctx, idx)
}

// ConfirmAppointmentPatient attaches a patient to an already booked slot. If
// the backing appointment is missing remotely the slot is released and the
// appointment recreated; if the patient differs, the appointment is deleted
// and recreated since the backend does not support in-place patient swaps.
func (s *Service) ConfirmAppointmentPatient(ctx context.Context, slotID, patientID, notes string) (Appointment, error) {
	idx, ok := s.findSlot(slotID)
	if !ok {
		return Appointment{}, ErrSlotNotFound
	}
	slot := s.slots[idx]

	appt, err := s.appointmentForSlot(ctx, slot)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		return Appointment{}, fmt.Errorf("find appointment: %w", err)
	}

	switch {
	case appt == nil:
		// Backend and local state drifted apart. Converge to the requested
		// end state instead of failing, but leave a trace.
		s.log.Warn("appointment missing for booked slot, recreating",
			zap.String("slot_id", slotID), zap.String("patient_id", patientID))
		if err := s.releaseSlot(ctx, idx); err != nil {
			return Appointment{}, err
		}
		return s.CreateAppointmentForSlot(ctx, slotID, patientID, notes)

	case appt.PatientID != patientID:
		if err := s.gw.DeleteAppointment(ctx, appt.ID); err != nil {
			return Appointment{}, fmt.Errorf("replace appointment %s: %w", appt.ID, err)
		}
		if err := s.releaseSlot(ctx, idx); err != nil {
			return Appointment{}, err
		}
		return s.CreateAppointmentForSlot(ctx, slotID, patientID, notes)

	default:
		updated, err := s.gw.UpdateAppointment(ctx, appt.ID, &notes, nil)
		if err != nil {
			return Appointment{}, fmt.Errorf("update appointment %s: %w", appt.ID, err)
		}
		slot.Status = SlotBooked
		slot.Booking = &Booking{PatientName: updated.PatientName, CreatedAt: s.now(), Origin: updated.Origin}
		s.replaceSlot(idx, slot)
		s.persistLocal(ctx)
		s.broadcast(ctx, ActionUpdate, slot)
		return updated, nil
	}
}

// LoadWeek fetches the visible week's slots and appointments and merges them
// into local state. Slots outside the fetched window are preserved, as is
// locally known booking info the slot endpoint does not echo.
func (s *Service) LoadWeek(ctx context.Context, ref time.Time) error {
	start := timegrid.WeekStart(ref.In(s.loc))
	end := start.AddDate(0, 0, 7)

	fetched, err := s.gw.ListSlots(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load week slots: %w", err)
	}
	appts, err := s.gw.ListAppointments(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load week appointments: %w", err)
	}

	bySlot := make(map[string]Appointment, len(appts))
	for _, a := range appts {
		bySlot[a.SlotID] = a
	}
	for i, slot := range fetched {
		if a, ok := bySlot[slot.ID]; ok && slot.Status == SlotBooked {
			fetched[i].Booking = &Booking{PatientName: a.PatientName, CreatedAt: s.now(), Origin: a.Origin}
		}
	}

	s.mergeWindow(fetched, start, end)
	s.persistLocal(ctx)
	return nil
}

// LoadMonth fetches the slots of ref's calendar month.
func (s *Service) LoadMonth(ctx context.Context, ref time.Time) error {
	start, end := timegrid.MonthBounds(ref.In(s.loc))

	fetched, err := s.gw.ListSlots(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load month slots: %w", err)
	}

	s.mergeWindow(fetched, start, end)
	s.persistLocal(ctx)
	return nil
}

func (s *Service) findSlot(id string) (int, bool) {
	for i, slot := range s.slots {
		if slot.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Service) findRange(id string) (TimeRange, bool) {
	for _, list := range s.ranges {
		for _, r := range list {
			if r.ID == id {
				return r, true
			}
		}
	}
	return TimeRange{}, false
}

func (s *Service) replaceSlot(idx int, slot Slot) {
	next := s.Slots()
	next[idx] = slot
	s.slots = next
}

// discardStaleAuto deletes the available auto slots previously generated for
// the given range and date, remotely first, and returns the slot list without
// them. A slot whose remote delete fails stays in the returned list with a
// per-slot error so the caller's conflict checks still see it.
func (s *Service) discardStaleAuto(ctx context.Context, rangeID, date string, res *BatchResult) []Slot {
	kept := make([]Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		if slot.Type == SlotAuto && slot.RangeID == rangeID && slot.Date == date && slot.Status == SlotAvailable {
			if err := s.gw.DeleteSlot(ctx, slot.ID); err != nil {
				res.Errors = append(res.Errors, fmt.Errorf("discard stale slot %s %s: %w", slot.Date, slot.StartTime, err))
				kept = append(kept, slot)
				continue
			}
			s.broadcast(ctx, ActionDelete, slot)
			continue
		}
		kept = append(kept, slot)
	}
	return kept
}

func (s *Service) releaseSlot(ctx context.Context, idx int) error {
	slot := s.slots[idx]
	slot.Status = SlotAvailable
	slot.Booking = nil

	if _, err := s.gw.UpdateSlot(ctx, slot); err != nil {
		return fmt.Errorf("release slot %s: %w", slot.ID, err)
	}

	s.replaceSlot(idx, slot)
	s.persistLocal(ctx)
	s.broadcast(ctx, ActionUpdate, slot)
	return nil
}

// appointmentForSlot looks the backing appointment up by the slot's calendar
// day and matches on slot id.
func (s *Service) appointmentForSlot(ctx context.Context, slot Slot) (*Appointment, error) {
	day, err := timegrid.ParseDate(slot.Date, s.loc)
	if err != nil {
		return nil, err
	}

	appts, err := s.gw.ListAppointments(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	for _, a := range appts {
		if a.SlotID == slot.ID && a.Status != string(SlotCancelled) {
			found := a
			return &found, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (s *Service) mergeWindow(fetched []Slot, start, end time.Time) {
	current := make(map[string]Slot, len(s.slots))
	kept := make([]Slot, 0, len(s.slots)+len(fetched))

	for _, slot := range s.slots {
		current[slot.ID] = slot
		day, err := timegrid.ParseDate(slot.Date, s.loc)
		if err != nil || day.Before(start) || !day.Before(end) {
			kept = append(kept, slot)
		}
	}

	for _, slot := range fetched {
		// the slot endpoint does not echo booking info or the local-only
		// type/range linkage, so carry those over from the known copy
		if prev, ok := current[slot.ID]; ok {
			if slot.Booking == nil {
				slot.Booking = prev.Booking
			}
			if slot.Type == "" {
				slot.Type = prev.Type
			}
			if slot.RangeID == "" {
				slot.RangeID = prev.RangeID
			}
		}
		kept = append(kept, slot)
	}
	s.slots = kept
}

// persistLocal writes the cache snapshot. Fire-and-forget: a failed write is
// logged and the operation still counts as successful.
func (s *Service) persistLocal(ctx context.Context) {
	if s.cache == nil {
		return
	}
	snap := Snapshot{
		TimeRanges:          s.ranges,
		TimeSlots:           s.slots,
		Settings:            s.settings,
		AppointmentDuration: s.settings.DefaultDuration,
		IntervalBetween:     s.settings.DefaultInterval,
	}
	if err := s.cache.Save(ctx, snap); err != nil {
		s.log.Warn("cache save failed", zap.Error(err))
	}
}

func (s *Service) broadcast(ctx context.Context, action SlotAction, slot Slot) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, SlotEvent{Action: action, Slot: slot}); err != nil {
		s.log.Warn("slot event publish failed",
			zap.String("action", string(action)), zap.String("slot_id", slot.ID), zap.Error(err))
	}
}
