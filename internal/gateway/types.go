package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinvia/agenda-engine/internal/agenda"
	"github.com/clinvia/agenda-engine/internal/timegrid"
)

// slotWire is the backend representation of a slot. Times are ISO8601
// instants; the engine's date + HH:MM pair is rebuilt in the configured
// location on the way in.
type slotWire struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Modality  string `json:"modality"`
	Status    string `json:"status"`
	Location  string `json:"location,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type slotCreateWire struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Modality  string `json:"modality"`
	Location  string `json:"location,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type slotUpdateWire struct {
	Status    string `json:"status,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Modality  string `json:"modality,omitempty"`
	Location  string `json:"location,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type appointmentWire struct {
	ID   string `json:"id"`
	Slot struct {
		ID string `json:"id"`
	} `json:"slot"`
	Patient struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"patient"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
	Origin string `json:"origin"`
}

type appointmentCreateWire struct {
	SlotID    string `json:"slot_id"`
	PatientID string `json:"patient_id"`
	Notes     string `json:"notes"`
}

// Patient swaps are delete+recreate, never an in-place update, so the wire
// shape carries no patient reference.
type appointmentUpdateWire struct {
	Status *string `json:"status,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

// joinModalities flattens the modality set into the backend's single string.
func joinModalities(mods []agenda.Modality) string {
	parts := make([]string, 0, len(mods))
	for _, m := range mods {
		parts = append(parts, string(m))
	}
	return strings.Join(parts, ",")
}

func splitModalities(s string) []agenda.Modality {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	mods := make([]agenda.Modality, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			mods = append(mods, agenda.Modality(trimmed))
		}
	}
	return mods
}

func (c *Client) slotTimes(s agenda.Slot) (time.Time, time.Time, error) {
	start, err := timegrid.Combine(s.Date, s.StartTime, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("slot start: %w", err)
	}
	end, err := timegrid.Combine(s.Date, s.EndTime, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("slot end: %w", err)
	}
	return start, end, nil
}

func (c *Client) decodeSlot(w slotWire) (agenda.Slot, error) {
	start, err := time.Parse(time.RFC3339, w.StartTime)
	if err != nil {
		return agenda.Slot{}, fmt.Errorf("parse start_time %q: %w", w.StartTime, err)
	}
	end, err := time.Parse(time.RFC3339, w.EndTime)
	if err != nil {
		return agenda.Slot{}, fmt.Errorf("parse end_time %q: %w", w.EndTime, err)
	}

	start = start.In(c.loc)
	end = end.In(c.loc)

	return agenda.Slot{
		ID:         w.ID,
		Date:       start.Format(timegrid.DateLayout),
		StartTime:  start.Format(timegrid.ClockLayout),
		EndTime:    end.Format(timegrid.ClockLayout),
		Modalities: splitModalities(w.Modality),
		Status:     agenda.SlotStatus(w.Status),
		Location:   w.Location,
		Notes:      w.Notes,
	}, nil
}

func decodeAppointment(w appointmentWire) agenda.Appointment {
	return agenda.Appointment{
		ID:          w.ID,
		SlotID:      w.Slot.ID,
		PatientID:   w.Patient.ID,
		PatientName: w.Patient.Name,
		Status:      w.Status,
		Notes:       w.Notes,
		Origin:      w.Origin,
	}
}
