// Package agenda implements the weekly scheduling engine: recurring
// availability ranges, bookable slots, conflict detection and the
// slot/appointment lifecycle against the remote agenda backend.
package agenda

import (
	"time"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
	SlotBlocked   SlotStatus = "blocked"
	SlotCancelled SlotStatus = "cancelled"
)

type SlotType string

const (
	// SlotAuto is produced by generating a recurring range.
	SlotAuto SlotType = "auto"
	// SlotManual is created directly, e.g. from a grid drag.
	SlotManual SlotType = "manual"
)

type Modality string

const (
	ModalityInPerson     Modality = "presencial"
	ModalityTelemedicine Modality = "telemedicina"
	ModalityHomeVisit    Modality = "domiciliar"
)

// OriginPatientMarketplace marks appointments self-booked by patients
// through the marketplace; cancelling those requires an explicit opt-in.
const OriginPatientMarketplace = "patient_marketplace"

// Booking carries the patient-facing info attached to a booked slot. It is
// cleared when the appointment is cancelled.
type Booking struct {
	PatientName string    `json:"patientName"`
	CreatedAt   time.Time `json:"createdAt"`
	Origin      string    `json:"origin,omitempty"`
}

// Slot is a single bookable time unit on a specific calendar date.
type Slot struct {
	ID         string     `json:"id"`
	Date       string     `json:"date"` // yyyy-MM-dd
	StartTime  string     `json:"startTime"`
	EndTime    string     `json:"endTime"`
	Modalities []Modality `json:"modality"`
	Status     SlotStatus `json:"status"`
	Type       SlotType   `json:"type"`
	RangeID    string     `json:"rangeId,omitempty"` // set only for auto slots
	Location   string     `json:"location,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Booking    *Booking   `json:"booking,omitempty"`
}

// TimeRange is a recurring weekly availability template. Ranges are a local
// planning aid; slots are what gets persisted remotely.
type TimeRange struct {
	ID         string       `json:"id"`
	DayOfWeek  time.Weekday `json:"dayOfWeek"`
	StartTime  string       `json:"startTime"`
	EndTime    string       `json:"endTime"`
	Duration   int          `json:"duration"` // minutes per generated slot
	Interval   int          `json:"interval"` // gap between generated slots
	Modalities []Modality   `json:"modalities"`
	IsActive   bool         `json:"isActive"`
}

// Appointment is owned by the backend; the engine treats its identity as
// opaque and re-derives slot status from it after every mutation.
type Appointment struct {
	ID          string `json:"id"`
	SlotID      string `json:"slotId"`
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	Status      string `json:"status"`
	Notes       string `json:"notes"`
	Origin      string `json:"origin"`
}

// SlotPatch describes a partial slot update. Nil fields are left untouched.
type SlotPatch struct {
	Status     *SlotStatus
	StartTime  *string
	EndTime    *string
	Modalities []Modality
	Location   *string
	Notes      *string
}

func (p SlotPatch) applyTo(s Slot) Slot {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		s.EndTime = *p.EndTime
	}
	if len(p.Modalities) > 0 {
		s.Modalities = append([]Modality(nil), p.Modalities...)
	}
	if p.Location != nil {
		s.Location = *p.Location
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	return s
}
