// Package stubagenda is an in-memory stand-in for the remote agenda backend,
// speaking the same REST surface. It backs local development and the
// scenario simulator; it is not a production server.
package stubagenda

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type slotRec struct {
	ID        string    `json:"id"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Modality  string    `json:"modality"`
	Status    string    `json:"status"`
	Location  string    `json:"location,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type apptRec struct {
	ID      string `json:"id"`
	Slot    idRef  `json:"slot"`
	Patient person `json:"patient"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
	Origin  string `json:"origin"`
}

type idRef struct {
	ID string `json:"id"`
}

type person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Server holds the fake backend state behind a chi router.
type Server struct {
	mu       sync.Mutex
	slots    map[string]*slotRec
	appts    map[string]*apptRec
	patients map[string]string // id -> display name
	log      *zap.Logger

	router http.Handler
}

func New(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		slots:    make(map[string]*slotRec),
		appts:    make(map[string]*apptRec),
		patients: make(map[string]string),
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)

	r.Route("/agenda", func(r chi.Router) {
		r.Get("/slots", s.listSlots)
		r.Post("/slots", s.createSlot)
		r.Put("/slots/{id}", s.updateSlot)
		r.Delete("/slots/{id}", s.deleteSlot)

		r.Get("/appointments", s.listAppointments)
		r.Post("/appointments", s.createAppointment)
		r.Put("/appointments/{id}", s.updateAppointment)
		r.Delete("/appointments/{id}", s.deleteAppointment)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddPatient registers a display name so appointments can echo it back.
func (s *Server) AddPatient(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[id] = name
}

func (s *Server) listSlots(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}
	statusFilter := r.URL.Query().Get("status")
	modalityFilter := r.URL.Query().Get("modality")

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]slotRec, 0, len(s.slots))
	for _, rec := range s.slots {
		t, err := time.Parse(time.RFC3339, rec.StartTime)
		if err != nil || t.Before(start) || !t.Before(end) {
			continue
		}
		if statusFilter != "" && rec.Status != statusFilter {
			continue
		}
		if modalityFilter != "" && rec.Modality != modalityFilter {
			continue
		}
		out = append(out, *rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Modality  string `json:"modality"`
		Location  string `json:"location"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if _, err := time.Parse(time.RFC3339, req.StartTime); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be ISO8601")
		return
	}
	if _, err := time.Parse(time.RFC3339, req.EndTime); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_time", "end_time must be ISO8601")
		return
	}

	rec := &slotRec{
		ID:        uuid.NewString(),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Modality:  req.Modality,
		Status:    "available",
		Location:  req.Location,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.slots[rec.ID] = rec
	s.mu.Unlock()

	s.log.Debug("stub: slot created", zap.String("id", rec.ID), zap.String("start", rec.StartTime))
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) updateSlot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status    string `json:"status"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
		Modality  string `json:"modality"`
		Location  string `json:"location"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.slots[id]
	if !ok {
		writeError(w, http.StatusNotFound, "slot_not_found", "no slot with id "+id)
		return
	}

	if req.Status != "" {
		rec.Status = req.Status
	}
	if req.StartTime != "" {
		rec.StartTime = req.StartTime
	}
	if req.EndTime != "" {
		rec.EndTime = req.EndTime
	}
	if req.Modality != "" {
		rec.Modality = req.Modality
	}
	if req.Location != "" {
		rec.Location = req.Location
	}
	if req.Notes != "" {
		rec.Notes = req.Notes
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.slots[id]; !ok {
		writeError(w, http.StatusNotFound, "slot_not_found", "no slot with id "+id)
		return
	}
	delete(s.slots, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	start, end, ok := parseWindow(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]apptRec, 0, len(s.appts))
	for _, a := range s.appts {
		slot, ok := s.slots[a.Slot.ID]
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, slot.StartTime)
		if err != nil || t.Before(start) || !t.Before(end) {
			continue
		}
		out = append(out, *a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SlotID    string `json:"slot_id"`
		PatientID string `json:"patient_id"`
		Notes     string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[req.SlotID]
	if !ok {
		writeError(w, http.StatusNotFound, "slot_not_found", "no slot with id "+req.SlotID)
		return
	}
	if slot.Status != "available" {
		writeError(w, http.StatusConflict, "slot_not_open", "slot is not available for booking")
		return
	}

	name := s.patients[req.PatientID]
	if name == "" {
		name = "Patient " + req.PatientID
	}

	appt := &apptRec{
		ID:      uuid.NewString(),
		Slot:    idRef{ID: req.SlotID},
		Patient: person{ID: req.PatientID, Name: name},
		Status:  "confirmed",
		Notes:   req.Notes,
		Origin:  "professional",
	}
	s.appts[appt.ID] = appt
	slot.Status = "booked"

	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status    *string `json:"status"`
		Notes     *string `json:"notes"`
		PatientID *string `json:"patient_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "appointment_not_found", "no appointment with id "+id)
		return
	}

	if req.Status != nil {
		appt.Status = *req.Status
	}
	if req.Notes != nil {
		appt.Notes = *req.Notes
	}
	if req.PatientID != nil {
		name := s.patients[*req.PatientID]
		if name == "" {
			name = "Patient " + *req.PatientID
		}
		appt.Patient = person{ID: *req.PatientID, Name: name}
	}

	writeJSON(w, http.StatusOK, appt)
}

func (s *Server) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appts[id]; !ok {
		writeError(w, http.StatusNotFound, "appointment_not_found", "no appointment with id "+id)
		return
	}
	delete(s.appts, id)
	w.WriteHeader(http.StatusNoContent)
}

func parseWindow(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start", "start must be ISO8601")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end", "end must be ISO8601")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, errorResponse{Error: code, Details: details})
}

// requestIDMiddleware tags every request with an id, mirroring the real
// backend's behavior.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}
