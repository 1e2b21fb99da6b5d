package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinvia/agenda-engine/internal/agenda"
)

func saoPaulo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	return loc
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Token: "test-token", Location: saoPaulo(t)})
}

func TestCreateSlotWireFormat(t *testing.T) {
	var got slotCreateWire
	var gotAuth string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/agenda/slots", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(slotWire{
			ID:        "srv-1",
			StartTime: got.StartTime,
			EndTime:   got.EndTime,
			Modality:  got.Modality,
			Status:    "available",
		})
	})

	created, err := client.CreateSlot(context.Background(), agenda.Slot{
		ID:         "local-1",
		Date:       "2024-01-15",
		StartTime:  "10:00",
		EndTime:    "10:30",
		Modalities: []agenda.Modality{agenda.ModalityInPerson, agenda.ModalityTelemedicine},
		Status:     agenda.SlotBooked, // advisory, server decides
		Type:       agenda.SlotAuto,
		RangeID:    "r1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "2024-01-15T10:00:00-03:00", got.StartTime)
	assert.Equal(t, "2024-01-15T10:30:00-03:00", got.EndTime)
	assert.Equal(t, "presencial,telemedicina", got.Modality)

	// server id and status win; local-only linkage survives
	assert.Equal(t, "srv-1", created.ID)
	assert.Equal(t, agenda.SlotAvailable, created.Status)
	assert.Equal(t, agenda.SlotAuto, created.Type)
	assert.Equal(t, "r1", created.RangeID)
	assert.Equal(t, "2024-01-15", created.Date)
	assert.Equal(t, "10:00", created.StartTime)
}

func TestListSlotsDecodesIntoLocalClockTimes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agenda/slots", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("start"))
		assert.NotEmpty(t, r.URL.Query().Get("end"))

		// backend answers in UTC; the client rebuilds local clock times
		json.NewEncoder(w).Encode([]slotWire{{
			ID:        "s1",
			StartTime: "2024-01-15T13:00:00Z",
			EndTime:   "2024-01-15T13:30:00Z",
			Modality:  "presencial",
			Status:    "booked",
		}})
	})

	slots, err := client.ListSlots(context.Background(), time.Now(), time.Now().Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, slots, 1)

	assert.Equal(t, "2024-01-15", slots[0].Date)
	assert.Equal(t, "10:00", slots[0].StartTime) // 13:00 UTC = 10:00 in Sao Paulo
	assert.Equal(t, "10:30", slots[0].EndTime)
	assert.Equal(t, agenda.SlotBooked, slots[0].Status)
	assert.Equal(t, []agenda.Modality{agenda.ModalityInPerson}, slots[0].Modalities)
}

func TestListAppointmentsDecodesNestedShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agenda/appointments", r.URL.Path)
		w.Write([]byte(`[{
			"id": "a1",
			"slot": {"id": "s1"},
			"patient": {"id": "p1", "name": "Maria Souza"},
			"status": "confirmed",
			"notes": "first visit",
			"origin": "patient_marketplace"
		}]`))
	})

	appts, err := client.ListAppointments(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, appts, 1)

	assert.Equal(t, "a1", appts[0].ID)
	assert.Equal(t, "s1", appts[0].SlotID)
	assert.Equal(t, "p1", appts[0].PatientID)
	assert.Equal(t, "Maria Souza", appts[0].PatientName)
	assert.Equal(t, agenda.OriginPatientMarketplace, appts[0].Origin)
}

func TestUpdateAppointmentWireFormat(t *testing.T) {
	var raw map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/agenda/appointments/a1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))

		w.Write([]byte(`{
			"id": "a1",
			"slot": {"id": "s1"},
			"patient": {"id": "p1", "name": "Maria Souza"},
			"status": "confirmed",
			"notes": "updated"
		}`))
	})

	notes := "updated"
	appt, err := client.UpdateAppointment(context.Background(), "a1", &notes, nil)
	require.NoError(t, err)
	assert.Equal(t, "updated", appt.Notes)

	// only the provided fields go over the wire; patient changes are
	// delete+recreate, so no patient reference belongs on this endpoint
	assert.Equal(t, map[string]any{"notes": "updated"}, raw)
}

func TestDeleteSlotPath(t *testing.T) {
	var gotPath, gotMethod string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteSlot(context.Background(), "s1"))
	assert.Equal(t, "/agenda/slots/s1", gotPath)
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestErrorMessageExtraction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"slot_conflict","details":"slot overlaps an existing one"}`))
	})

	_, err := client.CreateSlot(context.Background(), agenda.Slot{
		Date: "2024-01-15", StartTime: "10:00", EndTime: "10:30",
	})
	require.Error(t, err)

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusConflict, serr.Code)
	assert.Equal(t, "slot overlaps an existing one", serr.Message)
}

func TestErrorMessageFallsBackToRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	})

	err := client.DeleteSlot(context.Background(), "s1")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "upstream exploded", serr.Message)
}
