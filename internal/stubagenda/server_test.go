package stubagenda

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinvia/agenda-engine/internal/agenda"
	"github.com/clinvia/agenda-engine/internal/gateway"
)

// Drives the stub through the real REST client to keep the two sides of the
// wire contract honest.
func TestStubThroughGatewayClient(t *testing.T) {
	stub := New(nil)
	stub.AddPatient("p1", "Maria Souza")

	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := gateway.New(gateway.Config{BaseURL: srv.URL, Location: time.UTC})
	ctx := context.Background()

	created, err := client.CreateSlot(ctx, agenda.Slot{
		Date: "2024-01-15", StartTime: "10:00", EndTime: "10:30",
		Modalities: []agenda.Modality{agenda.ModalityInPerson},
		Type:       agenda.SlotManual,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, agenda.SlotAvailable, created.Status)

	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	slots, err := client.ListSlots(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, slots, 1)

	appt, err := client.CreateAppointment(ctx, created.ID, "p1", "first visit")
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", appt.PatientName)
	assert.Equal(t, created.ID, appt.SlotID)

	// booking a booked slot is refused by the backend
	_, err = client.CreateAppointment(ctx, created.ID, "p2", "")
	var serr *gateway.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 409, serr.Code)

	slots, err = client.ListSlots(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, agenda.SlotBooked, slots[0].Status)

	appts, err := client.ListAppointments(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, appts, 1)

	require.NoError(t, client.DeleteAppointment(ctx, appt.ID))
	appts, err = client.ListAppointments(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, appts)

	require.NoError(t, client.DeleteSlot(ctx, created.ID))
}
