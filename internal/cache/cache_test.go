package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinvia/agenda-engine/internal/agenda"
)

func sampleSnapshot() agenda.Snapshot {
	return agenda.Snapshot{
		TimeRanges: map[time.Weekday][]agenda.TimeRange{
			time.Monday: {{
				ID: "r1", DayOfWeek: time.Monday,
				StartTime: "08:00", EndTime: "12:00",
				Duration: 30, Interval: 0,
				Modalities: []agenda.Modality{agenda.ModalityInPerson},
				IsActive:   true,
			}},
		},
		TimeSlots: []agenda.Slot{{
			ID: "s1", Date: "2024-01-01", StartTime: "08:00", EndTime: "08:30",
			Status: agenda.SlotAvailable, Type: agenda.SlotAuto, RangeID: "r1",
		}},
		Settings:            agenda.DefaultSettings(),
		AppointmentDuration: 30,
		IntervalBetween:     0,
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "agenda.json")
	store := NewFileStore(path)

	// missing cache is not an error
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := sampleSnapshot()
	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.TimeSlots, got.TimeSlots)
	assert.Equal(t, want.TimeRanges, got.TimeRanges)
	assert.Equal(t, want.Settings, got.Settings)

	// no temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreRejectsCorruptCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agenda.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)

	want := sampleSnapshot()
	require.NoError(t, store.Save(context.Background(), want))

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.TimeSlots, got.TimeSlots)
	assert.Equal(t, want.Settings, got.Settings)
}
