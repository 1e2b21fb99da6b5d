// agenda-sim drives the scheduling engine through a realistic week against
// either a real agenda backend (AGENDA_GATEWAY_URL) or an embedded in-memory
// stub: recurring ranges, slot generation, bookings, a double-book attempt,
// a cancellation and a patient swap.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinvia/agenda-engine/internal/agenda"
	"github.com/clinvia/agenda-engine/internal/cache"
	"github.com/clinvia/agenda-engine/internal/config"
	"github.com/clinvia/agenda-engine/internal/events"
	"github.com/clinvia/agenda-engine/internal/gateway"
	"github.com/clinvia/agenda-engine/internal/logging"
	"github.com/clinvia/agenda-engine/internal/redisclient"
	"github.com/clinvia/agenda-engine/internal/stubagenda"
)

type patient struct {
	ID   string
	Name string
}

func main() {
	log := logging.New(os.Getenv("APP_ENV"))
	defer log.Sync()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx, log); err != nil {
		log.Fatal("simulation failed", zap.Error(err))
	}
}

func run(ctx context.Context, log *zap.Logger) error {
	var stub *stubagenda.Server

	cfg, err := config.Load()
	if err != nil {
		// no backend configured: run against the embedded stub
		stub = stubagenda.New(log)

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		srv := &http.Server{Handler: stub}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("stub server error", zap.Error(err))
			}
		}()
		defer srv.Close()

		cfg = config.Config{
			Env:            "dev",
			GatewayBaseURL: "http://" + ln.Addr().String(),
			HTTPTimeout:    5 * time.Second,
			Timezone:       "Local",
			CachePath:      filepath.Join(os.TempDir(), "agenda-sim-cache.json"),
		}
		log.Info("using embedded stub backend", zap.String("url", cfg.GatewayBaseURL))
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	gw := gateway.New(gateway.Config{
		BaseURL:  cfg.GatewayBaseURL,
		Token:    cfg.GatewayToken,
		Timeout:  cfg.HTTPTimeout,
		Location: loc,
		Logger:   log,
	})

	drainCtx, stopDrain := context.WithCancel(ctx)
	defer stopDrain()

	// Redis, when configured, replaces the local file cache and the
	// in-process bus so multiple processes share the same agenda.
	var store agenda.CacheStore
	var broadcaster agenda.Broadcaster
	var eventCh <-chan agenda.SlotEvent
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.New(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()

		store = cache.NewRedisStore(rdb)
		rbus := events.NewRedisBus(rdb)
		broadcaster = rbus
		eventCh = rbus.Subscribe(drainCtx)
		log.Info("using redis cache and event channel", zap.String("addr", cfg.RedisAddr))
	} else {
		store = cache.NewFileStore(cfg.CachePath)
		bus := events.NewBus()
		broadcaster = bus
		eventCh = bus.Subscribe()
	}

	eventsSeen := 0
	drainDone := make(chan struct{})
	go func() {
		defer close(drainDone)
		for {
			select {
			case <-drainCtx.Done():
				return
			case ev, ok := <-eventCh:
				if !ok {
					return
				}
				eventsSeen++
				log.Debug("slot event",
					zap.String("action", string(ev.Action)),
					zap.String("slot_id", ev.Slot.ID))
			}
		}
	}()

	svc := agenda.NewService(gw,
		agenda.WithCache(store),
		agenda.WithBroadcaster(broadcaster),
		agenda.WithLogger(log),
		agenda.WithLocation(loc),
	)
	if err := svc.Restore(ctx); err != nil {
		log.Warn("cache restore failed, starting cold", zap.Error(err))
	}

	gofakeit.Seed(time.Now().UnixNano())
	patients := make([]patient, 0, 8)
	for i := 0; i < 8; i++ {
		p := patient{ID: uuid.NewString(), Name: gofakeit.Name()}
		patients = append(patients, p)
		if stub != nil {
			stub.AddPatient(p.ID, p.Name)
		}
	}

	now := time.Now().In(loc)

	// Morning and afternoon ranges across the working week.
	var created, skipped int
	for _, day := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		for _, window := range [][2]string{{"08:00", "12:00"}, {"14:00", "18:00"}} {
			r, err := svc.AddTimeRange(ctx, agenda.TimeRange{
				DayOfWeek:  day,
				StartTime:  window[0],
				EndTime:    window[1],
				Duration:   30,
				Interval:   0,
				Modalities: []agenda.Modality{agenda.ModalityInPerson, agenda.ModalityTelemedicine},
				IsActive:   true,
			})
			if err != nil {
				log.Warn("range rejected", zap.String("day", day.String()), zap.Error(err))
				continue
			}

			res := svc.MaterializeRange(ctx, r.ID, now)
			created += len(res.Created)
			skipped += len(res.Errors)
			for _, err := range res.Errors {
				log.Debug("slot skipped", zap.Error(err))
			}
		}
	}
	log.Info("week materialized", zap.Int("slots_created", created), zap.Int("slots_skipped", skipped))

	available := availableSlots(svc)
	if len(available) == 0 {
		return errors.New("no available slots to book")
	}

	// Book a handful of slots.
	booked := make([]agenda.Slot, 0, 5)
	for i := 0; i < 5 && i < len(available); i++ {
		slot := available[rand.Intn(len(available))]
		p := patients[rand.Intn(len(patients))]

		if _, err := svc.CreateAppointmentForSlot(ctx, slot.ID, p.ID, p.Name); err != nil {
			if errors.Is(err, agenda.ErrSlotNotAvailable) {
				continue // picked the same slot twice
			}
			return fmt.Errorf("book slot %s: %w", slot.ID, err)
		}
		log.Info("slot booked",
			zap.String("date", slot.Date),
			zap.String("start", slot.StartTime),
			zap.String("patient", p.Name))
		booked = append(booked, slot)
	}
	if len(booked) == 0 {
		return errors.New("no bookings succeeded")
	}

	// Double booking must fail before any network call.
	if _, err := svc.CreateAppointmentForSlot(ctx, booked[0].ID, patients[0].ID, patients[0].Name); !errors.Is(err, agenda.ErrSlotNotAvailable) {
		return fmt.Errorf("expected double booking to be refused, got %v", err)
	}
	log.Info("double booking refused as expected")

	// Free a slot back up.
	if err := svc.CancelAppointmentForSlot(ctx, booked[0].ID, agenda.CancelOptions{}); err != nil {
		return fmt.Errorf("cancel appointment: %w", err)
	}
	log.Info("appointment cancelled", zap.String("slot_id", booked[0].ID))

	// Reassign a booked slot to a different patient.
	if len(booked) > 1 {
		p := patients[rand.Intn(len(patients))]
		appt, err := svc.ConfirmAppointmentPatient(ctx, booked[1].ID, p.ID, "reassigned by sim")
		if err != nil {
			return fmt.Errorf("confirm patient: %w", err)
		}
		log.Info("patient confirmed", zap.String("slot_id", booked[1].ID), zap.String("patient", appt.PatientName))
	}

	// Reload the week from the backend and summarize.
	if err := svc.LoadWeek(ctx, now); err != nil {
		return fmt.Errorf("load week: %w", err)
	}

	stopDrain()
	<-drainDone

	var availableCount, bookedCount int
	for _, s := range svc.Slots() {
		switch s.Status {
		case agenda.SlotAvailable:
			availableCount++
		case agenda.SlotBooked:
			bookedCount++
		}
	}
	log.Info("simulation complete",
		zap.Int("slots_total", len(svc.Slots())),
		zap.Int("available", availableCount),
		zap.Int("booked", bookedCount),
		zap.Int("events_seen", eventsSeen))

	return nil
}

func availableSlots(svc *agenda.Service) []agenda.Slot {
	var out []agenda.Slot
	for _, s := range svc.Slots() {
		if s.Status == agenda.SlotAvailable {
			out = append(out, s)
		}
	}
	return out
}
