// Package gateway is the REST client for the remote agenda backend. It maps
// the engine's date + clock-time slot model onto the backend's ISO8601 wire
// shape and implements agenda.Gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/clinvia/agenda-engine/internal/agenda"
)

const defaultTimeout = 15 * time.Second

// StatusError is returned for non-2xx backend responses, carrying a
// best-effort human-readable message extracted from the body.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("agenda backend returned %d", e.Code)
	}
	return fmt.Sprintf("agenda backend returned %d: %s", e.Code, e.Message)
}

type Config struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	Location *time.Location
	Logger   *zap.Logger
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	loc     *time.Location
	log     *zap.Logger
}

var _ agenda.Gateway = (*Client)(nil)

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		loc:     loc,
		log:     log,
	}
}

func (c *Client) ListSlots(ctx context.Context, start, end time.Time) ([]agenda.Slot, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	var wires []slotWire
	if err := c.do(ctx, http.MethodGet, "/agenda/slots?"+q.Encode(), nil, &wires); err != nil {
		return nil, err
	}

	slots := make([]agenda.Slot, 0, len(wires))
	for _, w := range wires {
		slot, err := c.decodeSlot(w)
		if err != nil {
			c.log.Warn("skipping undecodable slot", zap.String("id", w.ID), zap.Error(err))
			continue
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func (c *Client) CreateSlot(ctx context.Context, draft agenda.Slot) (agenda.Slot, error) {
	start, end, err := c.slotTimes(draft)
	if err != nil {
		return agenda.Slot{}, err
	}

	body := slotCreateWire{
		StartTime: start.Format(time.RFC3339),
		EndTime:   end.Format(time.RFC3339),
		Modality:  joinModalities(draft.Modalities),
		Location:  draft.Location,
		Notes:     draft.Notes,
	}

	var out slotWire
	if err := c.do(ctx, http.MethodPost, "/agenda/slots", body, &out); err != nil {
		return agenda.Slot{}, err
	}

	created, err := c.decodeSlot(out)
	if err != nil {
		return agenda.Slot{}, err
	}
	// type and range linkage are local-only concepts the backend never echoes
	created.Type = draft.Type
	created.RangeID = draft.RangeID
	return created, nil
}

func (c *Client) UpdateSlot(ctx context.Context, slot agenda.Slot) (agenda.Slot, error) {
	start, end, err := c.slotTimes(slot)
	if err != nil {
		return agenda.Slot{}, err
	}

	body := slotUpdateWire{
		Status:    string(slot.Status),
		StartTime: start.Format(time.RFC3339),
		EndTime:   end.Format(time.RFC3339),
		Modality:  joinModalities(slot.Modalities),
		Location:  slot.Location,
		Notes:     slot.Notes,
	}

	var out slotWire
	if err := c.do(ctx, http.MethodPut, "/agenda/slots/"+url.PathEscape(slot.ID), body, &out); err != nil {
		return agenda.Slot{}, err
	}

	updated, err := c.decodeSlot(out)
	if err != nil {
		return agenda.Slot{}, err
	}
	updated.Type = slot.Type
	updated.RangeID = slot.RangeID
	return updated, nil
}

func (c *Client) DeleteSlot(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/agenda/slots/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListAppointments(ctx context.Context, start, end time.Time) ([]agenda.Appointment, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))

	var wires []appointmentWire
	if err := c.do(ctx, http.MethodGet, "/agenda/appointments?"+q.Encode(), nil, &wires); err != nil {
		return nil, err
	}

	appts := make([]agenda.Appointment, 0, len(wires))
	for _, w := range wires {
		appts = append(appts, decodeAppointment(w))
	}
	return appts, nil
}

func (c *Client) CreateAppointment(ctx context.Context, slotID, patientID, notes string) (agenda.Appointment, error) {
	body := appointmentCreateWire{SlotID: slotID, PatientID: patientID, Notes: notes}

	var out appointmentWire
	if err := c.do(ctx, http.MethodPost, "/agenda/appointments", body, &out); err != nil {
		return agenda.Appointment{}, err
	}
	return decodeAppointment(out), nil
}

func (c *Client) UpdateAppointment(ctx context.Context, id string, notes *string, status *string) (agenda.Appointment, error) {
	body := appointmentUpdateWire{Notes: notes, Status: status}

	var out appointmentWire
	if err := c.do(ctx, http.MethodPut, "/agenda/appointments/"+url.PathEscape(id), body, &out); err != nil {
		return agenda.Appointment{}, err
	}
	return decodeAppointment(out), nil
}

func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/agenda/appointments/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("agenda backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Message: extractErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractErrorMessage pulls a human-readable message out of an error body,
// trying the common JSON keys before falling back to the raw text.
func extractErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return parsed.Message
		case parsed.Details != "":
			return parsed.Details
		case parsed.Error != "":
			return parsed.Error
		}
	}
	return string(raw)
}
