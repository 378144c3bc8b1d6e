// Package hass talks to a Home Assistant instance: calendar events over the
// REST API, to-do lists over the WebSocket command API, and writes through
// service calls. It implements all three facades the core consumes.
package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

const requestTimeout = 10 * time.Second

// Client is a Home Assistant API client. The zero value is not usable;
// construct with New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
	loc     *time.Location

	wsMu sync.Mutex
	ws   *wsSession
}

// New creates a Client for the given base URL (e.g. "http://hass.local:8123")
// and long-lived access token. The WebSocket session is dialed lazily on the
// first to-do operation and redialed after failures.
func New(baseURL, token string, loc *time.Location, logger *slog.Logger) *Client {
	if loc == nil {
		loc = time.Local
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
		loc:     loc,
	}
}

// wireInstant is Home Assistant's date-or-datetime union.
type wireInstant struct {
	Date     string `json:"date,omitempty"`
	DateTime string `json:"dateTime,omitempty"`
}

func (w wireInstant) toInstant(loc *time.Location) (model.Instant, error) {
	if w.Date != "" {
		return model.ParseInstant(w.Date, loc)
	}
	return model.ParseInstant(w.DateTime, loc)
}

type wireEvent struct {
	UID         string      `json:"uid"`
	Summary     string      `json:"summary"`
	Start       wireInstant `json:"start"`
	End         wireInstant `json:"end"`
	Location    string      `json:"location"`
	Description string      `json:"description"`
}

// Events fetches one calendar entity's events for the instant range via
// GET /api/calendars/{entity}. Failures wrap source.ErrSourceUnavailable.
func (c *Client) Events(ctx context.Context, sourceID string, start, end time.Time) ([]model.RawEvent, error) {
	endpoint := fmt.Sprintf("%s/api/calendars/%s?start=%s&end=%s",
		c.baseURL,
		url.PathEscape(sourceID),
		url.QueryEscape(start.Format(time.RFC3339)),
		url.QueryEscape(end.Format(time.RFC3339)),
	)

	var wire []wireEvent
	if err := c.getJSON(ctx, endpoint, &wire); err != nil {
		return nil, fmt.Errorf("calendar %s: %w: %w", sourceID, source.ErrSourceUnavailable, err)
	}

	events := make([]model.RawEvent, 0, len(wire))
	for _, we := range wire {
		startI, err := we.Start.toInstant(c.loc)
		if err != nil {
			c.logger.Warn("skipping event with bad start", "calendar", sourceID, "summary", we.Summary, "error", err)
			continue
		}
		endI, err := we.End.toInstant(c.loc)
		if err != nil {
			c.logger.Warn("skipping event with bad end", "calendar", sourceID, "summary", we.Summary, "error", err)
			continue
		}
		events = append(events, model.RawEvent{
			UID:         we.UID,
			Summary:     we.Summary,
			Start:       startI,
			End:         endI,
			Location:    we.Location,
			Description: we.Description,
		})
	}
	return events, nil
}

// CreateEvent creates a calendar event through the calendar.create_event
// service. Failures wrap source.ErrCommandRejected.
func (c *Client) CreateEvent(ctx context.Context, sourceID string, input source.EventInput) error {
	payload := map[string]any{
		"entity_id":       sourceID,
		"summary":         input.Summary,
		"start_date_time": input.Start.Format("2006-01-02T15:04:05"),
		"end_date_time":   input.End.Format("2006-01-02T15:04:05"),
	}
	if input.Location != "" {
		payload["location"] = input.Location
	}
	if input.Description != "" {
		payload["description"] = input.Description
	}

	if err := c.callService(ctx, "calendar", "create_event", payload); err != nil {
		return fmt.Errorf("create event on %s: %w: %w", sourceID, source.ErrCommandRejected, err)
	}
	return nil
}

// callService posts to /api/services/{domain}/{service}.
func (c *Client) callService(ctx context.Context, domain, service string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal service data: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/services/%s/%s", c.baseURL, domain, service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("service %s.%s: status %d", domain, service, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
