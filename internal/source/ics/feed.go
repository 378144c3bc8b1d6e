// Package ics serves calendar events from subscribed ICS feeds. Feeds are
// fetched with conditional requests (ETag / Last-Modified), parsed with
// golang-ical, and recurring events are expanded with rrule-go bounded to
// the requested range.
package ics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/hearthdash/hearth/internal/model"
	"github.com/hearthdash/hearth/internal/source"
)

const fetchTimeout = 15 * time.Second

// Feed implements source.EventSource for a set of ICS subscriptions keyed by
// source id.
type Feed struct {
	urls   map[string]string
	http   *http.Client
	logger *slog.Logger
	loc    *time.Location

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// cacheEntry keeps the last response per URL so a 304 can reuse it.
type cacheEntry struct {
	etag         string
	lastModified string
	body         []byte
}

// New creates a Feed. urls maps source ids to ICS endpoints.
func New(urls map[string]string, loc *time.Location, logger *slog.Logger) *Feed {
	if loc == nil {
		loc = time.Local
	}
	return &Feed{
		urls:   urls,
		http:   &http.Client{Timeout: fetchTimeout},
		logger: logger,
		loc:    loc,
		cache:  make(map[string]*cacheEntry),
	}
}

// Events fetches and expands one feed's events overlapping [start, end).
// Failures wrap source.ErrSourceUnavailable; a 304 serves the cached body.
func (f *Feed) Events(ctx context.Context, sourceID string, start, end time.Time) ([]model.RawEvent, error) {
	feedURL, ok := f.urls[sourceID]
	if !ok {
		return nil, fmt.Errorf("feed %s: %w: no subscription configured", sourceID, source.ErrSourceUnavailable)
	}

	body, err := f.fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w: %w", sourceID, source.ErrSourceUnavailable, err)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w: parse: %w", sourceID, source.ErrSourceUnavailable, err)
	}

	parsed := make([]parsedEvent, 0, len(cal.Events()))
	for _, ve := range cal.Events() {
		pe, err := parseVEvent(ve, f.loc)
		if err != nil {
			f.logger.Warn("skipping malformed vevent", "feed", sourceID, "error", err)
			continue
		}
		parsed = append(parsed, pe)
	}

	return expand(parsed, start, end, f.loc), nil
}

// CreateEvent always fails: ICS subscriptions are read-only.
func (f *Feed) CreateEvent(ctx context.Context, sourceID string, input source.EventInput) error {
	return fmt.Errorf("feed %s: %w: ics subscriptions are read-only", sourceID, source.ErrCommandRejected)
}

// fetch performs a conditional GET, updating the per-URL cache.
func (f *Feed) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	f.mu.Lock()
	cached := f.cache[feedURL]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		if cached.etag != "" {
			req.Header.Set("If-None-Match", cached.etag)
		}
		if cached.lastModified != "" {
			req.Header.Set("If-Modified-Since", cached.lastModified)
		}
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && cached != nil {
		f.logger.Debug("feed unchanged, serving cache", "url", feedURL)
		return cached.body, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache[feedURL] = &cacheEntry{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		body:         body,
	}
	f.mu.Unlock()

	return body, nil
}
