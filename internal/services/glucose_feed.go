package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/terraincognita07/dosekeeper/internal/metrics"
)

const (
	GlucoseFetchTimeout = 15 * time.Second
	glucoseEntriesPath  = "api/v1/entries/sgv.json"
	maxFeedBodyBytes    = 1 << 20
)

var (
	ErrNoGlucoseEntry    = errors.New("glucose feed returned no entries")
	ErrFeedNotConfigured = errors.New("glucose feed url not configured")
)

type GlucoseEntry struct {
	ID         *string `json:"_id,omitempty"`
	SGV        int     `json:"sgv"`
	Date       float64 `json:"date"`
	DateString *string `json:"dateString,omitempty"`
	Direction  *string `json:"direction,omitempty"`
	Type       *string `json:"type,omitempty"`
}

func (entry GlucoseEntry) Time() time.Time {
	return time.UnixMilli(int64(entry.Date))
}

func (entry GlucoseEntry) Trend() string {
	if entry.Direction == nil {
		return ""
	}
	return TrendArrow(*entry.Direction)
}

var trendArrows = map[string]string{
	"TripleUp":      "⇈",
	"DoubleUp":      "↑↑",
	"SingleUp":      "↑",
	"FortyFiveUp":   "↗",
	"Flat":          "→",
	"FortyFiveDown": "↘",
	"SingleDown":    "↓",
	"DoubleDown":    "↓↓",
	"TripleDown":    "⇊",
}

// TrendArrow maps a feed direction token to its arrow glyph, or "" if unknown.
func TrendArrow(direction string) string {
	return trendArrows[direction]
}

// NormalizeFeedURL trims the base URL and guarantees exactly one trailing slash.
func NormalizeFeedURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimRight(trimmed, "/") + "/"
}

func LatestEntryURL(baseURL string, token string) (string, error) {
	normalized := NormalizeFeedURL(baseURL)
	if normalized == "" {
		return "", ErrFeedNotConfigured
	}

	endpoint, err := url.Parse(normalized + glucoseEntriesPath)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if endpoint.Scheme != "http" && endpoint.Scheme != "https" {
		return "", fmt.Errorf("unsupported feed url scheme %q", endpoint.Scheme)
	}

	query := url.Values{}
	query.Set("count", "1")
	if trimmed := strings.TrimSpace(token); trimmed != "" {
		query.Set("token", trimmed)
	}
	endpoint.RawQuery = query.Encode()
	return endpoint.String(), nil
}

type GlucoseFeedClient struct {
	client *http.Client
}

func NewGlucoseFeedClient(client *http.Client) *GlucoseFeedClient {
	if client == nil {
		client = &http.Client{Timeout: GlucoseFetchTimeout}
	}
	return &GlucoseFeedClient{client: client}
}

// LatestGlucose fetches the most recent reading from the feed.
func (feed *GlucoseFeedClient) LatestGlucose(ctx context.Context, baseURL string, token string) (GlucoseEntry, error) {
	started := time.Now()
	entry, err := feed.fetchLatest(ctx, baseURL, token)
	metrics.FeedFetchDuration.Observe(time.Since(started).Seconds())

	switch {
	case err == nil:
		metrics.FeedFetches.WithLabelValues(metrics.OutcomeSuccess).Inc()
	case errors.Is(err, ErrNoGlucoseEntry):
		metrics.FeedFetches.WithLabelValues(metrics.OutcomeEmpty).Inc()
	default:
		metrics.FeedFetches.WithLabelValues(metrics.OutcomeError).Inc()
	}
	return entry, err
}

func (feed *GlucoseFeedClient) fetchLatest(ctx context.Context, baseURL string, token string) (GlucoseEntry, error) {
	endpoint, err := LatestEntryURL(baseURL, token)
	if err != nil {
		return GlucoseEntry{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, GlucoseFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return GlucoseEntry{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := feed.client.Do(req)
	if err != nil {
		return GlucoseEntry{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return GlucoseEntry{}, fmt.Errorf("feed status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	entries := make([]GlucoseEntry, 0, 1)
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBodyBytes)).Decode(&entries); err != nil {
		return GlucoseEntry{}, fmt.Errorf("decode feed entries: %w", err)
	}
	if len(entries) == 0 {
		return GlucoseEntry{}, ErrNoGlucoseEntry
	}
	return entries[0], nil
}
