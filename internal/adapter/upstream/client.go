// Package upstream fetches the collector's snapshot document over HTTP.
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/chaos-meter/internal/domain"
	"github.com/couchcryptid/chaos-meter/internal/observability"
)

// maxSnapshotBytes bounds a response body read; real snapshots are a few
// hundred KB at most.
const maxSnapshotBytes = 8 << 20

// Client fetches and parses upstream snapshots. A token-bucket limiter keeps
// manual refreshes from hammering the collector; the scheduled 5-minute poll
// never comes close to the limit.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a snapshot client.
func NewClient(snapshotURL string, timeout time.Duration, rps float64, burst int,
	clk clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		url:        snapshotURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		clock:      clk,
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch performs one snapshot request. A changing query parameter defeats
// intermediary caches so every poll sees the freshest document. A single
// failed attempt is returned as-is with no retry; the caller's next scheduled
// poll retries naturally.
func (c *Client) Fetch(ctx context.Context) (*domain.Snapshot, error) {
	if !c.limiter.Allow() {
		return nil, fmt.Errorf("snapshot fetch rate limit exceeded")
	}

	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot url: %w", err)
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(c.clock.Now().UnixNano(), 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request: %w", err)
	}
	defer resp.Body.Close()
	c.metrics.SnapshotFetchDuration.Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("snapshot fetch: status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("read snapshot body: %w", err)
	}

	snap, err := domain.ParseSnapshot(data)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("snapshot fetched",
		"bytes", len(data),
		"factors", len(snap.ChaosFactors),
		"attacks", len(snap.Attacks),
	)
	return snap, nil
}
