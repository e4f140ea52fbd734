// Package controller owns the dashboard session: the current snapshot, the
// live factor set, the simulation overlay, and every periodic timer. All
// shared state lives behind one mutex; render adapters and the HTTP API only
// ever see immutable view-model values built under the lock.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/chaos-meter/internal/anim"
	"github.com/couchcryptid/chaos-meter/internal/config"
	"github.com/couchcryptid/chaos-meter/internal/domain"
	"github.com/couchcryptid/chaos-meter/internal/observability"
	"github.com/couchcryptid/chaos-meter/internal/render"
)

// Fetcher retrieves the upstream snapshot document.
type Fetcher interface {
	Fetch(ctx context.Context) (*domain.Snapshot, error)
}

// Broadcaster publishes a scored snapshot for downstream consumers.
type Broadcaster interface {
	Publish(ctx context.Context, scored ScoredSnapshot) error
}

// ScoredSnapshot pairs a snapshot with the score the engine displayed for it.
type ScoredSnapshot struct {
	Score      float64          `json:"score"`
	ComputedAt time.Time        `json:"computedAt"`
	Snapshot   *domain.Snapshot `json:"snapshot"`
}

// Controller drives the poll/perturb/spawn/log/frame timer set and owns all
// mutable dashboard state.
type Controller struct {
	cfg         *config.Config
	fetcher     Fetcher
	broadcaster Broadcaster // nil when the Kafka broadcast is disabled
	seq         *anim.Sequencer
	clock       clockwork.Clock
	rng         *rand.Rand
	logger      *slog.Logger
	metrics     *observability.Metrics

	ready atomic.Bool

	mu        sync.Mutex
	snap      *domain.Snapshot
	factors   map[string]domain.Factor
	feed      []domain.LogRecord
	logCursor int
	offline   bool // last poll failed; perturbation fallback active
	lastFrame anim.Frame
	overlay   map[string]float64 // nil unless simulation mode is active

	timerStop chan struct{}
	timerWG   *sync.WaitGroup // owned by the current timer generation
}

// New creates a Controller. broadcaster may be nil.
func New(cfg *config.Config, fetcher Fetcher, broadcaster Broadcaster, seq *anim.Sequencer,
	clk clockwork.Clock, rng *rand.Rand, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		cfg:         cfg,
		fetcher:     fetcher,
		broadcaster: broadcaster,
		seq:         seq,
		clock:       clk,
		rng:         rng,
		logger:      logger,
		metrics:     metrics,
		factors:     domain.MergeSnapshot(&domain.Snapshot{}),
	}
}

// CheckReadiness returns nil once the controller has completed its first poll
// cycle (successfully or by falling back).
func (c *Controller) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("controller has not completed its first poll cycle")
	}
	return nil
}

// Run polls once immediately, starts the periodic timers, and blocks until
// the context is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("controller started",
		"poll_interval", c.cfg.PollInterval,
		"frame_interval", c.cfg.FrameInterval,
	)

	c.pollOnce(ctx)
	c.ready.Store(true)

	c.mu.Lock()
	c.startTimersLocked()
	c.mu.Unlock()

	go c.pollLoop(ctx)

	<-ctx.Done()
	c.logger.Info("controller stopping", "reason", ctx.Err())

	c.mu.Lock()
	c.stopTimersLocked()
	c.mu.Unlock()
	return nil
}

// pollLoop drives the snapshot refresh cadence. It runs for the whole
// controller lifetime; simulation mode freezes the liveness timers but a
// fresh authoritative snapshot is always applied.
func (c *Controller) pollLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		interval := c.snap.PollInterval(c.cfg.PollInterval)
		c.mu.Unlock()

		timer := c.clock.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
			c.pollOnce(ctx)
		}
	}
}

// pollOnce fetches the snapshot and applies it. Fetch failures are never
// surfaced: the previous snapshot stays in place and the perturbation
// fallback takes over until the next scheduled poll.
func (c *Controller) pollOnce(ctx context.Context) {
	snap, err := c.fetcher.Fetch(ctx)
	if err != nil {
		c.metrics.PollsTotal.WithLabelValues("failure").Inc()
		c.logger.Warn("snapshot poll failed, falling back to local perturbation", "error", err)
		c.mu.Lock()
		c.offline = true
		c.mu.Unlock()
		return
	}

	c.metrics.PollsTotal.WithLabelValues("success").Inc()

	c.mu.Lock()
	c.snap = snap
	c.factors = domain.MergeSnapshot(snap)
	c.offline = false
	c.seq.SetEvents(snap.Attacks)
	score := domain.DisplayScore(snap, c.factors)
	stale := snap.Stale(c.cfg.PollInterval)
	c.mu.Unlock()

	c.metrics.ChaosIndex.Set(score)
	c.metrics.SnapshotStale.Set(boolGauge(stale))
	c.logger.Info("snapshot applied",
		"score", score,
		"factors", len(snap.ChaosFactors),
		"attacks", len(snap.Attacks),
		"headlines", len(snap.Headlines),
	)

	if c.broadcaster != nil {
		scored := ScoredSnapshot{Score: score, ComputedAt: c.clock.Now(), Snapshot: snap}
		if err := c.broadcaster.Publish(ctx, scored); err != nil {
			c.metrics.BroadcastErrors.Inc()
			c.logger.Warn("broadcast publish failed", "error", err)
		} else {
			c.metrics.BroadcastPublished.Inc()
		}
	}
}

// startTimersLocked registers a fresh generation of the liveness timer set:
// perturbation, attack spawning, log feed cycling, and frame advancement.
// Each generation owns its stop channel and WaitGroup so a waiter on an old
// generation can never be extended by a newer one. Caller holds c.mu.
func (c *Controller) startTimersLocked() {
	if c.timerStop != nil {
		return
	}
	stop := make(chan struct{})
	wg := &sync.WaitGroup{}
	c.timerStop = stop
	c.timerWG = wg

	c.spawnTimer(stop, wg, c.cfg.PerturbInterval, c.perturbTick)
	c.spawnTimer(stop, wg, c.cfg.AttackSpawnInterval, func() { c.seq.Spawn() })
	c.spawnTimer(stop, wg, c.cfg.LogFeedInterval, c.logFeedTick)
	c.spawnTimer(stop, wg, c.cfg.FrameInterval, c.frameTick)
}

// stopTimersLocked cancels the current timer generation and waits for its
// goroutines to exit, so the caller observes a fully frozen engine. Caller
// holds c.mu; the lock is released while waiting to let in-flight ticks
// finish, so callers must re-validate any state they depend on afterwards.
func (c *Controller) stopTimersLocked() {
	if c.timerStop == nil {
		return
	}
	stop, wg := c.timerStop, c.timerWG
	c.timerStop = nil
	c.timerWG = nil
	close(stop)

	c.mu.Unlock()
	wg.Wait()
	c.mu.Lock()
}

func (c *Controller) spawnTimer(stop <-chan struct{}, wg *sync.WaitGroup, interval time.Duration, tick func()) {
	wg.Add(1)
	ticker := c.clock.NewTicker(interval)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				tick()
			}
		}
	}()
}

// perturbTick applies the ±1% fallback jitter while offline, keeping the
// dashboard visibly alive without fresh ground truth.
func (c *Controller) perturbTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.offline {
		return
	}
	for key, f := range c.factors {
		f.Perturb(c.rng)
		c.factors[key] = f
	}
	c.metrics.PerturbationCycles.Inc()
	c.metrics.ChaosIndex.Set(domain.DisplayScore(nil, c.factors))
}

// logFeedTick appends the next snapshot log record round-robin to the
// bounded feed, stamping records that arrive without a timestamp.
func (c *Controller) logFeedTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == nil || len(c.snap.Logs) == 0 {
		return
	}
	rec := c.snap.Logs[c.logCursor%len(c.snap.Logs)]
	c.logCursor++
	if rec.Timestamp.IsZero() {
		rec.Timestamp = c.clock.Now()
	}

	c.feed = append(c.feed, rec)
	if len(c.feed) > c.cfg.LogFeedSize {
		c.feed = c.feed[len(c.feed)-c.cfg.LogFeedSize:]
	}
}

func (c *Controller) frameTick() {
	frame := c.seq.Advance()
	c.mu.Lock()
	c.lastFrame = frame
	c.mu.Unlock()
}

// Pause stops the liveness timers without entering simulation mode, for
// clients that stop rendering (hidden terminal, disconnected front end).
// Polling continues. No-op while a simulation holds the timers.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overlay != nil {
		return
	}
	c.stopTimersLocked()
}

// Resume restarts the liveness timers after Pause. No-op while a simulation
// holds the timers.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.overlay != nil {
		return
	}
	c.startTimersLocked()
}

// Dashboard builds the full view model for the current state.
func (c *Controller) Dashboard() render.Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snap
	if snap == nil {
		snap = &domain.Snapshot{}
	}

	d := render.Dashboard{
		Gauge:   render.Gauge(snap, c.factors, c.cfg.PollInterval, c.offline),
		Tiles:   render.Tiles(c.factors),
		Ticker:  render.Ticker(snap.Headlines),
		Logs:    render.Logs(c.feed),
		Map:     render.MapVM{Markers: render.Markers(), Frame: c.lastFrame},
		Stats:   snap.Stats,
		Sources: snap.Sources,
	}
	if c.overlay != nil {
		score := c.overlayScoreLocked()
		d.Simulation = &render.SimulationVM{
			PreviewScore:   score,
			PreviewDisplay: domain.FormatScore(score),
			Sliders:        render.Sliders(c.factors),
		}
	}
	return d
}

// InfoCard returns the detail view for one factor. ok is false for keys
// outside the registry.
func (c *Controller) InfoCard(key string) (render.InfoCardVM, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return render.InfoCard(key, c.factors)
}

// Frame returns the most recently advanced animation frame.
func (c *Controller) Frame() anim.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFrame
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
