// Package anim drives the world-map attack animation as a clock-driven state
// machine. Each spawned attack advances Queued → Drawing → Impact →
// FadingOut → Removed; the sequencer emits a pure view-model Frame per
// advance, leaving all actual drawing to render adapters. An injectable
// clockwork.Clock makes every timing decision testable with virtual time.
package anim

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/chaos-meter/internal/domain"
	"github.com/couchcryptid/chaos-meter/internal/observability"
)

const (
	// Drawing duration is randomized per animation within this window.
	minDrawDuration = 1200 * time.Millisecond
	maxDrawDuration = 1600 * time.Millisecond

	impactDuration = 650 * time.Millisecond
	fadeDuration   = 500 * time.Millisecond

	// Trail particles follow the lead at staggered eased offsets of i·0.03.
	trailCount   = 5
	trailStagger = 0.03

	// Impact sparks are distributed at a fixed angular step of 360/sparkCount.
	sparkCount    = 8
	maxRingRadius = 4.0 // percent of map width
	sparkDistance = 3.0

	// Curve control point rises above the midpoint by a random bias in
	// [minArcBias, minArcBias+arcBiasSpread) percent of map height.
	minArcBias    = 6.0
	arcBiasSpread = 10.0
)

// animation is one attack flow working through its lifecycle. Each owns its
// path, particles, and timing; nothing is shared between concurrent
// animations except the read-only coordinate table.
type animation struct {
	id         string
	event      domain.AttackEvent
	path       *QuadBezier
	state      State
	startedAt  time.Time // Drawing start
	duration   time.Duration
	impactedAt time.Time
	fadingAt   time.Time
}

// Sequencer owns the active animation set and the cyclic index into the
// snapshot's attack list. All methods are safe for concurrent use.
type Sequencer struct {
	clock   clockwork.Clock
	rng     *rand.Rand
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	events []domain.AttackEvent
	next   int
	active []*animation
}

// New creates a Sequencer. The rng drives arc bias and duration jitter; pass
// a seeded source in tests for reproducible geometry.
func New(clk clockwork.Clock, rng *rand.Rand, logger *slog.Logger, metrics *observability.Metrics) *Sequencer {
	return &Sequencer{
		clock:   clk,
		rng:     rng,
		logger:  logger,
		metrics: metrics,
	}
}

// SetEvents replaces the attack list. The cyclic index is preserved modulo
// the new length so a snapshot refresh does not restart the rotation.
func (s *Sequencer) SetEvents(events []domain.AttackEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	if len(events) == 0 {
		s.next = 0
	} else {
		s.next %= len(events)
	}
}

// Spawn pops the next event from the cyclic index and starts its animation.
// The list is never consumed; it replays indefinitely. Events with an
// unmapped country code are dropped before any state transition, with no visual
// elements, no error, just a diagnostic counter. Returns true when an
// animation was started.
func (s *Sequencer) Spawn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return false
	}

	event := s.events[s.next]
	s.next = (s.next + 1) % len(s.events)

	from, to, ok := event.Endpoints()
	if !ok {
		s.metrics.AttacksDropped.Inc()
		s.logger.Debug("attack event dropped, unmapped country code",
			"from", event.From, "to", event.To)
		return false
	}

	control := domain.Point{
		X: (from.X + to.X) / 2,
		Y: math.Max(0, (from.Y+to.Y)/2-(minArcBias+s.rng.Float64()*arcBiasSpread)),
	}
	jitter := time.Duration(s.rng.Int64N(int64(maxDrawDuration - minDrawDuration)))

	s.active = append(s.active, &animation{
		id:        uuid.NewString(),
		event:     event,
		path:      NewQuadBezier(from, control, to),
		state:     StateDrawing,
		startedAt: s.clock.Now(),
		duration:  minDrawDuration + jitter,
	})
	s.metrics.AttacksSpawned.Inc()
	s.metrics.ActiveAnimations.Set(float64(len(s.active)))
	return true
}

// Advance moves every active animation forward to the clock's current time,
// applies state transitions, prunes removed animations (freeing all of their
// frame elements), and returns the resulting view-model frame.
func (s *Sequencer) Advance() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() {
		s.metrics.FrameAdvanceDuration.Observe(time.Since(start).Seconds())
	}()

	now := s.clock.Now()
	frame := Frame{At: now}
	kept := s.active[:0]

	for _, a := range s.active {
		s.transition(a, now)
		if a.state == StateRemoved {
			continue
		}
		kept = append(kept, a)

		switch a.state {
		case StateDrawing:
			frame.Paths = append(frame.Paths, a.pathVM(now))
		case StateImpact, StateFadingOut:
			frame.Impacts = append(frame.Impacts, a.impactVM(now))
		}
	}
	// Zero the tail so removed animations are actually released.
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = kept
	s.metrics.ActiveAnimations.Set(float64(len(s.active)))
	return frame
}

// ActiveCount returns the number of animations not yet removed.
func (s *Sequencer) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// transition applies any due state changes for time now. Transitions cascade:
// with a large virtual-time jump a single call can carry an animation all the
// way from Drawing to Removed.
func (s *Sequencer) transition(a *animation, now time.Time) {
	if a.state == StateDrawing && a.eased(now) >= 1 {
		a.state = StateImpact
		a.impactedAt = a.startedAt.Add(a.duration)
	}
	if a.state == StateImpact && now.Sub(a.impactedAt) >= impactDuration {
		a.state = StateFadingOut
		a.fadingAt = a.impactedAt.Add(impactDuration)
	}
	if a.state == StateFadingOut && now.Sub(a.fadingAt) >= fadeDuration {
		a.state = StateRemoved
	}
}

// eased returns the cubic ease-in-out traversal fraction at time now:
// 4t³ for t < 0.5, otherwise 1-(-2t+2)³/2.
func (a *animation) eased(now time.Time) float64 {
	t := float64(now.Sub(a.startedAt)) / float64(a.duration)
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}

func (a *animation) pathVM(now time.Time) PathVM {
	eased := a.eased(now)
	length := a.path.Length()

	trail := make([]TrailParticle, 0, trailCount)
	for i := 1; i <= trailCount; i++ {
		offset := eased - float64(i)*trailStagger
		if offset < 0 {
			offset = 0
		}
		trail = append(trail, TrailParticle{
			Pos:     a.path.AtLength(length * offset),
			Opacity: 1 - float64(i)/float64(trailCount+1),
		})
	}

	return PathVM{
		ID:         a.id,
		AttackType: a.event.Type,
		From:       a.path.From,
		Control:    a.path.Control,
		To:         a.path.To,
		State:      a.state,
		Reveal:     1 - eased,
		Lead:       a.path.AtLength(length * eased),
		Trail:      trail,
		Opacity:    1,
	}
}

func (a *animation) impactVM(now time.Time) ImpactVM {
	phase := clampUnit(float64(now.Sub(a.impactedAt)) / float64(impactDuration))
	opacity := 1.0
	if a.state == StateFadingOut {
		phase = 1
		opacity = 1 - clampUnit(float64(now.Sub(a.fadingAt))/float64(fadeDuration))
	}

	sparks := make([]Spark, 0, sparkCount)
	step := 360.0 / sparkCount
	for i := 0; i < sparkCount; i++ {
		angle := step * float64(i)
		rad := angle * math.Pi / 180
		sparks = append(sparks, Spark{
			Pos: domain.Point{
				X: a.path.To.X + math.Cos(rad)*sparkDistance*phase,
				Y: a.path.To.Y + math.Sin(rad)*sparkDistance*phase,
			},
			Angle:   angle,
			Opacity: opacity * (1 - phase*0.5),
		})
	}

	return ImpactVM{
		ID:         a.id,
		Center:     a.path.To,
		RingRadius: maxRingRadius * phase,
		PulsePhase: phase,
		Sparks:     sparks,
		Opacity:    opacity,
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
