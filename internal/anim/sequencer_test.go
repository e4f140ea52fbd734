package anim

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chaos-meter/internal/domain"
	"github.com/couchcryptid/chaos-meter/internal/observability"
)

func testSequencer(t *testing.T) (*Sequencer, *clockwork.FakeClock) {
	t.Helper()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(clk, rand.New(rand.NewPCG(7, 11)), logger, observability.NewMetricsForTesting())
	return s, clk
}

func TestSequencerSpawn(t *testing.T) {
	t.Run("cycles the event list indefinitely", func(t *testing.T) {
		s, _ := testSequencer(t)
		s.SetEvents([]domain.AttackEvent{
			{From: "RU", To: "US", Type: "Ransomware"},
			{From: "CN", To: "DE", Type: "Botnet"},
		})

		for i := 0; i < 5; i++ {
			require.True(t, s.Spawn())
		}
		assert.Equal(t, 5, s.ActiveCount(), "list replays, it is not consumed")
	})

	t.Run("unmapped country code produces zero elements and no panic", func(t *testing.T) {
		s, _ := testSequencer(t)
		s.SetEvents([]domain.AttackEvent{{From: "ZZ", To: "US", Type: "Malware"}})

		assert.False(t, s.Spawn())
		assert.Zero(t, s.ActiveCount())

		frame := s.Advance()
		assert.Empty(t, frame.Paths)
		assert.Empty(t, frame.Impacts)
	})

	t.Run("empty event list", func(t *testing.T) {
		s, _ := testSequencer(t)
		assert.False(t, s.Spawn())
	})

	t.Run("index preserved across event replacement", func(t *testing.T) {
		s, _ := testSequencer(t)
		s.SetEvents([]domain.AttackEvent{
			{From: "RU", To: "US"}, {From: "CN", To: "DE"}, {From: "IR", To: "GB"},
		})
		require.True(t, s.Spawn())
		require.True(t, s.Spawn())

		s.SetEvents([]domain.AttackEvent{{From: "KP", To: "JP"}, {From: "BR", To: "FR"}})
		require.True(t, s.Spawn())
		assert.Equal(t, 3, s.ActiveCount())
	})
}

func TestSequencerLifecycle(t *testing.T) {
	s, clk := testSequencer(t)
	s.SetEvents([]domain.AttackEvent{{From: "RU", To: "US", Type: "Ransomware"}})
	require.True(t, s.Spawn())

	t.Run("drawing emits a path with lead and trail", func(t *testing.T) {
		clk.Advance(600 * time.Millisecond)
		frame := s.Advance()

		require.Len(t, frame.Paths, 1)
		require.Empty(t, frame.Impacts)
		p := frame.Paths[0]

		assert.Equal(t, StateDrawing, p.State)
		assert.NotEmpty(t, p.ID)
		assert.Greater(t, p.Reveal, 0.0)
		assert.Less(t, p.Reveal, 1.0)
		assert.Len(t, p.Trail, trailCount)

		// Trail particles lag the lead along the curve: each sits at a
		// smaller or equal arclength than its predecessor.
		prev := p.Lead
		for _, tp := range p.Trail {
			assert.LessOrEqual(t, distFromStart(p, tp.Pos), distFromStart(p, prev), "trail must trail")
			prev = tp.Pos
		}
	})

	t.Run("impact after full traversal", func(t *testing.T) {
		clk.Advance(time.Second) // 1.6s total, past any randomized duration
		frame := s.Advance()

		require.Empty(t, frame.Paths)
		require.Len(t, frame.Impacts, 1)
		imp := frame.Impacts[0]

		to, ok := domain.ResolveCountry("US")
		require.True(t, ok)
		assert.Equal(t, to, imp.Center)
		assert.Len(t, imp.Sparks, sparkCount)

		// Sparks sit at the fixed angular step.
		for i, sp := range imp.Sparks {
			assert.InDelta(t, 360.0/sparkCount*float64(i), sp.Angle, 1e-9)
		}
	})

	t.Run("fade out then removal frees every element", func(t *testing.T) {
		clk.Advance(impactDuration)
		frame := s.Advance()
		require.Len(t, frame.Impacts, 1)
		assert.Less(t, frame.Impacts[0].Opacity, 1.0)

		clk.Advance(fadeDuration)
		frame = s.Advance()
		assert.Empty(t, frame.Paths)
		assert.Empty(t, frame.Impacts)
		assert.Zero(t, s.ActiveCount())
	})
}

func TestSequencerConcurrentAnimations(t *testing.T) {
	s, clk := testSequencer(t)
	s.SetEvents([]domain.AttackEvent{
		{From: "RU", To: "US", Type: "Ransomware"},
		{From: "CN", To: "DE", Type: "Botnet"},
	})

	require.True(t, s.Spawn())
	clk.Advance(800 * time.Millisecond)
	require.True(t, s.Spawn())

	clk.Advance(900 * time.Millisecond)
	frame := s.Advance()

	// First animation has landed (1.7s elapsed ≥ its max 1.6s duration), the
	// second is still drawing (0.9s). Each owns its own elements.
	require.Len(t, frame.Impacts, 1)
	require.Len(t, frame.Paths, 1)
	assert.NotEqual(t, frame.Impacts[0].ID, frame.Paths[0].ID)

	// Removing the first must not disturb the second.
	clk.Advance(impactDuration + fadeDuration)
	frame = s.Advance()
	assert.Len(t, frame.Impacts, 1, "second animation has now impacted")
	assert.Equal(t, 1, s.ActiveCount())
}

func TestEasing(t *testing.T) {
	a := &animation{startedAt: time.Unix(0, 0), duration: time.Second}

	at := func(t float64) float64 {
		return a.eased(time.Unix(0, 0).Add(time.Duration(t * float64(time.Second))))
	}

	assert.Equal(t, 0.0, at(0))
	assert.InDelta(t, 0.5, at(0.5), 1e-9, "cubic ease-in-out is symmetric")
	assert.Equal(t, 1.0, at(1))
	assert.Equal(t, 1.0, at(2), "clamped past the end")
	assert.InDelta(t, 4*0.25*0.25*0.25, at(0.25), 1e-9)

	// Monotonically non-decreasing.
	prev := 0.0
	for x := 0.0; x <= 1.0; x += 0.01 {
		e := at(x)
		assert.GreaterOrEqual(t, e, prev)
		prev = e
	}
}

func TestQuadBezier(t *testing.T) {
	from := domain.Point{X: 0, Y: 50}
	to := domain.Point{X: 100, Y: 50}
	control := domain.Point{X: 50, Y: 10}
	q := NewQuadBezier(from, control, to)

	t.Run("endpoints exact", func(t *testing.T) {
		assert.Equal(t, from, q.AtLength(0))
		assert.Equal(t, to, q.AtLength(q.Length()))
		assert.Equal(t, to, q.AtLength(q.Length()+5), "clamped beyond the end")
	})

	t.Run("arclength midpoint sits at the curve apex", func(t *testing.T) {
		mid := q.AtLength(q.Length() / 2)
		assert.InDelta(t, 50, mid.X, 0.5)
		assert.InDelta(t, 30, mid.Y, 0.5) // apex of the quadratic at t=0.5
	})

	t.Run("length exceeds straight-line distance", func(t *testing.T) {
		assert.Greater(t, q.Length(), 100.0)
	})
}

// distFromStart approximates a point's progress along the path by its
// distance from the path start; valid for ordering checks on a curve without
// self-intersection.
func distFromStart(p PathVM, pt domain.Point) float64 {
	dx := pt.X - p.From.X
	dy := pt.Y - p.From.Y
	return dx*dx + dy*dy
}
