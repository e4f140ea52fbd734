package anim

import (
	"math"

	"github.com/couchcryptid/chaos-meter/internal/domain"
)

// arcSamples is the flattening resolution used to approximate arclength.
// 32 segments keeps the worst-case positional error well below a tenth of a
// percent of map width for the curve heights the sequencer generates.
const arcSamples = 32

// QuadBezier is a quadratic Bézier curve in normalized map coordinates,
// pre-flattened so positions can be looked up by arclength.
type QuadBezier struct {
	From, Control, To domain.Point

	points  [arcSamples + 1]domain.Point
	cumLen  [arcSamples + 1]float64
	totalLn float64
}

// NewQuadBezier builds a curve and its arclength table.
func NewQuadBezier(from, control, to domain.Point) *QuadBezier {
	q := &QuadBezier{From: from, Control: control, To: to}
	q.points[0] = from
	for i := 1; i <= arcSamples; i++ {
		t := float64(i) / arcSamples
		q.points[i] = q.PointAt(t)
		q.cumLen[i] = q.cumLen[i-1] + dist(q.points[i-1], q.points[i])
	}
	q.totalLn = q.cumLen[arcSamples]
	return q
}

// PointAt evaluates the curve at parameter t ∈ [0,1].
func (q *QuadBezier) PointAt(t float64) domain.Point {
	u := 1 - t
	return domain.Point{
		X: u*u*q.From.X + 2*u*t*q.Control.X + t*t*q.To.X,
		Y: u*u*q.From.Y + 2*u*t*q.Control.Y + t*t*q.To.Y,
	}
}

// Length returns the curve's approximate total arclength.
func (q *QuadBezier) Length() float64 {
	return q.totalLn
}

// AtLength returns the point at arclength s along the curve, clamping s into
// [0, Length]. Linear interpolation between flattened samples.
func (q *QuadBezier) AtLength(s float64) domain.Point {
	if s <= 0 || q.totalLn == 0 {
		return q.From
	}
	if s >= q.totalLn {
		return q.To
	}
	// cumLen is monotonically increasing; find the enclosing segment.
	lo := 0
	for lo < arcSamples && q.cumLen[lo+1] < s {
		lo++
	}
	segLen := q.cumLen[lo+1] - q.cumLen[lo]
	if segLen == 0 {
		return q.points[lo]
	}
	frac := (s - q.cumLen[lo]) / segLen
	a, b := q.points[lo], q.points[lo+1]
	return domain.Point{
		X: a.X + (b.X-a.X)*frac,
		Y: a.Y + (b.Y-a.Y)*frac,
	}
}

func dist(a, b domain.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
