package anim

import (
	"time"

	"github.com/couchcryptid/chaos-meter/internal/domain"
)

// State is an animation's position in its lifecycle.
type State string

const (
	StateQueued    State = "queued"
	StateDrawing   State = "drawing"
	StateImpact    State = "impact"
	StateFadingOut State = "fading_out"
	StateRemoved   State = "removed"
)

// TrailParticle is one particle of the staggered trail behind the lead.
type TrailParticle struct {
	Pos     domain.Point `json:"pos"`
	Opacity float64      `json:"opacity"`
}

// Spark is one angularly-distributed impact spark.
type Spark struct {
	Pos     domain.Point `json:"pos"`
	Angle   float64      `json:"angle"` // degrees
	Opacity float64      `json:"opacity"`
}

// PathVM is the renderable state of one attack path for the current frame.
// Each path owns a unique ID so per-path resources (gradients, filters) can
// be created and torn down without touching concurrent paths.
type PathVM struct {
	ID         string          `json:"id"`
	AttackType string          `json:"attackType"`
	From       domain.Point    `json:"from"`
	Control    domain.Point    `json:"control"`
	To         domain.Point    `json:"to"`
	State      State           `json:"state"`
	Reveal     float64         `json:"reveal"` // fraction of stroke still hidden: 1-eased
	Lead       domain.Point    `json:"lead"`
	Trail      []TrailParticle `json:"trail"`
	Opacity    float64         `json:"opacity"`
}

// ImpactVM is the renderable state of one impact effect.
type ImpactVM struct {
	ID         string       `json:"id"`
	Center     domain.Point `json:"center"`
	RingRadius float64      `json:"ringRadius"` // expanding, in percent of map width
	PulsePhase float64      `json:"pulsePhase"` // 0..1, drives the core pulse
	Sparks     []Spark      `json:"sparks"`
	Opacity    float64      `json:"opacity"`
}

// Frame is the complete animation view model at one instant. It is a pure
// value; the sequencer computes it and render adapters consume it.
type Frame struct {
	At      time.Time  `json:"at"`
	Paths   []PathVM   `json:"paths"`
	Impacts []ImpactVM `json:"impacts"`
}
