package controller

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/chaos-meter/internal/domain"
)

// Simulation mode freezes the liveness timers so the operator can drag
// sliders against a still dashboard. The overlay is the sole source of truth
// for "what the score would be" while active; factor values are untouched
// until an explicit commit.

var (
	ErrSimulationActive    = errors.New("simulation mode already active")
	ErrSimulationNotActive = errors.New("simulation mode not active")
)

// EnterSimulation freezes the perturbation, attack-spawn, log, and frame
// timers and opens an empty overlay. The timers are fully stopped before
// this returns.
func (c *Controller) EnterSimulation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.overlay != nil {
		return ErrSimulationActive
	}
	c.stopTimersLocked()
	// stopTimersLocked drops the lock while draining the old timer
	// generation; another caller may have opened an overlay in that window.
	if c.overlay != nil {
		return ErrSimulationActive
	}
	c.overlay = make(map[string]float64)
	c.metrics.SimulationActive.Set(1)
	c.logger.Info("simulation mode entered")
	return nil
}

// SetOverlay stages a candidate value for one factor. The value is recorded
// as given; clamping happens against the factor's max when previewing and,
// definitively, on commit.
func (c *Controller) SetOverlay(key string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.overlay == nil {
		return ErrSimulationNotActive
	}
	f, ok := c.factors[key]
	if !ok {
		return fmt.Errorf("unknown factor %q", key)
	}
	if !f.Eligible() {
		return fmt.Errorf("factor %q has no live value to overlay", key)
	}
	c.overlay[key] = value
	return nil
}

// SimulationScore returns the overlay-derived preview score. The persisted
// factor values are not mutated.
func (c *Controller) SimulationScore() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.overlay == nil {
		return 0, ErrSimulationNotActive
	}
	return c.overlayScoreLocked(), nil
}

// CommitSimulation writes the overlay values through the clamping setter,
// drops the overlay, and restarts the liveness timers.
func (c *Controller) CommitSimulation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.overlay == nil {
		return ErrSimulationNotActive
	}
	for key, value := range c.overlay {
		f, ok := c.factors[key]
		if !ok {
			continue
		}
		f.SetValue(value)
		c.factors[key] = f
	}
	c.logger.Info("simulation committed", "overlaid_factors", len(c.overlay))
	c.exitSimulationLocked()
	c.metrics.ChaosIndex.Set(domain.DisplayScore(nil, c.factors))
	return nil
}

// DiscardSimulation drops the overlay without effect and restarts the
// liveness timers.
func (c *Controller) DiscardSimulation() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.overlay == nil {
		return ErrSimulationNotActive
	}
	c.logger.Info("simulation discarded", "overlaid_factors", len(c.overlay))
	c.exitSimulationLocked()
	return nil
}

// SimulationActive reports whether an overlay is open.
func (c *Controller) SimulationActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay != nil
}

func (c *Controller) exitSimulationLocked() {
	c.overlay = nil
	c.metrics.SimulationActive.Set(0)
	c.startTimersLocked()
}

// overlayScoreLocked computes the preview score: overlay values substituted
// on copies of the factors, persisted state untouched. Caller holds c.mu.
func (c *Controller) overlayScoreLocked() float64 {
	preview := make(map[string]domain.Factor, len(c.factors))
	for key, f := range c.factors {
		if value, ok := c.overlay[key]; ok {
			f.SetValue(value) // f is a copy; the map entry is not written back
		}
		preview[key] = f
	}
	// The overlay previews local recomputation even when the snapshot carried
	// an authoritative index, since that index describes the unmodified factors.
	return domain.AggregateScore(preview)
}
