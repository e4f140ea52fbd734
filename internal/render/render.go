// Package render turns domain state into view models. Everything here is a
// pure transformation: the animation/scoring core stays headless and
// testable, and any front end (HTTP JSON, terminal) just renders whatever
// view model the engine emits each tick.
package render

import (
	"time"

	"github.com/couchcryptid/chaos-meter/internal/anim"
	"github.com/couchcryptid/chaos-meter/internal/domain"
)

// GaugeVM is the main chaos index readout.
type GaugeVM struct {
	Score         float64         `json:"score"`
	Display       string          `json:"display"`
	Severity      domain.Severity `json:"severity"`
	Authoritative bool            `json:"authoritative"` // true when the snapshot supplied the index
	Stale         bool            `json:"stale"`
}

// TileVM is one factor tile.
type TileVM struct {
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	Icon         string          `json:"icon"`
	Unit         string          `json:"unit"`
	Value        string          `json:"value"` // formatted for display
	RawValue     float64         `json:"rawValue"`
	Max          float64         `json:"max"`
	Severity     domain.Severity `json:"severity"`
	Contribution float64         `json:"contribution"`
	Live         bool            `json:"live"`
}

// InfoCardVM is the hover/expand detail for one factor.
type InfoCardVM struct {
	Key          string          `json:"key"`
	Name         string          `json:"name"`
	Desc         string          `json:"desc"`
	Unit         string          `json:"unit"`
	Weight       float64         `json:"weight"`
	Contribution float64         `json:"contribution"`
	Severity     domain.Severity `json:"severity"`
}

// SliderVM is one simulation slider.
type SliderVM struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Max     float64 `json:"max"`
	Reverse bool    `json:"reverse"`
}

// LogEntryVM is one rendered log feed line.
type LogEntryVM struct {
	Level   domain.LogLevel `json:"level"`
	Message string          `json:"message"`
	Source  string          `json:"source,omitempty"`
	At      time.Time       `json:"at,omitempty"`
}

// MarkerVM is a static country marker on the map.
type MarkerVM struct {
	Code string       `json:"code"`
	Pos  domain.Point `json:"pos"`
}

// MapVM is the world map with its current animation frame.
type MapVM struct {
	Markers []MarkerVM `json:"markers"`
	Frame   anim.Frame `json:"frame"`
}

// Dashboard is the complete view model for one render tick.
type Dashboard struct {
	Gauge      GaugeVM               `json:"gauge"`
	Tiles      []TileVM              `json:"tiles"`
	Ticker     []string              `json:"ticker"`
	Logs       []LogEntryVM          `json:"logs"`
	Map        MapVM                 `json:"map"`
	Stats      domain.Stats          `json:"stats"`
	Sources    []domain.SourceStatus `json:"sources"`
	Simulation *SimulationVM         `json:"simulation,omitempty"`
}

// SimulationVM reports simulation mode state: the preview score and sliders.
type SimulationVM struct {
	PreviewScore   float64    `json:"previewScore"`
	PreviewDisplay string     `json:"previewDisplay"`
	Sliders        []SliderVM `json:"sliders"`
}

// Gauge builds the index readout. A snapshot-supplied index is authoritative
// only while polling succeeds; offline, the perturbed factors are the live
// state and the gauge recomputes locally so it moves with the tiles.
func Gauge(snap *domain.Snapshot, factors map[string]domain.Factor, defPoll time.Duration, offline bool) GaugeVM {
	var score float64
	if offline {
		score = domain.DisplayScore(nil, factors)
	} else {
		score = domain.DisplayScore(snap, factors)
	}
	return GaugeVM{
		Score:         score,
		Display:       domain.FormatScore(score),
		Severity:      domain.Classify(score, 100, false),
		Authoritative: !offline && snap != nil && snap.ChaosIndex != nil,
		Stale:         snap.Stale(defPoll),
	}
}

// Tiles builds the factor tiles in registry display order.
func Tiles(factors map[string]domain.Factor) []TileVM {
	tiles := make([]TileVM, 0, len(factors))
	for _, key := range domain.RegistryOrder() {
		f, ok := factors[key]
		if !ok {
			continue
		}
		tiles = append(tiles, TileVM{
			Key:          f.Key,
			Name:         f.Name,
			Icon:         f.Icon,
			Unit:         f.Unit,
			Value:        domain.FormatValue(f.Value),
			RawValue:     f.Value,
			Max:          f.Max,
			Severity:     f.Severity(),
			Contribution: domain.Contribution(key, factors),
			Live:         f.Live,
		})
	}
	return tiles
}

// Ticker triples the headline list so a scrolling marquee can loop without a
// visible seam.
func Ticker(headlines []string) []string {
	if len(headlines) == 0 {
		return nil
	}
	out := make([]string, 0, 3*len(headlines))
	for i := 0; i < 3; i++ {
		out = append(out, headlines...)
	}
	return out
}

// InfoCard builds the detail card for one factor.
func InfoCard(key string, factors map[string]domain.Factor) (InfoCardVM, bool) {
	f, ok := factors[key]
	if !ok {
		return InfoCardVM{}, false
	}
	return InfoCardVM{
		Key:          f.Key,
		Name:         f.Name,
		Desc:         f.Desc,
		Unit:         f.Unit,
		Weight:       f.Weight,
		Contribution: domain.Contribution(key, factors),
		Severity:     f.Severity(),
	}, true
}

// Sliders builds simulation sliders for every live factor, in display order.
func Sliders(factors map[string]domain.Factor) []SliderVM {
	sliders := make([]SliderVM, 0, len(factors))
	for _, key := range domain.RegistryOrder() {
		f, ok := factors[key]
		if !ok || !f.Eligible() {
			continue
		}
		sliders = append(sliders, SliderVM{
			Key:     f.Key,
			Name:    f.Name,
			Value:   f.Value,
			Max:     f.Max,
			Reverse: f.Reverse,
		})
	}
	return sliders
}

// Logs renders the controller's cycled log feed newest-first.
func Logs(records []domain.LogRecord) []LogEntryVM {
	out := make([]LogEntryVM, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		out = append(out, LogEntryVM{
			Level:   r.Type,
			Message: r.Message,
			Source:  r.Source,
			At:      r.Timestamp,
		})
	}
	return out
}

// Markers lists every mapped country as a static map marker, in stable order.
func Markers() []MarkerVM {
	codes := domain.CountryCodes()
	markers := make([]MarkerVM, 0, len(codes))
	for _, code := range codes {
		p, _ := domain.ResolveCountry(code)
		markers = append(markers, MarkerVM{Code: code, Pos: p})
	}
	return markers
}
