package domain

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed factors.yaml
var factorsYAML []byte

// FactorMeta is the static half of a factor: identity, display fields, and
// its weight in the composite score. Loaded once from the embedded registry.
type FactorMeta struct {
	Key    string  `yaml:"key" json:"key"`
	Name   string  `yaml:"name" json:"name"`
	Icon   string  `yaml:"icon" json:"icon"`
	Weight float64 `yaml:"weight" json:"weight"`
	Unit   string  `yaml:"unit" json:"unit"`
	Desc   string  `yaml:"desc" json:"desc"`
}

// FactorLive is the dynamic half of a factor as supplied by a snapshot.
type FactorLive struct {
	Value   float64 `json:"value"`
	Max     float64 `json:"max"`
	Reverse bool    `json:"reverse,omitempty"`
}

// Factor merges static metadata with the live fields from the latest refresh.
// Live is false until a snapshot (or a committed simulation) has supplied a
// value; factors without a live value are excluded from aggregation.
type Factor struct {
	FactorMeta
	Value   float64 `json:"value"`
	Max     float64 `json:"max"`
	Reverse bool    `json:"reverse,omitempty"`
	Live    bool    `json:"live"`
}

// NewFactor constructs a Factor from metadata and live fields, clamping the
// value into [0, max] at construction so out-of-range upstream numbers can
// never escape into scoring or display.
func NewFactor(meta FactorMeta, live FactorLive) Factor {
	return Factor{
		FactorMeta: meta,
		Value:      clampValue(live.Value, live.Max),
		Max:        live.Max,
		Reverse:    live.Reverse,
		Live:       true,
	}
}

// SetValue overwrites the factor's value, clamped into [0, max].
func (f *Factor) SetValue(v float64) {
	f.Value = clampValue(v, f.Max)
	f.Live = true
}

// Eligible reports whether the factor can participate in aggregation:
// it must carry a live value and a positive max.
func (f *Factor) Eligible() bool {
	return f.Live && f.Max > 0
}

// Normalized returns the factor's severity ratio in [0,1], with the reverse
// flag applied. Returns 0 for ineligible factors.
func (f *Factor) Normalized() float64 {
	if !f.Eligible() {
		return 0
	}
	n := clamp01(f.Value / f.Max)
	if f.Reverse {
		n = 1 - n
	}
	return n
}

// Severity classifies the factor's current value.
func (f *Factor) Severity() Severity {
	return Classify(f.Value, f.Max, f.Reverse)
}

// Perturb jitters the factor's value by a signed random delta of up to ±1% of
// its max, clamped back into range. Used by the offline fallback to keep the
// dashboard visibly alive when the upstream snapshot cannot be fetched.
func (f *Factor) Perturb(r *rand.Rand) {
	if !f.Eligible() {
		return
	}
	delta := (r.Float64()*2 - 1) * 0.01 * f.Max
	f.SetValue(f.Value + delta)
}

func clampValue(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// Registry returns the static factor metadata keyed by factor key.
// The returned map is freshly built on each call and safe to mutate.
func Registry() map[string]FactorMeta {
	metas := make(map[string]FactorMeta, len(registry))
	for _, m := range registry {
		metas[m.Key] = m
	}
	return metas
}

// RegistryOrder returns factor keys in the registry's declaration order,
// which is the display order for tiles and sliders.
func RegistryOrder() []string {
	keys := make([]string, len(registry))
	for i, m := range registry {
		keys[i] = m.Key
	}
	return keys
}

var registry = mustLoadRegistry()

func mustLoadRegistry() []FactorMeta {
	var metas []FactorMeta
	if err := yaml.Unmarshal(factorsYAML, &metas); err != nil {
		panic(fmt.Sprintf("parse embedded factor registry: %v", err))
	}
	seen := make(map[string]bool, len(metas))
	for _, m := range metas {
		if m.Key == "" || seen[m.Key] {
			panic(fmt.Sprintf("embedded factor registry: bad or duplicate key %q", m.Key))
		}
		seen[m.Key] = true
	}
	return metas
}

// MergeSnapshot builds the live factor set from registry metadata and a
// snapshot's factor fields. Snapshot keys with no matching metadata are
// ignored; registered factors absent from the snapshot stay non-live.
func MergeSnapshot(snap *Snapshot) map[string]Factor {
	factors := make(map[string]Factor, len(registry))
	for _, meta := range registry {
		if live, ok := snap.ChaosFactors[meta.Key]; ok {
			factors[meta.Key] = NewFactor(meta, live)
		} else {
			factors[meta.Key] = Factor{FactorMeta: meta}
		}
	}
	return factors
}

// SortedKeys returns the factor keys in deterministic (lexical) order.
// Aggregation itself is order-invariant; this exists for stable logging.
func SortedKeys(factors map[string]Factor) []string {
	keys := make([]string, 0, len(factors))
	for k := range factors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
