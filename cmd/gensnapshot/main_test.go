package main

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chaos-meter/internal/domain"
)

func TestGenerateMatchesUpstreamScales(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7^0x9e3779b97f4a7c15))
	snap := generate(rng, 3, true)

	wantMax := map[string]float64{
		"solar":   9,
		"zeroday": 20,
		"malware": 500,
		"botnet":  10,
		"ransom":  500,
		"crypto":  20,
		"fear":    100,
	}

	for _, key := range domain.RegistryOrder() {
		live, ok := snap.ChaosFactors[key]
		require.True(t, ok, "factor %q missing from generated snapshot", key)
		assert.InDelta(t, wantMax[key], live.Max, 1e-9, "factor %q scale", key)
		assert.LessOrEqual(t, live.Value, live.Max, "factor %q value must stay on its scale", key)
		assert.GreaterOrEqual(t, live.Value, 0.0)
	}
	assert.True(t, snap.ChaosFactors["fear"].Reverse, "fear reads high when market greed is low")
}
