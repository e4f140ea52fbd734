package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chaos-meter/internal/controller"
	"github.com/couchcryptid/chaos-meter/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	computed := time.Date(2026, 8, 28, 15, 10, 0, 0, time.UTC)
	idx := 42.7
	scored := controller.ScoredSnapshot{
		Score:      42.7,
		ComputedAt: computed,
		Snapshot: &domain.Snapshot{
			ChaosIndex: &idx,
			Headlines:  []string{"Botnet takedown announced"},
		},
	}

	msg, err := serializeToMessage(scored)
	require.NoError(t, err)

	assert.Equal(t, []byte(computed.Format(time.RFC3339Nano)), msg.Key)
	assert.Contains(t, string(msg.Value), `"score":42.7`)
	assert.Contains(t, string(msg.Value), "Botnet takedown announced")
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "score", msg.Headers[0].Key)
	assert.Equal(t, []byte("42.7"), msg.Headers[0].Value)
	assert.Equal(t, "computed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2026-08-28T15:10:00Z"), msg.Headers[1].Value)
}
