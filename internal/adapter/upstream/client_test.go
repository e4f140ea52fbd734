package upstream

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chaos-meter/internal/observability"
)

func testClient(url string, rps float64, burst int) *Client {
	return NewClient(url, 5*time.Second, rps, burst,
		clockwork.NewFakeClockAt(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)),
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

func TestClientFetch(t *testing.T) {
	t.Run("success with cache-busting parameter", func(t *testing.T) {
		var gotBuster string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBuster = r.URL.Query().Get("t")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"chaosIndex": 61.3, "chaosFactors": {"solar": {"value": 4, "max": 9}}}`))
		}))
		defer srv.Close()

		snap, err := testClient(srv.URL, 10, 10).Fetch(context.Background())
		require.NoError(t, err)

		assert.NotEmpty(t, gotBuster, "every request must carry a changing query parameter")
		require.NotNil(t, snap.ChaosIndex)
		assert.Equal(t, 61.3, *snap.ChaosIndex)
	})

	t.Run("preserves existing query parameters", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("v"))
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := testClient(srv.URL+"/data.json?v=1", 10, 10).Fetch(context.Background())
		require.NoError(t, err)
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, 10, 10).Fetch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{broken"))
		}))
		defer srv.Close()

		_, err := testClient(srv.URL, 10, 10).Fetch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse snapshot")
	})

	t.Run("rate limited after burst", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := testClient(srv.URL, 0.001, 1)
		_, err := c.Fetch(context.Background())
		require.NoError(t, err)

		_, err = c.Fetch(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit")
	})
}
