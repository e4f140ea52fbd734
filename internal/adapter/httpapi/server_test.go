package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/chaos-meter/internal/adapter/httpapi"
	"github.com/couchcryptid/chaos-meter/internal/anim"
	"github.com/couchcryptid/chaos-meter/internal/controller"
	"github.com/couchcryptid/chaos-meter/internal/render"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockEngine struct {
	dashboardCalls int
	simActive      bool
	overlays       map[string]float64
	committed      bool
	discarded      bool
}

func (m *mockEngine) Dashboard() render.Dashboard {
	m.dashboardCalls++
	return render.Dashboard{
		Gauge: render.GaugeVM{Score: 61.5, Display: "61.5", Severity: "high"},
	}
}

func (m *mockEngine) Frame() anim.Frame {
	return anim.Frame{At: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
}

func (m *mockEngine) InfoCard(key string) (render.InfoCardVM, bool) {
	if key != "solar" {
		return render.InfoCardVM{}, false
	}
	return render.InfoCardVM{Key: "solar", Name: "Solar Activity", Weight: 15}, true
}

func (m *mockEngine) EnterSimulation() error {
	if m.simActive {
		return controller.ErrSimulationActive
	}
	m.simActive = true
	m.overlays = map[string]float64{}
	return nil
}

func (m *mockEngine) SetOverlay(key string, value float64) error {
	if !m.simActive {
		return controller.ErrSimulationNotActive
	}
	if key == "unknown" {
		return fmt.Errorf("unknown factor %q", key)
	}
	m.overlays[key] = value
	return nil
}

func (m *mockEngine) SimulationScore() (float64, error) {
	if !m.simActive {
		return 0, controller.ErrSimulationNotActive
	}
	return 88.8, nil
}

func (m *mockEngine) CommitSimulation() error {
	if !m.simActive {
		return controller.ErrSimulationNotActive
	}
	m.simActive = false
	m.committed = true
	return nil
}

func (m *mockEngine) DiscardSimulation() error {
	if !m.simActive {
		return controller.ErrSimulationNotActive
	}
	m.simActive = false
	m.discarded = true
	return nil
}

func newTestServer(engine *mockEngine, readyErr error) *httpapi.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpapi.NewServer(":0", engine, &mockReadiness{err: readyErr}, 50*time.Millisecond, logger)
}

func doRequest(srv *httpapi.Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockEngine{}, nil)
	rec := doRequest(srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReportsReadiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(&mockEngine{}, nil)
		rec := doRequest(srv, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		srv := newTestServer(&mockEngine{}, fmt.Errorf("first poll pending"))
		rec := doRequest(srv, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "first poll pending")
	})
}

func TestDashboardServedAndCached(t *testing.T) {
	engine := &mockEngine{}
	srv := newTestServer(engine, nil)

	rec := doRequest(srv, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var d render.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.InDelta(t, 61.5, d.Gauge.Score, 1e-9)

	rec = doRequest(srv, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, engine.dashboardCalls, "second request within TTL must hit the cache")
}

func TestFrameNotCached(t *testing.T) {
	srv := newTestServer(&mockEngine{}, nil)
	rec := doRequest(srv, http.MethodGet, "/api/v1/frame", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var frame anim.Frame
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &frame))
	assert.Equal(t, time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), frame.At)
}

func TestInfoCard(t *testing.T) {
	srv := newTestServer(&mockEngine{}, nil)

	t.Run("known factor", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/factors/solar", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var card render.InfoCardVM
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
		assert.Equal(t, "solar", card.Key)
		assert.Equal(t, "Solar Activity", card.Name)
	})

	t.Run("unknown factor", func(t *testing.T) {
		rec := doRequest(srv, http.MethodGet, "/api/v1/factors/gremlins", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Contains(t, body["error"], "gremlins")
	})
}

func TestSimulationFlow(t *testing.T) {
	engine := &mockEngine{}
	srv := newTestServer(engine, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/simulation", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/v1/simulation", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "double enter must conflict")

	rec = doRequest(srv, http.MethodPut, "/api/v1/simulation/factors/solar", `{"value": 8.5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var overlayResp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overlayResp))
	assert.Equal(t, "solar", overlayResp["key"])
	assert.InDelta(t, 88.8, overlayResp["previewScore"].(float64), 1e-9)
	assert.InDelta(t, 8.5, engine.overlays["solar"], 1e-9)

	rec = doRequest(srv, http.MethodGet, "/api/v1/simulation/score", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(srv, http.MethodPost, "/api/v1/simulation/commit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, engine.committed)
}

func TestSimulationDiscard(t *testing.T) {
	engine := &mockEngine{}
	srv := newTestServer(engine, nil)

	rec := doRequest(srv, http.MethodDelete, "/api/v1/simulation", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "discard without an active simulation must conflict")

	doRequest(srv, http.MethodPost, "/api/v1/simulation", "")
	rec = doRequest(srv, http.MethodDelete, "/api/v1/simulation", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, engine.discarded)
}

func TestSetOverlayErrors(t *testing.T) {
	engine := &mockEngine{}
	srv := newTestServer(engine, nil)
	doRequest(srv, http.MethodPost, "/api/v1/simulation", "")

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPut, "/api/v1/simulation/factors/solar", `{"value": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown factor", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPut, "/api/v1/simulation/factors/unknown", `{"value": 1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
