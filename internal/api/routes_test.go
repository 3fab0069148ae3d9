package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/adapters"
	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/internal/websocket"
)

type liveSession struct{ session *entities.CaptionSession }

func (l liveSession) Current() (*entities.CaptionSession, bool) {
	return l.session, l.session != nil
}

func setupRoutes(t *testing.T, live websocket.StatusSource) (*echo.Echo, *adapters.MemoryCaptionRepository) {
	t.Helper()

	repo := adapters.NewMemoryCaptionRepository()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "radiocaption_test_total", Help: "test"}))

	e := echo.New()
	InitRoutes(e, websocket.NewHub(nil, zap.NewNop()), repo, live, reg, zap.NewNop())
	return e, repo
}

func get(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e, _ := setupRoutes(t, nil)

	rec := get(e, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"radiocaption"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := setupRoutes(t, nil)

	rec := get(e, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "radiocaption_test_total")
}

func TestSessions(t *testing.T) {
	e, repo := setupRoutes(t, nil)
	ctx := context.Background()

	session := entities.NewCaptionSession("http://example.test/live.aac", "fr-FR", "mock", 16000)
	require.NoError(t, repo.CreateSession(ctx, session))
	require.NoError(t, repo.AppendSegment(ctx, entities.NewTranscriptSegment(entities.TranscriptEvent{
		SessionID:  session.ID,
		Text:       "bonjour",
		ReceivedAt: time.Date(2024, 5, 1, 9, 30, 5, 0, time.UTC),
	}, 1)))

	t.Run("list", func(t *testing.T) {
		rec := get(e, "/api/v1/sessions")
		require.Equal(t, http.StatusOK, rec.Code)

		var body SessionListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, session.ID, body.Sessions[0].ID)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := get(e, "/api/v1/sessions?limit=zero")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get", func(t *testing.T) {
		rec := get(e, "/api/v1/sessions/"+session.ID)
		require.Equal(t, http.StatusOK, rec.Code)

		var body entities.CaptionSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "fr-FR", body.Language)
	})

	t.Run("missing", func(t *testing.T) {
		rec := get(e, "/api/v1/sessions/nope")
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = get(e, "/api/v1/sessions/nope/transcripts")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("transcripts", func(t *testing.T) {
		rec := get(e, "/api/v1/sessions/"+session.ID+"/transcripts")
		require.Equal(t, http.StatusOK, rec.Code)

		var body TranscriptResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 1, body.Count)
		assert.Equal(t, "09:30:05", body.Segments[0].Timestamp)
		assert.Equal(t, "bonjour", body.Segments[0].Transcript)
	})
}

func TestCurrentSession(t *testing.T) {
	e, _ := setupRoutes(t, nil)
	assert.Equal(t, http.StatusNotFound, get(e, "/api/v1/sessions/current").Code)

	running := entities.NewCaptionSession("http://example.test/live.aac", "fr-FR", "mock", 16000)
	running.MarkRunning()
	e, _ = setupRoutes(t, liveSession{session: running})

	rec := get(e, "/api/v1/sessions/current")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), running.ID)
}
