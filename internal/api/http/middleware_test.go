package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/triage-service/internal/observability"
	apperrors "github.com/opsdesk/triage-service/pkg/util/errorutil"
)

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestApp(metrics *observability.Metrics) *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path string) (*http.Response, errorEnvelope) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	var envelope errorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestErrorEnvelopeMapping(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newTestApp(metrics)
	app.Get("/conflict", func(c *fiber.Ctx) error {
		return apperrors.NewStateConflict("ticket 5 is SENT, expected PENDING_APPROVAL",
			map[string]any{"ticket_id": 5})
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", nil)
	})
	app.Get("/oracle", func(c *fiber.Ctx) error {
		return apperrors.NewOracleUnavailable("scoring oracle unavailable", nil)
	})

	resp, envelope := doRequest(t, app, "/conflict")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "STATE_CONFLICT", envelope.Error.Code)
	assert.Equal(t, float64(5), envelope.Error.Details["ticket_id"])

	resp, envelope = doRequest(t, app, "/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)

	resp, envelope = doRequest(t, app, "/oracle")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "ORACLE_UNAVAILABLE", envelope.Error.Code)
	assert.Equal(t, true, envelope.Error.Details["retryable"])
}

func TestUnknownErrorBecomesInternal(t *testing.T) {
	app := newTestApp(observability.NewMetrics())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return assert.AnError
	})

	resp, envelope := doRequest(t, app, "/boom")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
	assert.NotContains(t, envelope.Error.Message, "assert.AnError", "internal detail must not leak")
}

func TestPanicRecovered(t *testing.T) {
	app := newTestApp(observability.NewMetrics())
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("nil map write")
	})

	resp, envelope := doRequest(t, app, "/panic")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
}

func TestErrorsCountedInMetrics(t *testing.T) {
	metrics := observability.NewMetrics()
	app := newTestApp(metrics)
	app.Get("/missing", func(c *fiber.Ctx) error {
		return apperrors.NewNotFound("ticket", nil)
	})

	_, _ = doRequest(t, app, "/missing")
	_, _ = doRequest(t, app, "/missing")

	snapshot := metrics.Snapshot()
	var total int64
	for _, count := range snapshot["errors"] {
		total += count
	}
	assert.Equal(t, int64(2), total)
}
