package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange/paper"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/monitoring"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/orchestrator"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/sizing"
)

const testSecret = "hook-secret"

type fixture struct {
	venue   *paper.Venue
	health  *monitoring.HealthChecker
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	venue := paper.New(exchange.PaperConfig{})
	health := monitoring.NewHealthChecker(venue.Name())
	orch := orchestrator.New(venue, sizing.NewSizer(sizing.DefaultRules(exchange.VenuePaper)), orchestrator.Options{
		Health: health,
		Logger: zerolog.Nop(),
	})
	srv := New(Config{
		Port:           0,
		WebhookSecret:  testSecret,
		DefaultRiskUSD: 100,
		MaxRiskUSD:     1000,
	}, venue, orch, health, zerolog.Nop())

	return &fixture{venue: venue, health: health, handler: srv.Handler()}
}

func (f *fixture) do(method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	return rec, decoded
}

func payload(signal string, extra string) string {
	body := `{"secret":"` + testSecret + `","signal":"` + signal + `","symbol":"BTCUSDT"`
	if extra != "" {
		body += "," + extra
	}
	return body + "}"
}

const btcBracket = `"entry":30000,"sl":29000,"tp":32000,"risk_usd":100`

func TestWebhookOpensBracket(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(http.MethodPost, "/webhook", payload("buy", btcBracket))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "LONG", body["signal"])
	assert.Equal(t, "BTCUSDT", body["symbol"])
	assert.Equal(t, "opened", body["action"])
	assert.Equal(t, 0.1, body["quantity"])
	assert.Equal(t, 30000.0, body["entry_price"])
	assert.Equal(t, true, body["protected"])
	assert.NotEmpty(t, body["order_id"])
	assert.NotEmpty(t, body["stop_order_id"])
	assert.NotEmpty(t, body["take_profit_order_id"])
	assert.NotContains(t, body, "protection_error")

	assert.Len(t, f.venue.Orders(), 3)
}

func TestWebhookStringNumbers(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(http.MethodPost, "/webhook",
		payload("SHORT", `"entry":"30000","sl":"31000","tp":"28000"`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// risk_usd omitted falls back to the default of 100
	assert.Equal(t, 0.1, body["quantity"])
	assert.Equal(t, "SHORT", body["signal"])
}

func TestWebhookProtectiveLegFailure(t *testing.T) {
	f := newFixture(t)
	f.venue.FailNext(string(exchange.OrderTypeStopMarket), exchange.ErrOrderRejected)

	rec, body := f.do(http.MethodPost, "/webhook", payload("buy", btcBracket))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, false, body["protected"])
	assert.NotEmpty(t, body["protection_error"])
	assert.Equal(t, []interface{}{"stop_loss"}, body["missing_legs"])
	assert.NotEmpty(t, body["take_profit_order_id"])
	assert.NotContains(t, body, "stop_order_id")
	assert.Equal(t, 1, f.health.Snapshot().UnprotectedSeen)
}

func TestWebhookClose(t *testing.T) {
	f := newFixture(t)
	f.venue.SetPosition("BTCUSDT", 0.5, 29000)

	rec, body := f.do(http.MethodPost, "/webhook", payload("close", ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "closed", body["action"])
	assert.Equal(t, 1.0, body["closed_positions"])
	assert.NotContains(t, body, "protected")
	assert.NotContains(t, body, "order_id")
}

func TestWebhookErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		setup    func(v *paper.Venue)
		status   int
		kind     string
		errorMsg string
	}{
		{
			name:   "empty body",
			body:   "",
			status: http.StatusBadRequest,
			kind:   "VALIDATION",
		},
		{
			name:   "malformed json",
			body:   "{not json",
			status: http.StatusBadRequest,
			kind:   "VALIDATION",
		},
		{
			name:     "wrong secret",
			body:     `{"secret":"nope","signal":"buy","symbol":"BTCUSDT",` + btcBracket + `}`,
			status:   http.StatusUnauthorized,
			kind:     "AUTH",
			errorMsg: "Unauthorized",
		},
		{
			name:   "missing stop",
			body:   payload("buy", `"entry":30000,"tp":32000`),
			status: http.StatusBadRequest,
			kind:   "VALIDATION",
		},
		{
			name:   "risk above limit",
			body:   payload("buy", `"entry":30000,"sl":29000,"tp":32000,"risk_usd":5000`),
			status: http.StatusBadRequest,
			kind:   "VALIDATION",
		},
		{
			name:   "degenerate stop",
			body:   payload("buy", `"entry":30000,"sl":30000,"tp":32000`),
			status: http.StatusInternalServerError,
			kind:   "SIZING",
		},
		{
			name: "entry rejected",
			body: payload("buy", btcBracket),
			setup: func(v *paper.Venue) {
				v.FailNext(string(exchange.OrderTypeMarket), exchange.ErrOrderRejected)
			},
			status: http.StatusInternalServerError,
			kind:   "VENUE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f.venue)
			}

			rec, body := f.do(http.MethodPost, "/webhook", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotEmpty(t, body["error"])
			if tt.errorMsg != "" {
				assert.Equal(t, tt.errorMsg, body["error"])
			}
			if tt.status != http.StatusOK {
				assert.Empty(t, f.venue.Orders())
			}
		})
	}
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	f := newFixture(t)

	big := `{"secret":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec, body := f.do(http.MethodPost, "/webhook", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION", body["kind"])
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(http.MethodGet, "/webhook", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind boterrors.Kind
		want int
	}{
		{boterrors.KindValidation, http.StatusBadRequest},
		{boterrors.KindAuth, http.StatusUnauthorized},
		{boterrors.KindBusy, http.StatusConflict},
		{boterrors.KindSizing, http.StatusInternalServerError},
		{boterrors.KindVenue, http.StatusInternalServerError},
		{boterrors.KindUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForKind(tt.kind))
		})
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "running", body["status"])
	assert.Equal(t, exchange.VenuePaper, body["venue"])
	assert.Equal(t, true, body["testnet"])
	assert.Equal(t, "BTCUSDT", body["reference_symbol"])
	assert.Equal(t, 30000.0, body["reference_price"])
	assert.NotContains(t, body, "guard")

	account, ok := body["account"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, paper.DefaultBalance, account["balance"])
}

func TestStatusReportsGuard(t *testing.T) {
	venue := paper.New(exchange.PaperConfig{})
	guarded := exchange.Guarded(venue, exchange.DefaultGuardConfig(), zerolog.Nop())
	orch := orchestrator.New(guarded, sizing.NewSizer(sizing.DefaultRules(exchange.VenuePaper)), orchestrator.Options{Logger: zerolog.Nop()})
	srv := New(Config{WebhookSecret: testSecret}, guarded, orch, nil, zerolog.Nop())
	f := &fixture{venue: venue, handler: srv.Handler()}

	rec, body := f.do(http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	guard, ok := body["guard"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "CLOSED", guard["breaker"])
	assert.Equal(t, 0.0, guard["consecutive_failures"])
	assert.Equal(t, 10.0, guard["requests_per_second"])
}

func TestStatusPriceFailure(t *testing.T) {
	f := newFixture(t)
	f.venue.FailNext(paper.OpPrice, errors.New("ticker unavailable"))

	rec, body := f.do(http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, body["error"], "ticker unavailable")
}

func TestPositions(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(http.MethodGet, "/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0.0, body["count"])

	rec, _ = f.do(http.MethodPost, "/webhook", payload("buy", btcBracket))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = f.do(http.MethodGet, "/positions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["count"])
}

func TestHealthAndIndex(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.health.SetConnected(true)
	rec, body := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, exchange.VenuePaper, body["venue"])

	rec, body = f.do(http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bracket-webhook-bot", body["service"])

	rec, _ = f.do(http.MethodGet, "/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = f.do(http.MethodGet, "/test", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}
