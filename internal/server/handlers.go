package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/monitoring"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/orchestrator"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/signal"
)

// webhookResponse is the 200 body. Protected is only set when an entry
// was placed.
type webhookResponse struct {
	Status            string   `json:"status"`
	Signal            string   `json:"signal"`
	Symbol            string   `json:"symbol"`
	Action            string   `json:"action"`
	Quantity          float64  `json:"quantity,omitempty"`
	OrderID           string   `json:"order_id,omitempty"`
	EntryPrice        float64  `json:"entry_price,omitempty"`
	StopOrderID       string   `json:"stop_order_id,omitempty"`
	TakeProfitOrderID string   `json:"take_profit_order_id,omitempty"`
	Protected         *bool    `json:"protected,omitempty"`
	ProtectionError   string   `json:"protection_error,omitempty"`
	MissingLegs       []string `json:"missing_legs,omitempty"`
	ClosedPositions   int      `json:"closed_positions"`
	RiskUSD           float64  `json:"risk_usd,omitempty"`
	RealizedRisk      float64  `json:"realized_risk,omitempty"`
	Adjustments       []string `json:"adjustments,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, boterrors.NewValidationError("server", boterrors.CodeMalformedBody, "failed to read body: "+err.Error()))
		return
	}

	sig, err := signal.ParseWebhook(body, s.config.WebhookSecret, s.config.DefaultRiskUSD, s.validator)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.logger.Info().Str("signal", sig.String()).Msg("webhook received")

	result, err := s.orchestrator.ExecuteBracket(r.Context(), sig)
	if err != nil {
		s.fail(w, err)
		return
	}

	monitoring.RecordWebhook(strconv.Itoa(http.StatusOK))
	writeJSON(w, http.StatusOK, newWebhookResponse(sig, result))
}

func newWebhookResponse(sig signal.TradeSignal, result *orchestrator.BracketResult) webhookResponse {
	resp := webhookResponse{
		Status:          "success",
		Signal:          string(sig.Direction()),
		Symbol:          sig.Symbol(),
		Action:          "closed",
		ClosedPositions: result.ClosedPositions,
		Warnings:        result.Warnings,
	}
	if !result.Entered() {
		return resp
	}

	protected := result.Protected()
	resp.Action = "opened"
	resp.Quantity = result.SizedQuantity.InexactFloat64()
	resp.OrderID = result.EntryOrderRef.OrderID
	resp.EntryPrice = result.FillPrice
	resp.Protected = &protected
	resp.RiskUSD = sig.RiskUSD()
	if result.StopOrderRef != nil {
		resp.StopOrderID = result.StopOrderRef.OrderID
	}
	if result.TargetOrderRef != nil {
		resp.TakeProfitOrderID = result.TargetOrderRef.OrderID
	}
	if err := result.ProtectionError(); err != nil {
		resp.ProtectionError = err.Error()
		for _, leg := range result.MissingLegs() {
			resp.MissingLegs = append(resp.MissingLegs, string(leg))
		}
	}
	if result.Plan != nil {
		resp.RealizedRisk = result.Plan.RealizedRisk
		resp.Adjustments = result.Plan.Adjustments
	}
	return resp
}

// statusForKind maps an error kind to its HTTP status. Kinds are never
// folded together: each class keeps its own code.
func statusForKind(kind boterrors.Kind) int {
	switch kind {
	case boterrors.KindValidation:
		return http.StatusBadRequest
	case boterrors.KindAuth:
		return http.StatusUnauthorized
	case boterrors.KindBusy:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	kind := boterrors.KindOf(err)
	status := statusForKind(kind)

	msg := err.Error()
	var botErr *boterrors.BotError
	if errors.As(err, &botErr) && (kind == boterrors.KindValidation || kind == boterrors.KindAuth) {
		msg = botErr.Message
	}

	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Str("kind", string(kind)).Int("status", status).Msg("webhook rejected")

	monitoring.RecordWebhook(strconv.Itoa(status))
	writeError(w, status, msg, string(kind))
}

type guardReporter interface {
	Stats() exchange.GuardStats
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := s.venue.GetAccountSummary(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("status: failed to read account")
		writeError(w, http.StatusInternalServerError, err.Error(), string(boterrors.KindOf(err)))
		return
	}
	price, err := s.venue.GetCurrentPrice(ctx, s.config.ReferenceSymbol)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", s.config.ReferenceSymbol).Msg("status: failed to read price")
		writeError(w, http.StatusInternalServerError, err.Error(), string(boterrors.KindOf(err)))
		return
	}

	body := map[string]interface{}{
		"status":           "running",
		"venue":            s.venue.Name(),
		"environment":      s.venue.Environment(),
		"testnet":          s.venue.IsTestnet(),
		"account":          account,
		"reference_symbol": s.config.ReferenceSymbol,
		"reference_price":  price,
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	}
	if g, ok := s.venue.(guardReporter); ok {
		body["guard"] = g.Stats()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.venue.GetAllPositions(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("positions: failed to read positions")
		writeError(w, http.StatusInternalServerError, err.Error(), string(boterrors.KindOf(err)))
		return
	}

	open := make([]exchange.Position, 0, len(positions))
	for _, p := range positions {
		if !p.IsFlat() {
			open = append(open, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"positions": open,
		"count":     len(open),
	})
}
