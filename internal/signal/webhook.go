package signal

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"strconv"
	"strings"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/safety"
)

// Number accepts a JSON number or a numeric string. Alert templates often
// quote their placeholders.
type Number struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			return nil
		}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	n.Value, n.Set = v, true
	return nil
}

// WebhookPayload is the alert body
type WebhookPayload struct {
	Secret  string `json:"secret"`
	Signal  string `json:"signal"`
	Symbol  string `json:"symbol"`
	Entry   Number `json:"entry"`
	SL      Number `json:"sl"`
	TP      Number `json:"tp"`
	RiskUSD Number `json:"risk_usd"`
}

// ParseWebhook authenticates and validates an alert body. The secret check is
// a plain shared-string comparison carried in the body, kept for
// compatibility with existing alert templates; it offers no replay
// protection. defaultRisk is used when risk_usd is absent.
//
// Errors are KindValidation for malformed or incomplete bodies and KindAuth
// for a secret mismatch.
func ParseWebhook(body []byte, secret string, defaultRisk float64, validator *safety.Validator) (TradeSignal, error) {
	var payload WebhookPayload
	if len(bytes.TrimSpace(body)) == 0 {
		return TradeSignal{}, boterrors.NewValidationError("signal", boterrors.CodeMalformedBody, "No data")
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return TradeSignal{}, boterrors.NewValidationError("signal", boterrors.CodeMalformedBody, "invalid JSON body: "+err.Error())
	}

	if subtle.ConstantTimeCompare([]byte(payload.Secret), []byte(secret)) != 1 {
		return TradeSignal{}, boterrors.NewAuthError("signal", "Unauthorized")
	}

	return payload.Validate(defaultRisk, validator)
}

// Validate validates an already authenticated payload
func (p WebhookPayload) Validate(defaultRisk float64, validator *safety.Validator) (TradeSignal, error) {
	if validator == nil {
		validator = safety.NewValidator(0)
	}

	if strings.TrimSpace(p.Signal) == "" || strings.TrimSpace(p.Symbol) == "" {
		return TradeSignal{}, boterrors.NewValidationError("signal", boterrors.CodeMissingField, "Missing fields: signal and symbol are required")
	}
	direction, err := ParseDirection(p.Signal)
	if err != nil {
		return TradeSignal{}, boterrors.NewValidationError("signal", boterrors.CodeInvalidSignal, "Invalid signal: "+p.Signal)
	}
	if result := validator.ValidateSymbol(p.Symbol); !result.Valid {
		return TradeSignal{}, boterrors.NewValidationError("signal", result.Code, result.Message)
	}

	if direction == DirectionClose {
		return New(direction, p.Symbol, p.Entry.Value, p.SL.Value, p.TP.Value, 0), nil
	}

	if !p.Entry.Set || !p.SL.Set || !p.TP.Set {
		return TradeSignal{}, boterrors.NewValidationError("signal", boterrors.CodeMissingField, "Missing fields: entry, sl and tp are required")
	}
	prices := []struct {
		field string
		value float64
	}{{"entry", p.Entry.Value}, {"sl", p.SL.Value}, {"tp", p.TP.Value}}
	for _, price := range prices {
		if result := validator.ValidatePrice(price.field, price.value, p.Symbol); !result.Valid {
			return TradeSignal{}, boterrors.NewValidationError("signal", result.Code, result.Message)
		}
	}

	risk := defaultRisk
	if p.RiskUSD.Set {
		risk = p.RiskUSD.Value
	}
	if result := validator.ValidateRisk(risk); !result.Valid {
		return TradeSignal{}, boterrors.NewValidationError("signal", result.Code, result.Message)
	}

	sig := New(direction, p.Symbol, p.Entry.Value, p.SL.Value, p.TP.Value, risk)
	sig.warnings = validator.BracketWarnings(direction == DirectionLong, sig.entryPrice, sig.stopPrice, sig.targetPrice)
	return sig, nil
}
