package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/safety"
)

const secret = "s3cret"

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{in: "LONG", want: DirectionLong},
		{in: "buy", want: DirectionLong},
		{in: " Short ", want: DirectionShort},
		{in: "SELL", want: DirectionShort},
		{in: "close", want: DirectionClose},
		{in: "HOLD", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, exchange.OrderSideBuy, DirectionLong.EntrySide())
	assert.Equal(t, exchange.OrderSideSell, DirectionShort.EntrySide())
}

func TestParseWebhook(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind boterrors.Kind
		wantCode string
		check    func(t *testing.T, sig TradeSignal)
	}{
		{
			name: "long with numbers",
			body: `{"secret":"s3cret","signal":"LONG","symbol":"btcusdt","entry":30000,"sl":29000,"tp":32000,"risk_usd":50}`,
			check: func(t *testing.T, sig TradeSignal) {
				assert.Equal(t, DirectionLong, sig.Direction())
				assert.Equal(t, "BTCUSDT", sig.Symbol())
				assert.Equal(t, 30000.0, sig.EntryPrice())
				assert.Equal(t, 29000.0, sig.StopPrice())
				assert.Equal(t, 32000.0, sig.TargetPrice())
				assert.Equal(t, 50.0, sig.RiskUSD())
				assert.Empty(t, sig.Warnings())
			},
		},
		{
			name: "sell alias with quoted prices and default risk",
			body: `{"secret":"s3cret","signal":"SELL","symbol":"ETHUSDT","entry":"2000.5","sl":"2100","tp":"1800"}`,
			check: func(t *testing.T, sig TradeSignal) {
				assert.Equal(t, DirectionShort, sig.Direction())
				assert.Equal(t, 2000.5, sig.EntryPrice())
				assert.Equal(t, 100.0, sig.RiskUSD())
			},
		},
		{
			name: "close needs no prices",
			body: `{"secret":"s3cret","signal":"CLOSE","symbol":"SOLUSDT"}`,
			check: func(t *testing.T, sig TradeSignal) {
				assert.True(t, sig.IsClose())
				assert.Equal(t, "SOLUSDT", sig.Symbol())
			},
		},
		{
			name: "inverted bracket is a warning",
			body: `{"secret":"s3cret","signal":"LONG","symbol":"BTCUSDT","entry":30000,"sl":31000,"tp":32000}`,
			check: func(t *testing.T, sig TradeSignal) {
				assert.Len(t, sig.Warnings(), 1)
			},
		},
		{name: "empty body", body: ``, wantKind: boterrors.KindValidation, wantCode: boterrors.CodeMalformedBody},
		{name: "bad json", body: `{"secret":`, wantKind: boterrors.KindValidation, wantCode: boterrors.CodeMalformedBody},
		{name: "wrong secret", body: `{"secret":"nope","signal":"LONG","symbol":"BTCUSDT","entry":1,"sl":1,"tp":1}`, wantKind: boterrors.KindAuth, wantCode: boterrors.CodeSecretMismatch},
		{name: "missing secret", body: `{"signal":"LONG"}`, wantKind: boterrors.KindAuth},
		{name: "unknown signal", body: `{"secret":"s3cret","signal":"HOLD","symbol":"BTCUSDT","entry":1,"sl":1,"tp":1}`, wantKind: boterrors.KindValidation, wantCode: boterrors.CodeInvalidSignal},
		{name: "missing symbol", body: `{"secret":"s3cret","signal":"LONG","entry":1,"sl":1,"tp":1}`, wantKind: boterrors.KindValidation, wantCode: boterrors.CodeMissingField},
		{name: "missing tp", body: `{"secret":"s3cret","signal":"LONG","symbol":"BTCUSDT","entry":30000,"sl":29000}`, wantKind: boterrors.KindValidation, wantCode: boterrors.CodeMissingField},
		{name: "negative stop", body: `{"secret":"s3cret","signal":"SHORT","symbol":"BTCUSDT","entry":30000,"sl":-1,"tp":28000}`, wantKind: boterrors.KindValidation, wantCode: "INVALID_PRICE_NEGATIVE"},
		{name: "non numeric price", body: `{"secret":"s3cret","signal":"LONG","symbol":"BTCUSDT","entry":"abc","sl":1,"tp":2}`, wantKind: boterrors.KindValidation, wantCode: boterrors.CodeMalformedBody},
		{name: "risk above limit", body: `{"secret":"s3cret","signal":"LONG","symbol":"BTCUSDT","entry":30000,"sl":29000,"tp":32000,"risk_usd":5000}`, wantKind: boterrors.KindValidation, wantCode: "RISK_ABOVE_LIMIT"},
		{name: "zero risk", body: `{"secret":"s3cret","signal":"LONG","symbol":"BTCUSDT","entry":30000,"sl":29000,"tp":32000,"risk_usd":0}`, wantKind: boterrors.KindValidation, wantCode: "INVALID_RISK"},
	}

	validator := safety.NewValidator(1000)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := ParseWebhook([]byte(tt.body), secret, 100, validator)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, boterrors.KindOf(err))
				if tt.wantCode != "" {
					var botErr *boterrors.BotError
					require.ErrorAs(t, err, &botErr)
					assert.Equal(t, tt.wantCode, botErr.Code)
				}
				return
			}
			require.NoError(t, err)
			tt.check(t, sig)
		})
	}
}

func TestEntryEqualStopPassesValidation(t *testing.T) {
	// a degenerate stop is a sizing failure, not a malformed alert
	sig, err := ParseWebhook([]byte(`{"secret":"s3cret","signal":"LONG","symbol":"BTCUSDT","entry":30000,"sl":30000,"tp":31000}`), secret, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, sig.EntryPrice(), sig.StopPrice())
}

func TestWarningsAreCopied(t *testing.T) {
	sig, err := ParseWebhook([]byte(`{"secret":"s3cret","signal":"SHORT","symbol":"BTCUSDT","entry":30000,"sl":29000,"tp":31000}`), secret, 100, nil)
	require.NoError(t, err)

	warnings := sig.Warnings()
	require.Len(t, warnings, 2)
	warnings[0] = "changed"
	assert.NotEqual(t, "changed", sig.Warnings()[0])
}
