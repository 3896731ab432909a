package safety

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePrice(t *testing.T) {
	v := NewValidator(0)

	tests := []struct {
		name  string
		price float64
		code  string
	}{
		{"valid", 30000, ""},
		{"zero", 0, "INVALID_PRICE_NEGATIVE"},
		{"negative", -1, "INVALID_PRICE_NEGATIVE"},
		{"nan", math.NaN(), "INVALID_PRICE_NAN"},
		{"inf", math.Inf(1), "INVALID_PRICE_INF"},
		{"absurd", 1e11, "PRICE_OUT_OF_BOUNDS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.ValidatePrice("entry", tt.price, "BTCUSDT")
			assert.Equal(t, tt.code == "", res.Valid)
			assert.Equal(t, tt.code, res.Code)
		})
	}
}

func TestValidateRisk(t *testing.T) {
	v := NewValidator(500)

	assert.True(t, v.ValidateRisk(100).Valid)
	assert.Equal(t, "INVALID_RISK", v.ValidateRisk(0).Code)
	assert.Equal(t, "INVALID_RISK", v.ValidateRisk(math.NaN()).Code)
	assert.Equal(t, "RISK_ABOVE_LIMIT", v.ValidateRisk(1000).Code)
	assert.True(t, NewValidator(0).ValidateRisk(1e6).Valid)
}

func TestValidateSymbol(t *testing.T) {
	v := NewValidator(0)

	assert.True(t, v.ValidateSymbol("BTCUSDT").Valid)
	assert.True(t, v.ValidateSymbol("BTC-USDT-SWAP").Valid)
	assert.Equal(t, "SYMBOL_EMPTY", v.ValidateSymbol("  ").Code)
	assert.Equal(t, "SYMBOL_TOO_SHORT", v.ValidateSymbol("BT").Code)
	assert.Equal(t, "SYMBOL_INVALID_CHARS", v.ValidateSymbol("BTC USDT").Code)
}

func TestBracketWarnings(t *testing.T) {
	v := NewValidator(0)

	assert.Empty(t, v.BracketWarnings(true, 100, 90, 120))
	assert.Empty(t, v.BracketWarnings(false, 100, 110, 80))
	assert.Len(t, v.BracketWarnings(true, 100, 110, 90), 2)
	assert.Len(t, v.BracketWarnings(false, 100, 110, 120), 1)
}

func TestRateLimiterRefill(t *testing.T) {
	rl := NewRateLimiter("test", 2, 1)
	clock := time.Now()
	rl.now = func() time.Time { return clock }
	rl.lastRefill = clock

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	clock = clock.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.Equal(t, 0, rl.GetStats().Tokens)
}

func TestRateLimiterWaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter("test", 1, 1)
	require.True(t, rl.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, rl.Wait(ctx), context.Canceled)
}

func TestCircuitBreakerCountsOnlyFailures(t *testing.T) {
	transport := errors.New("connection reset")
	rejected := errors.New("insufficient balance")

	cb := NewCircuitBreaker("venue", CircuitBreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Hour,
		IsFailure:        func(err error) bool { return err == transport },
	})

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return rejected }), rejected)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	_ = cb.Call(func() error { return transport })
	_ = cb.Call(func() error { return transport })
	assert.Equal(t, StateOpen, cb.GetState())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	cb.Reset()
	assert.NoError(t, cb.Call(func() error { return nil }))
}

func TestCircuitBreakerHalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker("venue", CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Millisecond})

	_ = cb.Call(func() error { return errors.New("down") })
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(5 * time.Millisecond)
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.GetState())
}
