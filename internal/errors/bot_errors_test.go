package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeVenueErr struct {
	transient bool
}

func (f *fakeVenueErr) Error() string { return "venue said no" }
func (f *fakeVenueErr) ErrorKind() Kind { return KindVenue }
func (f *fakeVenueErr) IsTransient() bool { return f.transient }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"validation", NewValidationError("signal", CodeMissingField, "symbol is required"), KindValidation},
		{"auth", NewAuthError("server", "bad secret"), KindAuth},
		{"sizing wrapped by fmt", fmt.Errorf("sizing: %w", NewSizingError(CodeDegenerateStop, "stop equals entry")), KindSizing},
		{"foreign venue error", fmt.Errorf("submit: %w", &fakeVenueErr{}), KindVenue},
		{"outer kind wins", Wrap(&fakeVenueErr{}, KindPartialProtection, CodeStopLegFailed, "orchestrator", "stop_leg"), KindPartialProtection},
		{"deadline", context.DeadlineExceeded, KindVenue},
		{"plain", stderrors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestBotErrorIsMatchesByCode(t *testing.T) {
	sentinel := &BotError{Code: CodeDegenerateStop}
	err := fmt.Errorf("bracket: %w", NewSizingError(CodeDegenerateStop, "stop equals entry"))

	assert.True(t, stderrors.Is(err, sentinel))
	assert.False(t, stderrors.Is(err, &BotError{Code: CodeZeroQuantity}))
	assert.True(t, stderrors.Is(err, &BotError{Kind: KindSizing}))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"connection reset", stderrors.New("read tcp: connection reset by peer"), true},
		{"declared transient", &fakeVenueErr{transient: true}, true},
		{"declared rejection", &fakeVenueErr{transient: false}, false},
		{"insufficient balance text", stderrors.New("insufficient balance"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindVenue, "", "x", "y"))
}

func TestErrorStats(t *testing.T) {
	stats := NewErrorStats(2)
	stats.RecordError(NewAuthError("server", "a"))
	stats.RecordError(NewBusyError("BTCUSDT"))
	stats.RecordError(NewBusyError("ETHUSDT"))

	assert.Equal(t, 3, stats.TotalErrors)
	assert.Len(t, stats.RecentErrors, 2)
	assert.InDelta(t, 2.0/3.0, stats.GetErrorRate(KindBusy), 1e-9)
}
