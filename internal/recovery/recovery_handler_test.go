package recovery

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
)

func newTestHandler() *RecoveryHandler {
	return NewRecoveryHandler(zerolog.Nop(), RetryConfig{MaxTransientRetries: 1, BaseDelay: time.Millisecond})
}

func TestExecuteWithRecovery(t *testing.T) {
	transport := stderrors.New("read tcp: connection reset by peer")
	rejection := errors.New(errors.KindVenue, "INSUFFICIENT_BALANCE", "venue", "submit", "insufficient balance")

	tests := []struct {
		name     string
		failures []error
		wantErr  error
		wantRuns int
	}{
		{"success first try", nil, nil, 1},
		{"transport then success", []error{transport}, nil, 2},
		{"transport twice gives up after one retry", []error{transport, transport}, transport, 2},
		{"rejection never retried", []error{rejection}, rejection, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rh := newTestHandler()
			runs := 0

			err := rh.ExecuteWithRecovery(context.Background(), "venue", "submit", func(ctx context.Context, attempt int) error {
				runs++
				if attempt < len(tt.failures) {
					return tt.failures[attempt]
				}
				return nil
			})

			assert.Equal(t, tt.wantRuns, runs)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestExecuteWithRecoveryZeroRetries(t *testing.T) {
	rh := NewRecoveryHandler(zerolog.Nop(), RetryConfig{MaxTransientRetries: 0})
	runs := 0

	err := rh.ExecuteWithRecovery(context.Background(), "venue", "price", func(ctx context.Context, attempt int) error {
		runs++
		return context.DeadlineExceeded
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, runs)
}

func TestExecuteWithRecoveryCancelledContext(t *testing.T) {
	rh := newTestHandler()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := rh.ExecuteWithRecovery(ctx, "venue", "price", func(ctx context.Context, attempt int) error {
		t.Fatal("fn must not run on a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatsRecordsKinds(t *testing.T) {
	rh := newTestHandler()
	rh.HandleError(errors.NewSizingError(errors.CodeDegenerateStop, "x"), "sizing", "compute", 0)
	rh.HandleError(stderrors.New("connection reset"), "venue", "submit", 0)

	total, byKind := rh.Stats()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, byKind[errors.KindSizing])
	assert.Equal(t, 1, byKind[errors.KindUnknown])
}
