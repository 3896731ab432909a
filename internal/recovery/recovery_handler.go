package recovery

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
)

// RecoveryAction is what the handler decided to do with a failed attempt
type RecoveryAction string

const (
	RecoveryActionRetry RecoveryAction = "RETRY"
	RecoveryActionStop  RecoveryAction = "STOP"
)

// RetryConfig defines the bounded retry policy for venue calls
type RetryConfig struct {
	// MaxTransientRetries is the number of extra attempts allowed after a
	// transport failure. Venue rejections are never retried.
	MaxTransientRetries int
	BaseDelay           time.Duration
	MaxDelay            time.Duration
	Jitter              bool
}

// DefaultRetryConfig retries a transport failure once after a short pause
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxTransientRetries: 1,
		BaseDelay:           250 * time.Millisecond,
		MaxDelay:            2 * time.Second,
		Jitter:              true,
	}
}

// RecoveryResult represents the decision for one failed attempt
type RecoveryResult struct {
	Action  RecoveryAction
	Delay   time.Duration
	Message string
}

// RecoveryHandler applies the retry policy and keeps error statistics
type RecoveryHandler struct {
	config RetryConfig
	logger zerolog.Logger

	mu    sync.Mutex
	stats *errors.ErrorStats
}

// NewRecoveryHandler creates a new recovery handler
func NewRecoveryHandler(logger zerolog.Logger, config RetryConfig) *RecoveryHandler {
	if config.MaxTransientRetries < 0 {
		config.MaxTransientRetries = 0
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = 2 * time.Second
	}

	return &RecoveryHandler{
		config: config,
		logger: logger.With().Str("component", "recovery").Logger(),
		stats:  errors.NewErrorStats(50),
	}
}

// HandleError classifies a failed attempt (0-based) and decides whether to retry
func (rh *RecoveryHandler) HandleError(err error, component, operation string, attempt int) *RecoveryResult {
	retryable := errors.IsTransient(err)

	botErr := errors.Wrap(err, errors.KindOf(err), "", component, operation)
	botErr.Retryable = retryable
	rh.mu.Lock()
	rh.stats.RecordError(botErr)
	rh.mu.Unlock()

	if !retryable {
		return &RecoveryResult{Action: RecoveryActionStop, Message: "non-transient failure, not retried"}
	}
	if attempt >= rh.config.MaxTransientRetries {
		return &RecoveryResult{Action: RecoveryActionStop, Message: "transient retry budget exhausted"}
	}

	return &RecoveryResult{
		Action:  RecoveryActionRetry,
		Delay:   rh.calculateDelay(attempt),
		Message: "transient failure, retrying",
	}
}

// calculateDelay doubles the base delay per attempt, capped at MaxDelay
func (rh *RecoveryHandler) calculateDelay(attempt int) time.Duration {
	delay := rh.config.BaseDelay << uint(attempt)
	if delay > rh.config.MaxDelay || delay < 0 {
		delay = rh.config.MaxDelay
	}
	if rh.config.Jitter && delay > 0 {
		delay += time.Duration(rand.Int63n(int64(delay)/10 + 1))
	}
	return delay
}

// ExecuteWithRecovery runs fn, retrying only while the policy allows.
// fn receives the attempt number so callers can derive per-attempt timeouts.
func (rh *RecoveryHandler) ExecuteWithRecovery(
	ctx context.Context,
	component, operation string,
	fn func(ctx context.Context, attempt int) error,
) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx, attempt)
		if err == nil {
			if attempt > 0 {
				rh.logger.Info().Str("op", component+"."+operation).Int("attempts", attempt+1).Msg("operation succeeded after retry")
			}
			return nil
		}

		result := rh.HandleError(err, component, operation, attempt)
		if result.Action == RecoveryActionStop {
			if attempt > 0 {
				rh.logger.Warn().Err(err).Str("op", component+"."+operation).Int("attempts", attempt+1).Msg(result.Message)
			}
			return err
		}

		rh.logger.Warn().Err(err).Str("op", component+"."+operation).Dur("delay", result.Delay).Msg(result.Message)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(result.Delay):
		}
	}
}

// Stats returns a snapshot of error rate per kind
func (rh *RecoveryHandler) Stats() (total int, byKind map[errors.Kind]int) {
	rh.mu.Lock()
	defer rh.mu.Unlock()

	byKind = make(map[errors.Kind]int, len(rh.stats.ErrorsByKind))
	for k, v := range rh.stats.ErrorsByKind {
		byKind[k] = v
	}
	return rh.stats.TotalErrors, byKind
}
