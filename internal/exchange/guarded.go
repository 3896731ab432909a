package exchange

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/monitoring"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/recovery"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/safety"
)

// GuardConfig controls the protection placed around every venue call
type GuardConfig struct {
	CallTimeout       time.Duration // per attempt
	RequestsPerSecond int
	Burst             int
	Retry             recovery.RetryConfig
	BreakerThreshold  uint32 // consecutive transport failures before the breaker opens
	BreakerCooldown   time.Duration
}

// DefaultGuardConfig returns an 8s per-call timeout, one transport retry,
// and a breaker that opens after five consecutive transport failures
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		CallTimeout:       8 * time.Second,
		RequestsPerSecond: 10,
		Burst:             10,
		Retry:             recovery.DefaultRetryConfig(),
		BreakerThreshold:  5,
		BreakerCooldown:   30 * time.Second,
	}
}

// GuardedVenue wraps a Venue with per-call timeouts, rate limiting, a circuit
// breaker and the bounded retry policy. Adapters beneath it stay simple.
type GuardedVenue struct {
	Venue

	config   GuardConfig
	limiter  *safety.RateLimiter
	breaker  *safety.CircuitBreaker
	recovery *recovery.RecoveryHandler
	logger   zerolog.Logger
}

// Guarded wraps venue with the given protection
func Guarded(venue Venue, config GuardConfig, logger zerolog.Logger) *GuardedVenue {
	defaults := DefaultGuardConfig()
	if config.CallTimeout <= 0 {
		config.CallTimeout = defaults.CallTimeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = config.RequestsPerSecond
	}

	logger = logger.With().Str("component", "venue").Str("venue", venue.Name()).Logger()

	breaker := safety.NewCircuitBreaker(venue.Name(), safety.CircuitBreakerConfig{
		FailureThreshold: config.BreakerThreshold,
		Timeout:          config.BreakerCooldown,
		IsFailure:        boterrors.IsTransient,
	})
	breaker.SetStateChangeCallback(func(name string, from, to safety.CircuitBreakerState) {
		logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("venue circuit breaker changed state")
	})

	return &GuardedVenue{
		Venue:    venue,
		config:   config,
		limiter:  safety.NewRateLimiter(venue.Name(), config.Burst, config.RequestsPerSecond),
		breaker:  breaker,
		recovery: recovery.NewRecoveryHandler(logger, config.Retry),
		logger:   logger,
	}
}

// GuardStats is a point-in-time view of the guard around a venue
type GuardStats struct {
	Breaker             string    `json:"breaker"`
	ConsecutiveFailures uint32    `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitempty"`
	TokensAvailable     int       `json:"tokens_available"`
	RequestsPerSecond   int       `json:"requests_per_second"`
}

// Stats reports breaker and rate limiter state for the status route
func (g *GuardedVenue) Stats() GuardStats {
	breaker := g.breaker.GetStats()
	limiter := g.limiter.GetStats()
	return GuardStats{
		Breaker:             breaker.State.String(),
		ConsecutiveFailures: breaker.Failures,
		LastFailure:         breaker.LastFailure,
		TokensAvailable:     limiter.Tokens,
		RequestsPerSecond:   limiter.RefillRate,
	}
}

// call runs fn under the guard. Reduce-only orders skip the breaker so that
// exposure can always be reduced.
func (g *GuardedVenue) call(ctx context.Context, operation string, skipBreaker bool, fn func(ctx context.Context) error) error {
	start := time.Now()

	err := g.recovery.ExecuteWithRecovery(ctx, g.Name(), operation, func(ctx context.Context, attempt int) error {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}

		callCtx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
		defer cancel()

		run := func() error { return fn(callCtx) }
		if skipBreaker {
			return run()
		}

		err := g.breaker.Call(run)
		if errors.Is(err, safety.ErrCircuitOpen) {
			return &ExchangeError{
				Code:    ErrCircuitOpen.Code,
				Message: ErrCircuitOpen.Message,
				Details: g.Name(),
				Kind:    ErrCircuitOpen.Kind,
			}
		}
		return err
	})

	monitoring.ObserveVenueCall(g.Name(), operation, err, time.Since(start))
	if err != nil {
		g.logger.Debug().Err(err).Str("operation", operation).Dur("elapsed", time.Since(start)).Msg("venue call failed")
	}
	return err
}

// GetCurrentPrice implements Gateway
func (g *GuardedVenue) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var price float64
	err := g.call(ctx, "get_current_price", false, func(ctx context.Context) error {
		var err error
		price, err = g.Venue.GetCurrentPrice(ctx, symbol)
		return err
	})
	if err == nil {
		monitoring.UpdatePrice(symbol, price)
	}
	return price, err
}

// GetSymbolMetadata implements Gateway
func (g *GuardedVenue) GetSymbolMetadata(ctx context.Context, symbol string) (*SymbolMetadata, error) {
	var meta *SymbolMetadata
	err := g.call(ctx, "get_symbol_metadata", false, func(ctx context.Context) error {
		var err error
		meta, err = g.Venue.GetSymbolMetadata(ctx, symbol)
		return err
	})
	return meta, err
}

// GetOpenPositions implements Gateway
func (g *GuardedVenue) GetOpenPositions(ctx context.Context, symbol string) ([]Position, error) {
	var positions []Position
	err := g.call(ctx, "get_open_positions", false, func(ctx context.Context) error {
		var err error
		positions, err = g.Venue.GetOpenPositions(ctx, symbol)
		return err
	})
	return positions, err
}

// SubmitOrder implements Gateway. The intent gets a client order id before
// the first attempt; a retry resubmits the same id so the venue rejects a
// duplicate instead of filling twice.
func (g *GuardedVenue) SubmitOrder(ctx context.Context, intent OrderIntent) (*OrderRef, error) {
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	if intent.ClientOrderID == "" {
		intent.ClientOrderID = NewClientOrderID()
	}

	var ref *OrderRef
	err := g.call(ctx, "submit_order", intent.ReduceOnly, func(ctx context.Context) error {
		var err error
		ref, err = g.Venue.SubmitOrder(ctx, intent)
		return err
	})
	if errors.Is(err, ErrDuplicateClientOrderID) {
		// an earlier attempt reached the venue even though its reply was lost
		ref, err = g.findAccepted(ctx, intent, err)
	}
	if err != nil {
		return nil, err
	}

	g.logger.Info().
		Str("symbol", intent.Symbol).
		Str("side", string(intent.Side)).
		Str("type", string(intent.Type)).
		Str("quantity", intent.Quantity.String()).
		Bool("reduce_only", intent.ReduceOnly).
		Str("order_id", ref.OrderID).
		Msg("order accepted")
	return ref, nil
}

// findAccepted resolves a duplicate client order id to the order the venue
// already holds. When that is not possible the result is ErrOrderStateUnknown.
func (g *GuardedVenue) findAccepted(ctx context.Context, intent OrderIntent, dupErr error) (*OrderRef, error) {
	unknown := func(cause error) error {
		return &ExchangeError{
			Code:    ErrOrderStateUnknown.Code,
			Message: ErrOrderStateUnknown.Message,
			Details: intent.Symbol + " client order id " + intent.ClientOrderID,
			Kind:    ErrOrderStateUnknown.Kind,
			Cause:   cause,
		}
	}

	lookup, ok := g.Venue.(OrderLookup)
	if !ok {
		g.logger.Error().Str("client_order_id", intent.ClientOrderID).Msg("duplicate client order id and venue has no order lookup")
		return nil, unknown(dupErr)
	}

	var ref *OrderRef
	err := g.call(ctx, "get_order", intent.ReduceOnly, func(ctx context.Context) error {
		var err error
		ref, err = lookup.GetOrderByClientID(ctx, intent.Symbol, intent.ClientOrderID)
		return err
	})
	if err != nil {
		g.logger.Error().Err(err).Str("client_order_id", intent.ClientOrderID).Msg("order lookup after duplicate client order id failed")
		return nil, unknown(err)
	}

	g.logger.Warn().
		Str("client_order_id", intent.ClientOrderID).
		Str("order_id", ref.OrderID).
		Msg("order was accepted by an earlier attempt")
	return ref, nil
}

// GetAccountSummary implements Venue
func (g *GuardedVenue) GetAccountSummary(ctx context.Context) (*AccountSummary, error) {
	var summary *AccountSummary
	err := g.call(ctx, "get_account_summary", false, func(ctx context.Context) error {
		var err error
		summary, err = g.Venue.GetAccountSummary(ctx)
		return err
	})
	return summary, err
}

// GetAllPositions implements Venue
func (g *GuardedVenue) GetAllPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	err := g.call(ctx, "get_all_positions", false, func(ctx context.Context) error {
		var err error
		positions, err = g.Venue.GetAllPositions(ctx)
		return err
	})
	return positions, err
}

// Connect verifies the venue with the per-call timeout applied
func (g *GuardedVenue) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.config.CallTimeout)
	defer cancel()
	return g.Venue.Connect(ctx)
}

// NewClientOrderID returns a venue-safe client order id (32 hex chars, under
// the 36 character limit both Bybit and Binance enforce)
func NewClientOrderID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
