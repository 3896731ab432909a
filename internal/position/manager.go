// Package position inspects and flattens exposure in one symbol.
package position

import (
	"context"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/logger"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/monitoring"
)

// Manager closes existing positions before a new entry is opened
type Manager struct {
	gateway exchange.Gateway
	journal *logger.Journal
	logger  zerolog.Logger
}

// NewManager creates a position manager. journal may be nil.
func NewManager(gateway exchange.Gateway, journal *logger.Journal, log zerolog.Logger) *Manager {
	return &Manager{
		gateway: gateway,
		journal: journal,
		logger:  log.With().Str("component", "position").Logger(),
	}
}

// OpenPositions returns the non-flat positions held in symbol
func (m *Manager) OpenPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	positions, err := m.gateway.GetOpenPositions(ctx, symbol)
	if err != nil {
		return nil, boterrors.NewVenueError("position", "get_positions", err).WithContext("symbol", symbol)
	}

	open := positions[:0:0]
	for _, pos := range positions {
		if pos.IsFlat() || !strings.EqualFold(pos.Symbol, symbol) {
			continue
		}
		open = append(open, pos)
	}
	return open, nil
}

// FlattenSymbol submits a reduce-only market order against every open
// position in symbol and returns how many were closed. With nothing open no
// order is submitted. The first rejected close stops the flatten; the
// returned error is KindVenue and records how many closed before it.
func (m *Manager) FlattenSymbol(ctx context.Context, symbol string) (int, error) {
	positions, err := m.OpenPositions(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if len(positions) == 0 {
		m.logger.Debug().Str("symbol", symbol).Msg("no open position to flatten")
		return 0, nil
	}

	closed := 0
	for _, pos := range positions {
		intent := exchange.OrderIntent{
			Symbol:     symbol,
			Side:       pos.CloseSide(),
			Quantity:   decimal.NewFromFloat(math.Abs(pos.SignedQuantity)),
			Type:       exchange.OrderTypeMarket,
			ReduceOnly: true,
		}

		ref, err := m.gateway.SubmitOrder(ctx, intent)
		if err != nil {
			m.logger.Error().Err(err).
				Str("symbol", symbol).
				Float64("size", pos.SignedQuantity).
				Int("closed", closed).
				Msg("failed to close position")
			monitoring.RecordPositionsClosed(symbol, closed)
			return closed, boterrors.Wrap(err, boterrors.KindVenue, boterrors.CodeFlattenFailed, "position", "flatten").
				WithMessage("failed to close %s position of %v", symbol, pos.SignedQuantity).
				WithContext("symbol", symbol).
				WithContext("closed", closed)
		}

		closed++
		m.journal.Flatten(symbol, string(intent.Side), intent.Quantity.String(), ref.OrderID)
		m.logger.Info().
			Str("symbol", symbol).
			Str("side", string(intent.Side)).
			Str("quantity", intent.Quantity.String()).
			Float64("entry_price", pos.EntryPrice).
			Float64("unrealized_pnl", pos.UnrealizedPnL).
			Str("order_id", ref.OrderID).
			Msg("position closed")
	}

	monitoring.RecordPositionsClosed(symbol, closed)
	return closed, nil
}
