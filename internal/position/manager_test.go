package position

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange/paper"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/logger"
)

// hedgedGateway reports fixed positions and fails the order at failAt
type hedgedGateway struct {
	positions []exchange.Position
	failAt    int
	submitted []exchange.OrderIntent
}

func (g *hedgedGateway) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, exchange.NotFound(symbol)
}

func (g *hedgedGateway) GetSymbolMetadata(ctx context.Context, symbol string) (*exchange.SymbolMetadata, error) {
	return nil, exchange.NotFound(symbol)
}

func (g *hedgedGateway) GetOpenPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	return g.positions, nil
}

func (g *hedgedGateway) SubmitOrder(ctx context.Context, intent exchange.OrderIntent) (*exchange.OrderRef, error) {
	g.submitted = append(g.submitted, intent)
	if len(g.submitted) == g.failAt {
		return nil, exchange.ErrOrderRejected
	}
	return &exchange.OrderRef{OrderID: "close"}, nil
}

func TestFlattenSymbol(t *testing.T) {
	tests := []struct {
		name       string
		position   float64
		wantClosed int
		wantSide   exchange.OrderSide
		wantQty    string
	}{
		{name: "flat", position: 0, wantClosed: 0},
		{name: "long", position: 0.25, wantClosed: 1, wantSide: exchange.OrderSideSell, wantQty: "0.25"},
		{name: "short", position: -0.1, wantClosed: 1, wantSide: exchange.OrderSideBuy, wantQty: "0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			venue := paper.New(exchange.PaperConfig{})
			if tt.position != 0 {
				venue.SetPosition("BTCUSDT", tt.position, 29500)
			}

			m := NewManager(venue, nil, zerolog.Nop())
			closed, err := m.FlattenSymbol(ctx, "BTCUSDT")
			require.NoError(t, err)
			assert.Equal(t, tt.wantClosed, closed)

			orders := venue.Orders()
			require.Len(t, orders, tt.wantClosed)
			if tt.wantClosed > 0 {
				assert.Equal(t, tt.wantSide, orders[0].Side)
				assert.Equal(t, tt.wantQty, orders[0].Quantity.String())
				assert.True(t, orders[0].ReduceOnly)
				assert.Equal(t, exchange.OrderTypeMarket, orders[0].Type)
			}

			positions, err := m.OpenPositions(ctx, "BTCUSDT")
			require.NoError(t, err)
			assert.Empty(t, positions)
		})
	}
}

func TestFlattenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	venue := paper.New(exchange.PaperConfig{})
	venue.SetPosition("ETHUSDT", -1.5, 2100)

	m := NewManager(venue, nil, zerolog.Nop())

	closed, err := m.FlattenSymbol(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	closed, err = m.FlattenSymbol(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Zero(t, closed)
	assert.Len(t, venue.Orders(), 1)
}

func TestFlattenRejectedClose(t *testing.T) {
	venue := paper.New(exchange.PaperConfig{})
	venue.SetPosition("BTCUSDT", 0.2, 30000)
	venue.FailNext(string(exchange.OrderTypeMarket), exchange.ErrInsufficientBalance)

	closed, err := NewManager(venue, nil, zerolog.Nop()).FlattenSymbol(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.Zero(t, closed)
	assert.Equal(t, boterrors.KindVenue, boterrors.KindOf(err))
	assert.True(t, errors.Is(err, exchange.ErrInsufficientBalance))

	var botErr *boterrors.BotError
	require.True(t, errors.As(err, &botErr))
	assert.Equal(t, boterrors.CodeFlattenFailed, botErr.Code)
	assert.Equal(t, 0, botErr.Context["closed"])
}

func TestFlattenStopsAtFirstFailure(t *testing.T) {
	gateway := &hedgedGateway{
		positions: []exchange.Position{
			{Symbol: "BTCUSDT", SignedQuantity: 0.1},
			{Symbol: "BTCUSDT", SignedQuantity: -0.3},
			{Symbol: "BTCUSDT", SignedQuantity: 0.2},
		},
		failAt: 2,
	}

	closed, err := NewManager(gateway, nil, zerolog.Nop()).FlattenSymbol(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.Equal(t, 1, closed)
	assert.Len(t, gateway.submitted, 2)
	assert.Equal(t, exchange.OrderSideBuy, gateway.submitted[1].Side)
}

func TestOpenPositionsFiltersOtherSymbols(t *testing.T) {
	gateway := &hedgedGateway{
		positions: []exchange.Position{
			{Symbol: "btcusdt", SignedQuantity: 0.1},
			{Symbol: "ETHUSDT", SignedQuantity: 2},
			{Symbol: "BTCUSDT", SignedQuantity: 0},
		},
	}

	positions, err := NewManager(gateway, nil, zerolog.Nop()).OpenPositions(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, 0.1, positions[0].SignedQuantity)
}

func TestFlattenPositionLookupFailure(t *testing.T) {
	venue := paper.New(exchange.PaperConfig{})
	venue.FailNext(paper.OpPositions, exchange.ErrConnectionFailed)

	closed, err := NewManager(venue, nil, zerolog.Nop()).FlattenSymbol(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.Zero(t, closed)
	assert.Equal(t, boterrors.KindVenue, boterrors.KindOf(err))
	assert.Empty(t, venue.Orders())
}

func TestFlattenIsJournaled(t *testing.T) {
	journal, err := logger.NewJournal(t.TempDir(), "paper")
	require.NoError(t, err)
	defer journal.Close()

	venue := paper.New(exchange.PaperConfig{})
	venue.SetPosition("SOLUSDT", 3, 100)

	closed, err := NewManager(venue, journal, zerolog.Nop()).FlattenSymbol(context.Background(), "SOLUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
}
