package adapters

import (
	"context"
	"errors"
	"strconv"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange/bybit"
)

// BybitAdapter implements exchange.Venue for Bybit linear perpetuals
type BybitAdapter struct {
	client *bybit.Client
	config *exchange.BybitConfig
}

// NewBybitAdapter creates a new Bybit adapter instance
func NewBybitAdapter(config *exchange.BybitConfig) (*BybitAdapter, error) {
	if config == nil {
		return nil, &exchange.ExchangeError{
			Code:    "MISSING_CONFIG",
			Message: "Bybit configuration is required",
			Kind:    exchange.ErrorKindRejected,
		}
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    config.APIKey,
		APISecret: config.APISecret,
		Testnet:   config.Testnet,
		Demo:      config.Demo,
		Category:  config.Category,
	})

	return &BybitAdapter{client: client, config: config}, nil
}

// Name returns the venue name
func (b *BybitAdapter) Name() string {
	return exchange.VenueBybit
}

// Environment returns the current environment string
func (b *BybitAdapter) Environment() string {
	return b.client.GetEnvironment()
}

// IsTestnet reports whether orders reach a non-production book
func (b *BybitAdapter) IsTestnet() bool {
	return b.client.IsTestnet() || b.client.IsDemo()
}

// Connect verifies credentials by reading the unified wallet
func (b *BybitAdapter) Connect(ctx context.Context) error {
	if _, err := b.client.GetAccountBalance(ctx, bybit.AccountTypeUnified); err != nil {
		return b.convertError(err)
	}
	return nil
}

// Disconnect is a no-op; the REST client holds no session
func (b *BybitAdapter) Disconnect() error {
	return nil
}

// GetCurrentPrice retrieves the latest price for a symbol
func (b *BybitAdapter) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := b.client.GetLatestPrice(ctx, symbol)
	if err != nil {
		return 0, b.convertError(err)
	}
	return price, nil
}

// GetSymbolMetadata reads the lot size filter of symbol
func (b *BybitAdapter) GetSymbolMetadata(ctx context.Context, symbol string) (*exchange.SymbolMetadata, error) {
	info, err := b.client.GetInstrumentInfo(ctx, symbol)
	if err != nil {
		return nil, b.convertError(err)
	}
	if !info.IsTrading() {
		return nil, &exchange.ExchangeError{
			Code:    exchange.ErrOrderRejected.Code,
			Message: "Symbol is not trading",
			Details: symbol + " status " + info.Status,
			Kind:    exchange.ErrorKindRejected,
		}
	}

	return &exchange.SymbolMetadata{
		Symbol:            info.Symbol,
		QuantityPrecision: info.QuantityPrecision(),
		MinQuantity:       info.MinQuantity(),
		MinNotional:       info.MinNotional(),
		ContractSize:      1,
		TickSize:          info.TickSize(),
	}, nil
}

// GetOpenPositions retrieves the non-flat positions in symbol
func (b *BybitAdapter) GetOpenPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	positions, err := b.client.GetPositions(ctx, symbol)
	if err != nil {
		return nil, b.convertError(err)
	}
	return convertBybitPositions(positions), nil
}

// GetAllPositions retrieves every non-flat USDT position
func (b *BybitAdapter) GetAllPositions(ctx context.Context) ([]exchange.Position, error) {
	positions, err := b.client.GetPositions(ctx, "")
	if err != nil {
		return nil, b.convertError(err)
	}
	return convertBybitPositions(positions), nil
}

func convertBybitPositions(positions []bybit.PositionInfo) []exchange.Position {
	result := make([]exchange.Position, 0, len(positions))
	for _, p := range positions {
		size := p.SignedSize()
		if size == 0 {
			continue
		}
		result = append(result, exchange.Position{
			Symbol:         p.Symbol,
			SignedQuantity: size,
			EntryPrice:     parseFloat(p.AvgPrice),
			MarkPrice:      parseFloat(p.MarkPrice),
			UnrealizedPnL:  parseFloat(p.UnrealisedPnl),
			Leverage:       parseFloat(p.Leverage),
		})
	}
	return result
}

// SubmitOrder places one order. STOP_MARKET becomes a conditional market
// order that triggers in the direction that closes the position.
func (b *BybitAdapter) SubmitOrder(ctx context.Context, intent exchange.OrderIntent) (*exchange.OrderRef, error) {
	params := bybitOrderParams(intent)

	order, err := b.client.PlaceOrder(ctx, params)
	if err != nil {
		return nil, b.convertError(err)
	}

	status := "NEW"
	if intent.Type == exchange.OrderTypeMarket {
		status = "FILLED"
	}
	return &exchange.OrderRef{
		OrderID:       order.OrderID,
		ClientOrderID: order.OrderLinkID,
		Status:        status,
	}, nil
}

// GetOrderByClientID implements exchange.OrderLookup
func (b *BybitAdapter) GetOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*exchange.OrderRef, error) {
	order, err := b.client.GetOrderByLinkID(ctx, symbol, clientOrderID)
	if err != nil {
		return nil, b.convertError(err)
	}

	return &exchange.OrderRef{
		OrderID:       order.OrderID,
		ClientOrderID: order.OrderLinkID,
		AvgPrice:      parseFloat(order.AvgPrice),
		Status:        order.OrderStatus,
	}, nil
}

func bybitOrderParams(intent exchange.OrderIntent) bybit.OrderParams {
	params := bybit.OrderParams{
		Symbol:      intent.Symbol,
		Side:        bybit.OrderSideBuy,
		OrderType:   bybit.OrderTypeMarket,
		Qty:         intent.Quantity.String(),
		OrderLinkID: intent.ClientOrderID,
		ReduceOnly:  intent.ReduceOnly,
	}
	if intent.Side == exchange.OrderSideSell {
		params.Side = bybit.OrderSideSell
	}

	switch intent.Type {
	case exchange.OrderTypeLimit:
		params.OrderType = bybit.OrderTypeLimit
		params.Price = formatPrice(intent.Price)
		params.TimeInForce = bybit.TimeInForceGTC
	case exchange.OrderTypeStopMarket:
		params.TriggerPrice = formatPrice(intent.StopPrice)
		params.TriggerDirection = bybit.TriggerRise
		if intent.Side == exchange.OrderSideSell {
			params.TriggerDirection = bybit.TriggerFall
		}
	}
	return params
}

// GetAccountSummary reads the unified wallet balance
func (b *BybitAdapter) GetAccountSummary(ctx context.Context) (*exchange.AccountSummary, error) {
	info, err := b.client.GetAccountBalance(ctx, bybit.AccountTypeUnified)
	if err != nil {
		return nil, b.convertError(err)
	}
	return &exchange.AccountSummary{
		Asset:     "USD",
		Balance:   info.TotalWalletBalance,
		Available: info.TotalAvailableBalance,
	}, nil
}

// convertError converts Bybit-specific errors to our standard error format
func (b *BybitAdapter) convertError(err error) error {
	if err == nil {
		return nil
	}

	var exchangeErr *exchange.ExchangeError
	if errors.As(err, &exchangeErr) {
		return err
	}

	bybitErr, isAPI := bybit.AsBybitError(err)
	switch {
	case !isAPI:
		return transportOrUnknown("Bybit", err)
	case bybit.IsAuthenticationError(err):
		return &exchange.ExchangeError{
			Code:    exchange.ErrAuthenticationFailed.Code,
			Message: "Bybit API authentication failed",
			Details: err.Error(),
			Kind:    exchange.ErrorKindAuth,
			Cause:   err,
		}
	case bybit.IsRateLimitError(err):
		return &exchange.ExchangeError{
			Code:        exchange.ErrRateLimitExceeded.Code,
			Message:     "Bybit API rate limit exceeded",
			Details:     err.Error(),
			Kind:        exchange.ErrorKindRateLimited,
			IsRetryable: true,
			Cause:       err,
		}
	case bybit.IsServerBusyError(err):
		return &exchange.ExchangeError{
			Code:        exchange.ErrConnectionFailed.Code,
			Message:     "Bybit is temporarily unavailable",
			Details:     err.Error(),
			Kind:        exchange.ErrorKindTransport,
			IsRetryable: true,
			Cause:       err,
		}
	case bybitErr.Code == bybit.ErrCodeSymbolNotFound:
		notFound := exchange.NotFound(bybitErr.Details)
		notFound.Cause = err
		return notFound
	case bybitErr.Code == bybit.ErrCodeDuplicateOrderLink:
		return &exchange.ExchangeError{
			Code:    exchange.ErrDuplicateClientOrderID.Code,
			Message: exchange.ErrDuplicateClientOrderID.Message,
			Details: err.Error(),
			Kind:    exchange.ErrorKindRejected,
			Cause:   err,
		}
	case bybitErr.Code == bybit.ErrCodeInsufficientBalance:
		return &exchange.ExchangeError{
			Code:    exchange.ErrInsufficientBalance.Code,
			Message: exchange.ErrInsufficientBalance.Message,
			Details: err.Error(),
			Kind:    exchange.ErrorKindRejected,
			Cause:   err,
		}
	default:
		return &exchange.ExchangeError{
			Code:    exchange.ErrOrderRejected.Code,
			Message: "Bybit rejected the request",
			Details: err.Error(),
			Kind:    exchange.ErrorKindRejected,
			Cause:   err,
		}
	}
}

func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
