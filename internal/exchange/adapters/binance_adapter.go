package adapters

import (
	"context"
	"errors"
	"strconv"

	"github.com/adshao/go-binance/v2/futures"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange/binance"
)

// BinanceAdapter implements exchange.Venue for Binance USDⓈ-M futures
type BinanceAdapter struct {
	client *binance.Client
	config *exchange.BinanceConfig
}

// NewBinanceAdapter creates a new Binance adapter instance
func NewBinanceAdapter(config *exchange.BinanceConfig) (*BinanceAdapter, error) {
	if config == nil {
		return nil, &exchange.ExchangeError{
			Code:    "MISSING_CONFIG",
			Message: "Binance configuration is required",
			Kind:    exchange.ErrorKindRejected,
		}
	}

	client := binance.NewClient(binance.Config{
		APIKey:    config.APIKey,
		APISecret: config.APISecret,
		Testnet:   config.Testnet,
	})

	return &BinanceAdapter{client: client, config: config}, nil
}

// Name returns the venue name
func (b *BinanceAdapter) Name() string {
	return exchange.VenueBinance
}

// Environment returns the current environment string
func (b *BinanceAdapter) Environment() string {
	return b.client.GetEnvironment()
}

// IsTestnet reports whether the adapter targets the futures testnet
func (b *BinanceAdapter) IsTestnet() bool {
	return b.client.IsTestnet()
}

// Connect pings the API and verifies the key can read the account
func (b *BinanceAdapter) Connect(ctx context.Context) error {
	if err := b.client.Ping(ctx); err != nil {
		return b.convertError(err)
	}
	if _, err := b.client.GetAccount(ctx); err != nil {
		return b.convertError(err)
	}
	return nil
}

// Disconnect is a no-op; the REST client holds no session
func (b *BinanceAdapter) Disconnect() error {
	return nil
}

// GetCurrentPrice retrieves the latest price for a symbol
func (b *BinanceAdapter) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	price, err := b.client.GetLatestPrice(ctx, symbol)
	if err != nil {
		return 0, b.convertError(err)
	}
	return price, nil
}

// GetSymbolMetadata reads quantity precision and filters from exchange info
func (b *BinanceAdapter) GetSymbolMetadata(ctx context.Context, symbol string) (*exchange.SymbolMetadata, error) {
	rules, err := b.client.GetSymbolRules(ctx, symbol)
	if err != nil {
		return nil, b.convertError(err)
	}

	return &exchange.SymbolMetadata{
		Symbol:            rules.Symbol,
		QuantityPrecision: rules.QuantityPrecision,
		MinQuantity:       rules.MinQuantity,
		MinNotional:       rules.MinNotional,
		ContractSize:      1,
		TickSize:          rules.TickSize,
	}, nil
}

// GetOpenPositions retrieves the non-flat positions in symbol
func (b *BinanceAdapter) GetOpenPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	risks, err := b.client.GetPositions(ctx, symbol)
	if err != nil {
		return nil, b.convertError(err)
	}
	return convertBinancePositions(risks), nil
}

// GetAllPositions retrieves every non-flat position
func (b *BinanceAdapter) GetAllPositions(ctx context.Context) ([]exchange.Position, error) {
	risks, err := b.client.GetPositions(ctx, "")
	if err != nil {
		return nil, b.convertError(err)
	}
	return convertBinancePositions(risks), nil
}

func convertBinancePositions(risks []*futures.PositionRisk) []exchange.Position {
	positions := make([]exchange.Position, 0, len(risks))
	for _, r := range risks {
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		positions = append(positions, exchange.Position{
			Symbol:         r.Symbol,
			SignedQuantity: amt,
			EntryPrice:     parseFloat(r.EntryPrice),
			MarkPrice:      parseFloat(r.MarkPrice),
			UnrealizedPnL:  parseFloat(r.UnRealizedProfit),
			Leverage:       parseFloat(r.Leverage),
		})
	}
	return positions
}

// SubmitOrder places one order
func (b *BinanceAdapter) SubmitOrder(ctx context.Context, intent exchange.OrderIntent) (*exchange.OrderRef, error) {
	resp, err := b.client.PlaceOrder(ctx, binanceOrderParams(intent))
	if err != nil {
		return nil, b.convertError(err)
	}

	return &exchange.OrderRef{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: resp.ClientOrderID,
		AvgPrice:      parseFloat(resp.AvgPrice),
		Status:        string(resp.Status),
	}, nil
}

// GetOrderByClientID implements exchange.OrderLookup
func (b *BinanceAdapter) GetOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*exchange.OrderRef, error) {
	order, err := b.client.GetOrder(ctx, symbol, clientOrderID)
	if err != nil {
		return nil, b.convertError(err)
	}

	return &exchange.OrderRef{
		OrderID:       strconv.FormatInt(order.OrderID, 10),
		ClientOrderID: order.ClientOrderID,
		AvgPrice:      parseFloat(order.AvgPrice),
		Status:        string(order.Status),
	}, nil
}

func binanceOrderParams(intent exchange.OrderIntent) binance.OrderParams {
	params := binance.OrderParams{
		Symbol:        intent.Symbol,
		Side:          futures.SideTypeBuy,
		Type:          futures.OrderTypeMarket,
		Quantity:      intent.Quantity.String(),
		ReduceOnly:    intent.ReduceOnly,
		ClientOrderID: intent.ClientOrderID,
	}
	if intent.Side == exchange.OrderSideSell {
		params.Side = futures.SideTypeSell
	}

	switch intent.Type {
	case exchange.OrderTypeLimit:
		params.Type = futures.OrderTypeLimit
		params.Price = formatPrice(intent.Price)
	case exchange.OrderTypeStopMarket:
		params.Type = futures.OrderTypeStopMarket
		params.StopPrice = formatPrice(intent.StopPrice)
	}
	return params
}

// GetAccountSummary reads the futures wallet balance
func (b *BinanceAdapter) GetAccountSummary(ctx context.Context) (*exchange.AccountSummary, error) {
	account, err := b.client.GetAccount(ctx)
	if err != nil {
		return nil, b.convertError(err)
	}
	return &exchange.AccountSummary{
		Asset:     "USDT",
		Balance:   parseFloat(account.TotalWalletBalance),
		Available: parseFloat(account.AvailableBalance),
	}, nil
}

// convertError converts go-binance errors to our standard error format
func (b *BinanceAdapter) convertError(err error) error {
	if err == nil {
		return nil
	}

	var exchangeErr *exchange.ExchangeError
	if errors.As(err, &exchangeErr) {
		return err
	}

	apiErr, isAPI := binance.AsAPIError(err)
	switch {
	case !isAPI:
		return transportOrUnknown("Binance", err)
	case binance.IsAuthError(err):
		return &exchange.ExchangeError{
			Code:    exchange.ErrAuthenticationFailed.Code,
			Message: "Binance API authentication failed",
			Details: err.Error(),
			Kind:    exchange.ErrorKindAuth,
			Cause:   err,
		}
	case apiErr.Code == binance.CodeTooManyRequests:
		return &exchange.ExchangeError{
			Code:        exchange.ErrRateLimitExceeded.Code,
			Message:     "Binance API rate limit exceeded",
			Details:     err.Error(),
			Kind:        exchange.ErrorKindRateLimited,
			IsRetryable: true,
			Cause:       err,
		}
	case binance.IsUnavailable(err):
		return &exchange.ExchangeError{
			Code:        exchange.ErrConnectionFailed.Code,
			Message:     "Binance is temporarily unavailable",
			Details:     err.Error(),
			Kind:        exchange.ErrorKindTransport,
			IsRetryable: true,
			Cause:       err,
		}
	case apiErr.Code == binance.CodeInvalidSymbol:
		notFound := exchange.NotFound(apiErr.Message)
		notFound.Cause = err
		return notFound
	case apiErr.Code == binance.CodeDuplicateClientID:
		return &exchange.ExchangeError{
			Code:    exchange.ErrDuplicateClientOrderID.Code,
			Message: exchange.ErrDuplicateClientOrderID.Message,
			Details: err.Error(),
			Kind:    exchange.ErrorKindRejected,
			Cause:   err,
		}
	case apiErr.Code == binance.CodeMarginInsufficient:
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
			Message: "Binance rejected the request",
			Details: err.Error(),
			Kind:    exchange.ErrorKindRejected,
			Cause:   err,
		}
	}
}
