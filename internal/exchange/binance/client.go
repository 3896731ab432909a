// Package binance is a thin client for Binance USDⓈ-M futures built on
// go-binance. It speaks SDK types; the adapters package maps them onto the
// venue contract.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

// Config holds the configuration for the Binance futures client
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// Client wraps the go-binance futures client
type Client struct {
	futures *futures.Client
	testnet bool
}

var testnetOnce sync.Once

// NewClient creates a futures client. The SDK selects testnet through a
// package-level switch, so once testnet is chosen it applies process-wide.
func NewClient(config Config) *Client {
	if config.Testnet {
		testnetOnce.Do(func() { futures.UseTestnet = true })
	}

	return &Client{
		futures: gobinance.NewFuturesClient(config.APIKey, config.APISecret),
		testnet: config.Testnet,
	}
}

// IsTestnet returns whether the client targets the futures testnet
func (c *Client) IsTestnet() bool {
	return c.testnet
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.testnet {
		return "testnet"
	}
	return "mainnet"
}

// Ping checks connectivity with the futures API
func (c *Client) Ping(ctx context.Context) error {
	return c.futures.NewPingService().Do(ctx)
}

// GetLatestPrice returns the last traded price for symbol
func (c *Client) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.futures.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			return strconv.ParseFloat(p.Price, 64)
		}
	}
	return 0, ErrSymbolNotFound(symbol)
}

// GetSymbolRules returns the trading rules of symbol from exchange info
func (c *Client) GetSymbolRules(ctx context.Context, symbol string) (*SymbolRules, error) {
	info, err := c.futures.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return rulesFromSymbol(s), nil
		}
	}
	return nil, ErrSymbolNotFound(symbol)
}

// GetPositions returns position risk for symbol, or all symbols when empty
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]*futures.PositionRisk, error) {
	svc := c.futures.NewGetPositionRiskService()
	if symbol != "" {
		svc = svc.Symbol(symbol)
	}
	return svc.Do(ctx)
}

// OrderParams describes one futures order. Prices are already formatted.
type OrderParams struct {
	Symbol        string
	Side          futures.SideType
	Type          futures.OrderType
	Quantity      string
	Price         string // LIMIT
	StopPrice     string // STOP_MARKET
	ReduceOnly    bool
	ClientOrderID string
}

// PlaceOrder submits one order
func (c *Client) PlaceOrder(ctx context.Context, params OrderParams) (*futures.CreateOrderResponse, error) {
	if params.Type == futures.OrderTypeLimit && params.Price == "" {
		return nil, fmt.Errorf("price is required for limit orders")
	}
	if params.Type == futures.OrderTypeStopMarket && params.StopPrice == "" {
		return nil, fmt.Errorf("stop price is required for stop orders")
	}

	svc := c.futures.NewCreateOrderService().
		Symbol(params.Symbol).
		Side(params.Side).
		Type(params.Type).
		Quantity(params.Quantity)

	switch params.Type {
	case futures.OrderTypeLimit:
		svc = svc.Price(params.Price).TimeInForce(futures.TimeInForceTypeGTC)
	case futures.OrderTypeStopMarket:
		svc = svc.StopPrice(params.StopPrice).WorkingType(futures.WorkingTypeMarkPrice)
	}
	if params.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	if params.ClientOrderID != "" {
		svc = svc.NewClientOrderID(params.ClientOrderID)
	}

	return svc.Do(ctx)
}

// GetOrder looks an order up by the client order id it was placed with
func (c *Client) GetOrder(ctx context.Context, symbol, clientOrderID string) (*futures.Order, error) {
	return c.futures.NewGetOrderService().
		Symbol(symbol).
		OrigClientOrderID(clientOrderID).
		Do(ctx)
}

// GetAccount returns the futures account balances
func (c *Client) GetAccount(ctx context.Context) (*futures.Account, error) {
	return c.futures.NewGetAccountService().Do(ctx)
}
