package exchange

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
)

// Gateway is the per-venue capability set the execution core is written
// against. Every call is a blocking network operation.
type Gateway interface {
	// GetCurrentPrice returns the last traded price, or ErrSymbolNotFound.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// GetSymbolMetadata returns the trading rules for symbol, or ErrSymbolNotFound.
	// Implementations must not cache the result.
	GetSymbolMetadata(ctx context.Context, symbol string) (*SymbolMetadata, error)

	// GetOpenPositions returns the positions held in symbol. Flat positions
	// may be included with a zero SignedQuantity.
	GetOpenPositions(ctx context.Context, symbol string) ([]Position, error)

	// SubmitOrder places one order and returns the venue's reference for it.
	SubmitOrder(ctx context.Context, intent OrderIntent) (*OrderRef, error)
}

// Venue is a Gateway plus the lifecycle and account capabilities the HTTP
// surface needs. One Venue is created at process start and shared read-only.
type Venue interface {
	Gateway

	Name() string
	Environment() string
	IsTestnet() bool

	// Connect verifies connectivity and credentials.
	Connect(ctx context.Context) error
	Disconnect() error

	GetAccountSummary(ctx context.Context) (*AccountSummary, error)
	GetAllPositions(ctx context.Context) ([]Position, error)
}

// OrderLookup is implemented by venues that can find an order by the client
// order id it was submitted with
type OrderLookup interface {
	GetOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*OrderRef, error)
}

// OrderSide is the direction of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the side that reduces a position opened with s
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType represents the order types the core submits
type OrderType string

const (
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeStopMarket OrderType = "STOP_MARKET"
)

// SymbolMetadata holds the trading rules a venue enforces for one symbol
type SymbolMetadata struct {
	Symbol            string  `json:"symbol"`
	QuantityPrecision int     `json:"quantity_precision"` // decimal places accepted for order size
	MinQuantity       float64 `json:"min_quantity"`
	MinNotional       float64 `json:"min_notional"`  // 0 when the venue reports none
	ContractSize      float64 `json:"contract_size"` // 0 or 1 for venues that size in base units
	TickSize          float64 `json:"tick_size"`     // price increment, 0 when unknown
}

// Position is a read-only snapshot of exposure in one symbol.
// SignedQuantity is positive for long and negative for short.
type Position struct {
	Symbol         string  `json:"symbol"`
	SignedQuantity float64 `json:"size"`
	EntryPrice     float64 `json:"entry_price"`
	MarkPrice      float64 `json:"mark_price"`
	UnrealizedPnL  float64 `json:"unrealized_pnl"`
	Leverage       float64 `json:"leverage"`
}

// IsFlat reports whether the position holds no exposure
func (p Position) IsFlat() bool {
	return p.SignedQuantity == 0
}

// CloseSide returns the side of the order that flattens the position
func (p Position) CloseSide() OrderSide {
	if p.SignedQuantity > 0 {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderIntent is the venue-neutral order request. Price is used by LIMIT
// orders and StopPrice by STOP_MARKET orders; zero means unset.
type OrderIntent struct {
	Symbol        string          `json:"symbol"`
	Side          OrderSide       `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	Type          OrderType       `json:"order_type"`
	Price         float64         `json:"price,omitempty"`
	StopPrice     float64         `json:"stop_price,omitempty"`
	ReduceOnly    bool            `json:"reduce_only"`
	ClientOrderID string          `json:"client_order_id"`
}

// Validate checks the intent is well formed before it reaches a venue
func (o OrderIntent) Validate() error {
	if o.Symbol == "" {
		return &ExchangeError{Code: "INVALID_ORDER", Message: "order symbol is required", Kind: ErrorKindRejected}
	}
	if o.Side != OrderSideBuy && o.Side != OrderSideSell {
		return &ExchangeError{Code: "INVALID_ORDER", Message: fmt.Sprintf("invalid order side %q", o.Side), Kind: ErrorKindRejected}
	}
	if !o.Quantity.IsPositive() {
		return &ExchangeError{Code: "INVALID_ORDER", Message: "order quantity must be positive", Kind: ErrorKindRejected}
	}

	switch o.Type {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if o.Price <= 0 {
			return &ExchangeError{Code: "INVALID_ORDER", Message: "limit order requires a price", Kind: ErrorKindRejected}
		}
	case OrderTypeStopMarket:
		if o.StopPrice <= 0 {
			return &ExchangeError{Code: "INVALID_ORDER", Message: "stop order requires a stop price", Kind: ErrorKindRejected}
		}
	default:
		return &ExchangeError{Code: "INVALID_ORDER", Message: fmt.Sprintf("unsupported order type %q", o.Type), Kind: ErrorKindRejected}
	}
	return nil
}

// OrderRef identifies an accepted order
type OrderRef struct {
	OrderID       string  `json:"order_id"`
	ClientOrderID string  `json:"client_order_id,omitempty"`
	AvgPrice      float64 `json:"avg_price,omitempty"` // fill price when the venue reports one
	Status        string  `json:"status,omitempty"`
}

// AccountSummary is the margin balance reported for /status
type AccountSummary struct {
	Asset     string  `json:"asset"`
	Balance   float64 `json:"balance"`
	Available float64 `json:"available"`
}

// ErrorKind classifies venue failures for the retry policy
type ErrorKind string

const (
	ErrorKindNotFound    ErrorKind = "NOT_FOUND"
	ErrorKindRejected    ErrorKind = "REJECTED"
	ErrorKindTransport   ErrorKind = "TRANSPORT"
	ErrorKindRateLimited ErrorKind = "RATE_LIMITED"
	ErrorKindAuth        ErrorKind = "AUTH"
)

// ExchangeError represents standardized errors from exchanges
type ExchangeError struct {
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	Details     string    `json:"details,omitempty"`
	Kind        ErrorKind `json:"kind"`
	IsRetryable bool      `json:"is_retryable"`
	Cause       error     `json:"-"`
}

func (e *ExchangeError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the SDK error the adapter classified
func (e *ExchangeError) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by code
func (e *ExchangeError) Is(target error) bool {
	t, ok := target.(*ExchangeError)
	return ok && t.Code != "" && t.Code == e.Code
}

// ErrorKind places every venue failure in the VENUE class
func (e *ExchangeError) ErrorKind() boterrors.Kind {
	return boterrors.KindVenue
}

// IsTransient is true only for transport failures. A rejected order is never
// transient: resubmitting it could double the fill.
func (e *ExchangeError) IsTransient() bool {
	return e.Kind == ErrorKindTransport
}

// Common error types
var (
	ErrSymbolNotFound = &ExchangeError{
		Code:    "SYMBOL_NOT_FOUND",
		Message: "Symbol not found on venue",
		Kind:    ErrorKindNotFound,
	}

	ErrInsufficientBalance = &ExchangeError{
		Code:    "INSUFFICIENT_BALANCE",
		Message: "Insufficient balance for trade",
		Kind:    ErrorKindRejected,
	}

	ErrOrderRejected = &ExchangeError{
		Code:    "ORDER_REJECTED",
		Message: "Order rejected by venue",
		Kind:    ErrorKindRejected,
	}

	ErrRateLimitExceeded = &ExchangeError{
		Code:        "RATE_LIMIT_EXCEEDED",
		Message:     "API rate limit exceeded",
		Kind:        ErrorKindRateLimited,
		IsRetryable: true,
	}

	ErrConnectionFailed = &ExchangeError{
		Code:        "CONNECTION_FAILED",
		Message:     "Failed to connect to exchange",
		Kind:        ErrorKindTransport,
		IsRetryable: true,
	}

	ErrAuthenticationFailed = &ExchangeError{
		Code:    "AUTHENTICATION_FAILED",
		Message: "API authentication failed",
		Kind:    ErrorKindAuth,
	}

	// ErrDuplicateClientOrderID means the venue already holds an order with
	// the submitted client order id
	ErrDuplicateClientOrderID = &ExchangeError{
		Code:    "DUPLICATE_CLIENT_ORDER_ID",
		Message: "Client order id already used on venue",
		Kind:    ErrorKindRejected,
	}

	// ErrOrderStateUnknown means an order may have been accepted but could
	// not be confirmed
	ErrOrderStateUnknown = &ExchangeError{
		Code:    "ORDER_STATE_UNKNOWN",
		Message: "Order state unknown",
		Kind:    ErrorKindRejected,
	}

	ErrCircuitOpen = &ExchangeError{
		Code:        "CIRCUIT_OPEN",
		Message:     "Venue circuit breaker is open",
		Kind:        ErrorKindRejected,
		IsRetryable: true,
	}
)

// NotFound returns a NOT_FOUND error for symbol that matches ErrSymbolNotFound
func NotFound(symbol string) *ExchangeError {
	return &ExchangeError{
		Code:    ErrSymbolNotFound.Code,
		Message: ErrSymbolNotFound.Message,
		Details: symbol,
		Kind:    ErrorKindNotFound,
	}
}
