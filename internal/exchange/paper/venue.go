// Package paper provides an in-memory futures venue. Market orders fill at
// the configured price; protective orders rest until cancelled. It backs
// dry runs and the end-to-end tests.
package paper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
)

// DefaultBalance is the starting USDT balance when none is configured
const DefaultBalance = 10000.0

// DefaultSymbols are listed when the configuration names none
var DefaultSymbols = map[string]exchange.SymbolMetadata{
	"BTCUSDT": {Symbol: "BTCUSDT", QuantityPrecision: 3, MinQuantity: 0.001, MinNotional: 5, ContractSize: 1, TickSize: 0.1},
	"ETHUSDT": {Symbol: "ETHUSDT", QuantityPrecision: 3, MinQuantity: 0.001, MinNotional: 5, ContractSize: 1, TickSize: 0.01},
	"SOLUSDT": {Symbol: "SOLUSDT", QuantityPrecision: 1, MinQuantity: 0.1, MinNotional: 5, ContractSize: 1, TickSize: 0.01},
	"XRPUSDT": {Symbol: "XRPUSDT", QuantityPrecision: 1, MinQuantity: 0.1, MinNotional: 5, ContractSize: 1, TickSize: 0.0001},
}

// DefaultPrices seed the default symbols
var DefaultPrices = map[string]float64{
	"BTCUSDT": 30000,
	"ETHUSDT": 2000,
	"SOLUSDT": 100,
	"XRPUSDT": 0.5,
}

// Order is an order the venue accepted
type Order struct {
	exchange.OrderIntent
	OrderID string
	Status  string // FILLED or NEW
	Price   float64
}

type positionState struct {
	qty   decimal.Decimal // signed
	entry float64
}

// Venue is the in-memory venue. It is safe for concurrent use.
type Venue struct {
	mu        sync.Mutex
	balance   float64
	symbols   map[string]exchange.SymbolMetadata
	prices    map[string]float64
	positions map[string]*positionState
	orders    []Order
	byClient  map[string]*exchange.OrderRef
	failures  map[string][]error
	lost      map[string]int
	nextID    int64
	connected bool
}

// New creates a paper venue from its configuration
func New(config exchange.PaperConfig) *Venue {
	v := &Venue{
		balance:   config.InitialBalance,
		symbols:   make(map[string]exchange.SymbolMetadata),
		prices:    make(map[string]float64),
		positions: make(map[string]*positionState),
		byClient:  make(map[string]*exchange.OrderRef),
		failures:  make(map[string][]error),
		lost:      make(map[string]int),
	}
	if v.balance <= 0 {
		v.balance = DefaultBalance
	}

	symbols, prices := config.Symbols, config.Prices
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	if len(prices) == 0 {
		prices = DefaultPrices
	}
	for s, meta := range symbols {
		v.symbols[strings.ToUpper(s)] = meta
	}
	for s, p := range prices {
		v.prices[strings.ToUpper(s)] = p
	}
	return v
}

// Operations accepted by FailNext
const (
	OpPrice     = "price"
	OpMetadata  = "metadata"
	OpPositions = "positions"
	OpLookup    = "lookup"
)

// FailNext makes the next call of op fail with err. op is one of the Op
// constants or an order type, e.g. string(exchange.OrderTypeStopMarket).
func (v *Venue) FailNext(op string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failures[op] = append(v.failures[op], err)
}

// LoseNextReply makes the next order of type op succeed on the book while
// the caller sees context.DeadlineExceeded, as when a reply is lost in transit
func (v *Venue) LoseNextReply(op string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lost[op]++
}

func (v *Venue) takeFailure(op string) error {
	queue := v.failures[op]
	if len(queue) == 0 {
		return nil
	}
	v.failures[op] = queue[1:]
	return queue[0]
}

// SetPrice sets the price market orders fill at
func (v *Venue) SetPrice(symbol string, price float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prices[strings.ToUpper(symbol)] = price
}

// SetSymbol lists or replaces a symbol
func (v *Venue) SetSymbol(meta exchange.SymbolMetadata) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.symbols[strings.ToUpper(meta.Symbol)] = meta
}

// SetPosition seeds a position; a zero quantity removes it
func (v *Venue) SetPosition(symbol string, signedQty, entry float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	symbol = strings.ToUpper(symbol)
	if signedQty == 0 {
		delete(v.positions, symbol)
		return
	}
	v.positions[symbol] = &positionState{qty: decimal.NewFromFloat(signedQty), entry: entry}
}

// Orders returns every accepted order in submission order
func (v *Venue) Orders() []Order {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Order(nil), v.orders...)
}

// OpenOrders returns resting orders for symbol
func (v *Venue) OpenOrders(symbol string) []Order {
	v.mu.Lock()
	defer v.mu.Unlock()

	var open []Order
	for _, o := range v.orders {
		if o.Symbol == symbol && o.Status == "NEW" {
			open = append(open, o)
		}
	}
	return open
}

// Name implements exchange.Venue
func (v *Venue) Name() string { return exchange.VenuePaper }

// Environment implements exchange.Venue
func (v *Venue) Environment() string { return "paper" }

// IsTestnet implements exchange.Venue
func (v *Venue) IsTestnet() bool { return true }

// Connect implements exchange.Venue
func (v *Venue) Connect(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = true
	return nil
}

// Disconnect implements exchange.Venue
func (v *Venue) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.connected = false
	return nil
}

// GetCurrentPrice implements exchange.Gateway
func (v *Venue) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailure(OpPrice); err != nil {
		return 0, err
	}
	price, ok := v.prices[strings.ToUpper(symbol)]
	if !ok {
		return 0, exchange.NotFound(symbol)
	}
	return price, nil
}

// GetSymbolMetadata implements exchange.Gateway
func (v *Venue) GetSymbolMetadata(ctx context.Context, symbol string) (*exchange.SymbolMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailure(OpMetadata); err != nil {
		return nil, err
	}
	meta, ok := v.symbols[strings.ToUpper(symbol)]
	if !ok {
		return nil, exchange.NotFound(symbol)
	}
	return &meta, nil
}

// GetOpenPositions implements exchange.Gateway
func (v *Venue) GetOpenPositions(ctx context.Context, symbol string) ([]exchange.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailure(OpPositions); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)
	if _, ok := v.symbols[symbol]; !ok {
		return nil, exchange.NotFound(symbol)
	}

	pos, ok := v.positions[symbol]
	if !ok {
		return nil, nil
	}
	return []exchange.Position{v.snapshot(symbol, pos)}, nil
}

// GetAllPositions implements exchange.Venue
func (v *Venue) GetAllPositions(ctx context.Context) ([]exchange.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	positions := make([]exchange.Position, 0, len(v.positions))
	for symbol, pos := range v.positions {
		positions = append(positions, v.snapshot(symbol, pos))
	}
	return positions, nil
}

// GetAccountSummary implements exchange.Venue
func (v *Venue) GetAccountSummary(ctx context.Context) (*exchange.AccountSummary, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return &exchange.AccountSummary{Asset: "USDT", Balance: v.balance, Available: v.balance}, nil
}

func (v *Venue) snapshot(symbol string, pos *positionState) exchange.Position {
	qty := pos.qty.InexactFloat64()
	mark := v.prices[symbol]
	return exchange.Position{
		Symbol:         symbol,
		SignedQuantity: qty,
		EntryPrice:     pos.entry,
		MarkPrice:      mark,
		UnrealizedPnL:  (mark - pos.entry) * qty,
		Leverage:       1,
	}
}

// SubmitOrder implements exchange.Gateway. A repeated client order id is
// rejected with ErrDuplicateClientOrderID, as the real venues do.
func (v *Venue) SubmitOrder(ctx context.Context, intent exchange.OrderIntent) (*exchange.OrderRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailure(string(intent.Type)); err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(intent.Symbol)
	meta, ok := v.symbols[symbol]
	if !ok {
		return nil, exchange.NotFound(intent.Symbol)
	}
	if intent.ClientOrderID != "" {
		if _, seen := v.byClient[intent.ClientOrderID]; seen {
			return nil, &exchange.ExchangeError{
				Code:    exchange.ErrDuplicateClientOrderID.Code,
				Message: exchange.ErrDuplicateClientOrderID.Message,
				Details: intent.ClientOrderID,
				Kind:    exchange.ErrorKindRejected,
			}
		}
	}
	if !intent.Quantity.Equal(intent.Quantity.Truncate(int32(meta.QuantityPrecision))) {
		return nil, &exchange.ExchangeError{
			Code:    exchange.ErrOrderRejected.Code,
			Message: exchange.ErrOrderRejected.Message,
			Details: fmt.Sprintf("quantity %s exceeds precision %d", intent.Quantity, meta.QuantityPrecision),
			Kind:    exchange.ErrorKindRejected,
		}
	}

	v.nextID++
	order := Order{OrderIntent: intent, OrderID: strconv.FormatInt(v.nextID, 10), Status: "NEW"}

	if intent.Type == exchange.OrderTypeMarket {
		price := v.prices[symbol]
		if err := v.fill(symbol, intent, price); err != nil {
			v.nextID--
			return nil, err
		}
		order.Status = "FILLED"
		order.Price = price
	}

	v.orders = append(v.orders, order)
	ref := &exchange.OrderRef{
		OrderID:       order.OrderID,
		ClientOrderID: intent.ClientOrderID,
		AvgPrice:      order.Price,
		Status:        order.Status,
	}
	if intent.ClientOrderID != "" {
		v.byClient[intent.ClientOrderID] = ref
	}
	if v.lost[string(intent.Type)] > 0 {
		v.lost[string(intent.Type)]--
		return nil, context.DeadlineExceeded
	}

	out := *ref
	return &out, nil
}

// GetOrderByClientID implements exchange.OrderLookup
func (v *Venue) GetOrderByClientID(ctx context.Context, symbol, clientOrderID string) (*exchange.OrderRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.takeFailure(OpLookup); err != nil {
		return nil, err
	}
	ref, ok := v.byClient[clientOrderID]
	if !ok {
		return nil, &exchange.ExchangeError{
			Code:    "ORDER_NOT_FOUND",
			Message: "Order not found",
			Details: clientOrderID,
			Kind:    exchange.ErrorKindNotFound,
		}
	}
	out := *ref
	return &out, nil
}

// fill applies a market fill to the position book
func (v *Venue) fill(symbol string, intent exchange.OrderIntent, price float64) error {
	if price <= 0 {
		return &exchange.ExchangeError{Code: exchange.ErrOrderRejected.Code, Message: "no price for " + symbol, Kind: exchange.ErrorKindRejected}
	}

	delta := intent.Quantity
	if intent.Side == exchange.OrderSideSell {
		delta = delta.Neg()
	}

	pos, ok := v.positions[symbol]
	if intent.ReduceOnly {
		if !ok || pos.qty.Sign() == delta.Sign() {
			return &exchange.ExchangeError{
				Code:    exchange.ErrOrderRejected.Code,
				Message: "reduce-only order would increase position",
				Details: symbol,
				Kind:    exchange.ErrorKindRejected,
			}
		}
		if delta.Abs().GreaterThan(pos.qty.Abs()) {
			delta = pos.qty.Neg()
		}
	}

	if !ok {
		v.positions[symbol] = &positionState{qty: delta, entry: price}
		return nil
	}

	next := pos.qty.Add(delta)
	switch {
	case next.IsZero():
		v.balance += (price - pos.entry) * pos.qty.InexactFloat64()
		delete(v.positions, symbol)
	case next.Sign() == pos.qty.Sign() && next.Abs().GreaterThan(pos.qty.Abs()):
		// adding to the position moves the average entry
		total := pos.qty.Abs().Mul(decimal.NewFromFloat(pos.entry)).Add(delta.Abs().Mul(decimal.NewFromFloat(price)))
		pos.entry = total.Div(next.Abs()).InexactFloat64()
		pos.qty = next
	case next.Sign() == pos.qty.Sign():
		v.balance += (price - pos.entry) * delta.Neg().InexactFloat64()
		pos.qty = next
	default:
		v.balance += (price - pos.entry) * pos.qty.InexactFloat64()
		pos.qty = next
		pos.entry = price
	}
	return nil
}
