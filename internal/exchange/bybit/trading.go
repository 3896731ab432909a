package bybit

import (
	"context"
	"fmt"
)

// OrderSide represents the side of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "Buy"
	OrderSideSell OrderSide = "Sell"
)

// OrderType represents the type of an order
type OrderType string

const (
	OrderTypeMarket OrderType = "Market"
	OrderTypeLimit  OrderType = "Limit"
)

// TimeInForce represents how long an order remains active
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good Till Cancelled
	TimeInForceIOC TimeInForce = "IOC" // Immediate Or Cancel
)

// Trigger directions for conditional orders
const (
	TriggerRise = 1 // fires when the price rises to triggerPrice
	TriggerFall = 2 // fires when the price falls to triggerPrice
)

// Order is the venue's acknowledgement of a placed order
type Order struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
	AvgPrice    string `json:"avgPrice,omitempty"`
	OrderStatus string `json:"orderStatus,omitempty"`
}

// OrderParams holds parameters for placing a linear futures order.
// A market order with TriggerPrice set is a conditional (stop) order.
type OrderParams struct {
	Symbol           string
	Side             OrderSide
	OrderType        OrderType
	Qty              string
	Price            string      // limit orders
	TimeInForce      TimeInForce // defaults to GTC for limit orders
	OrderLinkID      string      // client order id, at most 36 chars
	ReduceOnly       bool
	TriggerPrice     string
	TriggerDirection int    // TriggerRise or TriggerFall
	TriggerBy        string // LastPrice, MarkPrice or IndexPrice
}

// PositionInfo represents a futures position
type PositionInfo struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"` // Buy, Sell, or empty when flat
	Size          string `json:"size"`
	AvgPrice      string `json:"avgPrice"`
	MarkPrice     string `json:"markPrice"`
	UnrealisedPnl string `json:"unrealisedPnl"`
	Leverage      string `json:"leverage"`
	PositionIdx   int    `json:"positionIdx"`
}

// SignedSize returns the position size, negative for shorts
func (p PositionInfo) SignedSize() float64 {
	size := parseFloat64(p.Size)
	if p.Side == string(OrderSideSell) {
		return -size
	}
	return size
}

// PlaceOrder places one order in the client's category
func (c *Client) PlaceOrder(ctx context.Context, params OrderParams) (*Order, error) {
	apiParams, err := buildOrderParams(c.category, params)
	if err != nil {
		return nil, err
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(apiParams).PlaceOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	return parseOrderResponse(result)
}

// buildOrderParams converts params into the request map for /v5/order/create
func buildOrderParams(category string, params OrderParams) (map[string]interface{}, error) {
	if params.Symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if params.Side == "" {
		return nil, fmt.Errorf("side is required")
	}
	if params.OrderType == "" {
		return nil, fmt.Errorf("orderType is required")
	}
	if params.Qty == "" {
		return nil, fmt.Errorf("qty is required")
	}
	if params.OrderType == OrderTypeLimit && params.Price == "" {
		return nil, fmt.Errorf("price is required for limit orders")
	}
	if params.TriggerPrice != "" && params.TriggerDirection != TriggerRise && params.TriggerDirection != TriggerFall {
		return nil, fmt.Errorf("triggerDirection is required for conditional orders")
	}

	if params.OrderType == OrderTypeLimit && params.TimeInForce == "" {
		params.TimeInForce = TimeInForceGTC
	}

	apiParams := map[string]interface{}{
		"category":    category,
		"symbol":      params.Symbol,
		"side":        string(params.Side),
		"orderType":   string(params.OrderType),
		"qty":         params.Qty,
		"positionIdx": 0, // one-way mode
	}

	if params.Price != "" {
		apiParams["price"] = params.Price
	}
	if params.TimeInForce != "" {
		apiParams["timeInForce"] = string(params.TimeInForce)
	}
	if params.OrderLinkID != "" {
		apiParams["orderLinkId"] = params.OrderLinkID
	}
	if params.ReduceOnly {
		apiParams["reduceOnly"] = true
	}
	if params.TriggerPrice != "" {
		apiParams["triggerPrice"] = params.TriggerPrice
		apiParams["triggerDirection"] = params.TriggerDirection
		triggerBy := params.TriggerBy
		if triggerBy == "" {
			triggerBy = "MarkPrice"
		}
		apiParams["triggerBy"] = triggerBy
	}
	return apiParams, nil
}

// parseOrderResponse parses the order creation response
func parseOrderResponse(response interface{}) (*Order, error) {
	var order orderResult
	if err := decodeResult(response, &order); err != nil {
		return nil, err
	}
	if order.OrderID == "" {
		return nil, fmt.Errorf("order response carries no orderId")
	}
	return &Order{OrderID: order.OrderID, OrderLinkID: order.OrderLinkID}, nil
}

// GetOrderByLinkID finds an order by its orderLinkId. Open orders are
// searched first, then the order history, since a filled market order
// only appears in the latter.
func (c *Client) GetOrderByLinkID(ctx context.Context, symbol, orderLinkID string) (*Order, error) {
	params := map[string]interface{}{
		"category":    c.category,
		"symbol":      symbol,
		"orderLinkId": orderLinkID,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetOpenOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get open orders: %w", err)
	}
	order, err := parseOrderListResponse(result, orderLinkID)
	if err != nil || order != nil {
		return order, err
	}

	result, err = c.httpClient.NewUtaBybitServiceWithParams(params).GetOrderHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	order, err = parseOrderListResponse(result, orderLinkID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, NewBybitError(ErrCodeOrderNotFound, "Order not found", orderLinkID)
	}
	return order, nil
}

// parseOrderListResponse returns the order carrying orderLinkID, or nil
func parseOrderListResponse(response interface{}, orderLinkID string) (*Order, error) {
	var orders orderListResult
	if err := decodeResult(response, &orders); err != nil {
		return nil, err
	}
	for _, o := range orders.List {
		if o.OrderLinkID == orderLinkID {
			return &Order{
				OrderID:     o.OrderID,
				OrderLinkID: o.OrderLinkID,
				AvgPrice:    o.AvgPrice,
				OrderStatus: o.OrderStatus,
			}, nil
		}
	}
	return nil, nil
}

// GetPositions retrieves positions for symbol, or for every USDT-settled
// symbol when symbol is empty
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]PositionInfo, error) {
	params := map[string]interface{}{
		"category": c.category,
	}
	if symbol != "" {
		params["symbol"] = symbol
	} else {
		params["settleCoin"] = "USDT"
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetPositionList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}

	return parsePositionsResponse(result)
}

// parsePositionsResponse parses the position list API response
func parsePositionsResponse(response interface{}) ([]PositionInfo, error) {
	var positions positionResult
	if err := decodeResult(response, &positions); err != nil {
		return nil, err
	}
	return positions.List, nil
}
