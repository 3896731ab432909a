package bybit

import (
	"testing"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(result interface{}) *bybit_api.ServerResponse {
	return &bybit_api.ServerResponse{RetCode: 0, RetMsg: "OK", Result: result}
}

func TestDecodeResultMapsRetCode(t *testing.T) {
	var out tickerResult
	err := decodeResult(&bybit_api.ServerResponse{RetCode: ErrCodeInsufficientBalance, RetMsg: "ab not enough for new order"}, &out)
	require.Error(t, err)

	bybitErr, found := AsBybitError(err)
	require.True(t, found)
	assert.Equal(t, ErrCodeInsufficientBalance, bybitErr.Code)

	assert.Error(t, decodeResult("not a response", &out))
}

func TestParseLatestPrice(t *testing.T) {
	resp := ok(map[string]interface{}{
		"category": "linear",
		"list": []interface{}{
			map[string]interface{}{"symbol": "BTCUSDT", "lastPrice": "30123.5"},
		},
	})

	price, err := parseLatestPriceResponse(resp, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 30123.5, price)

	_, err = parseLatestPriceResponse(ok(map[string]interface{}{"list": []interface{}{}}), "NOPEUSDT")
	bybitErr, found := AsBybitError(err)
	require.True(t, found)
	assert.Equal(t, ErrCodeSymbolNotFound, bybitErr.Code)
}

func TestParseInstrumentInfo(t *testing.T) {
	resp := ok(map[string]interface{}{
		"category": "linear",
		"list": []interface{}{
			map[string]interface{}{
				"symbol": "ETHUSDT",
				"status": "Trading",
				"lotSizeFilter": map[string]interface{}{
					"minOrderQty":      "0.01",
					"qtyStep":          "0.01",
					"minNotionalValue": "5",
				},
				"priceFilter": map[string]interface{}{
					"tickSize": "0.01",
				},
			},
		},
	})

	info, err := parseInstrumentInfoResponse(resp, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 2, info.QuantityPrecision())
	assert.Equal(t, 0.01, info.MinQuantity())
	assert.Equal(t, 5.0, info.MinNotional())
	assert.Equal(t, 0.01, info.TickSize())
	assert.True(t, info.IsTrading())

	_, err = parseInstrumentInfoResponse(resp, "BTCUSDT")
	assert.Error(t, err)
}

func TestPrecisionFromStep(t *testing.T) {
	tests := []struct {
		step string
		want int
	}{
		{"1", 0},
		{"0.1", 1},
		{"0.001", 3},
		{"0.00100", 3},
		{"10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			assert.Equal(t, tt.want, precisionFromStep(tt.step))
		})
	}
}

func TestParseOrderList(t *testing.T) {
	resp := ok(map[string]interface{}{
		"category": "linear",
		"list": []interface{}{
			map[string]interface{}{"orderId": "1", "orderLinkId": "other", "orderStatus": "New"},
			map[string]interface{}{"orderId": "2", "orderLinkId": "entry-1", "avgPrice": "30010.5", "orderStatus": "Filled"},
		},
	})

	tests := []struct {
		name    string
		linkID  string
		wantID  string
		wantNil bool
	}{
		{name: "found", linkID: "entry-1", wantID: "2"},
		{name: "absent", linkID: "missing", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := parseOrderListResponse(resp, tt.linkID)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, order)
				return
			}
			require.NotNil(t, order)
			assert.Equal(t, tt.wantID, order.OrderID)
			assert.Equal(t, "30010.5", order.AvgPrice)
			assert.Equal(t, "Filled", order.OrderStatus)
		})
	}
}

func TestParsePositions(t *testing.T) {
	resp := ok(map[string]interface{}{
		"list": []interface{}{
			map[string]interface{}{"symbol": "BTCUSDT", "side": "Sell", "size": "0.25", "avgPrice": "30000", "positionIdx": 0},
			map[string]interface{}{"symbol": "ETHUSDT", "side": "", "size": "0"},
		},
	})

	positions, err := parsePositionsResponse(resp)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, -0.25, positions[0].SignedSize())
	assert.Equal(t, 0.0, positions[1].SignedSize())
}

func TestBuildOrderParams(t *testing.T) {
	t.Run("conditional stop", func(t *testing.T) {
		params, err := buildOrderParams("linear", OrderParams{
			Symbol: "BTCUSDT", Side: OrderSideSell, OrderType: OrderTypeMarket, Qty: "0.1",
			ReduceOnly: true, TriggerPrice: "29000", TriggerDirection: TriggerFall, OrderLinkID: "abc",
		})
		require.NoError(t, err)
		assert.Equal(t, "29000", params["triggerPrice"])
		assert.Equal(t, TriggerFall, params["triggerDirection"])
		assert.Equal(t, "MarkPrice", params["triggerBy"])
		assert.Equal(t, true, params["reduceOnly"])
		assert.Equal(t, "abc", params["orderLinkId"])
		assert.NotContains(t, params, "price")
	})

	t.Run("limit defaults to GTC", func(t *testing.T) {
		params, err := buildOrderParams("linear", OrderParams{
			Symbol: "BTCUSDT", Side: OrderSideSell, OrderType: OrderTypeLimit, Qty: "0.1", Price: "32000", ReduceOnly: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "GTC", params["timeInForce"])
		assert.Equal(t, "32000", params["price"])
	})

	t.Run("limit without price", func(t *testing.T) {
		_, err := buildOrderParams("linear", OrderParams{Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeLimit, Qty: "1"})
		assert.Error(t, err)
	})

	t.Run("trigger without direction", func(t *testing.T) {
		_, err := buildOrderParams("linear", OrderParams{Symbol: "BTCUSDT", Side: OrderSideBuy, OrderType: OrderTypeMarket, Qty: "1", TriggerPrice: "1"})
		assert.Error(t, err)
	})
}

func TestParseAccountBalance(t *testing.T) {
	resp := ok(map[string]interface{}{
		"list": []interface{}{
			map[string]interface{}{"accountType": "UNIFIED", "totalWalletBalance": "1000.5", "totalAvailableBalance": "900"},
		},
	})

	info, err := parseAccountBalanceResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, 1000.5, info.TotalWalletBalance)
	assert.Equal(t, 900.0, info.TotalAvailableBalance)
}

func TestEnvironment(t *testing.T) {
	assert.Equal(t, "demo", NewClient(Config{Demo: true}).GetEnvironment())
	assert.Equal(t, "testnet", NewClient(Config{Testnet: true}).GetEnvironment())
	assert.Equal(t, "mainnet", NewClient(Config{}).GetEnvironment())
	assert.Equal(t, "linear", NewClient(Config{}).Category())
}
