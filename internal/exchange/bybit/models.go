package bybit

import (
	"strconv"
	"strings"
)

// tickerResult is the result of /v5/market/tickers
type tickerResult struct {
	Category string `json:"category"`
	List     []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
		MarkPrice string `json:"markPrice"`
	} `json:"list"`
}

// instrumentResult is the result of /v5/market/instruments-info
type instrumentResult struct {
	Category string           `json:"category"`
	List     []InstrumentInfo `json:"list"`
}

// positionResult is the result of /v5/position/list
type positionResult struct {
	Category       string         `json:"category"`
	NextPageCursor string         `json:"nextPageCursor"`
	List           []PositionInfo `json:"list"`
}

// orderResult is the result of /v5/order/create
type orderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

// orderListResult is the result of /v5/order/realtime and /v5/order/history
type orderListResult struct {
	Category       string `json:"category"`
	NextPageCursor string `json:"nextPageCursor"`
	List           []struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
		Symbol      string `json:"symbol"`
		AvgPrice    string `json:"avgPrice"`
		OrderStatus string `json:"orderStatus"`
	} `json:"list"`
}

// walletResult is the result of /v5/account/wallet-balance
type walletResult struct {
	List []struct {
		AccountType           string `json:"accountType"`
		TotalEquity           string `json:"totalEquity"`
		TotalWalletBalance    string `json:"totalWalletBalance"`
		TotalAvailableBalance string `json:"totalAvailableBalance"`
		TotalPerpUPL          string `json:"totalPerpUPL"`
		Coin                  []struct {
			Coin                string `json:"coin"`
			Equity              string `json:"equity"`
			WalletBalance       string `json:"walletBalance"`
			AvailableToWithdraw string `json:"availableToWithdraw"`
			UnrealisedPnl       string `json:"unrealisedPnl"`
		} `json:"coin"`
	} `json:"list"`
}

// Helper functions for parsing string numbers
func parseFloat64(s string) float64 {
	if s == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// precisionFromStep returns the number of decimals in a step such as "0.001"
func precisionFromStep(step string) int {
	step = strings.TrimSpace(step)
	dot := strings.IndexByte(step, '.')
	if dot < 0 {
		return 0
	}
	return len(strings.TrimRight(step[dot+1:], "0"))
}
