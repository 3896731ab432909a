package bybit

import (
	"context"
	"fmt"
)

// GetLatestPrice gets the latest traded price for a symbol
func (c *Client) GetLatestPrice(ctx context.Context, symbol string) (float64, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest price: %w", err)
	}

	return parseLatestPriceResponse(result, symbol)
}

// parseLatestPriceResponse extracts lastPrice for symbol. An empty list means
// the symbol does not exist in the category.
func parseLatestPriceResponse(response interface{}, symbol string) (float64, error) {
	var tickers tickerResult
	if err := decodeResult(response, &tickers); err != nil {
		return 0, err
	}

	for _, t := range tickers.List {
		if t.Symbol == symbol {
			price := parseFloat64(t.LastPrice)
			if price <= 0 {
				return 0, fmt.Errorf("invalid last price %q for %s", t.LastPrice, symbol)
			}
			return price, nil
		}
	}
	return 0, NewBybitError(ErrCodeSymbolNotFound, "Symbol not found", symbol)
}
