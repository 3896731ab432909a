package bybit

import (
	"context"
	"fmt"
)

// InstrumentInfo represents the trading rules of one instrument
type InstrumentInfo struct {
	Symbol       string `json:"symbol"`
	Status       string `json:"status"`
	BaseCoin     string `json:"baseCoin"`
	QuoteCoin    string `json:"quoteCoin"`
	ContractType string `json:"contractType"`
	PriceScale   string `json:"priceScale"`
	PriceFilter  struct {
		MinPrice string `json:"minPrice"`
		MaxPrice string `json:"maxPrice"`
		TickSize string `json:"tickSize"`
	} `json:"priceFilter"`
	LotSizeFilter struct {
		MinNotionalValue string `json:"minNotionalValue"`
		MaxOrderQty      string `json:"maxOrderQty"`
		MaxMktOrderQty   string `json:"maxMktOrderQty"`
		MinOrderQty      string `json:"minOrderQty"`
		QtyStep          string `json:"qtyStep"`
	} `json:"lotSizeFilter"`
	SettleCoin string `json:"settleCoin"`
}

// QuantityPrecision is the number of decimals allowed by qtyStep
func (ii *InstrumentInfo) QuantityPrecision() int {
	return precisionFromStep(ii.LotSizeFilter.QtyStep)
}

// MinQuantity is the smallest order size accepted
func (ii *InstrumentInfo) MinQuantity() float64 {
	return parseFloat64(ii.LotSizeFilter.MinOrderQty)
}

// MinNotional is the smallest order value accepted, 0 when not published
func (ii *InstrumentInfo) MinNotional() float64 {
	return parseFloat64(ii.LotSizeFilter.MinNotionalValue)
}

// TickSize is the price increment, 0 when not published
func (ii *InstrumentInfo) TickSize() float64 {
	return parseFloat64(ii.PriceFilter.TickSize)
}

// IsTrading reports whether new orders are accepted
func (ii *InstrumentInfo) IsTrading() bool {
	return ii.Status == "" || ii.Status == "Trading"
}

// GetInstrumentInfo fetches the current trading rules for symbol. Rules can
// change on the venue at any time, so nothing is cached.
func (c *Client) GetInstrumentInfo(ctx context.Context, symbol string) (*InstrumentInfo, error) {
	params := map[string]interface{}{
		"category": c.category,
		"symbol":   symbol,
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetInstrumentInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch instrument info: %w", err)
	}

	return parseInstrumentInfoResponse(result, symbol)
}

// parseInstrumentInfoResponse finds targetSymbol in the instruments list
func parseInstrumentInfoResponse(response interface{}, targetSymbol string) (*InstrumentInfo, error) {
	var instruments instrumentResult
	if err := decodeResult(response, &instruments); err != nil {
		return nil, err
	}

	for i := range instruments.List {
		if instruments.List[i].Symbol == targetSymbol {
			return &instruments.List[i], nil
		}
	}
	return nil, NewBybitError(ErrCodeSymbolNotFound, "Symbol not found", targetSymbol)
}
