package binance

import (
	"strconv"

	"github.com/adshao/go-binance/v2/futures"
)

// SymbolRules is the subset of exchange info the sizing needs
type SymbolRules struct {
	Symbol            string
	Status            string
	QuantityPrecision int
	PricePrecision    int
	MinQuantity       float64
	StepSize          float64
	TickSize          float64
	MinNotional       float64 // 0 when no MIN_NOTIONAL filter is published
}

func rulesFromSymbol(s futures.Symbol) *SymbolRules {
	rules := &SymbolRules{
		Symbol:            s.Symbol,
		Status:            s.Status,
		QuantityPrecision: s.QuantityPrecision,
		PricePrecision:    s.PricePrecision,
	}

	for _, f := range s.Filters {
		switch f["filterType"] {
		case "LOT_SIZE":
			rules.MinQuantity = filterFloat(f, "minQty")
			rules.StepSize = filterFloat(f, "stepSize")
		case "PRICE_FILTER":
			rules.TickSize = filterFloat(f, "tickSize")
		case "MIN_NOTIONAL":
			// futures publish "notional", spot publishes "minNotional"
			rules.MinNotional = filterFloat(f, "notional")
			if rules.MinNotional == 0 {
				rules.MinNotional = filterFloat(f, "minNotional")
			}
		}
	}
	return rules
}

func filterFloat(f map[string]interface{}, key string) float64 {
	switch v := f[key].(type) {
	case string:
		parsed, _ := strconv.ParseFloat(v, 64)
		return parsed
	case float64:
		return v
	}
	return 0
}
