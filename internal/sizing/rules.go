package sizing

import (
	"strings"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
)

// Rules captures how one venue's sizing differs from the common algorithm.
// Adding a venue means adding a Rules value, never touching Plan.
type Rules struct {
	// EnforceMinNotional tops the quantity up to the minimum notional.
	// Venues that accept sub-minimum sizes leave it off.
	EnforceMinNotional bool `json:"enforce_min_notional"`

	// MinNotionalFallback is used when the venue reports no minimum notional
	MinNotionalFallback float64 `json:"min_notional_fallback"`

	// SizeAtLivePrice sizes against the venue's current price instead of the
	// alert's entry price
	SizeAtLivePrice bool `json:"size_at_live_price"`

	// Symbols overrides venue-reported metadata per symbol
	Symbols map[string]SymbolOverride `json:"symbols,omitempty"`
}

// SymbolOverride replaces individual metadata fields; nil keeps the venue value
type SymbolOverride struct {
	QuantityPrecision *int     `json:"quantity_precision,omitempty"`
	MinQuantity       *float64 `json:"min_quantity,omitempty"`
	MinNotional       *float64 `json:"min_notional,omitempty"`
	ContractSize      *float64 `json:"contract_size,omitempty"`
	TickSize          *float64 `json:"tick_size,omitempty"`
}

// Apply returns meta with any configured override for its symbol applied
func (r Rules) Apply(meta exchange.SymbolMetadata) exchange.SymbolMetadata {
	o, ok := r.Symbols[strings.ToUpper(meta.Symbol)]
	if !ok {
		return meta
	}

	if o.QuantityPrecision != nil {
		meta.QuantityPrecision = *o.QuantityPrecision
	}
	if o.MinQuantity != nil {
		meta.MinQuantity = *o.MinQuantity
	}
	if o.MinNotional != nil {
		meta.MinNotional = *o.MinNotional
	}
	if o.ContractSize != nil {
		meta.ContractSize = *o.ContractSize
	}
	if o.TickSize != nil {
		meta.TickSize = *o.TickSize
	}
	return meta
}

// DefaultRules returns the built-in rules for a venue
func DefaultRules(venue string) Rules {
	switch strings.ToLower(venue) {
	case exchange.VenueBinance:
		// USDⓈ-M futures reject orders under 5 USD and some symbols do not
		// publish a MIN_NOTIONAL filter
		return Rules{EnforceMinNotional: true, MinNotionalFallback: 5, SizeAtLivePrice: true}
	case exchange.VenueBybit:
		return Rules{EnforceMinNotional: true}
	default:
		return Rules{EnforceMinNotional: true}
	}
}
