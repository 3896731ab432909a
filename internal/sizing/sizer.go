// Package sizing converts a dollar risk budget into a venue-legal order
// quantity.
package sizing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
)

// Sentinels for errors.Is
var (
	ErrDegenerateStop  = &errors.BotError{Code: errors.CodeDegenerateStop}
	ErrZeroQuantity    = &errors.BotError{Code: errors.CodeZeroQuantity}
	ErrInvalidInput    = &errors.BotError{Code: errors.CodeInvalidInput}
	ErrInvalidMetadata = &errors.BotError{Code: errors.CodeInvalidMetadata}
)

// Adjustments applied on top of the floored risk quantity
const (
	AdjustMinQuantity = "min_quantity_raise"
	AdjustMinNotional = "min_notional_top_up"
)

// Plan is a sized quantity together with the numbers it was derived from
type Plan struct {
	Quantity     decimal.Decimal
	RawQuantity  decimal.Decimal
	Price        float64
	RiskPerUnit  float64
	Notional     float64
	RealizedRisk float64 // loss at the stop for Quantity; exceeds the budget after a min-size raise
	Adjustments  []string
	TickSize     float64 // price increment protective legs are rounded to
}

// Adjusted reports whether the quantity was raised above the risk quantity
func (p *Plan) Adjusted() bool {
	return len(p.Adjustments) > 0
}

// Sizer applies one venue's Rules to every computation
type Sizer struct {
	rules Rules
}

// NewSizer creates a sizer for a venue
func NewSizer(rules Rules) *Sizer {
	return &Sizer{rules: rules}
}

// Rules returns the venue rules the sizer applies
func (s *Sizer) Rules() Rules {
	return s.rules
}

// ComputeQuantity returns the quantity that loses about riskUSD if price
// moves from entryPrice to stopPrice, rounded to the symbol's precision.
func (s *Sizer) ComputeQuantity(riskUSD, entryPrice, stopPrice float64, meta exchange.SymbolMetadata) (decimal.Decimal, error) {
	plan, err := s.Plan(riskUSD, entryPrice, stopPrice, meta)
	if err != nil {
		return decimal.Zero, err
	}
	return plan.Quantity, nil
}

// Plan sizes a position and reports every adjustment made along the way.
//
// The risk quantity is floored so it never risks more than requested. Raising
// it to the venue minimum quantity or minimum notional does increase the
// realized risk; that is accepted and reported in Adjustments.
func (s *Sizer) Plan(riskUSD, entryPrice, stopPrice float64, meta exchange.SymbolMetadata) (*Plan, error) {
	if err := checkInputs(riskUSD, entryPrice, stopPrice); err != nil {
		return nil, err
	}

	meta = s.rules.Apply(meta)
	if meta.QuantityPrecision < 0 || meta.MinQuantity < 0 || meta.ContractSize < 0 || meta.MinNotional < 0 {
		return nil, errors.NewSizingError(errors.CodeInvalidMetadata,
			fmt.Sprintf("invalid metadata for %s: precision=%d min_qty=%g min_notional=%g contract_size=%g",
				meta.Symbol, meta.QuantityPrecision, meta.MinQuantity, meta.MinNotional, meta.ContractSize))
	}

	entry := decimal.NewFromFloat(entryPrice)
	riskPerUnit := entry.Sub(decimal.NewFromFloat(stopPrice)).Abs()
	if riskPerUnit.IsZero() {
		return nil, errors.NewSizingError(errors.CodeDegenerateStop,
			fmt.Sprintf("stop price %g equals entry price %g", stopPrice, entryPrice)).
			WithContext("symbol", meta.Symbol)
	}

	multiplier := decimal.NewFromInt(1)
	raw := decimal.NewFromFloat(riskUSD).Div(riskPerUnit)
	if meta.ContractSize > 0 && meta.ContractSize != 1 {
		multiplier = decimal.NewFromFloat(meta.ContractSize)
		raw = raw.Div(multiplier)
	}

	precision := int32(meta.QuantityPrecision)
	qty := raw.RoundFloor(precision)
	var adjustments []string

	if minQty := decimal.NewFromFloat(meta.MinQuantity); meta.MinQuantity > 0 && qty.LessThan(minQty) {
		qty = minQty.RoundCeil(precision)
		adjustments = append(adjustments, AdjustMinQuantity)
	}

	if s.rules.EnforceMinNotional {
		minNotional := meta.MinNotional
		if minNotional == 0 {
			minNotional = s.rules.MinNotionalFallback
		}

		if minNotional > 0 {
			unitValue := entry.Mul(multiplier)
			floor := decimal.NewFromFloat(minNotional)
			if qty.Mul(unitValue).LessThan(floor) {
				qty = floor.Div(unitValue).RoundCeil(precision)
				adjustments = append(adjustments, AdjustMinNotional)
			}
		}
	}

	if !qty.IsPositive() {
		return nil, errors.NewSizingError(errors.CodeZeroQuantity,
			fmt.Sprintf("risk %g over %s per unit rounds to zero at precision %d", riskUSD, riskPerUnit, precision)).
			WithContext("symbol", meta.Symbol)
	}

	plan := &Plan{
		Quantity:     qty,
		RawQuantity:  raw,
		Price:        entryPrice,
		RiskPerUnit:  riskPerUnit.InexactFloat64(),
		Notional:     qty.Mul(entry).Mul(multiplier).InexactFloat64(),
		RealizedRisk: qty.Mul(multiplier).Mul(riskPerUnit).InexactFloat64(),
		Adjustments:  adjustments,
		TickSize:     meta.TickSize,
	}
	return plan, nil
}

// RoundToTick rounds price to the nearest multiple of tick. A tick of zero
// leaves price unchanged.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	step := decimal.NewFromFloat(tick)
	return decimal.NewFromFloat(price).Div(step).Round(0).Mul(step).InexactFloat64()
}

func checkInputs(riskUSD, entryPrice, stopPrice float64) error {
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"risk_usd", riskUSD},
		{"entry price", entryPrice},
		{"stop price", stopPrice},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value <= 0 {
			return errors.NewSizingError(errors.CodeInvalidInput, fmt.Sprintf("%s must be a positive number, got %g", v.name, v.value))
		}
	}
	return nil
}
