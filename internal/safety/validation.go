package safety

import (
	"fmt"
	"math"
	"strings"
)

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	Valid   bool
	Message string
	Code    string
}

func invalid(code, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validator provides the numeric and symbol checks applied to inbound signals
// and computed order sizes
type Validator struct {
	maxRiskUSD float64
}

// NewValidator creates a new validator instance. maxRiskUSD <= 0 disables the
// per-signal risk ceiling.
func NewValidator(maxRiskUSD float64) *Validator {
	return &Validator{maxRiskUSD: maxRiskUSD}
}

// ValidatePrice validates a price value for trading
func (v *Validator) ValidatePrice(field string, price float64, symbol string) ValidationResult {
	if math.IsNaN(price) {
		return invalid("INVALID_PRICE_NAN", "invalid %s for %s: price is NaN", field, symbol)
	}
	if math.IsInf(price, 0) {
		return invalid("INVALID_PRICE_INF", "invalid %s for %s: price is infinite", field, symbol)
	}
	if price <= 0 {
		return invalid("INVALID_PRICE_NEGATIVE", "invalid %s %.8f for %s: price must be positive", field, price, symbol)
	}

	// Obvious data errors
	if price > 1e10 {
		return invalid("PRICE_OUT_OF_BOUNDS", "suspicious %s %.8f for %s: exceeds reasonable bounds", field, price, symbol)
	}
	if price < 1e-8 {
		return invalid("PRICE_TOO_SMALL", "suspicious %s %.10f for %s: below reasonable bounds", field, price, symbol)
	}

	return ValidationResult{Valid: true}
}

// ValidateQuantity validates a quantity value for trading
func (v *Validator) ValidateQuantity(quantity float64, symbol string) ValidationResult {
	if math.IsNaN(quantity) {
		return invalid("INVALID_QUANTITY_NAN", "invalid quantity for %s: quantity is NaN", symbol)
	}
	if math.IsInf(quantity, 0) {
		return invalid("INVALID_QUANTITY_INF", "invalid quantity for %s: quantity is infinite", symbol)
	}
	if quantity <= 0 {
		return invalid("INVALID_QUANTITY_NEGATIVE", "invalid quantity %.8f for %s: quantity must be positive", quantity, symbol)
	}
	if quantity > 1e12 {
		return invalid("QUANTITY_OUT_OF_BOUNDS", "suspicious quantity %.8f for %s: exceeds reasonable bounds", quantity, symbol)
	}

	return ValidationResult{Valid: true}
}

// ValidateRisk validates the dollar risk budget of a signal
func (v *Validator) ValidateRisk(riskUSD float64) ValidationResult {
	if math.IsNaN(riskUSD) || math.IsInf(riskUSD, 0) {
		return invalid("INVALID_RISK", "risk_usd must be a finite number")
	}
	if riskUSD <= 0 {
		return invalid("INVALID_RISK", "risk_usd %.2f must be positive", riskUSD)
	}
	if v.maxRiskUSD > 0 && riskUSD > v.maxRiskUSD {
		return invalid("RISK_ABOVE_LIMIT", "risk_usd %.2f exceeds configured limit %.2f", riskUSD, v.maxRiskUSD)
	}

	return ValidationResult{Valid: true}
}

// ValidateSymbol validates a trading symbol format
func (v *Validator) ValidateSymbol(symbol string) ValidationResult {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return invalid("SYMBOL_EMPTY", "symbol cannot be empty")
	}
	if len(symbol) < 3 {
		return invalid("SYMBOL_TOO_SHORT", "symbol '%s' too short: minimum 3 characters required", symbol)
	}
	if len(symbol) > 30 {
		return invalid("SYMBOL_TOO_LONG", "symbol '%s' too long: maximum 30 characters allowed", symbol)
	}

	for _, char := range symbol {
		if !((char >= 'A' && char <= 'Z') || (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '-' || char == '/' || char == '_') {
			return invalid("SYMBOL_INVALID_CHARS", "symbol '%s' contains invalid characters", symbol)
		}
	}

	return ValidationResult{Valid: true}
}

// BracketWarnings reports price layouts that a venue is likely to reject for
// the protective legs: a long expects stop < entry < target, a short the
// reverse. They are warnings only; the legs are still attempted.
func (v *Validator) BracketWarnings(long bool, entry, stop, target float64) []string {
	var warnings []string
	if long {
		if stop >= entry {
			warnings = append(warnings, fmt.Sprintf("stop %.8g is not below entry %.8g for a long", stop, entry))
		}
		if target <= entry {
			warnings = append(warnings, fmt.Sprintf("target %.8g is not above entry %.8g for a long", target, entry))
		}
		return warnings
	}

	if stop <= entry {
		warnings = append(warnings, fmt.Sprintf("stop %.8g is not above entry %.8g for a short", stop, entry))
	}
	if target >= entry {
		warnings = append(warnings, fmt.Sprintf("target %.8g is not below entry %.8g for a short", target, entry))
	}
	return warnings
}
