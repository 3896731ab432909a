package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/sizing"
)

// VenueRules maps a venue name to its sizing rules
type VenueRules map[string]sizing.Rules

// LoadVenueRules reads per-venue sizing rules from a JSON file shaped like
//
//	{"binance": {"enforce_min_notional": true, "min_notional_fallback": 5,
//	             "symbols": {"BTCUSDT": {"quantity_precision": 3}}}}
//
// Fields a venue entry leaves out keep the built-in defaults. An empty path
// returns the defaults only.
func LoadVenueRules(path string) (VenueRules, error) {
	rules := VenueRules{}
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, boterrors.NewConfigurationError(boterrors.CodeInvalidSetting,
			fmt.Sprintf("failed to read venue rules file %s: %v", path, err))
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, boterrors.NewConfigurationError(boterrors.CodeInvalidSetting,
			fmt.Sprintf("failed to parse venue rules file %s: %v", path, err))
	}

	for venue, body := range raw {
		venue = strings.ToLower(venue)
		merged := sizing.DefaultRules(venue)
		if err := json.Unmarshal(body, &merged); err != nil {
			return nil, boterrors.NewConfigurationError(boterrors.CodeInvalidSetting,
				fmt.Sprintf("invalid rules for venue %s: %v", venue, err))
		}
		if merged.MinNotionalFallback < 0 {
			return nil, boterrors.NewConfigurationError(boterrors.CodeInvalidSetting,
				fmt.Sprintf("venue %s: min_notional_fallback must not be negative", venue))
		}
		merged.Symbols = upperKeys(merged.Symbols)
		rules[venue] = merged
	}
	return rules, nil
}

// RulesFor returns the configured rules for venue, or its defaults
func (r VenueRules) RulesFor(venue string) sizing.Rules {
	if rules, ok := r[strings.ToLower(venue)]; ok {
		return rules
	}
	return sizing.DefaultRules(venue)
}

func upperKeys(in map[string]sizing.SymbolOverride) map[string]sizing.SymbolOverride {
	if len(in) == 0 {
		return in
	}
	out := make(map[string]sizing.SymbolOverride, len(in))
	for symbol, o := range in {
		out[strings.ToUpper(symbol)] = o
	}
	return out
}
