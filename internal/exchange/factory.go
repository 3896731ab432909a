package exchange

import (
	"fmt"
	"strings"
)

// Supported venue names
const (
	VenueBybit   = "bybit"
	VenueBinance = "binance"
	VenuePaper   = "paper"
)

// ExchangeConfig holds configuration for creating a venue
type ExchangeConfig struct {
	Name    string         `json:"name"` // bybit, binance or paper
	Bybit   *BybitConfig   `json:"bybit,omitempty"`
	Binance *BinanceConfig `json:"binance,omitempty"`
	Paper   *PaperConfig   `json:"paper,omitempty"`
}

// BybitConfig holds Bybit-specific configuration
type BybitConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Testnet   bool   `json:"testnet"` // Use testnet infrastructure
	Demo      bool   `json:"demo"`    // Use demo trading on mainnet data
	Category  string `json:"category"`
}

// BinanceConfig holds Binance USDⓈ-M futures configuration
type BinanceConfig struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Testnet   bool   `json:"testnet"`
}

// PaperConfig seeds the in-memory paper venue
type PaperConfig struct {
	InitialBalance float64                   `json:"initial_balance"`
	Symbols        map[string]SymbolMetadata `json:"symbols,omitempty"`
	Prices         map[string]float64        `json:"prices,omitempty"`
}

// NormalizedName returns the lower-cased venue name
func (c ExchangeConfig) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(c.Name))
}

// SupportedVenues returns the venue names that can be configured
func SupportedVenues() []string {
	return []string{VenueBybit, VenueBinance, VenuePaper}
}

// ValidateConfig validates the exchange configuration
func ValidateConfig(config ExchangeConfig) error {
	if config.Name == "" {
		return &ExchangeError{
			Code:    "MISSING_EXCHANGE_NAME",
			Message: "Exchange name is required",
			Kind:    ErrorKindAuth,
		}
	}

	switch config.NormalizedName() {
	case VenueBybit:
		if config.Bybit == nil {
			return missingConfig("Bybit")
		}
		if err := validateCredentials("BYBIT", config.Bybit.APIKey, config.Bybit.APISecret); err != nil {
			return err
		}
		if config.Bybit.Testnet && config.Bybit.Demo {
			return &ExchangeError{
				Code:    "INVALID_ENVIRONMENT_CONFIG",
				Message: "Cannot use both testnet and demo mode simultaneously",
				Details: "Choose either testnet OR demo mode, not both",
				Kind:    ErrorKindAuth,
			}
		}
		return nil
	case VenueBinance:
		if config.Binance == nil {
			return missingConfig("Binance")
		}
		return validateCredentials("BINANCE", config.Binance.APIKey, config.Binance.APISecret)
	case VenuePaper:
		return nil
	default:
		return &ExchangeError{
			Code:    "UNSUPPORTED_EXCHANGE",
			Message: fmt.Sprintf("Exchange '%s' is not supported", config.Name),
			Details: fmt.Sprintf("Supported exchanges: %v", SupportedVenues()),
			Kind:    ErrorKindAuth,
		}
	}
}

func missingConfig(venue string) error {
	return &ExchangeError{
		Code:    "MISSING_" + strings.ToUpper(venue) + "_CONFIG",
		Message: venue + " configuration is required",
		Kind:    ErrorKindAuth,
	}
}

func validateCredentials(prefix, key, secret string) error {
	if key == "" {
		return &ExchangeError{
			Code:    "MISSING_API_KEY",
			Message: "API key is required",
			Details: fmt.Sprintf("Set %s_API_KEY environment variable", prefix),
			Kind:    ErrorKindAuth,
		}
	}
	if secret == "" {
		return &ExchangeError{
			Code:    "MISSING_API_SECRET",
			Message: "API secret is required",
			Details: fmt.Sprintf("Set the %s API secret environment variable", prefix),
			Kind:    ErrorKindAuth,
		}
	}
	return nil
}
