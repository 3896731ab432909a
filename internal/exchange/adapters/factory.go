package adapters

import (
	"fmt"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange/paper"
)

// Factory creates venue instances based on configuration
type Factory struct{}

// NewFactory creates a new venue factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// CreateVenue validates config and builds the matching venue
func (f *Factory) CreateVenue(config exchange.ExchangeConfig) (exchange.Venue, error) {
	if err := exchange.ValidateConfig(config); err != nil {
		return nil, err
	}

	switch config.NormalizedName() {
	case exchange.VenueBybit:
		return f.createBybitVenue(config.Bybit)
	case exchange.VenueBinance:
		return f.createBinanceVenue(config.Binance)
	case exchange.VenuePaper:
		paperConfig := exchange.PaperConfig{}
		if config.Paper != nil {
			paperConfig = *config.Paper
		}
		return paper.New(paperConfig), nil
	default:
		return nil, &exchange.ExchangeError{
			Code:    "UNSUPPORTED_EXCHANGE",
			Message: fmt.Sprintf("Exchange '%s' is not supported", config.Name),
			Details: fmt.Sprintf("Supported exchanges: %v", exchange.SupportedVenues()),
			Kind:    exchange.ErrorKindRejected,
		}
	}
}

// CreateVenue builds a venue with the default factory
func CreateVenue(config exchange.ExchangeConfig) (exchange.Venue, error) {
	return NewFactory().CreateVenue(config)
}

func (f *Factory) createBybitVenue(config *exchange.BybitConfig) (exchange.Venue, error) {
	adapter, err := NewBybitAdapter(config)
	if err != nil {
		return nil, &exchange.ExchangeError{
			Code:    "ADAPTER_CREATION_FAILED",
			Message: "Failed to create Bybit adapter",
			Details: err.Error(),
			Kind:    exchange.ErrorKindRejected,
		}
	}
	return adapter, nil
}

func (f *Factory) createBinanceVenue(config *exchange.BinanceConfig) (exchange.Venue, error) {
	adapter, err := NewBinanceAdapter(config)
	if err != nil {
		return nil, &exchange.ExchangeError{
			Code:    "ADAPTER_CREATION_FAILED",
			Message: "Failed to create Binance adapter",
			Details: err.Error(),
			Kind:    exchange.ErrorKindRejected,
		}
	}
	return adapter, nil
}
