// Package signal turns an inbound webhook alert into a validated TradeSignal.
package signal

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
)

// Direction is what the alert asks the bot to do
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionClose Direction = "CLOSE"
)

// ParseDirection accepts LONG, SHORT and CLOSE in any case. BUY and SELL are
// aliases of LONG and SHORT.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return DirectionLong, nil
	case "SHORT", "SELL":
		return DirectionShort, nil
	case "CLOSE":
		return DirectionClose, nil
	}
	return "", fmt.Errorf("invalid signal %q", s)
}

// IsValid reports whether d is one of the three directions
func (d Direction) IsValid() bool {
	return d == DirectionLong || d == DirectionShort || d == DirectionClose
}

// EntrySide is the side of the order that opens a position in direction d
func (d Direction) EntrySide() exchange.OrderSide {
	if d == DirectionShort {
		return exchange.OrderSideSell
	}
	return exchange.OrderSideBuy
}

// TradeSignal is one normalized alert. It cannot be modified after
// construction.
type TradeSignal struct {
	direction   Direction
	symbol      string
	entryPrice  float64
	stopPrice   float64
	targetPrice float64
	riskUSD     float64
	warnings    []string
}

// New builds a TradeSignal without validating prices. ParseWebhook is the
// validating constructor used for inbound alerts.
func New(direction Direction, symbol string, entry, stop, target, riskUSD float64) TradeSignal {
	return TradeSignal{
		direction:   direction,
		symbol:      strings.ToUpper(strings.TrimSpace(symbol)),
		entryPrice:  entry,
		stopPrice:   stop,
		targetPrice: target,
		riskUSD:     riskUSD,
	}
}

func (s TradeSignal) Direction() Direction { return s.direction }
func (s TradeSignal) Symbol() string       { return s.symbol }
func (s TradeSignal) EntryPrice() float64  { return s.entryPrice }
func (s TradeSignal) StopPrice() float64   { return s.stopPrice }
func (s TradeSignal) TargetPrice() float64 { return s.targetPrice }
func (s TradeSignal) RiskUSD() float64     { return s.riskUSD }

// IsClose reports whether the signal only flattens
func (s TradeSignal) IsClose() bool {
	return s.direction == DirectionClose
}

// Warnings lists price layouts the venue may reject for the protective legs
func (s TradeSignal) Warnings() []string {
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

func (s TradeSignal) String() string {
	if s.IsClose() {
		return fmt.Sprintf("%s %s", s.direction, s.symbol)
	}
	return fmt.Sprintf("%s %s entry=%g sl=%g tp=%g risk=%g", s.direction, s.symbol, s.entryPrice, s.stopPrice, s.targetPrice, s.riskUSD)
}
