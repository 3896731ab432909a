package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Journal is the append-only record of every action taken against a venue:
// signals received, positions flattened, orders submitted and legs that
// failed. One JSON object per line. A nil *Journal discards everything.
type Journal struct {
	logFile *os.File
	logger  zerolog.Logger
	path    string
}

// Entry types
const (
	EntrySession    = "SESSION"
	EntrySignal     = "SIGNAL"
	EntryFlatten    = "FLATTEN"
	EntrySizing     = "SIZING"
	EntryOrder      = "ORDER"
	EntryLegFailure = "LEG_FAILURE"
	EntryBracket    = "BRACKET"
)

// NewJournal opens (or creates) today's journal for venue inside dir
func NewJournal(dir, venue string) (*Journal, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", venue, time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	j := &Journal{
		logFile: file,
		logger:  zerolog.New(zerolog.SyncWriter(file)).With().Timestamp().Str("venue", venue).Logger(),
		path:    path,
	}

	j.event(zerolog.InfoLevel, EntrySession).Str("event", "started").Msg("session started")
	return j, nil
}

func (j *Journal) event(level zerolog.Level, entry string) *zerolog.Event {
	return j.logger.WithLevel(level).Str("entry", entry)
}

// Signal records an inbound alert
func (j *Journal) Signal(direction, symbol string, entry, stop, target, riskUSD float64) {
	if j == nil {
		return
	}
	j.event(zerolog.InfoLevel, EntrySignal).
		Str("direction", direction).Str("symbol", symbol).
		Float64("entry", entry).Float64("stop", stop).Float64("target", target).Float64("risk_usd", riskUSD).
		Msg("signal received")
}

// Flatten records a reduce-only close order for an existing position
func (j *Journal) Flatten(symbol, side, quantity, orderID string) {
	if j == nil {
		return
	}
	j.event(zerolog.InfoLevel, EntryFlatten).
		Str("symbol", symbol).Str("side", side).Str("quantity", quantity).Str("order_id", orderID).
		Msg("position closed")
}

// Sizing records how a quantity was derived from the risk budget
func (j *Journal) Sizing(symbol, quantity string, price, riskPerUnit, realizedRisk float64, adjustments []string) {
	if j == nil {
		return
	}
	j.event(zerolog.InfoLevel, EntrySizing).
		Str("symbol", symbol).Str("quantity", quantity).Float64("price", price).
		Float64("risk_per_unit", riskPerUnit).Float64("realized_risk", realizedRisk).Strs("adjustments", adjustments).
		Msg("quantity sized")
}

// Order records an accepted order
func (j *Journal) Order(leg, symbol, side, orderType, quantity, orderID string, price float64) {
	if j == nil {
		return
	}
	j.event(zerolog.InfoLevel, EntryOrder).
		Str("leg", leg).Str("symbol", symbol).Str("side", side).Str("type", orderType).
		Str("quantity", quantity).Str("order_id", orderID).Float64("price", price).
		Msg("order accepted")
}

// LegFailure records a protective leg that could not be placed
func (j *Journal) LegFailure(leg, symbol string, err error) {
	if j == nil {
		return
	}
	j.event(zerolog.ErrorLevel, EntryLegFailure).
		Str("leg", leg).Str("symbol", symbol).Err(err).
		Msg("protective leg failed, position left without it")
}

// Bracket records the terminal state of a bracket
func (j *Journal) Bracket(symbol, direction, state string, protected bool, err error) {
	if j == nil {
		return
	}

	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.ErrorLevel
	} else if !protected {
		level = zerolog.WarnLevel
	}

	j.event(level, EntryBracket).
		Str("symbol", symbol).Str("direction", direction).Str("state", state).Bool("protected", protected).Err(err).
		Msg("bracket finished")
}

// Close writes the session end marker and closes the file
func (j *Journal) Close() error {
	if j == nil || j.logFile == nil {
		return nil
	}

	j.event(zerolog.InfoLevel, EntrySession).Str("event", "ended").Msg("session ended")
	return j.logFile.Close()
}

// Path returns the journal file path
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}
