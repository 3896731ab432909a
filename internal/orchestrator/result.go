package orchestrator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/signal"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/sizing"
)

// Leg names a protective order of a bracket
type Leg string

const (
	LegStopLoss   Leg = "stop_loss"
	LegTakeProfit Leg = "take_profit"
)

// LegFailure is a protective leg that could not be placed
type LegFailure struct {
	Leg Leg
	Err error
}

// BracketResult is the outcome of one ExecuteBracket call.
//
// COMPLETED only means the sequence ran to the end. A bracket is protected
// when both StopOrderRef and TargetOrderRef are set; check Protected or
// ProtectionError before treating a completed bracket as safe.
type BracketResult struct {
	Symbol    string
	Direction signal.Direction
	State     State

	EntryOrderRef  *exchange.OrderRef
	StopOrderRef   *exchange.OrderRef
	TargetOrderRef *exchange.OrderRef
	SizedQuantity  decimal.Decimal
	FillPrice      float64

	ClosedPositions int
	Plan            *sizing.Plan
	LegFailures     []LegFailure
	Warnings        []string

	// Err is the error that moved the bracket to FAILED
	Err error

	// legIDs keeps one client order id per leg so a repair resubmits the
	// same id and cannot place a second copy of a leg that already rests
	legIDs map[Leg]string
}

// Entered reports whether an entry order was accepted
func (r *BracketResult) Entered() bool {
	return r.EntryOrderRef != nil
}

// Protected reports whether both protective legs exist
func (r *BracketResult) Protected() bool {
	return r.StopOrderRef != nil && r.TargetOrderRef != nil
}

// MissingLegs lists the protective legs an entered bracket lacks
func (r *BracketResult) MissingLegs() []Leg {
	if !r.Entered() {
		return nil
	}
	var missing []Leg
	if r.StopOrderRef == nil {
		missing = append(missing, LegStopLoss)
	}
	if r.TargetOrderRef == nil {
		missing = append(missing, LegTakeProfit)
	}
	return missing
}

// ProtectionError returns a KindPartialProtection error when an entered
// position lacks a protective leg, and nil otherwise. It is never returned
// from ExecuteBracket itself.
func (r *BracketResult) ProtectionError() error {
	missing := r.MissingLegs()
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, len(missing))
	for i, leg := range missing {
		names[i] = string(leg)
	}

	code := boterrors.CodeStopLegFailed
	if r.StopOrderRef != nil {
		code = boterrors.CodeTargetLegFailed
	}

	err := boterrors.New(boterrors.KindPartialProtection, code, "orchestrator", "protect",
		fmt.Sprintf("%s position open without %s", r.Symbol, strings.Join(names, " and "))).
		WithContext("symbol", r.Symbol).
		WithContext("missing_legs", names)
	if len(r.LegFailures) > 0 {
		err.Underlying = r.LegFailures[len(r.LegFailures)-1].Err
	}
	return err
}

func (r *BracketResult) legClientOrderID(leg Leg) string {
	if r.legIDs == nil {
		r.legIDs = make(map[Leg]string, 2)
	}
	id, ok := r.legIDs[leg]
	if !ok {
		id = exchange.NewClientOrderID()
		r.legIDs[leg] = id
	}
	return id
}

func (r *BracketResult) tickSize() float64 {
	if r.Plan == nil {
		return 0
	}
	return r.Plan.TickSize
}

func (r *BracketResult) recordLegFailure(leg Leg, err error) {
	r.LegFailures = append(r.LegFailures, LegFailure{Leg: leg, Err: err})
}

func (r *BracketResult) clearLegFailures(leg Leg) {
	kept := r.LegFailures[:0]
	for _, f := range r.LegFailures {
		if f.Leg != leg {
			kept = append(kept, f)
		}
	}
	r.LegFailures = kept
}

// outcome is the metrics label for the terminal state
func (r *BracketResult) outcome() string {
	switch {
	case r.State == StateFailed:
		return "failed"
	case !r.Entered():
		return "closed"
	case r.Protected():
		return "protected"
	default:
		return "unprotected"
	}
}
