// Package orchestrator sequences one bracket: flatten, size, enter, then
// place the stop-loss and take-profit legs.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/logger"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/monitoring"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/notifications"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/position"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/signal"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/sizing"
)

const alertTimeout = 5 * time.Second

// Options configures an Orchestrator. Every field is optional.
type Options struct {
	LockMode LockMode
	Journal  *logger.Journal
	Notifier notifications.Notifier
	Health   *monitoring.HealthChecker
	Logger   zerolog.Logger
}

// Orchestrator runs brackets against one venue. At most one bracket per
// symbol is in flight at a time.
type Orchestrator struct {
	gateway   exchange.Gateway
	positions *position.Manager
	sizer     *sizing.Sizer
	locks     *symbolLocks
	journal   *logger.Journal
	notifier  notifications.Notifier
	health    *monitoring.HealthChecker
	logger    zerolog.Logger
}

// New creates an orchestrator. gateway should already be wrapped with
// exchange.Guarded so every call carries a timeout and the retry policy.
func New(gateway exchange.Gateway, sizer *sizing.Sizer, opts Options) *Orchestrator {
	if opts.Notifier == nil {
		opts.Notifier = notifications.Nop{}
	}
	return &Orchestrator{
		gateway:   gateway,
		positions: position.NewManager(gateway, opts.Journal, opts.Logger),
		sizer:     sizer,
		locks:     newSymbolLocks(opts.LockMode),
		journal:   opts.Journal,
		notifier:  opts.Notifier,
		health:    opts.Health,
		logger:    opts.Logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Positions returns the position manager the orchestrator flattens with
func (o *Orchestrator) Positions() *position.Manager {
	return o.positions
}

// ExecuteBracket runs sig to a terminal state. The returned result is never
// nil.
//
// A failed flatten, sizing or entry returns the error and a FAILED result;
// no order is submitted after the failing step. A protective leg that fails
// after the entry filled does not fail the bracket: the result is COMPLETED,
// the missing leg's ref is nil and result.ProtectionError reports it.
//
// ctx is honored until the entry is submitted. From then on the bracket runs
// to completion regardless of ctx; each venue call still has its own timeout.
func (o *Orchestrator) ExecuteBracket(ctx context.Context, sig signal.TradeSignal) (*BracketResult, error) {
	result := &BracketResult{
		Symbol:    sig.Symbol(),
		Direction: sig.Direction(),
		State:     StateValidating,
		Warnings:  sig.Warnings(),
	}
	log := o.logger.With().Str("symbol", sig.Symbol()).Str("direction", string(sig.Direction())).Logger()

	o.journal.Signal(string(sig.Direction()), sig.Symbol(), sig.EntryPrice(), sig.StopPrice(), sig.TargetPrice(), sig.RiskUSD())

	if !sig.Direction().IsValid() {
		return o.fail(result, boterrors.NewValidationError("orchestrator", boterrors.CodeInvalidSignal,
			fmt.Sprintf("invalid direction %q", sig.Direction())))
	}
	if sig.Symbol() == "" {
		return o.fail(result, boterrors.NewValidationError("orchestrator", boterrors.CodeMissingField, "symbol is required"))
	}

	release, err := o.locks.acquire(ctx, sig.Symbol())
	if err != nil {
		log.Warn().Err(err).Msg("bracket already in flight")
		return o.fail(result, err)
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return o.fail(result, boterrors.NewVenueError("orchestrator", "flatten", err))
	}

	result.State = StateFlattening
	closed, err := o.positions.FlattenSymbol(ctx, sig.Symbol())
	result.ClosedPositions = closed
	if err != nil {
		return o.fail(result, err)
	}

	if sig.IsClose() {
		log.Info().Int("closed", closed).Msg("close signal flattened symbol")
		result.State = StateCompleted
		o.finish(result)
		return result, nil
	}

	result.State = StateSizing
	plan, err := o.size(ctx, sig)
	if err != nil {
		return o.fail(result, err)
	}
	result.Plan = plan
	result.SizedQuantity = plan.Quantity
	result.FillPrice = plan.Price

	if plan.Adjusted() {
		log.Warn().
			Strs("adjustments", plan.Adjustments).
			Float64("risk_usd", sig.RiskUSD()).
			Float64("realized_risk", plan.RealizedRisk).
			Msg("quantity raised to venue minimum, realized risk exceeds budget")
	}

	// No cancellation from here: an entry cannot be taken back once sent.
	execCtx := context.WithoutCancel(ctx)

	result.State = StateEnteringPosition
	entry := exchange.OrderIntent{
		Symbol:        sig.Symbol(),
		Side:          sig.Direction().EntrySide(),
		Quantity:      plan.Quantity,
		Type:          exchange.OrderTypeMarket,
		ClientOrderID: exchange.NewClientOrderID(),
	}
	ref, err := o.gateway.SubmitOrder(execCtx, entry)
	if errors.Is(err, exchange.ErrOrderStateUnknown) {
		ref, err = o.confirmEntry(execCtx, entry, err)
	}
	if errors.Is(err, exchange.ErrOrderStateUnknown) {
		return o.fail(result, boterrors.Wrap(err, boterrors.KindVenue, boterrors.CodeEntryUnknown, "orchestrator", "enter").
			WithMessage("entry may have filled but could not be confirmed").
			WithContext("symbol", sig.Symbol()).
			WithContext("client_order_id", entry.ClientOrderID))
	}
	if err != nil {
		return o.fail(result, boterrors.Wrap(err, boterrors.KindVenue, boterrors.CodeEntryFailed, "orchestrator", "enter").
			WithMessage("entry order rejected").
			WithContext("symbol", sig.Symbol()))
	}
	result.EntryOrderRef = ref
	if ref.AvgPrice > 0 {
		result.FillPrice = ref.AvgPrice
	}
	o.journal.Order("entry", sig.Symbol(), string(entry.Side), string(entry.Type), entry.Quantity.String(), ref.OrderID, result.FillPrice)
	monitoring.RecordEntry(sig.Symbol(), plan.Quantity.InexactFloat64())
	log.Info().
		Str("order_id", ref.OrderID).
		Str("quantity", plan.Quantity.String()).
		Float64("fill_price", result.FillPrice).
		Msg("entry order placed")

	result.State = StateSettingStopLoss
	o.placeLeg(execCtx, result, LegStopLoss, stopIntent(sig, result))

	result.State = StateSettingTakeProfit
	o.placeLeg(execCtx, result, LegTakeProfit, targetIntent(sig, result))

	result.State = StateCompleted
	o.finish(result)
	return result, nil
}

// confirmEntry decides an entry whose outcome the venue could not report.
// The symbol was flat before the entry and is locked, so a position on the
// entry side can only be this entry's fill.
func (o *Orchestrator) confirmEntry(ctx context.Context, entry exchange.OrderIntent, cause error) (*exchange.OrderRef, error) {
	positions, err := o.gateway.GetOpenPositions(ctx, entry.Symbol)
	if err != nil {
		o.logger.Error().Err(err).Str("symbol", entry.Symbol).Msg("could not read positions to confirm entry")
		return nil, cause
	}

	for _, p := range positions {
		if p.IsFlat() || !strings.EqualFold(p.Symbol, entry.Symbol) || p.CloseSide() != entry.Side.Opposite() {
			continue
		}
		o.logger.Warn().
			Str("symbol", entry.Symbol).
			Str("client_order_id", entry.ClientOrderID).
			Float64("size", p.SignedQuantity).
			Msg("entry confirmed from open position")
		return &exchange.OrderRef{
			ClientOrderID: entry.ClientOrderID,
			AvgPrice:      p.EntryPrice,
			Status:        "CONFIRMED_BY_POSITION",
		}, nil
	}
	return nil, cause
}

// RepairProtection re-attempts the legs result is missing, under the same
// symbol lock as ExecuteBracket, and updates result in place. It returns
// result.ProtectionError afterwards.
func (o *Orchestrator) RepairProtection(ctx context.Context, sig signal.TradeSignal, result *BracketResult) error {
	if result == nil || !result.Entered() {
		return boterrors.NewValidationError("orchestrator", boterrors.CodeInvalidInput, "no entered bracket to repair")
	}
	if result.Protected() {
		return nil
	}

	release, err := o.locks.acquire(ctx, result.Symbol)
	if err != nil {
		return err
	}
	defer release()

	execCtx := context.WithoutCancel(ctx)
	for _, leg := range result.MissingLegs() {
		switch leg {
		case LegStopLoss:
			o.placeLeg(execCtx, result, leg, stopIntent(sig, result))
		case LegTakeProfit:
			o.placeLeg(execCtx, result, leg, targetIntent(sig, result))
		}
	}

	o.journal.Bracket(result.Symbol, string(result.Direction), "REPAIRED", result.Protected(), result.ProtectionError())
	if o.health != nil {
		o.health.RecordBracket(result.EntryOrderRef.OrderID, result.Protected())
	}
	return result.ProtectionError()
}

// size fetches fresh metadata and, when the venue sizes at the live price,
// the current price
func (o *Orchestrator) size(ctx context.Context, sig signal.TradeSignal) (*sizing.Plan, error) {
	meta, err := o.gateway.GetSymbolMetadata(ctx, sig.Symbol())
	if err != nil {
		return nil, boterrors.NewVenueError("orchestrator", "get_symbol_metadata", err).WithContext("symbol", sig.Symbol())
	}

	price := sig.EntryPrice()
	if o.sizer.Rules().SizeAtLivePrice {
		live, err := o.gateway.GetCurrentPrice(ctx, sig.Symbol())
		if err != nil {
			return nil, boterrors.NewVenueError("orchestrator", "get_current_price", err).WithContext("symbol", sig.Symbol())
		}
		price = live
		if stopCrossed(sig.Direction(), live, sig.StopPrice()) {
			return nil, boterrors.NewValidationError("orchestrator", boterrors.CodeStopCrossed,
				fmt.Sprintf("live price %g is already beyond stop %g", live, sig.StopPrice())).
				WithContext("symbol", sig.Symbol())
		}
	}

	plan, err := o.sizer.Plan(sig.RiskUSD(), price, sig.StopPrice(), *meta)
	if err != nil {
		return nil, err
	}

	o.journal.Sizing(sig.Symbol(), plan.Quantity.String(), plan.Price, plan.RiskPerUnit, plan.RealizedRisk, plan.Adjustments)
	return plan, nil
}

// stopCrossed reports whether the market already trades at or past the stop
func stopCrossed(direction signal.Direction, live, stop float64) bool {
	if direction == signal.DirectionShort {
		return live >= stop
	}
	return live <= stop
}

func stopIntent(sig signal.TradeSignal, result *BracketResult) exchange.OrderIntent {
	return exchange.OrderIntent{
		Symbol:        result.Symbol,
		Side:          result.Direction.EntrySide().Opposite(),
		Quantity:      result.SizedQuantity,
		Type:          exchange.OrderTypeStopMarket,
		StopPrice:     sizing.RoundToTick(sig.StopPrice(), result.tickSize()),
		ReduceOnly:    true,
		ClientOrderID: result.legClientOrderID(LegStopLoss),
	}
}

func targetIntent(sig signal.TradeSignal, result *BracketResult) exchange.OrderIntent {
	return exchange.OrderIntent{
		Symbol:        result.Symbol,
		Side:          result.Direction.EntrySide().Opposite(),
		Quantity:      result.SizedQuantity,
		Type:          exchange.OrderTypeLimit,
		Price:         sizing.RoundToTick(sig.TargetPrice(), result.tickSize()),
		ReduceOnly:    true,
		ClientOrderID: result.legClientOrderID(LegTakeProfit),
	}
}

// placeLeg submits one protective leg. A failure is recorded on result and
// never aborts the bracket.
func (o *Orchestrator) placeLeg(ctx context.Context, result *BracketResult, leg Leg, intent exchange.OrderIntent) {
	price := intent.StopPrice
	if leg == LegTakeProfit {
		price = intent.Price
	}

	ref, err := o.gateway.SubmitOrder(ctx, intent)
	if err != nil {
		result.recordLegFailure(leg, err)
		o.journal.LegFailure(string(leg), result.Symbol, err)
		monitoring.RecordLegFailure(result.Symbol, string(leg))
		o.logger.Error().Err(err).
			Str("symbol", result.Symbol).
			Str("leg", string(leg)).
			Float64("price", price).
			Msg("protective leg failed, position left open")
		return
	}

	switch leg {
	case LegStopLoss:
		result.StopOrderRef = ref
	case LegTakeProfit:
		result.TargetOrderRef = ref
	}
	result.clearLegFailures(leg)
	o.journal.Order(string(leg), result.Symbol, string(intent.Side), string(intent.Type), intent.Quantity.String(), ref.OrderID, price)
	o.logger.Info().
		Str("symbol", result.Symbol).
		Str("leg", string(leg)).
		Float64("price", price).
		Str("order_id", ref.OrderID).
		Msg("protective leg placed")
}

func (o *Orchestrator) fail(result *BracketResult, err error) (*BracketResult, error) {
	failedAt := result.State
	result.State = StateFailed
	result.Err = err

	o.logger.Error().Err(err).
		Str("symbol", result.Symbol).
		Str("failed_at", string(failedAt)).
		Str("kind", string(boterrors.KindOf(err))).
		Msg("bracket failed")
	monitoring.RecordError(string(boterrors.KindOf(err)))
	if o.health != nil {
		o.health.RecordError(err.Error())
	}
	o.finish(result)
	if errors.Is(err, exchange.ErrOrderStateUnknown) {
		o.alert(result.Symbol, fmt.Sprintf("%s %s entry state UNKNOWN, check the venue for an unprotected position: %v",
			result.Direction, result.Symbol, err))
	}
	return result, err
}

// finish records the terminal outcome and alerts on unprotected positions
func (o *Orchestrator) finish(result *BracketResult) {
	protectionErr := result.ProtectionError()
	journalErr := result.Err
	if journalErr == nil {
		journalErr = protectionErr
	}
	o.journal.Bracket(result.Symbol, string(result.Direction), string(result.State), result.Protected(), journalErr)
	monitoring.RecordBracket(result.Symbol, string(result.Direction), result.outcome())

	if o.health != nil && result.Entered() {
		o.health.RecordBracket(result.EntryOrderRef.OrderID, result.Protected())
	}

	if protectionErr == nil {
		return
	}
	monitoring.RecordError(string(boterrors.KindPartialProtection))

	o.alert(result.Symbol, fmt.Sprintf("%s %s entered (%s @ %g) but is UNPROTECTED: %v",
		result.Direction, result.Symbol, result.SizedQuantity, result.FillPrice, protectionErr))
}

func (o *Orchestrator) alert(symbol, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()
	if err := o.notifier.SendAlert(ctx, notifications.LevelError, msg); err != nil {
		o.logger.Warn().Err(err).Str("symbol", symbol).Msg("failed to send alert")
	}
}
