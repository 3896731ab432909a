package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
)

// Kind is the caller-visible failure class of an error. It survives wrapping
// and is what the HTTP layer branches on.
type Kind string

const (
	KindUnknown           Kind = "UNKNOWN"
	KindValidation        Kind = "VALIDATION"
	KindAuth              Kind = "AUTH"
	KindSizing            Kind = "SIZING"
	KindVenue             Kind = "VENUE"
	KindPartialProtection Kind = "PARTIAL_PROTECTION"
	KindBusy              Kind = "BUSY"
	KindConfig            Kind = "CONFIG"
)

// Well-known codes
const (
	CodeDegenerateStop  = "DEGENERATE_STOP"
	CodeZeroQuantity    = "ZERO_QUANTITY"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeInvalidMetadata = "INVALID_METADATA"
	CodeSecretMismatch  = "SECRET_MISMATCH"
	CodeMalformedBody   = "MALFORMED_BODY"
	CodeMissingField    = "MISSING_FIELD"
	CodeInvalidSignal   = "INVALID_SIGNAL"
	CodeSymbolBusy      = "SYMBOL_BUSY"
	CodeFlattenFailed   = "FLATTEN_FAILED"
	CodeEntryFailed     = "ENTRY_FAILED"
	CodeEntryUnknown    = "ENTRY_UNKNOWN"
	CodeStopCrossed     = "STOP_CROSSED"
	CodeStopLegFailed   = "STOP_LEG_FAILED"
	CodeTargetLegFailed = "TARGET_LEG_FAILED"
	CodeMissingSetting  = "MISSING_SETTING"
	CodeInvalidSetting  = "INVALID_SETTING"
)

// BotError represents a categorized error with context
type BotError struct {
	Kind       Kind
	Code       string
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Kind, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Kind, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// Is matches another BotError by code, or by kind when the target has no code.
// This lets package-level sentinels work with errors.Is.
func (e *BotError) Is(target error) bool {
	t, ok := target.(*BotError)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return t.Kind != "" && e.Kind == t.Kind
}

// ErrorKind reports the error kind
func (e *BotError) ErrorKind() Kind {
	return e.Kind
}

// IsRetryable returns whether this error can be retried
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// New creates a new categorized bot error
func New(kind Kind, code, component, operation, message string) *BotError {
	return &BotError{
		Kind:      kind,
		Code:      code,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with bot error context. A nil error stays nil.
func Wrap(err error, kind Kind, code, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Kind:       kind,
		Code:       code,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  IsTransient(err),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithMessage replaces the human-readable message
func (e *BotError) WithMessage(format string, args ...interface{}) *BotError {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// Common error constructors
func NewValidationError(component, code, message string) *BotError {
	return New(KindValidation, code, component, "validate", message)
}

func NewAuthError(component, message string) *BotError {
	return New(KindAuth, CodeSecretMismatch, component, "authenticate", message)
}

func NewSizingError(code, message string) *BotError {
	return New(KindSizing, code, "sizing", "compute_quantity", message)
}

func NewVenueError(component, operation string, err error) *BotError {
	return Wrap(err, KindVenue, "", component, operation)
}

func NewBusyError(symbol string) *BotError {
	return New(KindBusy, CodeSymbolBusy, "orchestrator", "acquire", fmt.Sprintf("bracket already in flight for %s", symbol)).
		WithContext("symbol", symbol)
}

func NewConfigurationError(code, message string) *BotError {
	return New(KindConfig, code, "config", "load", message)
}

// kinded is implemented by errors from other packages (venue errors) that
// carry their own kind.
type kinded interface {
	ErrorKind() Kind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var k kinded
	if stderrors.As(err, &k) {
		return k.ErrorKind()
	}
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return KindVenue
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

type transient interface {
	IsTransient() bool
}

// IsTransient reports whether err is a transport-level failure that may
// succeed on a second attempt: timeouts, connection resets, or a venue error
// that declares itself transient. Explicit venue rejections are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var t transient
	if stderrors.As(err, &t) {
		return t.IsTransient()
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof") ||
		strings.Contains(msg, "i/o timeout")
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	TotalErrors     int
	ErrorsByKind    map[Kind]int
	RecentErrors    []*BotError
	MaxRecentErrors int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByKind:    make(map[Kind]int),
		RecentErrors:    make([]*BotError, 0, maxRecentErrors),
		MaxRecentErrors: maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	es.TotalErrors++
	es.ErrorsByKind[err.Kind]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the share of recorded errors that have the given kind
func (es *ErrorStats) GetErrorRate(kind Kind) float64 {
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByKind[kind]) / float64(es.TotalErrors)
}
