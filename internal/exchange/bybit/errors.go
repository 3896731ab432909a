package bybit

import (
	"errors"
	"fmt"
)

// BybitError represents a Bybit API error with additional context
type BybitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *BybitError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Bybit API error %d: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Common Bybit error codes
const (
	ErrCodeInvalidAPIKey       = 10003
	ErrCodeInvalidSignature    = 10004
	ErrCodeInvalidTimestamp    = 10005
	ErrCodeRateLimitExceeded   = 10006
	ErrCodePermissionDenied    = 10010
	ErrCodeServerBusy          = 10016
	ErrCodeOrderNotFound       = 110001
	ErrCodeInvalidOrderType    = 110004
	ErrCodeInsufficientBalance = 110007
	ErrCodeSymbolNotFound      = 110009
	ErrCodeReduceOnlyRejected  = 110017
	ErrCodeInvalidQuantity     = 110020
	ErrCodeInvalidPrice        = 110021
	ErrCodeDuplicateOrderLink  = 110072
	ErrCodeMarketClosed        = 110043
)

// ErrorCodes maps common error codes to human-readable messages
var ErrorCodes = map[int]string{
	ErrCodeInvalidAPIKey:       "Invalid API key",
	ErrCodeInvalidSignature:    "Invalid signature",
	ErrCodeInvalidTimestamp:    "Invalid timestamp",
	ErrCodeRateLimitExceeded:   "Rate limit exceeded",
	ErrCodePermissionDenied:    "Permission denied",
	ErrCodeServerBusy:          "Server busy",
	ErrCodeOrderNotFound:       "Order not found",
	ErrCodeInvalidOrderType:    "Invalid order type",
	ErrCodeInsufficientBalance: "Insufficient balance",
	ErrCodeSymbolNotFound:      "Symbol not found",
	ErrCodeReduceOnlyRejected:  "Reduce-only order would increase position",
	ErrCodeInvalidQuantity:     "Invalid quantity",
	ErrCodeInvalidPrice:        "Invalid price",
	ErrCodeDuplicateOrderLink:  "Duplicate orderLinkId",
	ErrCodeMarketClosed:        "Market is closed",
}

// NewBybitError creates a new BybitError
func NewBybitError(code int, message string, details ...string) *BybitError {
	err := &BybitError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// ParseAPIError extracts error information from the API response
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return NewBybitError(retCode, retMsg)
}

// AsBybitError returns the *BybitError in err's chain, if any
func AsBybitError(err error) (*BybitError, bool) {
	var bybitErr *BybitError
	ok := errors.As(err, &bybitErr)
	return bybitErr, ok
}

// IsAuthenticationError checks if the error is related to authentication
func IsAuthenticationError(err error) bool {
	if bybitErr, ok := AsBybitError(err); ok {
		switch bybitErr.Code {
		case ErrCodeInvalidAPIKey, ErrCodeInvalidSignature, ErrCodeInvalidTimestamp, ErrCodePermissionDenied:
			return true
		}
	}
	return false
}

// IsRateLimitError checks if the error is due to rate limiting
func IsRateLimitError(err error) bool {
	bybitErr, ok := AsBybitError(err)
	return ok && bybitErr.Code == ErrCodeRateLimitExceeded
}

// IsServerBusyError reports the one API code that means the request never
// reached the matching engine
func IsServerBusyError(err error) bool {
	bybitErr, ok := AsBybitError(err)
	return ok && bybitErr.Code == ErrCodeServerBusy
}

// GetErrorDescription returns a human-readable description for an error code
func GetErrorDescription(code int) string {
	if desc, exists := ErrorCodes[code]; exists {
		return desc
	}
	return fmt.Sprintf("Unknown error code: %d", code)
}
