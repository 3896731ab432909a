package binance

import (
	"errors"
	"fmt"

	"github.com/adshao/go-binance/v2/common"
)

// Binance futures error codes the adapter distinguishes
const (
	CodeDisconnected        = -1001
	CodeTooManyRequests     = -1003
	CodeTimestampOutside    = -1021
	CodeInvalidSymbol       = -1121
	CodeInvalidAPIKey       = -2014
	CodeRejectedAPIKey      = -2015
	CodeMarginInsufficient  = -2019
	CodeReduceOnlyRejected  = -2022
	CodeDuplicateClientID   = -4116
	CodeImmediateTrigger    = -2021
	CodeServiceUnavailable  = -1016
	CodeUnexpectedResponse  = -1006
	CodeOverloaded          = -1008
	CodeInvalidQuantityPrec = -1111
)

// ErrSymbolNotFound returns an API error for an unknown symbol
func ErrSymbolNotFound(symbol string) error {
	return &common.APIError{Code: CodeInvalidSymbol, Message: fmt.Sprintf("Invalid symbol %s", symbol)}
}

// AsAPIError returns the *common.APIError in err's chain, if any
func AsAPIError(err error) (*common.APIError, bool) {
	var apiErr *common.APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// IsAuthError reports key, signature and clock failures
func IsAuthError(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case CodeInvalidAPIKey, CodeRejectedAPIKey, CodeTimestampOutside:
		return true
	}
	return false
}

// IsUnavailable reports codes returned before the request reached the
// matching engine
func IsUnavailable(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case CodeDisconnected, CodeServiceUnavailable, CodeOverloaded:
		return true
	}
	return false
}
