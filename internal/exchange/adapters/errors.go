package adapters

import (
	"context"
	"errors"

	boterrors "github.com/ducminhle1904/bracket-webhook-bot/internal/errors"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
)

// transportOrUnknown classifies an error that carries no API code. Context
// errors pass through untouched so callers can still match them.
func transportOrUnknown(venue string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if boterrors.IsTransient(err) {
		return &exchange.ExchangeError{
			Code:        exchange.ErrConnectionFailed.Code,
			Message:     venue + " request failed in transport",
			Details:     err.Error(),
			Kind:        exchange.ErrorKindTransport,
			IsRetryable: true,
			Cause:       err,
		}
	}

	return &exchange.ExchangeError{
		Code:    "UNKNOWN_ERROR",
		Message: "Unknown error from " + venue,
		Details: err.Error(),
		Kind:    exchange.ErrorKindRejected,
		Cause:   err,
	}
}
