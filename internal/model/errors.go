package model

import (
	"errors"
	"strings"
)

var (
	// ErrInsufficientBalance means the wallet cannot cover the trade plus the reserve.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrSlippageExceeded means the swap output fell below the minimum accepted.
	ErrSlippageExceeded = errors.New("slippage exceeded")
	// ErrExternalService covers any other quote, swap or balance failure.
	ErrExternalService = errors.New("external service failure")
	// ErrSizingNoop means the tradeable amount is not worth a swap. Not a real failure.
	ErrSizingNoop = errors.New("amount below worthwhile threshold")
	// ErrConfigurationMissing means the token pair has not been resolved.
	ErrConfigurationMissing = errors.New("token identifiers not resolved")
)

// ErrorKind is the classification reported to observers.
type ErrorKind string

const (
	KindInsufficientBalance  ErrorKind = "insufficient_balance"
	KindSlippageExceeded     ErrorKind = "slippage_exceeded"
	KindExternalService      ErrorKind = "external_service_failure"
	KindSizingNoop           ErrorKind = "sizing_noop"
	KindConfigurationMissing ErrorKind = "configuration_missing"
)

// Classify maps an error onto the failure taxonomy. Errors that do not wrap a
// known sentinel are matched on their text, since collaborators may return opaque errors.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrSlippageExceeded):
		return KindSlippageExceeded
	case errors.Is(err, ErrSizingNoop):
		return KindSizingNoop
	case errors.Is(err, ErrConfigurationMissing):
		return KindConfigurationMissing
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient"):
		return KindInsufficientBalance
	case strings.Contains(msg, "slippage"):
		return KindSlippageExceeded
	default:
		return KindExternalService
	}
}
