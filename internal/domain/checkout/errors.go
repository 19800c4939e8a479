package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrCheckoutNotFound      = errors.New("checkout not found")
	ErrRequestNotFound       = errors.New("checkout request not found")
	ErrChargeNotFound        = errors.New("charge not found")
	ErrFundsTransferNotFound = errors.New("funds transfer not found")
	ErrQuoteNotFound         = errors.New("asset quote not found")
	ErrAssetTransferNotFound = errors.New("asset transfer not found")
	ErrAccountNotFound       = errors.New("custodial account not found")
)

// ValidationError rejects input before any side effect happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
