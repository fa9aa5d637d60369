package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes for the billing error envelope.
const (
	BillingErrorBadInput            = "BILLING_BAD_INPUT"
	BillingErrorNotFound            = "BILLING_NOT_FOUND"
	BillingErrorConflict            = "BILLING_CONFLICT"
	BillingErrorInsufficientCredits = "BILLING_INSUFFICIENT_CREDITS"
	BillingErrorQuotaExceeded       = "BILLING_QUOTA_EXCEEDED"
	BillingErrorInternal            = "BILLING_INTERNAL_ERROR"
)

func NewBadInputError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(BillingErrorBadInput)
}

func NewNotFoundError(message string) error {
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(BillingErrorNotFound)
}

func NewConflictError(message string) error {
	return goerrors.New(message, goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(BillingErrorConflict)
}

func NewInternalError(message string, source error) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(BillingErrorInternal)
	}
	return goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(BillingErrorInternal)
}

// NewInsufficientCreditsError is raised before any mutation when a
// consumption request exceeds the available balance. Required and available
// amounts ride along as metadata.
func NewInsufficientCreditsError(required float64, available float64) error {
	return goerrors.New(
		fmt.Sprintf("Insufficient credits. Required: %g, Available: %g", required, available),
		goerrors.CategoryOperation,
	).
		WithCode(http.StatusPaymentRequired).
		WithTextCode(BillingErrorInsufficientCredits).
		WithMetadata(map[string]any{
			"required_amount":  required,
			"available_amount": available,
		})
}

func IsInsufficientCredits(err error) bool {
	return textCode(err) == BillingErrorInsufficientCredits
}

func IsNotFound(err error) bool {
	return textCode(err) == BillingErrorNotFound
}

func IsBadInput(err error) bool {
	return textCode(err) == BillingErrorBadInput
}

func IsConflict(err error) bool {
	return textCode(err) == BillingErrorConflict
}

// InsufficientCreditsAmounts unpacks the required/available metadata from an
// insufficient-credits error. ok is false for any other error.
func InsufficientCreditsAmounts(err error) (required float64, available float64, ok bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != BillingErrorInsufficientCredits {
		return 0, 0, false
	}
	if rich.Metadata == nil {
		return 0, 0, false
	}
	required, _ = rich.Metadata["required_amount"].(float64)
	available, _ = rich.Metadata["available_amount"].(float64)
	return required, available, true
}

func textCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return strings.TrimSpace(rich.TextCode)
	}
	return ""
}
