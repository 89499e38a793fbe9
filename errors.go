package gmxsdk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedChain is returned when the configured chain has no
	// contract map entry.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrAmbiguousSwapPath is returned when a swap path cannot be derived
	// without guessing. The caller must supply the path explicitly.
	ErrAmbiguousSwapPath = errors.New("swap path is ambiguous, supply it explicitly")
)

// MissingFieldError reports every required field that was absent from a
// request and could not be derived. Fields are named as the caller supplies
// them.
type MissingFieldError struct {
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Names reports whether the error covers the given field.
func (e *MissingFieldError) Names(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// CollateralTooLowError rejects an increase order whose collateral is worth
// less than the venue minimum. Raised before any on-chain call.
type CollateralTooLowError struct {
	CollateralUSD decimal.Decimal
	MinimumUSD    decimal.Decimal
}

func (e *CollateralTooLowError) Error() string {
	return fmt.Sprintf("collateral worth %s USD is below the %s USD minimum",
		e.CollateralUSD.StringFixed(4), e.MinimumUSD.String())
}

// LeverageExceededError rejects a position order whose implied leverage is
// above the venue maximum. Raised before any on-chain call.
type LeverageExceededError struct {
	Implied decimal.Decimal
	Maximum decimal.Decimal
}

func (e *LeverageExceededError) Error() string {
	return fmt.Sprintf("implied leverage %sx exceeds the venue maximum %sx",
		e.Implied.StringFixed(2), e.Maximum.String())
}

// PriceUnavailableError is returned when the oracle snapshot has no entry for
// the token the order prices against.
type PriceUnavailableError struct {
	TokenAddr string
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("no oracle price for token %s", e.TokenAddr)
}

// SubmissionFailedError wraps a gateway rejection of a broadcast. The core
// never retries a write; resubmitting with a fresh nonce is the caller's
// decision.
type SubmissionFailedError struct {
	Err error
}

func (e *SubmissionFailedError) Error() string {
	return fmt.Sprintf("transaction submission failed: %v", e.Err)
}

func (e *SubmissionFailedError) Unwrap() error {
	return e.Err
}
