package tally

import (
	"errors"
	"fmt"

	"github.com/xraph/tally/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tally: not found")
	ErrAlreadyExists = errors.New("tally: already exists")
	ErrInvalidInput  = errors.New("tally: invalid input")

	// Deployment errors
	ErrInvalidConfiguration = errors.New("tally: invalid configuration")
	ErrTokenNotFound        = errors.New("tally: token not found")

	// Transfer errors
	ErrInsufficientFunds = errors.New("tally: insufficient funds")
	ErrInvalidRecipient  = errors.New("tally: invalid recipient")
	ErrInvalidSender     = errors.New("tally: invalid sender")
	ErrOverflow          = types.ErrOverflow

	// Store errors
	ErrStorageFailure = errors.New("tally: storage failure")
	ErrCorruptLog     = errors.New("tally: corrupt transfer log")
	ErrLedgerClosed   = errors.New("tally: ledger is closed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tally: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "tally: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tally: %d errors occurred: %v", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// InsufficientFundsError carries the balances involved in a refused
// transfer. It matches ErrInsufficientFunds.
type InsufficientFundsError struct {
	Address types.Address
	Balance types.Amount
	Amount  types.Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("tally: insufficient funds: %s holds %s, transfer needs %s", e.Address, e.Balance, e.Amount)
}

// Is reports whether target is ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// StorageError wraps a backend failure. It matches ErrStorageFailure and
// unwraps to the backend error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("tally: storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorageFailure.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailure
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTokenNotFound)
}

// IsRejection returns true for business rejections of a transfer. These are
// final: retrying the same call fails the same way.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidRecipient) ||
		errors.Is(err, ErrInvalidSender) ||
		errors.Is(err, ErrOverflow)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageFailure) && !errors.Is(err, ErrCorruptLog)
}
