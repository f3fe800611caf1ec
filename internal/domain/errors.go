package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidSymbol      = errors.New("invalid_symbol")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrInsufficientShares = errors.New("insufficient_shares")
	ErrQuoteUnavailable   = errors.New("quote_unavailable")
	ErrSymbolNotFound     = errors.New("symbol_not_found")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrUserAlreadyExists  = errors.New("user_already_exists")
	ErrCashConflict       = errors.New("cash_conflict")
	ErrStorage            = errors.New("storage_error")
	ErrOracleTransport    = errors.New("oracle_unavailable")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StorageError reports a failed ledger or account I/O operation. A commit
// that fails with a StorageError has left no partial state behind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

// Unwrap lets errors.Is match both ErrStorage and the underlying cause.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// OracleTransportError reports a price lookup that failed for reasons other
// than an unknown symbol, after all retry attempts were spent.
type OracleTransportError struct {
	Symbol   string
	Attempts int
	Err      error
}

func (e *OracleTransportError) Error() string {
	return fmt.Sprintf("quote %s: price lookup failed after %d attempt(s): %v", e.Symbol, e.Attempts, e.Err)
}

func (e *OracleTransportError) Unwrap() []error {
	return []error{ErrOracleTransport, e.Err}
}
