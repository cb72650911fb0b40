// Package ledgererr defines the rejection kinds returned by ledger operations.
//
// Every rejected operation returns an *Error carrying a stable Code. Callers
// match on kind with errors.Is against the exported sentinels; the match is by
// code, so errors enriched with metadata still compare equal to their sentinel.
package ledgererr

import "errors"

// Code is a machine-readable rejection kind.
type Code string

const (
	CodeUnauthorized                  Code = "UNAUTHORIZED"
	CodeInsufficientBalance           Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientAllowance         Code = "INSUFFICIENT_ALLOWANCE"
	CodeRecipientBlacklisted          Code = "RECIPIENT_BLACKLISTED"
	CodeTransferLimitExceeded         Code = "TRANSFER_LIMIT_EXCEEDED"
	CodeBelowMinimumWalletHolding     Code = "BELOW_MINIMUM_WALLET_HOLDING"
	CodeAboveMaximumWalletHolding     Code = "ABOVE_MAXIMUM_WALLET_HOLDING"
	CodeDailyTransactionLimitExceeded Code = "DAILY_TRANSACTION_LIMIT_EXCEEDED"
	CodeInvalidAddress                Code = "INVALID_ADDRESS"
)

// Error is a ledger rejection with structured context.
type Error struct {
	Code     Code              // Machine-readable kind
	Message  string            // Stable human-readable reason
	Metadata map[string]string // Amounts, addresses and thresholds involved
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a rejection with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates a rejection that carries context for logs.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Sentinels for errors.Is matching. Messages follow the deployed token's revert reasons.
var (
	ErrUnauthorized                  = New(CodeUnauthorized, "Caller is not the owner")
	ErrInsufficientBalance           = New(CodeInsufficientBalance, "Insufficient balance")
	ErrInsufficientAllowance         = New(CodeInsufficientAllowance, "Insufficient allowance")
	ErrRecipientBlacklisted          = New(CodeRecipientBlacklisted, "Recipient is blacklisted")
	ErrTransferLimitExceeded         = New(CodeTransferLimitExceeded, "Transfer amount exceeds the limit")
	ErrBelowMinimumWalletHolding     = New(CodeBelowMinimumWalletHolding, "Amount below minimum per wallet")
	ErrAboveMaximumWalletHolding     = New(CodeAboveMaximumWalletHolding, "Amount exceeds maximum per wallet")
	ErrDailyTransactionLimitExceeded = New(CodeDailyTransactionLimitExceeded, "Daily transaction limit exceeded")
	ErrInvalidAddress                = New(CodeInvalidAddress, "Invalid address")
)

// Reject returns a copy of sentinel with metadata attached.
func Reject(sentinel *Error, metadata map[string]string) *Error {
	return WithMetadata(sentinel.Code, sentinel.Message, metadata)
}

// CodeOf returns the rejection code carried by err, or "" if err is not a ledger rejection.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
