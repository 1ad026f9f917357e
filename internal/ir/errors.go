package ir

import (
	"errors"
	"fmt"
)

// Error is a domain error reported synchronously to the caller of an entry
// point. The operation that produced it left no state behind.
//
// Errors compare by Code, so callers match them with errors.Is against the
// sentinels below regardless of Message or Details:
//
//	if errors.Is(err, ir.ErrNotAllowed) { ... }
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Details contains additional context (addresses, amounts, ids).
	Details map[string]string

	// parent makes a narrower code match its broader category.
	parent *Error
}

// ErrorCode categorizes domain errors.
type ErrorCode string

const (
	CodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	CodeNotLegacyVault      ErrorCode = "NOT_LEGACY_VAULT"
	CodeNotAllowed          ErrorCode = "NOT_ALLOWED"
	CodeNotInitialized      ErrorCode = "NOT_INITIALIZED"
	CodeAlreadyFinalized    ErrorCode = "ALREADY_FINALIZED"
	CodeInvalidTarget       ErrorCode = "INVALID_TARGET"
	CodeZeroAmount          ErrorCode = "ZERO_AMOUNT"
	CodeInvalidIndex        ErrorCode = "INVALID_INDEX"
	CodeInvalidTier         ErrorCode = "INVALID_TIER"
	CodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	CodeNotFound            ErrorCode = "NOT_FOUND"
	CodeNotOwner            ErrorCode = "NOT_OWNER"
	CodeInvalidConfig       ErrorCode = "INVALID_CONFIG"
)

// Sentinels for errors.Is. Attach context with (*Error).With, which keeps
// the code so errors.Is still matches.
var (
	ErrUnauthorized        = &Error{Code: CodeUnauthorized, Message: "caller lacks required capability"}
	ErrNotLegacyVault      = &Error{Code: CodeNotLegacyVault, Message: "caller is not the legacy vault", parent: ErrUnauthorized}
	ErrNotAllowed          = &Error{Code: CodeNotAllowed, Message: "not allowed"}
	ErrNotInitialized      = &Error{Code: CodeNotInitialized, Message: "migration not initialized", parent: ErrNotAllowed}
	ErrAlreadyFinalized    = &Error{Code: CodeAlreadyFinalized, Message: "migration already finalized"}
	ErrInvalidTarget       = &Error{Code: CodeInvalidTarget, Message: "invalid registry target"}
	ErrZeroAmount          = &Error{Code: CodeZeroAmount, Message: "amount must be greater than zero"}
	ErrInvalidIndex        = &Error{Code: CodeInvalidIndex, Message: "invalid index"}
	ErrInvalidTier         = &Error{Code: CodeInvalidTier, Message: "invalid tier"}
	ErrInsufficientBalance = &Error{Code: CodeInsufficientBalance, Message: "insufficient balance"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrNotOwner            = &Error{Code: CodeNotOwner, Message: "caller does not own the record"}
	ErrInvalidConfig       = &Error{Code: CodeInvalidConfig, Message: "invalid configuration"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s %v", e.Code, e.Message, e.Details)
}

// Is matches on code, walking up to the broader category.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	for cur := e; cur != nil; cur = cur.parent {
		if cur.Code == t.Code {
			return true
		}
	}
	return false
}

// With returns a copy of the sentinel carrying a message and key/value details.
// kv must hold an even number of strings.
func (e *Error) With(message string, kv ...string) *Error {
	out := &Error{Code: e.Code, Message: e.Message, parent: e.parent}
	if message != "" {
		out.Message = message
	}
	if len(kv) > 0 {
		out.Details = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			out.Details[kv[i]] = kv[i+1]
		}
	}
	return out
}

// CodeOf extracts the error code, or "" for non-domain errors.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
