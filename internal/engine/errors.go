package engine

import (
	"errors"
	"fmt"
)

// Code categorizes a rejected operation.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeAuctionClosed     Code = "AUCTION_CLOSED"
	CodeAlreadyHigherBid  Code = "ALREADY_HIGHER_BID"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeTooEarly          Code = "TOO_EARLY"
	CodeAlreadyEnded      Code = "ALREADY_ENDED"
	CodeNothingToWithdraw Code = "NOTHING_TO_WITHDRAW"
	CodeInvalidDuration   Code = "INVALID_DURATION"
	CodeInvalidIdentity   Code = "INVALID_IDENTITY"
)

// Error is a typed, recoverable rejection. A rejected call never mutates state.
type Error struct {
	Code      Code
	Message   string
	AuctionID string
	Identity  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.AuctionID != "" && e.Identity != "":
		return fmt.Sprintf("%s: %s (auction=%s, identity=%s)", e.Code, e.Message, e.AuctionID, e.Identity)
	case e.AuctionID != "":
		return fmt.Sprintf("%s: %s (auction=%s)", e.Code, e.Message, e.AuctionID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code, so the sentinels
// below match any error of their category via errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "auction not found"}
	ErrAuctionClosed     = &Error{Code: CodeAuctionClosed, Message: "auction is closed"}
	ErrAlreadyHigherBid  = &Error{Code: CodeAlreadyHigherBid, Message: "there already is a higher or equal bid"}
	ErrInvalidAmount     = &Error{Code: CodeInvalidAmount, Message: "amount must be positive"}
	ErrTooEarly          = &Error{Code: CodeTooEarly, Message: "auction deadline not reached"}
	ErrAlreadyEnded      = &Error{Code: CodeAlreadyEnded, Message: "auction already ended"}
	ErrNothingToWithdraw = &Error{Code: CodeNothingToWithdraw, Message: "nothing to withdraw"}
	ErrInvalidDuration   = &Error{Code: CodeInvalidDuration, Message: "invalid bidding duration"}
	ErrInvalidIdentity   = &Error{Code: CodeInvalidIdentity, Message: "identity is required"}
)

var (
	// ErrCorruptJournal is returned when replayed events contradict each other.
	ErrCorruptJournal = errors.New("journal is inconsistent")

	// ErrUnreconciled means a withdrawal was journaled as paid, the transfer
	// failed, and the compensating event could not be journaled either.
	ErrUnreconciled = errors.New("withdrawal recorded as paid but transfer failed")

	// ErrOverflow is returned when a bid would push held funds past int64.
	ErrOverflow = errors.New("amount overflow")
)

// CodeOf returns the Code of err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRejection reports whether err is a validation rejection rather than an
// infrastructure failure (journal, transfer).
func IsRejection(err error) bool {
	return CodeOf(err) != ""
}

func newError(code Code, auctionID, identity, format string, args ...any) *Error {
	return &Error{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		AuctionID: auctionID,
		Identity:  identity,
	}
}

// NotFound builds a NOT_FOUND error for id.
func NotFound(id string) *Error {
	return newError(CodeNotFound, id, "", "auction not found")
}

// InvalidDuration builds an INVALID_DURATION error.
func InvalidDuration(format string, args ...any) *Error {
	return newError(CodeInvalidDuration, "", "", format, args...)
}
