package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Funds errors
	ErrInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrUnknownUser       ErrorCode = "UNKNOWN_USER"

	// Session errors
	ErrNotAParticipant  ErrorCode = "NOT_A_PARTICIPANT"
	ErrDuplicateMove    ErrorCode = "DUPLICATE_MOVE"
	ErrSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrSessionExpired   ErrorCode = "SESSION_EXPIRED"
	ErrSessionVoided    ErrorCode = "SESSION_VOIDED"

	// Tournament errors
	ErrTournamentNotFound ErrorCode = "TOURNAMENT_NOT_FOUND"
	ErrTournamentFull     ErrorCode = "TOURNAMENT_FULL"
	ErrAlreadyJoined      ErrorCode = "ALREADY_JOINED"
	ErrNotCreator         ErrorCode = "NOT_TOURNAMENT_CREATOR"
	ErrBracketCorruption  ErrorCode = "BRACKET_CORRUPTION"

	// Action errors
	ErrInvalidState    ErrorCode = "INVALID_STATE"
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// System errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
	ErrDatabaseError ErrorCode = "DATABASE_ERROR"
)

// GameError represents an arena error with a stable code
type GameError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *GameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *GameError) Unwrap() error {
	return e.Err
}

// IsInternal reports whether the error signals a broken invariant rather
// than a failed precondition.
func (e *GameError) IsInternal() bool {
	switch e.Code {
	case ErrBracketCorruption, ErrInternalError, ErrDatabaseError:
		return true
	}
	return false
}

// NewGameError creates a new GameError
func NewGameError(code ErrorCode, message string) *GameError {
	return &GameError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a GameError
func WrapError(code ErrorCode, message string, err error) *GameError {
	return &GameError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsGameError checks if an error is (or wraps) a GameError with a specific code
func IsGameError(err error, code ErrorCode) bool {
	var gameErr *GameError
	if !As(err, &gameErr) {
		return false
	}
	return gameErr.Code == code
}

// CodeOf returns the code of the first GameError in the chain, or
// ErrInternalError for anything else.
func CodeOf(err error) ErrorCode {
	var gameErr *GameError
	if As(err, &gameErr) {
		return gameErr.Code
	}
	return ErrInternalError
}

// As finds the first GameError in err's chain
func As(err error, target **GameError) bool {
	if err == nil || target == nil {
		return false
	}
	return errors.As(err, target)
}
