package game

import (
	"errors"
	"fmt"
)

// Engine error taxonomy.
var (
	// ErrInvalidInput is an unparseable or out-of-grammar chat command.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRuleViolation is a well-formed command the game state does not allow.
	ErrRuleViolation = errors.New("rule violation")
	// ErrInsufficientFunds is returned when a debit would overdraw a balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	ErrSessionNotFound  = errors.New("session not found")
	ErrNotInSession     = errors.New("user is not in a session")
	ErrAlreadyInSession = errors.New("user is already in a session")
	ErrCapacityExceeded = errors.New("session cannot be joined")

	ErrInventoryFull = errors.New("inventory is full")
	ErrItemNotFound  = errors.New("item not found")
)

// InputError carries a user-facing message for a recoverable error.
type InputError struct {
	Kind    error
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Kind
}

// Invalid builds an ErrInvalidInput with a user-facing message.
func Invalid(format string, args ...any) error {
	return &InputError{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Violation builds an ErrRuleViolation with a user-facing message.
func Violation(format string, args ...any) error {
	return &InputError{Kind: ErrRuleViolation, Message: fmt.Sprintf(format, args...)}
}

// Broke builds an ErrInsufficientFunds with a user-facing message.
func Broke(format string, args ...any) error {
	return &InputError{Kind: ErrInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

// IsRecoverable reports whether err should be shown to the user as a
// re-prompt instead of being treated as a failure.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrRuleViolation) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInventoryFull) ||
		errors.Is(err, ErrItemNotFound)
}

// UserMessage returns the message to show for a recoverable error.
func UserMessage(err error) string {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Message
	}
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "You too poor!"
	case errors.Is(err, ErrInventoryFull):
		return "Your inventory is full!"
	case errors.Is(err, ErrItemNotFound):
		return "That item doesn't exist!"
	case errors.Is(err, ErrNotInSession), errors.Is(err, ErrSessionNotFound):
		return "You are not in a game!"
	case errors.Is(err, ErrAlreadyInSession):
		return "You are already in a game!"
	case errors.Is(err, ErrCapacityExceeded):
		return "You can't join that game!"
	default:
		return "Something went wrong, try again later."
	}
}
