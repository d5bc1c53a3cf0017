package chatbots

import (
	"errors"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Validation errors (400).
var (
	ErrNameRequired    = errors.New("chatbot name is required")
	ErrAccountRequired = errors.New("account id is required")
	ErrExternalID      = errors.New("account external id is required")
	ErrInvalidMode     = domain.ErrInvalidMode
)

// ErrDuplicateName is returned when an account already has a chatbot with the name (409).
var ErrDuplicateName = errors.New("a chatbot with this name already exists for the account")

// IsValidationError reports whether err is caused by bad input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNameRequired) ||
		errors.Is(err, ErrAccountRequired) ||
		errors.Is(err, ErrExternalID) ||
		errors.Is(err, ErrInvalidMode)
}

// IsConflictError reports whether err conflicts with stored state.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrDuplicateName)
}

// IsNotFound reports whether err is a missing chatbot or account.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrChatbotNotFound) || errors.Is(err, domain.ErrAccountNotFound)
}
