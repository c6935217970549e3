package models

import "errors"

// ValidationError marks user-input failures. Save boundaries map it to a 4xx
// response; everything else surfaces as a remote-operation error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
