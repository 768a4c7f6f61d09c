package form

import (
	"fmt"

	"mmunblock/internal/services"
)

// ParseError reports a page that could not be turned into a usable model.
// It matches services.ErrValidation under errors.Is.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse page: %s: %v", e.Reason, e.Err)
	}
	return "parse page: " + e.Reason
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{services.ErrValidation, e.Err}
	}
	return []error{services.ErrValidation}
}
