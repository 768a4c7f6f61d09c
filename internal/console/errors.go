package console

import (
	"fmt"

	"mmunblock/internal/services"
)

// AuthError reports that the admin session could not be established. It is
// fatal for a run and matches services.ErrAuthentication under errors.Is.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authenticate: %s: %v", e.Reason, e.Err)
	}
	return "authenticate: " + e.Reason
}

func (e *AuthError) Unwrap() []error {
	if e.Err != nil {
		return []error{services.ErrAuthentication, e.Err}
	}
	return []error{services.ErrAuthentication}
}

// FetchError reports a request that failed at the transport level or was
// answered with a non-2xx status. It matches services.ErrTransient.
type FetchError struct {
	Method string
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
	default:
		return fmt.Sprintf("%s %s: request failed", e.Method, e.URL)
	}
}

func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{services.ErrTransient, e.Err}
	}
	return []error{services.ErrTransient}
}
