package unblock

import (
	"fmt"
	"strings"

	"mmunblock/internal/services"
)

// SubmissionError reports a transport or HTTP failure while posting the
// member form. The affected addresses were not confirmed either way.
type SubmissionError struct {
	Key       string
	Addresses []string
	Err       error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit key %s (%s): %v", e.Key, strings.Join(e.Addresses, ", "), e.Err)
}

func (e *SubmissionError) Unwrap() []error {
	return []error{services.ErrTransient, e.Err}
}
