package guard

import (
	"errors"
	"fmt"

	"github.com/raaihank/packlist-sanitizer/internal/resolver"
)

// ErrLeakageDetected is wrapped by every LeakageError.
var ErrLeakageDetected = errors.New("confidential data detected in output")

// LeakageError reports a fact string that still looks confidential.
// Value holds the offending string and must never be logged or returned
// to a client; Error() leaves it out.
type LeakageError struct {
	Slot  resolver.Slot
	Field string // confidential field whose rule or value matched
	Rule  string // matching pattern, empty for value containment
	Value string
}

func (e *LeakageError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("%s: %s contains a detected %s value", ErrLeakageDetected, e.Slot, e.Field)
	}
	return fmt.Sprintf("%s: %s matches %s rule", ErrLeakageDetected, e.Slot, e.Field)
}

func (e *LeakageError) Unwrap() error {
	return ErrLeakageDetected
}
