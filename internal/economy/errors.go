package economy

import (
	"errors"
	"fmt"
)

// The three failure classes every operation can surface. All are synchronous
// and leave the input snapshot untouched.
var (
	// ErrValidation marks malformed or missing input (empty title, bad rating).
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks an actor lacking permission for a transition.
	ErrUnauthorized = errors.New("not permitted")

	// ErrInvariant marks a transition that would break lifecycle order,
	// balance sufficiency, or redemption uniqueness.
	ErrInvariant = errors.New("invariant violation")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

func invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
