package helper

import "fmt"

// NewError wraps err with a short description of the failed step.
// The result keeps err in its chain so errors.Is and errors.As still match.
func NewError(trace string, err error) error {
	return fmt.Errorf("%s: %w", trace, err)
}
