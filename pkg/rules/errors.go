package rules

import "errors"

var (
	errEmptyPattern    = errors.New("path pattern is empty")
	errRelativePattern = errors.New("path pattern must start with /")
)

// InvalidRuleError is returned when a rule cannot be built from its spec.
type InvalidRuleError struct {
	Pattern string
	Err     error
}

func (e *InvalidRuleError) Error() string {
	if e.Pattern == "" {
		return "invalid proxy rule: " + e.Err.Error()
	}

	return "invalid proxy rule " + e.Pattern + ": " + e.Err.Error()
}

func (e *InvalidRuleError) Unwrap() error {
	return e.Err
}
