package shop

import (
	"fmt"
	"strconv"
	"strings"
)

// StepDirection is the spinner button pressed next to a cart quantity.
type StepDirection string

const (
	StepUp   StepDirection = "up"
	StepDown StepDirection = "down"
)

// ParseStepDirection validates a spinner direction.
func ParseStepDirection(raw string) (StepDirection, error) {
	switch dir := StepDirection(strings.ToLower(strings.TrimSpace(raw))); dir {
	case StepUp, StepDown:
		return dir, nil
	default:
		return "", fmt.Errorf("%w: unknown step direction %q", ErrInvalidInput, raw)
	}
}

// Step applies a spinner click. Increment always adds one; decrement stops at 1 because 0 is
// reserved for explicit removal.
func Step(current int, dir StepDirection) int {
	switch dir {
	case StepUp:
		return current + 1
	case StepDown:
		if current > 1 {
			return current - 1
		}
	}
	return current
}

// ParseQty parses a submitted quantity as an integer.
func ParseQty(raw string) (int, error) {
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, raw)
	}
	return qty, nil
}
