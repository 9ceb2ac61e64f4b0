package meter

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTierLimited  = errors.New("tier limited")
)

// TierLimitError is returned when a free device pushes only events of
// projects it may not track.
type TierLimitError struct {
	AllowedProject string
}

func (e *TierLimitError) Error() string {
	return fmt.Sprintf("free tier limited to 1 project (allowed: %s)", e.AllowedProject)
}

func (e *TierLimitError) Unwrap() error {
	return ErrTierLimited
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// DeviceIDPattern is lowercase hex of 8 to 64 characters.
var DeviceIDPattern = regexp.MustCompile(`^[a-f0-9]{8,64}$`)

func ValidDeviceID(id string) bool {
	return DeviceIDPattern.MatchString(id)
}
