package calendar

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrHoliday          = errors.New("calendar: clinic closed on public holiday")
	ErrPastDate         = errors.New("calendar: date is in the past")
	ErrClosedDay        = errors.New("calendar: clinic closed on this day")
	ErrTooFarAhead      = errors.New("calendar: date beyond booking horizon")
	ErrUnknownTreatment = errors.New("calendar: unknown treatment")
	ErrSlotUnavailable  = errors.New("calendar: requested time not available")
	ErrCapacity         = errors.New("calendar: maximum active appointments reached")
	ErrNotFound         = errors.New("calendar: appointment not found")
	ErrInvalidInput     = errors.New("calendar: invalid date or time")
)

// SlotUnavailableError names the rejected time and the live alternatives.
type SlotUnavailableError struct {
	Requested    string
	Alternatives []string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("calendar: %s not available (alternatives: %s)", e.Requested, strings.Join(e.Alternatives, ", "))
}

func (e *SlotUnavailableError) Unwrap() error { return ErrSlotUnavailable }

// GatewayError wraps a failure of the calendar backend itself.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("calendar: %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsRuleViolation reports whether err is a business-rule rejection that the
// customer can fix by choosing another date.
func IsRuleViolation(err error) bool {
	return errors.Is(err, ErrHoliday) || errors.Is(err, ErrPastDate) ||
		errors.Is(err, ErrClosedDay) || errors.Is(err, ErrTooFarAhead)
}
