// Package compliance holds the messaging rules that protect customers:
// marketing quiet hours, promotion opt-out keywords and card number
// redaction.
package compliance

import (
	"fmt"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
)

// Purpose distinguishes transactional vs marketing messages.
type Purpose string

const (
	PurposeTransactional Purpose = "transactional"
	PurposeMarketing     Purpose = "marketing"
)

// QuietHours is a daily window, in clinic local time, when marketing sends
// are held back. The zero value never suppresses.
type QuietHours struct {
	start    int // minutes after midnight
	end      int
	location *time.Location
	enabled  bool
}

// ParseQuietHours builds a window from two time expressions such as "21:00"
// or "9pm". A window may cross midnight.
func ParseQuietHours(start, end string, loc *time.Location) (QuietHours, error) {
	if loc == nil {
		loc = time.UTC
	}
	startMin, err := datetime.ClockMinutes(start)
	if err != nil {
		return QuietHours{}, fmt.Errorf("compliance: parse quiet hours start: %w", err)
	}
	endMin, err := datetime.ClockMinutes(end)
	if err != nil {
		return QuietHours{}, fmt.Errorf("compliance: parse quiet hours end: %w", err)
	}
	return QuietHours{start: startMin, end: endMin, location: loc, enabled: startMin != endMin}, nil
}

// Suppress reports whether a message of the given purpose must not be sent
// at now.
func (q QuietHours) Suppress(now time.Time, purpose Purpose) bool {
	if !q.enabled || purpose != PurposeMarketing {
		return false
	}
	local := now.In(q.location)
	minutes := local.Hour()*60 + local.Minute()
	if q.start < q.end {
		return minutes >= q.start && minutes < q.end
	}
	return minutes >= q.start || minutes < q.end
}

func (q QuietHours) String() string {
	if !q.enabled {
		return "off"
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", q.start/60, q.start%60, q.end/60, q.end%60)
}
