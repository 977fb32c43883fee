// Package datetime turns free-form customer text into canonical dates and
// times and formats them back for display.
package datetime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the canonical date representation stored in dialogue slots.
const ISOLayout = "2006-01-02"

// ErrFormat marks input that could not be parsed as a date or time.
var ErrFormat = errors.New("datetime: unrecognized format")

// FormatError describes an unparseable or out-of-range value.
type FormatError struct {
	Kind  string // "time" or "date"
	Input string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("datetime: cannot parse %s %q", e.Kind, e.Input)
}

func (e *FormatError) Unwrap() error { return ErrFormat }

var (
	meridiemWithMinutes = regexp.MustCompile(`(\d{1,2})[:.](\d{1,2})\s*([AP]M)`)
	meridiemHourOnly    = regexp.MustCompile(`(\d{1,2})\s*([AP]M)`)
	bareHour            = regexp.MustCompile(`^(\d{1,2})$`)
)

// NormalizeTime converts "14:30", "14.30", "2:30 PM", "2.30pm", "4 PM" or a
// bare hour such as "14" into canonical "HH:MM".
func NormalizeTime(text string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	if s == "" {
		return "", &FormatError{Kind: "time", Input: text}
	}
	hasMeridiem := strings.Contains(s, "AM") || strings.Contains(s, "PM")

	if !hasMeridiem {
		for _, sep := range []string{":", "."} {
			if !strings.Contains(s, sep) {
				continue
			}
			hour, minute, ok := splitClock(s, sep)
			if !ok {
				continue
			}
			if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
				return "", &FormatError{Kind: "time", Input: text}
			}
			return canonical(hour, minute), nil
		}
	}

	if m := meridiemWithMinutes.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 1 || hour > 12 || minute < 0 || minute > 59 {
			return "", &FormatError{Kind: "time", Input: text}
		}
		return canonical(to24(hour, m[3]), minute), nil
	}

	if m := meridiemHourOnly.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour < 1 || hour > 12 {
			return "", &FormatError{Kind: "time", Input: text}
		}
		return canonical(to24(hour, m[2]), 0), nil
	}

	if m := bareHour.FindStringSubmatch(s); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour > 23 {
			return "", &FormatError{Kind: "time", Input: text}
		}
		return canonical(hour, 0), nil
	}

	return "", &FormatError{Kind: "time", Input: text}
}

// ClockMinutes returns the minutes after midnight of a time expression
// accepted by NormalizeTime.
func ClockMinutes(text string) (int, error) {
	norm, err := NormalizeTime(text)
	if err != nil {
		return 0, err
	}
	hour, minute, _ := splitClock(norm, ":")
	return hour*60 + minute, nil
}

func splitClock(s, sep string) (int, int, bool) {
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return hour, minute, true
}

func to24(hour int, meridiem string) int {
	switch {
	case meridiem == "PM" && hour < 12:
		return hour + 12
	case meridiem == "AM" && hour == 12:
		return 0
	}
	return hour
}

func canonical(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// DisplayTime renders a time as "h:MM AM/PM". Input that cannot be
// normalized is returned unchanged.
func DisplayTime(text string) string {
	norm, err := NormalizeTime(text)
	if err != nil {
		return text
	}
	hour, _ := strconv.Atoi(norm[:2])
	minute, _ := strconv.Atoi(norm[3:])
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	switch {
	case hour == 0:
		hour = 12
	case hour > 12:
		hour -= 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, meridiem)
}

// DisplayDate renders an ISO date as DD/MM/YYYY. Invalid input is returned
// unchanged.
func DisplayDate(iso string) string {
	t, err := time.Parse(ISOLayout, strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}
