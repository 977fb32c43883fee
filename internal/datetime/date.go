package datetime

import (
	"strings"
	"time"
)

// relativeDays maps the literal phrases we accept to a day offset from today.
// "next week" is a flat +7 days, not the next occurrence of a weekday.
var relativeDays = map[string]int{
	"today":                  0,
	"tomorrow":               1,
	"day after tomorrow":     2,
	"the day after tomorrow": 2,
	"next week":              7,
}

// RelativePhrases lists the relative date phrases, longest first, so that
// scanners match "the day after tomorrow" before "tomorrow".
var RelativePhrases = []string{
	"the day after tomorrow",
	"day after tomorrow",
	"next week",
	"tomorrow",
	"today",
}

// dateLayouts are tried in order; the first successful parse wins.
// Day-first layouts come before month-first ones.
var dateLayouts = []string{
	"2-1-2006", // DD-MM-YYYY
	"2006-1-2", // YYYY-MM-DD
	"2/1/2006", // DD/MM/YYYY
	"1/2/2006", // MM/DD/YYYY
	"2.1.2006", // DD.MM.YYYY
	"2006.1.2", // YYYY.MM.DD
}

// ParseDate interprets text relative to today and returns midnight of the
// resulting calendar day in today's location.
func ParseDate(text string, today time.Time) (time.Time, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return time.Time{}, false
	}
	base := StartOfDay(today)
	if offset, ok := relativeDays[s]; ok {
		return base.AddDate(0, 0, offset), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, today.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ISODate formats t as YYYY-MM-DD.
func ISODate(t time.Time) string {
	return t.Format(ISOLayout)
}

// ParseISO parses a YYYY-MM-DD date in loc.
func ParseISO(iso string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(ISOLayout, strings.TrimSpace(iso), loc)
	if err != nil {
		return time.Time{}, &FormatError{Kind: "date", Input: iso}
	}
	return t, nil
}

// Combine joins an ISO date and any accepted time expression into an instant
// in loc.
func Combine(iso, clock string, loc *time.Location) (time.Time, error) {
	day, err := ParseISO(iso, loc)
	if err != nil {
		return time.Time{}, err
	}
	norm, err := NormalizeTime(clock)
	if err != nil {
		return time.Time{}, err
	}
	parsed, err := time.Parse("15:04", norm)
	if err != nil {
		return time.Time{}, &FormatError{Kind: "time", Input: clock}
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, day.Location()), nil
}
