package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

// Slots holds the booking fields found in a single message. Date is ISO
// (YYYY-MM-DD) and Time is the display form ("3:00 PM").
type Slots struct {
	Treatment treatments.Code `json:"treatment_type,omitempty"`
	Date      string          `json:"date,omitempty"`
	Time      string          `json:"time,omitempty"`
	Name      string          `json:"customer_name,omitempty"`
}

// Complete reports whether treatment, date and time are all present.
func (s Slots) Complete() bool {
	return s.Treatment != treatments.None && s.Date != "" && s.Time != ""
}

// Count returns how many fields are set.
func (s Slots) Count() int {
	n := 0
	for _, set := range []bool{s.Treatment != treatments.None, s.Date != "", s.Time != "", s.Name != ""} {
		if set {
			n++
		}
	}
	return n
}

// Merge fills empty fields of s from other.
func (s Slots) Merge(other Slots) Slots {
	if s.Treatment == treatments.None {
		s.Treatment = other.Treatment
	}
	if s.Date == "" {
		s.Date = other.Date
	}
	if s.Time == "" {
		s.Time = other.Time
	}
	if s.Name == "" {
		s.Name = other.Name
	}
	return s
}

var (
	meridiemTimePattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?:[:.](\d{1,2}))?\s*([ap])\.?m\b`)
	atClockPattern      = regexp.MustCompile(`(?i)\bat\s+(\d{1,2}[:.]\d{2})\b`)
	numericDatePattern  = regexp.MustCompile(`\b(\d{1,4}[-/.]\d{1,2}[-/.]\d{1,4})\b`)
)

const nameWordPattern = `[\p{L}][\p{L}\p{M}'-]*`

var namePhrasePattern = nameWordPattern + `(?:\s+` + nameWordPattern + `){0,2}`

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is\s+(` + namePhrasePattern + `)`),
	regexp.MustCompile(`(?i)\bname\s*:\s*(` + namePhrasePattern + `)`),
	// "for X" only counts when X is capitalized, otherwise "for tomorrow"
	// would be a name.
	regexp.MustCompile(`\b[Ff]or\s+(\p{Lu}[\p{L}\p{M}'-]*(?:\s+\p{Lu}[\p{L}\p{M}'-]*)?)`),
}

// nameStopWords end a captured name.
var nameStopWords = map[string]bool{
	"at": true, "on": true, "for": true, "and": true, "please": true, "pls": true,
	"today": true, "tomorrow": true, "next": true, "the": true, "to": true, "i": true,
}

// ScanSlots looks for time, date, name and treatment fragments anywhere in
// text. It is independent of Classify.
func ScanSlots(text string, today time.Time) Slots {
	return Slots{
		Treatment: treatments.Lookup(text),
		Date:      scanDate(text, today),
		Time:      scanTime(text),
		Name:      scanName(text),
	}
}

func scanTime(text string) string {
	for _, m := range meridiemTimePattern.FindAllStringSubmatch(text, -1) {
		clock := m[1]
		if m[2] != "" {
			clock += ":" + m[2]
		}
		clock += " " + strings.ToUpper(m[3]) + "M"
		if norm, err := datetime.NormalizeTime(clock); err == nil {
			return datetime.DisplayTime(norm)
		}
	}
	for _, loc := range atClockPattern.FindAllStringSubmatchIndex(text, -1) {
		if continuesAsDate(text[loc[1]:]) {
			continue
		}
		if norm, err := datetime.NormalizeTime(text[loc[2]:loc[3]]); err == nil {
			return datetime.DisplayTime(norm)
		}
	}
	return ""
}

// continuesAsDate reports whether rest starts like the tail of a numeric
// date, so "at 10.12.2025" is not read as 10:12.
func continuesAsDate(rest string) bool {
	return len(rest) >= 2 && strings.ContainsRune("./-", rune(rest[0])) && rest[1] >= '0' && rest[1] <= '9'
}

func scanDate(text string, today time.Time) string {
	lower := strings.ToLower(text)
	for _, phrase := range datetime.RelativePhrases {
		if containsWhole(lower, phrase) {
			if d, ok := datetime.ParseDate(phrase, today); ok {
				return datetime.ISODate(d)
			}
		}
	}
	for _, candidate := range numericDatePattern.FindAllString(text, -1) {
		if d, ok := datetime.ParseDate(candidate, today); ok {
			return datetime.ISODate(d)
		}
	}
	return ""
}

func scanName(text string) string {
	for _, pattern := range namePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := trimName(m[1])
		if name == "" || treatments.Lookup(name) != treatments.None {
			continue
		}
		return name
	}
	return ""
}

func trimName(raw string) string {
	words := strings.Fields(raw)
	for i, w := range words {
		if nameStopWords[strings.ToLower(w)] {
			words = words[:i]
			break
		}
	}
	return strings.Join(words, " ")
}

// ParseStructured accepts the rigid multi-line booking format:
//
//	3:00 PM
//	25/12/2025
//	Botox
//	Jane Tan   (optional)
//
// Every line must parse for the result to count.
func ParseStructured(text string, today time.Time) (Slots, bool) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 3 || len(lines) > 4 {
		return Slots{}, false
	}

	norm, err := datetime.NormalizeTime(lines[0])
	if err != nil {
		return Slots{}, false
	}
	day, ok := datetime.ParseDate(lines[1], today)
	if !ok {
		return Slots{}, false
	}
	code, ok := treatments.Parse(lines[2])
	if !ok {
		return Slots{}, false
	}
	out := Slots{
		Treatment: code,
		Date:      datetime.ISODate(day),
		Time:      datetime.DisplayTime(norm),
	}
	if len(lines) == 4 {
		out.Name = lines[3]
	}
	return out, true
}

// Extraction is the combined result of classification and slot scanning.
type Extraction struct {
	Intent     Intent
	Treatment  treatments.Code
	Slots      Slots
	Structured bool
}

// Extract classifies text and merges its slot fragments. A structured
// multi-line message overrides the fragment scan.
func Extract(text string, today time.Time) Extraction {
	in, code := Classify(text)
	ex := Extraction{Intent: in, Treatment: code}
	if structured, ok := ParseStructured(text, today); ok {
		ex.Slots = structured
		ex.Structured = true
		return ex
	}
	ex.Slots = ScanSlots(text, today)
	if ex.Slots.Treatment == treatments.None {
		ex.Slots.Treatment = code
	}
	return ex
}

// Action is the verb of a numeric appointment reference.
type Action string

const (
	ActionCancel     Action = "cancel"
	ActionReschedule Action = "reschedule"
)

var appointmentRefPattern = regexp.MustCompile(`(?i)^\s*(cancel|reschedule)\s*#?\s*(\d{1,3})\s*[.!]?\s*$`)

// ParseAppointmentRef recognizes "cancel 2" or "reschedule 1". The index is
// 1-based as shown to the customer.
func ParseAppointmentRef(text string) (Action, int, bool) {
	m := appointmentRefPattern.FindStringSubmatch(text)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return Action(strings.ToLower(m[1])), n, true
}
