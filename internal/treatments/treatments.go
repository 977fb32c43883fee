// Package treatments defines the clinic's bookable service vocabulary and the
// keyword tables used to recognize it in free text.
//
// The canonical codes are the ones the calendar knows durations for. Price
// list categories map onto them explicitly: "medical facial" stays
// medical_facial and "IPL"/photofacial phrasing becomes laser_treatment.
// Salon services (nails, lashes, slimming) are not bookable here and are not
// recognized as codes.
package treatments

import (
	"strings"
	"time"
)

// Code is a canonical treatment identifier.
type Code string

const (
	None           Code = ""
	Consultation   Code = "consultation"
	MedicalFacial  Code = "medical_facial"
	LaserTreatment Code = "laser_treatment"
	Botox          Code = "botox"
	Filler         Code = "filler"
	FollowUp       Code = "follow_up"
)

// Category pairs a code with the phrases that identify it.
type Category struct {
	Code     Code
	Phrases  []string
	Display  string
	Duration time.Duration
}

// Categories is ordered; the first category with a matching phrase wins.
var Categories = []Category{
	{
		Code:     FollowUp,
		Display:  "Follow-up",
		Duration: 30 * time.Minute,
		Phrases: []string{
			"follow up", "follow-up", "followup", "post treatment check", "post-treatment check",
			"review appointment", "check back", "folow up", "follw up", "see doctor again",
			"check up", "checkup",
		},
	},
	{
		Code:     Botox,
		Display:  "Botox",
		Duration: 30 * time.Minute,
		Phrases: []string{
			"botox", "botulinum", "anti-wrinkle", "anti wrinkle", "wrinkle injection", "wrinkle jab",
			"btx", "botx", "bottox", "botex", "dysport", "xeomin", "frown line", "crow's feet",
		},
	},
	{
		Code:     Filler,
		Display:  "Filler",
		Duration: 60 * time.Minute,
		Phrases: []string{
			"filler", "fillers", "dermal filler", "lip filler", "lip injection", "cheek filler",
			"juvederm", "restylane", "hyaluronic", "fillr", "filer", "fill lips", "lip plump",
		},
	},
	{
		Code:     LaserTreatment,
		Display:  "Laser Treatment",
		Duration: 60 * time.Minute,
		Phrases: []string{
			"laser", "lazer", "lasr", "pico", "ipl", "intense pulsed light", "photorejuvenation",
			"photo facial", "photofacial", "foto facial", "light therapy", "light treatment",
			"i.p.l", "i p l", "pigmentation removal", "face flash", "flash treatment",
		},
	},
	{
		Code:     MedicalFacial,
		Display:  "Medical Facial",
		Duration: 90 * time.Minute,
		Phrases: []string{
			"medical facial", "med facial", "medfacial", "medi facial", "medic facial", "facial",
			"fcial", "facil", "fasial", "fecial", "faycial", "fascial", "deep facial",
			"skin treatment", "skin facial", "face treatment", "face clean", "clean face",
			"face doctor clean", "face care", "skintx", "skintreat", "cleanface",
		},
	},
	{
		Code:     Consultation,
		Display:  "Consultation",
		Duration: 30 * time.Minute,
		Phrases: []string{
			"consultation", "consult", "konsult", "consultaion", "assessment", "skin analysis",
			"doctor see me", "see the doctor", "see doctor", "first visit",
		},
	},
}

var byCode = func() map[Code]Category {
	m := make(map[Code]Category, len(Categories))
	for _, c := range Categories {
		m[c.Code] = c
	}
	return m
}()

// Lookup returns the first category whose phrase appears in text.
func Lookup(text string) Code {
	lower := strings.ToLower(text)
	for _, c := range Categories {
		for _, phrase := range c.Phrases {
			if ContainsWord(lower, phrase) {
				return c.Code
			}
		}
	}
	return None
}

// ContainsWord reports whether phrase occurs in s starting at a word
// boundary, so "ipl" does not match inside "multiple". Both arguments are
// expected in lower case.
func ContainsWord(s, phrase string) bool {
	for from := 0; from <= len(s)-len(phrase); {
		idx := strings.Index(s[from:], phrase)
		if idx < 0 {
			return false
		}
		at := from + idx
		if at == 0 || !isWordByte(s[at-1]) {
			return true
		}
		from = at + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// Parse accepts a canonical code or any recognizable phrase.
func Parse(text string) (Code, bool) {
	key := Code(strings.ToLower(strings.TrimSpace(text)))
	key = Code(strings.ReplaceAll(string(key), " ", "_"))
	if _, ok := byCode[key]; ok {
		return key, true
	}
	if code := Lookup(text); code != None {
		return code, true
	}
	return None, false
}

// summaryFallbacks catches calendar titles that predate the current menu.
var summaryFallbacks = []struct {
	fragment string
	code     Code
}{
	{"injectable", Botox},
	{"toxin", Botox},
	{"lips", Filler},
	{"pigment", LaserTreatment},
	{"hair removal", LaserTreatment},
	{"peel", MedicalFacial},
	{"hydra", MedicalFacial},
	{"review", FollowUp},
	{"touch", FollowUp},
}

// Normalize maps a free-text calendar event summary onto the canonical
// vocabulary, defaulting to consultation.
func Normalize(summary string) Code {
	if code, ok := Parse(summary); ok {
		return code
	}
	lower := strings.ToLower(summary)
	for _, fb := range summaryFallbacks {
		if strings.Contains(lower, fb.fragment) {
			return fb.code
		}
	}
	return Consultation
}

// Valid reports whether c is a bookable code.
func (c Code) Valid() bool {
	_, ok := byCode[c]
	return ok
}

// Display returns the human-facing name, e.g. "Medical Facial".
func (c Code) Display() string {
	if cat, ok := byCode[c]; ok {
		return cat.Display
	}
	return strings.ReplaceAll(string(c), "_", " ")
}

// Duration returns the appointment length for c.
func (c Code) Duration() (time.Duration, bool) {
	cat, ok := byCode[c]
	if !ok {
		return 0, false
	}
	return cat.Duration, true
}

// All returns the canonical codes in table order.
func All() []Code {
	out := make([]Code, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, c.Code)
	}
	return out
}
