// Package intent classifies customer messages and pulls booking fragments
// (treatment, date, time, name) out of free text.
package intent

import (
	"strings"

	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

// Intent is the classified purpose of a message.
type Intent string

const (
	None       Intent = "none"
	Booking    Intent = "booking"
	Reschedule Intent = "reschedule"
	View       Intent = "view"
	Cancel     Intent = "cancel"
	Info       Intent = "info"
)

// priceTerms are matched as whole words so "feel" is not read as "fee".
var priceTerms = []string{
	"price", "prices", "pricing", "cost", "costs", "fee", "fees", "how much", "charge", "charges",
}

var bookingTriggers = []string{
	"book", "schedule", "make appointment", "make an appointment", "get appointment",
	"get an appointment", "reserve", "set up", "appointment for", "booking for",
	"set appointment", "arrange", "sign up for", "register for", "want appointment",
	"need appointment", "like to come in", "slot", "visit", "secure appointment",
	"boook", "buk", "schedual", "skedule", "scedule", "apointment", "apoiment", "appt",
	"reserv", "arrang", "make time", "fix time", "come clinic", "time book",
	"booktime", "bookdoc", "makeappt", "fixappt", "bookvisit",
}

var expressionPhrases = []string{
	"i want", "i need", "i would like", "i'd like", "can i", "could i", "may i",
	"looking to", "trying to", "hoping to", "wish to", "interested in", "planning to",
	"please book", "please schedule", "help me book", "help me schedule",
	"i wnat", "i ned", "i woud like", "culd i", "cud i", "intrested",
	"me want", "want to", "need to", "like to", "me need", "me like", "me book",
	"want book", "need book", "wanna", "gonna", "lemme", "pls", "plz", "i wnt",
}

var rescheduleTriggers = []string{
	"reschedule", "change appointment", "change my appointment", "modify appointment",
	"move appointment", "move my appointment", "postpone", "change the date",
	"change the time", "different date", "different time", "different day",
	"shift appointment", "can't make it", "cant make it", "bring forward",
	"reshedule", "reschedul", "resch", "chang appt", "postpon", "diferent date",
	"diferent time", "change time", "change day", "move day", "other day", "other time",
	"changeappt", "moveappt", "newtime",
}

var viewTriggers = []string{
	"view my", "see my appointment", "see my booking", "show my", "check my appointment",
	"check my booking", "my appointments", "my bookings", "my schedule",
	"list appointment", "list my", "upcoming appointment", "upcoming appt",
	"appointment status", "booking status", "when is my next", "what appointments do i have",
	"what have i booked", "what i book", "veiw", "myappt", "myappts", "nextappt", "viewappt",
}

var cancelTriggers = []string{
	"cancel", "delete my appointment", "remove my appointment", "no longer need",
	"don't need", "dont need", "can't attend", "cant attend", "unable to attend",
	"drop my appointment", "withdraw booking", "cancle", "cansel", "cancl", "canc",
	"not coming", "no come", "not come", "noshow", "cancelappt", "delappt",
}

// Classify returns the message intent and any treatment it mentions.
// Precedence, first match wins: price question, booking (trigger plus
// expression plus treatment), reschedule, view, cancel, treatment alone.
func Classify(text string) (Intent, treatments.Code) {
	lower := strings.ToLower(text)
	code := treatments.Lookup(lower)

	switch {
	case anyWhole(lower, priceTerms):
		return Info, code
	case code != treatments.None && anyPhrase(lower, bookingTriggers) && anyPhrase(lower, expressionPhrases):
		return Booking, code
	case anyPhrase(lower, rescheduleTriggers):
		return Reschedule, treatments.None
	case anyPhrase(lower, viewTriggers):
		return View, treatments.None
	case anyPhrase(lower, cancelTriggers):
		return Cancel, treatments.None
	case code != treatments.None:
		return Info, code
	}
	return None, treatments.None
}

// WantsBooking reports a request to book that may not name a treatment yet,
// such as "I want to make an appointment".
func WantsBooking(text string) bool {
	lower := strings.ToLower(text)
	return !anyWhole(lower, priceTerms) && anyPhrase(lower, bookingTriggers) && anyPhrase(lower, expressionPhrases)
}

func anyPhrase(lower string, phrases []string) bool {
	for _, p := range phrases {
		if treatments.ContainsWord(lower, p) {
			return true
		}
	}
	return false
}

func anyWhole(lower string, phrases []string) bool {
	for _, p := range phrases {
		if containsWhole(lower, p) {
			return true
		}
	}
	return false
}

// containsWhole reports whether phrase occurs in s bounded by non-word
// characters on both sides.
func containsWhole(s, phrase string) bool {
	for from := 0; from <= len(s)-len(phrase); {
		idx := strings.Index(s[from:], phrase)
		if idx < 0 {
			return false
		}
		at := from + idx
		end := at + len(phrase)
		if (at == 0 || !isWordByte(s[at-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		from = at + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '\''
}
