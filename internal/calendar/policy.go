package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

// DayHours represents the opening hours for a single day.
// Nil means the clinic is closed that day.
type DayHours struct {
	Open  string `json:"open"`  // "11:00" in 24-hour format
	Close string `json:"close"` // "20:00" in 24-hour format
}

// BusinessHours maps day names to their hours.
type BusinessHours struct {
	Monday    *DayHours `json:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty"`
}

// ForDay returns the hours for a given weekday.
func (b BusinessHours) ForDay(weekday time.Weekday) *DayHours {
	switch weekday {
	case time.Sunday:
		return b.Sunday
	case time.Monday:
		return b.Monday
	case time.Tuesday:
		return b.Tuesday
	case time.Wednesday:
		return b.Wednesday
	case time.Thursday:
		return b.Thursday
	case time.Friday:
		return b.Friday
	case time.Saturday:
		return b.Saturday
	default:
		return nil
	}
}

// DefaultBusinessHours: weekdays 11am-8pm, Saturday 11am-10pm, Sunday closed.
func DefaultBusinessHours() BusinessHours {
	weekday := &DayHours{Open: "11:00", Close: "20:00"}
	return BusinessHours{
		Monday:    weekday,
		Tuesday:   weekday,
		Wednesday: weekday,
		Thursday:  weekday,
		Friday:    weekday,
		Saturday:  &DayHours{Open: "11:00", Close: "22:00"},
	}
}

// DefaultHolidays are the Singapore public holidays for 2025.
var DefaultHolidays = []string{
	"2025-01-01", // New Year's Day
	"2025-01-29", // Chinese New Year
	"2025-01-30", // Chinese New Year
	"2025-03-31", // Hari Raya Puasa
	"2025-04-18", // Good Friday
	"2025-05-01", // Labour Day
	"2025-05-12", // Vesak Day
	"2025-06-07", // Hari Raya Haji
	"2025-08-09", // National Day
	"2025-10-20", // Deepavali
	"2025-12-25", // Christmas Day
}

// Policy holds the clinic's scheduling rules.
type Policy struct {
	Hours        BusinessHours
	SlotInterval time.Duration
	HorizonDays  int
	MaxActive    int
	Location     *time.Location
	holidays     map[string]bool
}

// NewPolicy returns the default rules in loc with the given holiday list.
func NewPolicy(loc *time.Location, holidays []string) Policy {
	if loc == nil {
		loc = time.UTC
	}
	p := Policy{
		Hours:        DefaultBusinessHours(),
		SlotInterval: 30 * time.Minute,
		HorizonDays:  90,
		MaxActive:    3,
		Location:     loc,
	}
	return p.WithHolidays(holidays)
}

// WithHolidays replaces the holiday list.
func (p Policy) WithHolidays(holidays []string) Policy {
	p.holidays = make(map[string]bool, len(holidays))
	for _, h := range holidays {
		if h = strings.TrimSpace(h); h != "" {
			p.holidays[h] = true
		}
	}
	return p
}

// IsHoliday reports whether the ISO date is a listed public holiday.
func (p Policy) IsHoliday(iso string) bool {
	return p.holidays[strings.TrimSpace(iso)]
}

// ParseDay parses an ISO date at midnight in the clinic's location.
func (p Policy) ParseDay(iso string) (time.Time, error) {
	day, err := datetime.ParseISO(iso, p.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return day, nil
}

// ValidateDate applies the date rules in order: holiday, past, horizon,
// closed weekday.
func (p Policy) ValidateDate(day, now time.Time) error {
	day = datetime.StartOfDay(day.In(p.Location))
	today := datetime.StartOfDay(now.In(p.Location))
	switch {
	case p.IsHoliday(datetime.ISODate(day)):
		return ErrHoliday
	case day.Before(today):
		return ErrPastDate
	case p.HorizonDays > 0 && day.After(today.AddDate(0, 0, p.HorizonDays)):
		return ErrTooFarAhead
	case p.Hours.ForDay(day.Weekday()) == nil:
		return ErrClosedDay
	}
	return nil
}

// Window returns opening and closing instants for day.
func (p Policy) Window(day time.Time) (time.Time, time.Time, bool) {
	hours := p.Hours.ForDay(day.Weekday())
	if hours == nil {
		return time.Time{}, time.Time{}, false
	}
	iso := datetime.ISODate(day)
	open, err := datetime.Combine(iso, hours.Open, p.Location)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	closing, err := datetime.Combine(iso, hours.Close, p.Location)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return open, closing, true
}

// Interval is a busy period on the calendar.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) overlaps(start, end time.Time) bool {
	return start.Before(i.End) && i.Start.Before(end)
}

// Slots lists the start times on day where a treatment of the given length
// fits inside opening hours without touching a busy interval. Starts at or
// before now are dropped.
func (p Policy) Slots(day time.Time, code treatments.Code, busy []Interval, now time.Time) ([]time.Time, error) {
	length, ok := code.Duration()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTreatment, code)
	}
	open, closing, ok := p.Window(day)
	if !ok {
		return nil, ErrClosedDay
	}
	step := p.SlotInterval
	if step <= 0 {
		step = 30 * time.Minute
	}

	var out []time.Time
	for start := open; !start.Add(length).After(closing); start = start.Add(step) {
		if !start.After(now) {
			continue
		}
		end := start.Add(length)
		free := true
		for _, b := range busy {
			if b.overlaps(start, end) {
				free = false
				break
			}
		}
		if free {
			out = append(out, start)
		}
	}
	return out, nil
}
