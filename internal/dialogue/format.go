package dialogue

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
)

func formatAppointments(appts []calendar.Appointment) string {
	lines := make([]string, 0, len(appts))
	for i, a := range appts {
		lines = append(lines, fmt.Sprintf("%d. %s on %s at %s", i+1, a.Treatment.Display(), datetime.DisplayDate(a.Date), a.Time))
	}
	return strings.Join(lines, "\n")
}

func formatSlots(slots []string) string {
	lines := make([]string, 0, len(slots))
	for _, s := range slots {
		lines = append(lines, "- "+s)
	}
	return strings.Join(lines, "\n")
}

func appointmentParams(a calendar.Appointment) templates.Params {
	return templates.Params{
		"Treatment": a.Treatment.Display(),
		"Date":      datetime.DisplayDate(a.Date),
		"Time":      a.Time,
	}
}

// displayDuration renders 90m as "1 hour 30 minutes".
func displayDuration(d time.Duration) string {
	total := int(d.Round(time.Minute) / time.Minute)
	hours, minutes := total/60, total%60
	var parts []string
	switch {
	case hours == 1:
		parts = append(parts, "1 hour")
	case hours > 1:
		parts = append(parts, fmt.Sprintf("%d hours", hours))
	}
	if minutes > 0 || hours == 0 {
		parts = append(parts, fmt.Sprintf("%d minutes", minutes))
	}
	return strings.Join(parts, " ")
}

// humanize turns a calendar error into something safe to show a customer.
func humanize(err error) string {
	var gwErr *calendar.GatewayError
	switch {
	case errors.As(err, &gwErr):
		return "our booking calendar is not responding right now"
	case errors.Is(err, calendar.ErrNotFound):
		return "that appointment could not be found"
	case errors.Is(err, calendar.ErrInvalidInput):
		return "the date or time was not valid"
	case errors.Is(err, calendar.ErrUnknownTreatment):
		return "that treatment cannot be booked online"
	case errors.Is(err, calendar.ErrCapacity):
		return "you have reached the maximum number of upcoming appointments"
	}
	return "something went wrong on our side"
}
