// Package calendar answers availability questions and books, cancels and
// reschedules appointments against an event calendar.
package calendar

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

// Appointment is a customer's booked calendar entry as shown in chat.
type Appointment struct {
	ID             string          `json:"id"`
	Treatment      treatments.Code `json:"treatment"`
	Date           string          `json:"date"` // ISO YYYY-MM-DD
	Time           string          `json:"time"` // display "h:MM AM/PM"
	Duration       time.Duration   `json:"duration"`
	CustomerName   string          `json:"customer_name"`
	CustomerNumber string          `json:"customer_number"`
	Start          time.Time       `json:"start"`
}

// BookingRequest carries everything needed to create an appointment.
type BookingRequest struct {
	Name       string
	CustomerID string
	Date       string // ISO
	Time       string // any accepted time expression
	Treatment  treatments.Code
}

// Booking is the confirmation returned by Book and Reschedule.
type Booking struct {
	ID        string
	Treatment treatments.Code
	Date      string
	Time      string
	Duration  time.Duration
	Start     time.Time
	Link      string
}

// Gateway is the calendar surface the dialogue engine depends on. Every
// method may fail; failures are typed (see errors.go).
type Gateway interface {
	AvailableSlots(ctx context.Context, date string, treatment treatments.Code) ([]string, error)
	Book(ctx context.Context, req BookingRequest) (*Booking, error)
	Cancel(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id, newDate, newTime string) (*Booking, error)
	ListAppointments(ctx context.Context, customerID string, futureOnly bool) ([]Appointment, error)
	IsHoliday(date string) bool
}
