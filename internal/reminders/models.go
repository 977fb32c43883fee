// Package reminders sends customers a WhatsApp reminder shortly before an
// appointment booked through the assistant.
package reminders

import (
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

// Status tracks the lifecycle of an appointment reminder.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Reminder is one scheduled message for one calendar appointment.
type Reminder struct {
	ID              uuid.UUID       `json:"id"`
	AppointmentID   string          `json:"appointment_id"`
	CustomerID      string          `json:"customer_id"`
	Treatment       treatments.Code `json:"treatment"`
	AppointmentDate string          `json:"appointment_date"` // ISO YYYY-MM-DD
	AppointmentTime string          `json:"appointment_time"` // display "h:MM AM/PM"
	StartsAt        time.Time       `json:"starts_at"`
	RemindAt        time.Time       `json:"remind_at"`
	Status          Status          `json:"status"`
	SentAt          *time.Time      `json:"sent_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Stats counts reminders per status.
type Stats struct {
	Pending   int64 `json:"pending"`
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}
