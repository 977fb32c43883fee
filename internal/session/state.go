// Package session keeps per-customer dialogue state and conversation
// history, and serializes work on a single customer.
package session

import (
	"context"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
)

// Stage is the step of the booking dialogue a customer is in.
type Stage string

const (
	StageNone                         Stage = ""
	StageWaitingForDate               Stage = "waiting_for_date"
	StageWaitingForTime               Stage = "waiting_for_time"
	StageWaitingForName               Stage = "waiting_for_name"
	StageWaitingForTreatment          Stage = "waiting_for_treatment"
	StageWaitingForTreatmentAfterDate Stage = "waiting_for_treatment_after_date"
	StageWaitingForDateAfterTreatment Stage = "waiting_for_date_after_treatment"
	StageAwaitingConfirmation         Stage = "awaiting_booking_confirmation"
	StageSelectingCancel              Stage = "selecting_appointment_to_cancel"
	StageSelectingReschedule          Stage = "selecting_appointment_to_reschedule"
	StageWaitingForRescheduleDate     Stage = "waiting_for_reschedule_date"
	StageWaitingForRescheduleTime     Stage = "waiting_for_reschedule_time"
)

// State is one customer's in-progress dialogue.
type State struct {
	CustomerID          string                 `json:"customer_id"`
	Stage               Stage                  `json:"stage"`
	Slots               intent.Slots           `json:"slots"`
	PendingAppointments []calendar.Appointment `json:"pending_appointments,omitempty"`
	SelectedAppointment *calendar.Appointment  `json:"selected_appointment,omitempty"`
	// SelectionErrors counts unusable replies in the current stage.
	SelectionErrors int       `json:"selection_errors,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// New returns a fresh state for customerID in stage.
func New(customerID string, stage Stage, now time.Time) *State {
	return &State{CustomerID: customerID, Stage: stage, Timestamp: now}
}

// Enter moves to stage and refreshes the timestamp. The error count only
// survives a re-prompt of the same stage.
func (s *State) Enter(stage Stage, now time.Time) {
	if stage != s.Stage {
		s.SelectionErrors = 0
	}
	s.Stage = stage
	s.Timestamp = now
}

// Touch refreshes the timestamp without changing stage.
func (s *State) Touch(now time.Time) {
	s.Timestamp = now
}

// Expired reports whether the state has been idle longer than timeout.
func (s *State) Expired(now time.Time, timeout time.Duration) bool {
	return timeout > 0 && now.Sub(s.Timestamp) > timeout
}

// StateStore persists dialogue state keyed by customer id. Get returns
// (nil, nil) when there is no state.
type StateStore interface {
	Get(ctx context.Context, customerID string) (*State, error)
	Set(ctx context.Context, state *State) error
	Delete(ctx context.Context, customerID string) error
	Count(ctx context.Context) (int, error)
}
