package dialogue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// turn carries everything known while handling a single message.
type turn struct {
	e          *Engine
	ctx        context.Context
	customerID string
	text       string
	now        time.Time
	today      time.Time
	ex         intent.Extraction
	st         *session.State
	log        *logging.Logger
}

func (t *turn) run() (Response, error) {
	if t.st != nil && t.st.Expired(t.now, t.e.timeout) {
		t.log.Info("dialogue session expired", "stage", t.st.Stage, "idle", t.now.Sub(t.st.Timestamp).String())
		return t.finish(templates.SessionTimeout, nil)
	}

	t.ex = intent.Extract(t.text, t.today)

	// Everything needed for a booking in one message wins over any stage.
	if t.ex.Slots.Complete() {
		return t.singleShot()
	}

	if t.ex.Intent == intent.View {
		return t.viewAppointments()
	}
	if action, n, ok := intent.ParseAppointmentRef(t.text); ok {
		return t.resolveReference(action, n)
	}

	if t.st != nil {
		if t.abandons() {
			t.log.Info("dialogue abandoned by customer", "stage", t.st.Stage)
			return t.finish(templates.BookingCanceled, nil)
		}
		return t.dispatch()
	}

	if t.ex.Slots.Count() == 1 && (t.ex.Intent == intent.None || t.ex.Intent == intent.Booking) {
		t.st = session.New(t.customerID, session.StageNone, t.now)
		t.st.Slots = t.ex.Slots
		return t.advance()
	}

	return t.fallback()
}

func (t *turn) singleShot() (Response, error) {
	slots := t.ex.Slots
	if key, bad := t.dateRejection(slots.Date); bad {
		return t.reply(key, t.ruleParams())
	}
	start, err := datetime.Combine(slots.Date, slots.Time, t.e.location())
	if err != nil {
		return t.reply(templates.TimeFormatError, nil)
	}
	if !start.After(t.now) {
		return t.reply(templates.PastDateError, nil)
	}
	if slots.Name == "" && t.st != nil {
		slots.Name = t.st.Slots.Name
	}
	t.st = session.New(t.customerID, session.StageNone, t.now)
	t.st.Slots = slots
	return t.confirm()
}

func (t *turn) fallback() (Response, error) {
	switch t.ex.Intent {
	case intent.Booking:
		return t.startBooking()
	case intent.Reschedule:
		return t.startSelection(session.StageSelectingReschedule)
	case intent.Cancel:
		return t.startSelection(session.StageSelectingCancel)
	case intent.None:
		if intent.WantsBooking(t.text) || t.ex.Slots.Count() >= 2 {
			return t.startBooking()
		}
	}
	return Response{Outcome: OutcomeNoMatch, Stage: session.StageNone}, nil
}

// startBooking opens an intake. With nothing known yet the customer gets
// the full booking format, which a single reply can satisfy.
func (t *turn) startBooking() (Response, error) {
	t.st = session.New(t.customerID, session.StageNone, t.now)
	t.st.Slots = t.ex.Slots
	if t.ex.Slots.Count() == 0 {
		return t.enter(session.StageWaitingForTreatment, templates.AppointmentBookingFormat, nil)
	}
	return t.advance()
}

// abandons reports a bare cancel or stop while details are being collected.
// The confirmation prompt reads its own yes and no.
func (t *turn) abandons() bool {
	switch t.st.Stage {
	case session.StageAwaitingConfirmation, session.StageNone:
		return false
	}
	if t.ex.Slots.Count() > 0 {
		return false
	}
	return t.ex.Intent == intent.Cancel || intent.ParseAnswer(t.text) == intent.No
}

func (t *turn) dispatch() (Response, error) {
	switch t.st.Stage {
	case session.StageWaitingForDate, session.StageWaitingForDateAfterTreatment:
		return t.onDate()
	case session.StageWaitingForTime:
		return t.onTime()
	case session.StageWaitingForName:
		return t.onName()
	case session.StageWaitingForTreatment, session.StageWaitingForTreatmentAfterDate:
		return t.onTreatment()
	case session.StageAwaitingConfirmation:
		return t.onConfirmation()
	case session.StageSelectingCancel, session.StageSelectingReschedule:
		return t.onSelection()
	case session.StageWaitingForRescheduleDate:
		return t.onRescheduleDate()
	case session.StageWaitingForRescheduleTime:
		return t.onRescheduleTime()
	}
	t.log.Warn("dialogue state has unknown stage, starting over", "stage", t.st.Stage)
	if err := t.clear(); err != nil {
		return Response{}, err
	}
	return t.fallback()
}

// dateRejection applies the clinic's date rules to an ISO date and returns
// the message key explaining a rejection.
func (t *turn) dateRejection(iso string) (templates.Key, bool) {
	if t.e.gateway.IsHoliday(iso) {
		return templates.PublicHolidayClosed, true
	}
	day, err := t.e.policy.ParseDay(iso)
	if err != nil {
		return templates.DateFormatError, true
	}
	if err := t.e.policy.ValidateDate(day, t.now); err != nil {
		return ruleKey(err), true
	}
	return "", false
}

func ruleKey(err error) templates.Key {
	switch {
	case errors.Is(err, calendar.ErrHoliday):
		return templates.PublicHolidayClosed
	case errors.Is(err, calendar.ErrPastDate):
		return templates.PastDateError
	case errors.Is(err, calendar.ErrTooFarAhead):
		return templates.DateTooFar
	case errors.Is(err, calendar.ErrClosedDay):
		return templates.ClinicClosed
	}
	return templates.DateFormatError
}

func (t *turn) ruleParams() templates.Params {
	return templates.Params{"Days": t.e.policy.HorizonDays}
}

func (t *turn) slotParams() templates.Params {
	s := t.st.Slots
	return templates.Params{
		"Treatment": s.Treatment.Display(),
		"Date":      datetime.DisplayDate(s.Date),
		"Time":      s.Time,
	}
}

func (t *turn) stage() session.Stage {
	if t.st == nil {
		return session.StageNone
	}
	return t.st.Stage
}

// enter moves the dialogue to stage, persists it and replies with key.
func (t *turn) enter(stage session.Stage, key templates.Key, params templates.Params) (Response, error) {
	t.st.Enter(stage, t.now)
	if err := t.e.states.Set(t.ctx, t.st); err != nil {
		return Response{}, fmt.Errorf("dialogue: failed to save state: %w", err)
	}
	return t.reply(key, params)
}

// rephrase keeps the current stage and slots and asks again.
func (t *turn) rephrase(key templates.Key, params templates.Params) (Response, error) {
	return t.enter(t.st.Stage, key, params)
}

// finish ends the dialogue and replies with key.
func (t *turn) finish(key templates.Key, params templates.Params) (Response, error) {
	if err := t.clear(); err != nil {
		return Response{}, err
	}
	return t.reply(key, params)
}

func (t *turn) clear() error {
	if t.st == nil {
		return nil
	}
	t.st = nil
	if err := t.e.states.Delete(t.ctx, t.customerID); err != nil {
		return fmt.Errorf("dialogue: failed to delete state: %w", err)
	}
	return nil
}

func (t *turn) reply(key templates.Key, params templates.Params) (Response, error) {
	text, err := t.e.renderer.Render(key, params)
	if err != nil {
		return Response{}, fmt.Errorf("dialogue: failed to render %s: %w", key, err)
	}
	return Response{Outcome: OutcomeReply, Key: key, Text: text, Stage: t.stage()}, nil
}

// gatewayFailure ends the dialogue with an apology so a broken calendar
// never leaves a customer stuck mid-flow.
func (t *turn) gatewayFailure(err error, key templates.Key) (Response, error) {
	t.log.Error("dialogue calendar call failed", "stage", t.stage(), "error", err)
	return t.finish(key, templates.Params{"Error": humanize(err)})
}
