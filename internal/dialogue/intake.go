package dialogue

import (
	"github.com/wolfman30/clinic-booking-assistant/internal/calendar"
	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
	"github.com/wolfman30/clinic-booking-assistant/internal/intent"
	"github.com/wolfman30/clinic-booking-assistant/internal/messaging/templates"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/internal/treatments"
)

// known is the set of booking fields collected so far. The name is not part
// of it: it is asked last and may be skipped.
type known uint8

const (
	hasTreatment known = 1 << iota
	hasDate
	hasTime
)

func knownFields(s intent.Slots) known {
	var k known
	if s.Treatment != treatments.None {
		k |= hasTreatment
	}
	if s.Date != "" {
		k |= hasDate
	}
	if s.Time != "" {
		k |= hasTime
	}
	return k
}

type intakeStep struct {
	stage  session.Stage
	prompt templates.Key
}

// intakeSteps says what to ask next for every combination that still lacks
// the treatment or the date. Treatment plus date is resolved against the
// calendar instead.
var intakeSteps = map[known]intakeStep{
	0:                      {session.StageWaitingForTreatment, templates.AskForTreatment},
	hasTime:                {session.StageWaitingForTreatment, templates.AskForTreatment},
	hasDate:                {session.StageWaitingForTreatmentAfterDate, templates.AskForTreatmentOnDate},
	hasDate | hasTime:      {session.StageWaitingForTreatmentAfterDate, templates.AskForTreatmentOnDate},
	hasTreatment:           {session.StageWaitingForDate, templates.AskForDate},
	hasTreatment | hasTime: {session.StageWaitingForDateAfterTreatment, templates.AskForDateWithTime},
}

// advance moves the dialogue forward from whatever slots are filled. It is
// the single handler behind every intake order: treatment first, date
// first, time first or all at once.
func (t *turn) advance() (Response, error) {
	s := &t.st.Slots
	var rejected templates.Key
	if s.Date != "" {
		if key, bad := t.dateRejection(s.Date); bad {
			s.Date = ""
			rejected = key
		}
	}

	switch knownFields(*s) {
	case hasTreatment | hasDate:
		return t.offerSlots()
	case hasTreatment | hasDate | hasTime:
		return t.checkTime()
	}

	step := intakeSteps[knownFields(*s)]
	if rejected != "" {
		return t.enter(step.stage, rejected, t.ruleParams())
	}
	return t.enter(step.stage, step.prompt, t.slotParams())
}

// dateRetryStage is where to go after the date had to be dropped.
func (t *turn) dateRetryStage() session.Stage {
	t.st.Slots.Date = ""
	return intakeSteps[knownFields(t.st.Slots)].stage
}

func (t *turn) offerSlots() (Response, error) {
	s := &t.st.Slots
	slots, err := t.e.gateway.AvailableSlots(t.ctx, s.Date, s.Treatment)
	if err != nil {
		return t.availabilityFailed(err)
	}
	if len(slots) == 0 {
		date := s.Date
		return t.enter(t.dateRetryStage(), templates.NoAvailableSlots, templates.Params{"Date": datetime.DisplayDate(date)})
	}
	return t.enter(session.StageWaitingForTime, templates.AvailableSlots, templates.Params{
		"Treatment": s.Treatment.Display(),
		"Date":      datetime.DisplayDate(s.Date),
		"Times":     formatSlots(slots),
	})
}

// checkTime confirms the requested time is still open before asking for the
// name or the final confirmation.
func (t *turn) checkTime() (Response, error) {
	s := &t.st.Slots
	slots, err := t.e.gateway.AvailableSlots(t.ctx, s.Date, s.Treatment)
	if err != nil {
		return t.availabilityFailed(err)
	}
	if !containsTime(slots, s.Time) {
		return t.offerAlternatives(&calendar.SlotUnavailableError{Requested: s.Time, Alternatives: slots},
			session.StageWaitingForTime, session.StageWaitingForDate)
	}
	if s.Name == "" {
		return t.enter(session.StageWaitingForName, templates.AskName, nil)
	}
	return t.confirm()
}

func (t *turn) availabilityFailed(err error) (Response, error) {
	if calendar.IsRuleViolation(err) {
		return t.enter(t.dateRetryStage(), ruleKey(err), t.ruleParams())
	}
	return t.gatewayFailure(err, templates.AvailabilityCheckError)
}

func containsTime(slots []string, want string) bool {
	target, err := datetime.NormalizeTime(want)
	if err != nil {
		return false
	}
	for _, slot := range slots {
		if norm, err := datetime.NormalizeTime(slot); err == nil && norm == target {
			return true
		}
	}
	return false
}
