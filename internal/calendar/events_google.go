package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GoogleEvents stores appointments as Google Calendar events.
type GoogleEvents struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
	tracer     trace.Tracer
}

// NewGoogleEvents builds a store from service-account credentials JSON.
// Extra options (endpoint, HTTP client) are appended, which tests use to
// point at a local server.
func NewGoogleEvents(ctx context.Context, credentialsJSON []byte, calendarID string, loc *time.Location, opts ...option.ClientOption) (*GoogleEvents, error) {
	if calendarID == "" {
		return nil, errors.New("calendar: calendar id is required")
	}
	var all []option.ClientOption
	if len(credentialsJSON) > 0 {
		all = append(all, option.WithCredentialsJSON(credentialsJSON), option.WithScopes(gcal.CalendarScope))
	}
	all = append(all, opts...)
	svc, err := gcal.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create google service: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &GoogleEvents{
		svc:        svc,
		calendarID: calendarID,
		loc:        loc,
		tracer:     otel.Tracer("clinic.internal.calendar.google"),
	}, nil
}

func (g *GoogleEvents) List(ctx context.Context, from, to time.Time) ([]Event, error) {
	ctx, span := g.tracer.Start(ctx, "calendar.list_events")
	defer span.End()

	call := g.svc.Events.List(g.calendarID).SingleEvents(true).OrderBy("startTime")
	if !from.IsZero() {
		call = call.TimeMin(from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		call = call.TimeMax(to.Format(time.RFC3339))
	}

	var out []Event
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			ev, err := g.fromAPI(item)
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("calendar.events", len(out)))
	return out, nil
}

func (g *GoogleEvents) Get(ctx context.Context, id string) (Event, error) {
	ctx, span := g.tracer.Start(ctx, "calendar.get_event")
	defer span.End()

	item, err := g.svc.Events.Get(g.calendarID, id).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return Event{}, translateAPIError(err)
	}
	return g.fromAPI(item)
}

func (g *GoogleEvents) Insert(ctx context.Context, ev Event) (Event, error) {
	ctx, span := g.tracer.Start(ctx, "calendar.insert_event")
	defer span.End()

	item, err := g.svc.Events.Insert(g.calendarID, g.toAPI(ev)).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return Event{}, translateAPIError(err)
	}
	return g.fromAPI(item)
}

func (g *GoogleEvents) Update(ctx context.Context, ev Event) (Event, error) {
	ctx, span := g.tracer.Start(ctx, "calendar.update_event")
	defer span.End()

	item, err := g.svc.Events.Update(g.calendarID, ev.ID, g.toAPI(ev)).Context(ctx).Do()
	if err != nil {
		span.RecordError(err)
		return Event{}, translateAPIError(err)
	}
	return g.fromAPI(item)
}

func (g *GoogleEvents) Delete(ctx context.Context, id string) error {
	ctx, span := g.tracer.Start(ctx, "calendar.delete_event")
	defer span.End()

	if err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do(); err != nil {
		span.RecordError(err)
		return translateAPIError(err)
	}
	return nil
}

func (g *GoogleEvents) toAPI(ev Event) *gcal.Event {
	return &gcal.Event{
		Id:          ev.ID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.In(g.loc).Format(time.RFC3339), TimeZone: g.loc.String()},
		End:         &gcal.EventDateTime{DateTime: ev.End.In(g.loc).Format(time.RFC3339), TimeZone: g.loc.String()},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 60},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

func (g *GoogleEvents) fromAPI(item *gcal.Event) (Event, error) {
	ev := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Link:        item.HtmlLink,
	}
	var err error
	if ev.Start, ev.AllDay, err = g.parseWhen(item.Start); err != nil {
		return Event{}, err
	}
	if ev.End, _, err = g.parseWhen(item.End); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// parseWhen reads a timed or all-day boundary. All-day dates are taken at
// midnight in the clinic's location; the API's end date is exclusive, so an
// all-day event blocks exactly its days.
func (g *GoogleEvents) parseWhen(w *gcal.EventDateTime) (time.Time, bool, error) {
	if w == nil {
		return time.Time{}, false, errors.New("calendar: event missing start or end")
	}
	if w.DateTime != "" {
		t, err := time.Parse(time.RFC3339, w.DateTime)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("calendar: parse event time %q: %w", w.DateTime, err)
		}
		return t, false, nil
	}
	day, err := time.ParseInLocation("2006-01-02", w.Date, g.loc)
	if err != nil {
		return time.Time{}, true, fmt.Errorf("calendar: parse event date %q: %w", w.Date, err)
	}
	return day, true, nil
}

func translateAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return ErrNotFound
	}
	return err
}
