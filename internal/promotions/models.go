// Package promotions broadcasts the clinic's weekly WhatsApp offers to
// customers who opted in.
package promotions

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-booking-assistant/internal/datetime"
)

// NamePlaceholder in a body parameter is replaced with the recipient's name.
const NamePlaceholder = "{{name}}"

const defaultName = "Valued Customer"

var (
	ErrInvalidPromotion = errors.New("promotions: invalid promotion")
	ErrInvalidRecipient = errors.New("promotions: invalid recipient")
)

// Recipient is a customer on the promotion list.
type Recipient struct {
	Phone      string    `json:"phone_number"`
	Name       string    `json:"name"`
	OptIn      bool      `json:"opt_in"`
	Categories []string  `json:"categories"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TemplateParams fill an approved WhatsApp template.
type TemplateParams struct {
	Body        []string `json:"body_parameters,omitempty"`
	HeaderType  string   `json:"header_type,omitempty"`
	HeaderValue string   `json:"header_parameters,omitempty"`
}

// Promotion is a weekly recurring broadcast.
type Promotion struct {
	ID           uuid.UUID      `json:"id"`
	Weekday      time.Weekday   `json:"weekday"`
	Time         string         `json:"time"` // "HH:MM" clinic local time
	TemplateName string         `json:"template_name"`
	Params       TemplateParams `json:"template_parameters"`
	Active       bool           `json:"active"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Send is one broadcast of a promotion.
type Send struct {
	PromotionID  uuid.UUID  `json:"promotion_id"`
	TemplateName string     `json:"template_name"`
	Occurrence   time.Time  `json:"occurrence"`
	Delivered    int        `json:"delivered"`
	Failed       int        `json:"failed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewPromotion validates a schedule entry. The time accepts any expression
// the normalizer understands, e.g. "10:00 AM".
func NewPromotion(day time.Weekday, at, templateName string, params TemplateParams) (*Promotion, error) {
	if day < time.Sunday || day > time.Saturday {
		return nil, fmt.Errorf("%w: weekday %d out of range", ErrInvalidPromotion, day)
	}
	clock, err := datetime.NormalizeTime(at)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPromotion, err)
	}
	templateName = strings.TrimSpace(templateName)
	if templateName == "" {
		return nil, fmt.Errorf("%w: template name required", ErrInvalidPromotion)
	}
	switch params.HeaderType {
	case "", "text", "image":
	default:
		return nil, fmt.Errorf("%w: unsupported header type %q", ErrInvalidPromotion, params.HeaderType)
	}
	return &Promotion{
		ID:           uuid.New(),
		Weekday:      day,
		Time:         clock,
		TemplateName: templateName,
		Params:       params,
		Active:       true,
	}, nil
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidPromotion, s)
}

// LastOccurrence returns the most recent scheduled instant at or before now.
func (p Promotion) LastOccurrence(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	minutes, err := datetime.ClockMinutes(p.Time)
	if err != nil {
		return time.Time{}
	}
	back := (int(local.Weekday()) - int(p.Weekday) + 7) % 7
	day := local.AddDate(0, 0, -back)
	occ := time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc)
	if occ.After(local) {
		occ = occ.AddDate(0, 0, -7)
	}
	return occ
}

// Personalize renders the template for one recipient.
func (p TemplateParams) Personalize(name string) []string {
	if strings.TrimSpace(name) == "" {
		name = defaultName
	}
	out := make([]string, len(p.Body))
	for i, v := range p.Body {
		out[i] = strings.ReplaceAll(v, NamePlaceholder, name)
	}
	return out
}
