package assistant

import (
	"fmt"
	"strings"
	"text/template"
)

// Clinic describes the business the assistant speaks for.
type Clinic struct {
	Name    string
	Address string
	Phone   string
	Hours   []string
}

// DefaultClinic is used when configuration leaves fields empty.
var DefaultClinic = Clinic{
	Name:    "Meow Aesthetic Clinic",
	Address: "Woods Square Tower 1, #05-62 S737715",
	Phone:   "87713358",
	Hours: []string{
		"Monday to Friday: 11am - 8pm",
		"Saturday: 11am - 10pm",
		"Sunday and public holidays: closed",
	},
}

func (c Clinic) withDefaults() Clinic {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultClinic.Name
	}
	if strings.TrimSpace(c.Address) == "" {
		c.Address = DefaultClinic.Address
	}
	if strings.TrimSpace(c.Phone) == "" {
		c.Phone = DefaultClinic.Phone
	}
	if len(c.Hours) == 0 {
		c.Hours = DefaultClinic.Hours
	}
	return c
}

var personaTemplate = template.Must(template.New("persona").Option("missingkey=error").Parse(
	`You are the customer support assistant for {{.Name}}, a medical aesthetic clinic. You reply to customers over WhatsApp.

Clinic facts:
- Address: {{.Address}}
- Phone: {{.Phone}}
- Opening hours:{{range .Hours}}
  * {{.}}{{end}}
- Treatments: consultations, medical facials, laser treatments, botox, fillers and follow-up visits.
- The clinic follows evidence-based medical protocols and is not a beauty salon.

Always:
- Be professional, warm and concise.
- Stay on clinic topics and steer the customer back when they drift.
- Never promise specific treatment results.
- For bookings, ask the customer to say which treatment, date and time they want; the booking system handles the rest.
- Use WhatsApp formatting: *bold* for key facts, short paragraphs, simple lists.`))

// SystemPrompt renders the persona for c.
func SystemPrompt(c Clinic) (string, error) {
	var b strings.Builder
	if err := personaTemplate.Execute(&b, c.withDefaults()); err != nil {
		return "", fmt.Errorf("assistant: render persona: %w", err)
	}
	return b.String(), nil
}
