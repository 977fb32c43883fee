package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const businessAccountObject = "whatsapp_business_account"

var (
	// ErrNotWhatsApp means the payload is not a WhatsApp business webhook.
	ErrNotWhatsApp = errors.New("whatsapp: payload is not a whatsapp_business_account event")
	// ErrNoMessage means the webhook carries no customer text message, e.g.
	// a delivery status update.
	ErrNoMessage = errors.New("whatsapp: webhook has no text message")
)

// Webhook is the subset of the Cloud API notification payload we read.
type Webhook struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []WebhookMessage `json:"messages"`
}

type WebhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
}

// InboundMessage is a customer text message pulled from a webhook.
type InboundMessage struct {
	ID          string
	From        string
	Body        string
	ProfileName string
	ReceivedAt  time.Time
}

// ParseInbound decodes a webhook body and returns the first text message
// of its first entry and change.
func ParseInbound(body []byte) (InboundMessage, error) {
	var hook Webhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return InboundMessage{}, fmt.Errorf("whatsapp: decode webhook: %w", err)
	}
	return hook.FirstMessage()
}

// FirstMessage applies the same rules as ParseInbound to a decoded payload.
func (w Webhook) FirstMessage() (InboundMessage, error) {
	if w.Object != businessAccountObject {
		return InboundMessage{}, ErrNotWhatsApp
	}
	if len(w.Entry) == 0 || len(w.Entry[0].Changes) == 0 {
		return InboundMessage{}, ErrNoMessage
	}
	value := w.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		return InboundMessage{}, ErrNoMessage
	}
	msg := value.Messages[0]
	if msg.Text == nil || strings.TrimSpace(msg.Text.Body) == "" || strings.TrimSpace(msg.From) == "" {
		return InboundMessage{}, ErrNoMessage
	}

	out := InboundMessage{
		ID:   msg.ID,
		From: strings.TrimSpace(msg.From),
		Body: msg.Text.Body,
	}
	for _, c := range value.Contacts {
		if c.WaID == out.From {
			out.ProfileName = c.Profile.Name
			break
		}
	}
	if ts, err := parseUnix(msg.Timestamp); err == nil {
		out.ReceivedAt = ts
	}
	return out, nil
}

func parseUnix(raw string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0).UTC(), nil
}
