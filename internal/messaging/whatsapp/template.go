package whatsapp

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Template is an approved WhatsApp message template with its parameters.
// Marketing messages outside the 24h customer window must use one.
type Template struct {
	Name     string
	Language string
	Body     []string
	// HeaderType is "text" or "image"; HeaderValue is the text or image link.
	HeaderType  string
	HeaderValue string
}

type templateBody struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type  string     `json:"type"`
	Text  string     `json:"text,omitempty"`
	Image *mediaLink `json:"image,omitempty"`
}

type mediaLink struct {
	Link string `json:"link"`
}

// SendTemplate sends an approved template message.
func (c *Client) SendTemplate(ctx context.Context, to string, tmpl Template) (*SendResult, error) {
	to = normalizeRecipient(to)
	if to == "" {
		return nil, errors.New("whatsapp: recipient required")
	}
	if strings.TrimSpace(tmpl.Name) == "" {
		return nil, errors.New("whatsapp: template name required")
	}

	ctx, span := c.tracer.Start(ctx, "whatsapp.send_template")
	defer span.End()
	span.SetAttributes(attribute.String("whatsapp.template", tmpl.Name))

	res, err := c.send(ctx, sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "template",
		Template:         tmpl.body(),
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

func (t Template) body() *templateBody {
	lang := strings.TrimSpace(t.Language)
	if lang == "" {
		lang = "en_US"
	}
	out := &templateBody{Name: strings.TrimSpace(t.Name), Language: templateLanguage{Code: lang}}

	if len(t.Body) > 0 {
		params := make([]templateParameter, 0, len(t.Body))
		for _, v := range t.Body {
			params = append(params, templateParameter{Type: "text", Text: v})
		}
		out.Components = append(out.Components, templateComponent{Type: "body", Parameters: params})
	}
	if v := strings.TrimSpace(t.HeaderValue); v != "" {
		header := templateParameter{Type: "text", Text: v}
		if t.HeaderType == "image" {
			header = templateParameter{Type: "image", Image: &mediaLink{Link: v}}
		}
		out.Components = append(out.Components, templateComponent{Type: "header", Parameters: []templateParameter{header}})
	}
	return out
}
