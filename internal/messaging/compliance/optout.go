package compliance

import (
	"regexp"
	"strings"
)

// Detector recognizes promotion subscription keywords. A keyword must be the
// whole message so that booking replies such as "stop" or "cancel" keep
// their dialogue meaning.
type Detector struct {
	optOut *regexp.Regexp
	optIn  *regexp.Regexp
}

func NewDetector() *Detector {
	return &Detector{
		optOut: regexp.MustCompile(`(?i)^(?:please\s+)?(?:unsubscribe|stopall|opt[\s-]?out|stop\s+(?:all\s+)?promo(?:tion)?s?)[.!]*$`),
		optIn:  regexp.MustCompile(`(?i)^(?:please\s+)?(?:subscribe|opt[\s-]?in|start\s+promo(?:tion)?s?)[.!]*$`),
	}
}

// IsOptOut reports whether body asks to stop promotional messages.
func (d *Detector) IsOptOut(body string) bool {
	if d == nil || d.optOut == nil {
		return false
	}
	return d.optOut.MatchString(strings.TrimSpace(body))
}

// IsOptIn reports whether body asks to receive promotional messages again.
func (d *Detector) IsOptIn(body string) bool {
	if d == nil || d.optIn == nil {
		return false
	}
	return d.optIn.MatchString(strings.TrimSpace(body))
}
