package intent

import "strings"

// Answer is a customer's reply to a yes/no prompt.
type Answer int

const (
	Unclear Answer = iota
	Yes
	No
)

// affirmatives and negatives count when they open the reply.
var affirmatives = []string{
	"yes", "yeah", "yea", "yep", "yup", "ya", "yah", "ok", "okay", "sure",
	"confirm", "confirmed", "correct", "go ahead", "please do", "sounds good",
	"alright", "all right", "absolutely", "definitely", "of course", "book it", "do it",
	"proceed", "perfect", "yes please", "ok lah",
}

var negatives = []string{
	"no", "nope", "nah", "not now", "never mind", "nevermind", "stop",
	"no thanks", "no thank you", "forget it", "cannot", "cancel",
}

// Short or easily embedded answers only count as the whole reply: "don't
// know" is not a refusal.
var (
	bareAffirmatives = []string{"y"}
	bareNegatives    = []string{"n", "don't", "dont", "do not", "wrong", "incorrect"}
)

// ParseAnswer reads a reply to a yes/no prompt. The answer must open the
// reply or be all of it. Questions and replies that also carry the opposite
// answer are Unclear.
func ParseAnswer(reply string) Answer {
	lower := strings.ToLower(strings.TrimSpace(reply))
	if lower == "" || strings.Contains(lower, "?") {
		return Unclear
	}
	bare := strings.TrimRight(lower, ".!~ ")
	yes := opensWith(lower, affirmatives) || isOneOf(bare, bareAffirmatives)
	no := opensWith(lower, negatives) || isOneOf(bare, bareNegatives)
	switch {
	case yes && !no && !anyWhole(lower, negatives) && !anyWhole(lower, bareNegatives):
		return Yes
	case no && !yes && !anyWhole(lower, affirmatives):
		return No
	}
	return Unclear
}

func opensWith(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.HasPrefix(lower, p) && (len(lower) == len(p) || !isWordByte(lower[len(p)])) {
			return true
		}
	}
	return false
}

func isOneOf(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
