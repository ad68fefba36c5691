// Package smoketest defines the post-deployment questionnaire operators
// answer for each deployment.
package smoketest

import (
	"fmt"
	"strings"
)

// Answer is a questionnaire answer.
type Answer string

// Accepted answers.
const (
	Yes           Answer = "Yes"
	No            Answer = "No"
	NotApplicable Answer = "N/A"
)

// Questions is the fixed questionnaire, in the order it is asked and
// reported.
var Questions = []string{
	"Are the correct reserved IPs allocated?",
	"Is the main dashboard receiving data?",
	"Do nodes on generic hosts have open connections and connected peers?",
	"Do nodes on peer cache hosts have open connections and connected peers?",
	"Do symmetric NAT private nodes have open connections and connected peers?",
	"Do full cone NAT private nodes have open connections and connected peers?",
	"Is logging appearing in ELK?",
	"Are uploaders uploading successfully?",
	"Are downloaders downloading successfully?",
	"Is the bootstrap cache being updated?",
	"Is the network contacts file up to date?",
}

// Answers returns the accepted answers.
func Answers() []Answer {
	return []Answer{Yes, No, NotApplicable}
}

// ParseAnswer accepts yes/no/n/a in any case, plus y and n.
func ParseAnswer(s string) (Answer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return Yes, nil
	case "no", "n":
		return No, nil
	case "n/a", "na":
		return NotApplicable, nil
	default:
		return "", fmt.Errorf("invalid answer %q (expected Yes, No or N/A)", s)
	}
}

// Glyph renders an answer for Slack. Anything unrecognised renders as "?".
func Glyph(answer string) string {
	switch Answer(answer) {
	case Yes:
		return "✅"
	case No:
		return "❌"
	case NotApplicable:
		return "N/A"
	default:
		return "?"
	}
}

// Validate checks that every question has an accepted answer.
func Validate(answers map[string]string) error {
	for _, q := range Questions {
		a, ok := answers[q]
		if !ok {
			return fmt.Errorf("question %q is unanswered", q)
		}

		if _, err := ParseAnswer(a); err != nil {
			return fmt.Errorf("question %q: %w", q, err)
		}
	}

	return nil
}
