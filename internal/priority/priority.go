// Package priority turns a classifier's raw label into the label the mail
// agent acts on, using the user's VIP senders and keyword lists.
package priority

import "strings"

type Label string

const (
	Urgent    Label = "urgent"
	Important Label = "important"
	Routine   Label = "routine"
	Low       Label = "low"
)

// Labels returns every label from most to least pressing.
func Labels() []Label {
	return []Label{Urgent, Important, Routine, Low}
}

// ParseLabel normalizes s into a known label.
func ParseLabel(s string) (Label, bool) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	switch l {
	case Urgent, Important, Routine, Low:
		return l, true
	default:
		return "", false
	}
}

type Metadata struct {
	FromAddress string `json:"from_address"`
	Subject     string `json:"subject"`
	IsReply     bool   `json:"is_reply"`
	IsForward   bool   `json:"is_forward"`
	HasCC       bool   `json:"has_cc"`
}

// Prediction is a classifier's output for one message.
type Prediction struct {
	Label      Label    `json:"label"`
	Confidence float64  `json:"confidence"`
	Metadata   Metadata `json:"metadata"`
}

// Preferences is the slice of user settings the rules read.
type Preferences struct {
	VIPSenders       []string           `json:"vip_senders"`
	PriorityKeywords map[Label][]string `json:"priority_keywords"`
}

// Adjust applies the override rules to a prediction. Rules run in a fixed
// order and the first one that fires decides the label:
//
//  1. sender contains a VIP entry: low and routine become important,
//     important becomes urgent, urgent stays urgent
//  2. subject contains an urgent keyword: urgent
//  3. subject contains an important keyword and the label is routine: important
//  4. subject contains a low keyword and the label is not urgent or important: low
//
// Matching is substring containment; keywords ignore case. Missing lists are
// treated as empty.
func Adjust(p Prediction, prefs Preferences) Label {
	label := p.Label

	for _, vip := range prefs.VIPSenders {
		if vip == "" || !strings.Contains(p.Metadata.FromAddress, vip) {
			continue
		}
		switch label {
		case Low, Routine:
			return Important
		case Important, Urgent:
			return Urgent
		}
		// unknown label: keep checking the remaining rules
		break
	}

	subject := strings.ToLower(p.Metadata.Subject)

	if containsAny(subject, prefs.PriorityKeywords[Urgent]) {
		return Urgent
	}
	if label == Routine && containsAny(subject, prefs.PriorityKeywords[Important]) {
		return Important
	}
	if label != Urgent && label != Important && containsAny(subject, prefs.PriorityKeywords[Low]) {
		return Low
	}

	return label
}

func containsAny(subject string, keywords []string) bool {
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw != "" && strings.Contains(subject, kw) {
			return true
		}
	}
	return false
}
