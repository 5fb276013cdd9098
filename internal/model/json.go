package model

import "strings"

// StripCodeFence removes a surrounding ``` or ```json markdown fence that
// models often wrap JSON replies in.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = strings.TrimPrefix(s, "```json")
	case strings.HasPrefix(s, "```"):
		s = strings.TrimPrefix(s, "```")
	default:
		return s
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
