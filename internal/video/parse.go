package video

import (
	"regexp"
	"strconv"
)

var timestampPattern = regexp.MustCompile(`\[(\d{2}):(\d{2})\]`)

// ExtractTimestamps returns every [MM:SS] reference in text as seconds, in
// order of appearance.
func ExtractTimestamps(text string) []float64 {
	matches := timestampPattern.FindAllStringSubmatch(text, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		out = append(out, float64(minutes*60+seconds))
	}
	return out
}
