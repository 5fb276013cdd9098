package transcript

import (
	"fmt"
	"strings"
)

// Segment is one timed unit of spoken text. Start and Duration are seconds.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Format renders segments as "[MM:SS] text" lines for a model prompt.
func Format(segments []Segment) string {
	if len(segments) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Video Transcript with Timestamps:\n\n")
	for _, seg := range segments {
		total := int(seg.Start)
		fmt.Fprintf(&b, "[%02d:%02d] %s\n", total/60, total%60, seg.Text)
	}
	return b.String()
}
