package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	out := Format([]Segment{
		{Text: "intro", Start: 0},
		{Text: "setup", Start: 65.9},
		{Text: "wrap up", Start: 3725},
	})

	want := "Video Transcript with Timestamps:\n\n" +
		"[00:00] intro\n" +
		"[01:05] setup\n" +
		"[62:05] wrap up\n"
	assert.Equal(t, want, out)
	assert.Equal(t, "", Format(nil))
}
