package concurrency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})
	SafeGo("ok", func() { close(done) }, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("function did not run")
	}
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	recovered := make(chan any, 1)
	SafeGo("boom", func() { panic("boom") }, func(r any) { recovered <- r })

	select {
	case r := <-recovered:
		require.NotNil(t, r)
		assert.Equal(t, "boom", r)
	case <-time.After(time.Second):
		t.Fatal("panic was not reported")
	}
}
