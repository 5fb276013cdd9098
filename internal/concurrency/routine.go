package concurrency

import (
	"log/slog"
	"runtime/debug"
)

// SafeGo runs fn in a goroutine and turns a panic into an error log so a
// single background loop cannot take the process down. onPanic, when set,
// receives the recovered value after logging.
func SafeGo(name string, fn func(), onPanic func(any)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Panic recovered", "goroutine", name, "panic", r, "stack", string(debug.Stack()))
				if onPanic != nil {
					onPanic(r)
				}
			}
		}()
		fn()
	}()
}
