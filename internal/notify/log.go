package notify

import (
	"context"
	"log/slog"
)

// LogChannel writes notifications to the process log.
type LogChannel struct{}

func (LogChannel) Name() string {
	return "log"
}

func (LogChannel) Send(ctx context.Context, text string) error {
	slog.InfoContext(ctx, "Priority mail received", "notification", text)
	return nil
}

func (LogChannel) Health(ctx context.Context) error {
	return nil
}
