package mail

import (
	"context"
	"time"
)

// Mailbox is the remote message store the agent polls. Connect and Close
// bracket every check.
type Mailbox interface {
	Connect(ctx context.Context) error
	// FetchRecent returns up to limit messages received since the given
	// time, newest first.
	FetchRecent(ctx context.Context, limit int, since time.Time) ([]RawMessage, error)
	// Move files the message into folder, creating the folder if needed.
	Move(ctx context.Context, uid uint32, folder string) error
	Close() error
}
