package mail

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/idempotency"
	"github.com/harunnryd/sift/internal/priority"

	"github.com/stretchr/testify/require"
)

type moveCall struct {
	UID    uint32
	Folder string
}

type fakeMailbox struct {
	mu         sync.Mutex
	messages   []RawMessage
	connectErr error
	fetchErr   error
	moves      []moveCall
	closed     int
	since      time.Time
	limit      int
	entered    chan struct{}
	block      chan struct{}
}

func (f *fakeMailbox) Connect(ctx context.Context) error {
	if f.block != nil {
		close(f.entered)
		<-f.block
	}
	return f.connectErr
}

func (f *fakeMailbox) FetchRecent(ctx context.Context, limit int, since time.Time) ([]RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.since = since
	f.limit = limit
	return f.messages, f.fetchErr
}

func (f *fakeMailbox) Move(ctx context.Context, uid uint32, folder string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, moveCall{UID: uid, Folder: folder})
	return nil
}

func (f *fakeMailbox) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// subjectClassifier labels by a "label:" prefix in the subject.
type subjectClassifier struct {
	fail map[string]bool
}

func (c *subjectClassifier) Classify(ctx context.Context, raw []byte) (priority.Prediction, error) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		return priority.Prediction{}, err
	}
	if c.fail[env.MessageID] {
		return priority.Prediction{}, fmt.Errorf("model unavailable")
	}
	label := priority.Routine
	if i := strings.Index(env.Subject, "label:"); i >= 0 {
		label = priority.Label(strings.Fields(env.Subject[i+len("label:"):])[0])
	}
	return priority.Prediction{Label: label, Confidence: 0.6, Metadata: env.Metadata()}, nil
}

func rawMessage(id, from, subject string) []byte {
	var b strings.Builder
	if id != "" {
		fmt.Fprintf(&b, "Message-ID: %s\r\n", id)
	}
	fmt.Fprintf(&b, "From: %s\r\nTo: me@example.com\r\nSubject: %s\r\nDate: Mon, 02 Jan 2006 15:04:05 +0000\r\n\r\nbody text\r\n", from, subject)
	return []byte(b.String())
}

type agentFixture struct {
	agent   *Agent
	mailbox *fakeMailbox
	prefs   *PreferencesStore
	dir     string
}

func newAgentFixture(t *testing.T, messages ...RawMessage) *agentFixture {
	t.Helper()
	dir := t.TempDir()

	prefs, err := LoadPreferences(filepath.Join(dir, "prefs.json"))
	require.NoError(t, err)
	processed, err := idempotency.NewStore(filepath.Join(dir, "processed.json"), 0)
	require.NoError(t, err)

	mailbox := &fakeMailbox{messages: messages}
	agent := NewAgent(config.MailConfig{}, mailbox, &subjectClassifier{}, prefs, processed, NewFeedbackLog(filepath.Join(dir, "feedback.json")))
	agent.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	return &agentFixture{agent: agent, mailbox: mailbox, prefs: prefs, dir: dir}
}
