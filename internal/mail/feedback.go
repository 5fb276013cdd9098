package mail

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/priority"
	"github.com/harunnryd/sift/internal/store"

	"github.com/oklog/ulid/v2"
)

// FeedbackRecord is a user correction kept for retraining a classifier.
type FeedbackRecord struct {
	ID        string         `json:"id"`
	MessageID string         `json:"message_id"`
	Priority  priority.Label `json:"priority"`
	CreatedAt time.Time      `json:"created_at"`
}

type feedbackFile struct {
	Records []FeedbackRecord `json:"records"`
}

// FeedbackLog appends corrections to a JSON file in the data dir.
type FeedbackLog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFeedbackLog(path string) *FeedbackLog {
	return &FeedbackLog{path: path, now: time.Now}
}

func (f *FeedbackLog) Record(messageID, label string) (FeedbackRecord, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return FeedbackRecord{}, siftErrors.InvalidInput("message_id is required")
	}
	parsed, ok := priority.ParseLabel(label)
	if !ok {
		return FeedbackRecord{}, siftErrors.InvalidInput(fmt.Sprintf("unknown priority %q", label))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var file feedbackFile
	if _, err := store.ReadJSON(f.path, &file); err != nil {
		return FeedbackRecord{}, siftErrors.WrapWithCategory(err, "read feedback log", siftErrors.ErrInternal)
	}

	now := f.now().UTC()
	rec := FeedbackRecord{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		MessageID: messageID,
		Priority:  parsed,
		CreatedAt: now,
	}
	file.Records = append(file.Records, rec)

	if err := store.WriteJSON(f.path, file); err != nil {
		return FeedbackRecord{}, siftErrors.WrapWithCategory(err, "write feedback log", siftErrors.ErrInternal)
	}
	return rec, nil
}

func (f *FeedbackLog) List() ([]FeedbackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var file feedbackFile
	if _, err := store.ReadJSON(f.path, &file); err != nil {
		return nil, err
	}
	return file.Records, nil
}
