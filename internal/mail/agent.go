// Package mail polls a mailbox, predicts a priority for each new message,
// refines it with the user's rules and files the message accordingly.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/sift/internal/config"
	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/idempotency"
	"github.com/harunnryd/sift/internal/notify"
	"github.com/harunnryd/sift/internal/priority"
)

// ErrCheckRunning is returned when a check is requested while one is active.
var ErrCheckRunning = fmt.Errorf("mail check already running: %w", siftErrors.ErrConflict)

type CheckResult struct {
	Processed  int                    `json:"processed"`
	ByPriority map[priority.Label]int `json:"by_priority"`
	Skipped    int                    `json:"skipped"`
	Errors     int                    `json:"errors"`
	StartedAt  time.Time              `json:"started_at"`
	Duration   string                 `json:"duration"`
}

func newCheckResult(now time.Time) *CheckResult {
	byPriority := make(map[priority.Label]int, 4)
	for _, label := range priority.Labels() {
		byPriority[label] = 0
	}
	return &CheckResult{ByPriority: byPriority, StartedAt: now}
}

type Agent struct {
	mailbox    Mailbox
	classifier Classifier
	prefs      *PreferencesStore
	processed  *idempotency.Store
	feedback   *FeedbackLog
	summary    *DailySummary
	notifier   notify.Notifier

	fetchLimit int
	daysBack   int
	now        func() time.Time

	running sync.Mutex

	mu   sync.RWMutex
	last *CheckResult
}

func NewAgent(cfg config.MailConfig, mailbox Mailbox, classifier Classifier, prefs *PreferencesStore, processed *idempotency.Store, feedback *FeedbackLog) *Agent {
	fetchLimit := cfg.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = config.DefaultMailFetchLimit
	}
	daysBack := cfg.DaysBack
	if daysBack <= 0 {
		daysBack = config.DefaultMailDaysBack
	}

	return &Agent{
		mailbox:    mailbox,
		classifier: classifier,
		prefs:      prefs,
		processed:  processed,
		feedback:   feedback,
		summary:    NewDailySummary(),
		fetchLimit: fetchLimit,
		daysBack:   daysBack,
		now:        time.Now,
	}
}

// WithNotifier sends alerts for labels whose notification preference is on.
// Without one, alerts only reach the log.
func (a *Agent) WithNotifier(n notify.Notifier) *Agent {
	a.notifier = n
	return a
}

func (a *Agent) Preferences() *PreferencesStore {
	return a.prefs
}

// Check fetches recent messages and processes the ones not seen before.
// Per-message failures are counted, not returned.
func (a *Agent) Check(ctx context.Context) (*CheckResult, error) {
	if !a.running.TryLock() {
		return nil, ErrCheckRunning
	}
	defer a.running.Unlock()

	start := a.now()
	result := newCheckResult(start)

	if err := a.mailbox.Connect(ctx); err != nil {
		return nil, siftErrors.Wrap(siftErrors.MapError(err), "failed to connect to email server")
	}
	defer func() {
		if err := a.mailbox.Close(); err != nil {
			slog.Debug("Mailbox close failed", "error", err)
		}
	}()

	since := start.AddDate(0, 0, -a.daysBack)
	messages, err := a.mailbox.FetchRecent(ctx, a.fetchLimit, since)
	if err != nil {
		return nil, siftErrors.Wrap(siftErrors.MapError(err), "failed to fetch messages")
	}

	prefs := a.prefs.Get()
	rules := prefs.Rules()

	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		a.process(ctx, msg, prefs, rules, result)
	}

	if err := a.processed.Save(); err != nil {
		slog.Error("Failed to save processed ids", "error", err)
	}

	result.Duration = a.now().Sub(start).String()
	slog.Info("Mail check finished",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"errors", result.Errors,
		"duration", result.Duration,
	)

	a.mu.Lock()
	a.last = result
	a.mu.Unlock()

	return result, ctx.Err()
}

func (a *Agent) process(ctx context.Context, msg RawMessage, prefs Preferences, rules priority.Preferences, result *CheckResult) {
	env, err := ParseEnvelope(msg.Raw)
	if err != nil {
		slog.Warn("Skipping unparsable message", "uid", msg.UID, "error", err)
		result.Errors++
		return
	}

	if env.MessageID == "" || a.processed.CheckAndMark(env.MessageID) {
		result.Skipped++
		return
	}

	prediction, err := a.classifier.Classify(ctx, msg.Raw)
	if err != nil {
		slog.Warn("Classification failed", "message_id", env.MessageID, "error", err)
		result.Errors++
		return
	}

	label := priority.Adjust(prediction, rules)
	if _, ok := priority.ParseLabel(string(label)); !ok {
		slog.Warn("Classifier produced unknown label", "message_id", env.MessageID, "label", label)
		result.Errors++
		return
	}

	result.Processed++
	result.ByPriority[label]++

	a.summary.Add(label, summaryEntry(env, a.now()))

	if prefs.NotificationPreferences[label] {
		a.notify(ctx, label, env)
	}

	if !prefs.AutoCategorize {
		return
	}
	folder := prefs.Folders[label]
	if folder == "" {
		return
	}
	if err := a.mailbox.Move(ctx, msg.UID, folder); err != nil {
		slog.Warn("Failed to move message", "message_id", env.MessageID, "folder", folder, "error", err)
	}
}

func (a *Agent) notify(ctx context.Context, label priority.Label, env Envelope) {
	if a.notifier == nil {
		slog.Info("Priority mail received", "priority", label, "from", env.From, "subject", env.Subject)
		return
	}

	err := a.notifier.Notify(ctx, notify.Notification{
		Priority:  label,
		From:      env.From,
		Subject:   env.Subject,
		MessageID: env.MessageID,
	})
	if err != nil {
		slog.Warn("Notification delivery failed", "message_id", env.MessageID, "error", err)
	}
}

func summaryEntry(env Envelope, now time.Time) SummaryEntry {
	entry := SummaryEntry{Subject: env.Subject, From: env.From, Date: env.Date}
	if entry.Subject == "" {
		entry.Subject = "No Subject"
	}
	if entry.From == "" {
		entry.From = "Unknown"
	}
	if entry.Date == "" {
		entry.Date = now.Format(time.RFC1123Z)
	}
	return entry
}

func (a *Agent) Summary() map[priority.Label][]SummaryEntry {
	return a.summary.Snapshot()
}

func (a *Agent) ResetSummary() {
	a.summary.Reset()
}

// LastCheck returns the most recent completed check, or nil.
func (a *Agent) LastCheck() *CheckResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

func (a *Agent) Feedback(messageID, label string) (FeedbackRecord, error) {
	return a.feedback.Record(messageID, label)
}
