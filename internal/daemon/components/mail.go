package components

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harunnryd/sift/internal/config"
	"github.com/harunnryd/sift/internal/daemon"
	"github.com/harunnryd/sift/internal/idempotency"
	"github.com/harunnryd/sift/internal/mail"
	"github.com/harunnryd/sift/internal/mail/imap"
	"github.com/harunnryd/sift/internal/model"
	"github.com/harunnryd/sift/internal/notify"
	"github.com/harunnryd/sift/internal/store"
)

// MailStack is a fully wired mail agent together with the data dir lock
// that guards its files. Release the lock with Close.
type MailStack struct {
	Agent    *mail.Agent
	Notifier *notify.Dispatcher
	DataDir  string
	lock     *store.FileLock
}

func (s *MailStack) Close() {
	if s.lock != nil {
		s.lock.Unlock()
	}
}

// BuildMailStack locks the data dir and wires the agent over IMAP and the
// model classifier. owner names the lock holder in logs.
func BuildMailStack(owner string, cfg config.MailConfig, router model.ModelRouter) (*MailStack, error) {
	dataDir, err := store.ResolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve mail data dir: %w", err)
	}

	lockCfg, err := store.NewFileLockConfig(cfg.LockTimeout, cfg.LockRetry)
	if err != nil {
		return nil, err
	}
	lock, err := store.NewFileLock(owner, dataDir, lockCfg)
	if err != nil {
		return nil, err
	}

	stack, err := buildAgent(cfg, dataDir, router)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	stack.lock = lock
	return stack, nil
}

func buildAgent(cfg config.MailConfig, dataDir string, router model.ModelRouter) (*MailStack, error) {
	prefs, err := mail.LoadPreferences(store.PreferencesPath(dataDir))
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	processed, err := idempotency.NewStore(store.ProcessedPath(dataDir), cfg.ProcessedLimit)
	if err != nil {
		return nil, fmt.Errorf("load processed ids: %w", err)
	}
	mailbox, err := imap.New(cfg)
	if err != nil {
		return nil, err
	}

	dispatcher := NewNotifier(cfg.Notify)
	classifier := mail.NewLLMClassifier(router, cfg.ClassifierModel)
	agent := mail.NewAgent(cfg, mailbox, classifier, prefs, processed, mail.NewFeedbackLog(store.FeedbackPath(dataDir))).
		WithNotifier(dispatcher)

	return &MailStack{Agent: agent, Notifier: dispatcher, DataDir: dataDir}, nil
}

// NewNotifier always logs alerts and adds every chat channel that has both a
// token and a destination configured.
func NewNotifier(cfg config.NotifyConfig) *notify.Dispatcher {
	d := notify.NewDispatcher(notify.LogChannel{})

	if cfg.Slack.BotToken != "" && cfg.Slack.Channel != "" {
		if err := d.Register(notify.NewSlackChannel(cfg.Slack.BotToken, cfg.Slack.Channel, "")); err != nil {
			slog.Warn("Slack notifications disabled", "error", err)
		}
	}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		if err := d.Register(notify.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")); err != nil {
			slog.Warn("Telegram notifications disabled", "error", err)
		}
	}

	return d
}

// MailComponent hosts the mail agent. It stays idle when mail is disabled.
type MailComponent struct {
	cfg        *config.MailConfig
	modelsComp *ModelsComponent
	stack      *MailStack
	mu         sync.RWMutex
}

func NewMailComponent(cfg *config.MailConfig, modelsComp *ModelsComponent) *MailComponent {
	return &MailComponent{cfg: cfg, modelsComp: modelsComp}
}

func (m *MailComponent) Name() string {
	return "Mail"
}

func (m *MailComponent) Dependencies() []string {
	return []string{"Models"}
}

func (m *MailComponent) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.cfg.Enabled {
		slog.Info("Mail agent disabled", "component", m.Name())
		return nil
	}

	if m.modelsComp == nil || m.modelsComp.Router() == nil {
		return fmt.Errorf("model router not initialized")
	}

	stack, err := BuildMailStack("daemon", *m.cfg, m.modelsComp.Router())
	if err != nil {
		return fmt.Errorf("build mail agent: %w", err)
	}
	m.stack = stack

	slog.Info("Mail agent initialized", "component", m.Name(), "data_dir", stack.DataDir, "address", m.cfg.Address, "notify", stack.Notifier.Channels())
	return nil
}

func (m *MailComponent) Start(ctx context.Context) error {
	return nil
}

func (m *MailComponent) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stack != nil {
		m.stack.Close()
		m.stack = nil
	}
	return nil
}

func (m *MailComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.cfg.Enabled {
		return &daemon.ComponentHealth{Name: m.Name(), Healthy: true}, nil
	}
	if m.stack == nil {
		return &daemon.ComponentHealth{Name: m.Name(), Healthy: false, Error: fmt.Errorf("not initialized")}, nil
	}
	if last := m.stack.Agent.LastCheck(); last != nil && last.Errors > 0 && last.Processed == 0 {
		return &daemon.ComponentHealth{Name: m.Name(), Healthy: false, Error: fmt.Errorf("last check classified nothing (%d errors)", last.Errors)}, nil
	}
	return &daemon.ComponentHealth{Name: m.Name(), Healthy: true}, nil
}

// Agent returns nil when mail is disabled.
func (m *MailComponent) Agent() *mail.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stack == nil {
		return nil
	}
	return m.stack.Agent
}

func (m *MailComponent) DataDir() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stack == nil {
		return ""
	}
	return m.stack.DataDir
}
