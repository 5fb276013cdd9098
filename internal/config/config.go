package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/sift/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Models     ModelsConfig     `koanf:"models"`
	Transcript TranscriptConfig `koanf:"transcript"`
	Video      VideoConfig      `koanf:"video"`
	Mail       MailConfig       `koanf:"mail"`
	Daemon     DaemonConfig     `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int      `koanf:"port"`
	LogLevel        string   `koanf:"log_level"`
	ReadTimeout     string   `koanf:"read_timeout"`
	WriteTimeout    string   `koanf:"write_timeout"`
	IdleTimeout     string   `koanf:"idle_timeout"`
	ShutdownTimeout string   `koanf:"shutdown_timeout"`
	AllowedOrigins  []string `koanf:"allowed_origins"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default"`
	Fallback            string          `koanf:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name           string `koanf:"name"`
	Provider       string `koanf:"provider"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
}

// TranscriptConfig covers the session cache and the transcript provider.
type TranscriptConfig struct {
	SessionExpiry string `koanf:"session_expiry"`
	MaxSessions   int    `koanf:"max_sessions"`
	SweepInterval string `koanf:"sweep_interval"`
	BaseURL       string `koanf:"base_url"`
	Language      string `koanf:"language"`
	Timeout       string `koanf:"timeout"`
}

type VideoConfig struct {
	Model             string `koanf:"model"`
	DefaultQuestions  int    `koanf:"default_questions"`
	MaxQuestions      int    `koanf:"max_questions"`
	DefaultDifficulty string `koanf:"default_difficulty"`
}

type MailConfig struct {
	Enabled         bool         `koanf:"enabled"`
	Address         string       `koanf:"address"`
	Password        string       `koanf:"password"`
	IMAPServer      string       `koanf:"imap_server"`
	Mailbox         string       `koanf:"mailbox"`
	DataDir         string       `koanf:"data_dir"`
	FetchLimit      int          `koanf:"fetch_limit"`
	DaysBack        int          `koanf:"days_back"`
	ProcessedLimit  int          `koanf:"processed_limit"`
	Schedule        string       `koanf:"schedule"`
	ClassifierModel string       `koanf:"classifier_model"`
	Timeout         string       `koanf:"timeout"`
	LockTimeout     string       `koanf:"lock_timeout"`
	LockRetry       string       `koanf:"lock_retry"`
	Notify          NotifyConfig `koanf:"notify"`
}

// NotifyConfig selects where priority mail alerts go besides the log. A
// channel is active when its token and destination are both set.
type NotifyConfig struct {
	Slack    SlackNotifyConfig    `koanf:"slack"`
	Telegram TelegramNotifyConfig `koanf:"telegram"`
}

type SlackNotifyConfig struct {
	BotToken string `koanf:"bot_token"`
	Channel  string `koanf:"channel"`
}

type TelegramNotifyConfig struct {
	BotToken string `koanf:"bot_token"`
	ChatID   int64  `koanf:"chat_id"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout"`
}

const (
	DefaultServerPort                   = 8000
	DefaultServerLogLevel               = "info"
	DefaultServerReadTimeout            = "15s"
	DefaultServerWriteTimeout           = "120s"
	DefaultServerIdleTimeout            = "60s"
	DefaultServerShutdownTimeout        = "5s"
	DefaultModelDefault                 = "gemini-2.0-flash"
	DefaultModelMaxFallbackAttempts     = 2
	DefaultModelRequestTimeout          = "90s"
	DefaultOpenAIBaseURL                = "https://api.openai.com/v1"
	DefaultOllamaBaseURL                = "http://localhost:11434/v1"
	DefaultOllamaAPIKey                 = "ollama"
	DefaultTranscriptSessionExpiry      = "30m"
	DefaultTranscriptMaxSessions        = 1000
	DefaultTranscriptSweepInterval      = "5m"
	DefaultTranscriptBaseURL            = "https://video.google.com/timedtext"
	DefaultTranscriptLanguage           = "en"
	DefaultTranscriptTimeout            = "15s"
	DefaultVideoQuestions               = 5
	DefaultVideoMaxQuestions            = 20
	DefaultVideoDifficulty              = "medium"
	DefaultMailEnabled                  = false
	DefaultMailIMAPServer               = "imap.gmail.com:993"
	DefaultMailMailbox                  = "INBOX"
	DefaultMailFetchLimit               = 30
	DefaultMailDaysBack                 = 1
	DefaultMailProcessedLimit           = 1000
	DefaultMailTimeout                  = "30s"
	DefaultMailLockTimeout              = "10s"
	DefaultMailLockRetry                = "100ms"
	DefaultDaemonShutdownTimeout        = "30s"
	DefaultDaemonHealthCheckInterval    = "30s"
	DefaultDaemonStartupShutdownTimeout = "10s"
)

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	// Hardcoded Defaults
	defaults := map[string]interface{}{
		"server.port":                  DefaultServerPort,
		"server.log_level":             DefaultServerLogLevel,
		"server.read_timeout":          DefaultServerReadTimeout,
		"server.write_timeout":         DefaultServerWriteTimeout,
		"server.idle_timeout":          DefaultServerIdleTimeout,
		"server.shutdown_timeout":      DefaultServerShutdownTimeout,
		"server.allowed_origins":       []string{"*"},
		"models.default":               DefaultModelDefault,
		"models.max_fallback_attempts": DefaultModelMaxFallbackAttempts,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "gemini"},
		},
		"transcript.session_expiry":       DefaultTranscriptSessionExpiry,
		"transcript.max_sessions":         DefaultTranscriptMaxSessions,
		"transcript.sweep_interval":       DefaultTranscriptSweepInterval,
		"transcript.base_url":             DefaultTranscriptBaseURL,
		"transcript.language":             DefaultTranscriptLanguage,
		"transcript.timeout":              DefaultTranscriptTimeout,
		"video.default_questions":         DefaultVideoQuestions,
		"video.max_questions":             DefaultVideoMaxQuestions,
		"video.default_difficulty":        DefaultVideoDifficulty,
		"mail.enabled":                    DefaultMailEnabled,
		"mail.imap_server":                DefaultMailIMAPServer,
		"mail.mailbox":                    DefaultMailMailbox,
		"mail.data_dir":                   filepath.Join(os.Getenv("HOME"), ".sift", "mail"),
		"mail.fetch_limit":                DefaultMailFetchLimit,
		"mail.days_back":                  DefaultMailDaysBack,
		"mail.processed_limit":            DefaultMailProcessedLimit,
		"mail.timeout":                    DefaultMailTimeout,
		"mail.lock_timeout":               DefaultMailLockTimeout,
		"mail.lock_retry":                 DefaultMailLockRetry,
		"daemon.shutdown_timeout":         DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":    DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout": DefaultDaemonStartupShutdownTimeout,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".sift", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables
	k.Load(env.Provider("SIFT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SIFT_")), "_", ".", -1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "gemini"
		}
	}
	if cfg.Video.Model == "" {
		cfg.Video.Model = cfg.Models.Default
	}
	if cfg.Mail.ClassifierModel == "" {
		cfg.Mail.ClassifierModel = cfg.Models.Default
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	// Post-Process: Inject standard Env Vars if missing
	injectAPIKey(&cfg, "gemini", os.Getenv("GEMINI_API_KEY"))
	injectAPIKey(&cfg, "openai", os.Getenv("OPENAI_API_KEY"))
	injectAPIKey(&cfg, "anthropic", os.Getenv("ANTHROPIC_API_KEY"))

	if v := os.Getenv("EMAIL_ADDRESS"); v != "" && cfg.Mail.Address == "" {
		cfg.Mail.Address = v
	}
	if v := os.Getenv("EMAIL_PASSWORD"); v != "" && cfg.Mail.Password == "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" && cfg.Mail.Notify.Slack.BotToken == "" {
		cfg.Mail.Notify.Slack.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" && cfg.Mail.Notify.Telegram.BotToken == "" {
		cfg.Mail.Notify.Telegram.BotToken = v
	}
	if v := os.Getenv("IMAP_SERVER"); v != "" && cfg.Mail.IMAPServer == DefaultMailIMAPServer {
		if !strings.Contains(v, ":") {
			v += ":993"
		}
		cfg.Mail.IMAPServer = v
	}

	return &cfg, nil
}

func injectAPIKey(cfg *Config, provider, key string) {
	if key == "" {
		return
	}
	for i, m := range cfg.Models.Registry {
		if m.Provider == provider && m.APIKey == "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	dataDir, err := expandConfiguredPath(cfg.Mail.DataDir)
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.Mail.DataDir = dataDir
	}

	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	expanded, err := pathutil.Expand(trimmed)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
