package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/harunnryd/sift/internal/pathutil"
)

const (
	PreferencesFile = "user_preferences.json"
	ProcessedFile   = "processed_emails.json"
	FeedbackFile    = "feedback.json"
	SchedulerFile   = "scheduler.json"
)

// ResolveDataDir resolves the configured mail data dir.
// If empty, it falls back to ~/.sift/mail.
func ResolveDataDir(dataDir string) (string, error) {
	if trimmed := strings.TrimSpace(dataDir); trimmed != "" {
		return pathutil.Expand(trimmed)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sift", "mail"), nil
}

func PreferencesPath(dataDir string) string {
	return filepath.Join(dataDir, PreferencesFile)
}

func ProcessedPath(dataDir string) string {
	return filepath.Join(dataDir, ProcessedFile)
}

func FeedbackPath(dataDir string) string {
	return filepath.Join(dataDir, FeedbackFile)
}

func SchedulerPath(dataDir string) string {
	return filepath.Join(dataDir, SchedulerFile)
}
