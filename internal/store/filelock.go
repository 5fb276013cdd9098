package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harunnryd/sift/internal/config"

	"github.com/gofrs/flock"
)

// LockFileName is the advisory lock guarding a data directory.
const LockFileName = "sift.lock"

// FileLock holds an exclusive advisory lock on a data directory so two sift
// processes never interleave writes to the same JSON files.
type FileLock struct {
	fileLock   *flock.Flock
	lockPath   string
	owner      string
	acquiredAt time.Time
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
}

type FileLockConfig struct {
	LockTimeout  time.Duration
	LockRetry    time.Duration
	LockMaxRetry int
}

func DefaultFileLockConfig() *FileLockConfig {
	cfg, _ := NewFileLockConfig(config.DefaultMailLockTimeout, config.DefaultMailLockRetry)
	return cfg
}

// NewFileLockConfig parses the configured timeout and retry interval. The
// retry budget is the number of intervals that fit in the timeout.
func NewFileLockConfig(timeout, retry string) (*FileLockConfig, error) {
	lockTimeout, err := config.DurationOrDefault(timeout, config.DefaultMailLockTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid lock timeout: %w", err)
	}
	lockRetry, err := config.DurationOrDefault(retry, config.DefaultMailLockRetry)
	if err != nil {
		return nil, fmt.Errorf("invalid lock retry: %w", err)
	}
	if lockRetry <= 0 {
		lockRetry = 100 * time.Millisecond
	}

	maxRetry := int(lockTimeout / lockRetry)
	if maxRetry < 1 {
		maxRetry = 1
	}

	return &FileLockConfig{
		LockTimeout:  lockTimeout,
		LockRetry:    lockRetry,
		LockMaxRetry: maxRetry,
	}, nil
}

func NewFileLock(owner, dir string, cfg *FileLockConfig) (*FileLock, error) {
	if cfg == nil {
		cfg = DefaultFileLockConfig()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	lockPath := filepath.Join(dir, LockFileName)
	fileLock := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LockTimeout)

	fl := &FileLock{
		fileLock: fileLock,
		lockPath: lockPath,
		owner:    owner,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := fl.acquireWithRetry(cfg); err != nil {
		cancel()
		return nil, err
	}

	fl.acquiredAt = time.Now()
	slog.Info("File lock acquired",
		"owner", owner,
		"path", lockPath,
		"acquired_at", fl.acquiredAt.Format(time.RFC3339Nano),
	)

	return fl, nil
}

func (fl *FileLock) acquireWithRetry(cfg *FileLockConfig) error {
	for i := 0; i < cfg.LockMaxRetry; i++ {
		select {
		case <-fl.ctx.Done():
			return fmt.Errorf("lock acquisition cancelled: %w", fl.ctx.Err())
		default:
			locked, err := fl.fileLock.TryLock()
			if err != nil {
				return fmt.Errorf("failed to attempt lock: %w", err)
			}
			if locked {
				return nil
			}

			if i < cfg.LockMaxRetry-1 {
				time.Sleep(cfg.LockRetry)
			}
		}
	}

	return fmt.Errorf("data dir %s is locked by another instance (timeout after %v)",
		filepath.Dir(fl.lockPath), cfg.LockTimeout)
}

func (fl *FileLock) Unlock() {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.fileLock == nil {
		slog.Warn("FileLock already unlocked", "owner", fl.owner)
		return
	}

	heldDuration := time.Since(fl.acquiredAt)

	if err := fl.fileLock.Unlock(); err != nil {
		slog.Error("Failed to release file lock",
			"owner", fl.owner,
			"path", fl.lockPath,
			"error", err,
		)
	} else {
		slog.Info("File lock released",
			"owner", fl.owner,
			"held_duration_ms", heldDuration.Milliseconds(),
		)
	}

	if fl.cancel != nil {
		fl.cancel()
	}

	fl.fileLock = nil
}

func (fl *FileLock) IsLocked() bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return fl.fileLock != nil
}

func (fl *FileLock) HeldDuration() time.Duration {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	if fl.acquiredAt.IsZero() {
		return 0
	}
	return time.Since(fl.acquiredAt)
}
