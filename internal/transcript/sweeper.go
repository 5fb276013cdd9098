package transcript

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/sift/internal/concurrency"
)

// Sweeper runs the cache expiry sweep on a fixed interval. The sweep is the
// same one every Get and Store performs, so running it early never changes
// what a caller observes.
type Sweeper struct {
	cache    *Cache
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSweeper(cache *Cache, interval time.Duration) *Sweeper {
	return &Sweeper{cache: cache, interval: interval}
}

// Start launches the sweep loop. A non-positive interval disables it.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 || s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	concurrency.SafeGo("transcript-sweeper", func() { s.run(ctx, done) }, nil)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.cache.Sweep(); removed > 0 {
				st := s.cache.Stats()
				slog.Debug("Expired transcript sessions removed", "removed", removed, "sessions", st.Sessions, "videos", st.Videos)
			}
		}
	}
}
