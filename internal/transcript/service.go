package transcript

import (
	"context"
	"fmt"
	"strings"
	"time"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/logger"

	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a shared provider fetch.
const DefaultFetchTimeout = 30 * time.Second

// ErrUnavailable reports that a video has no transcript the provider can serve.
var ErrUnavailable = fmt.Errorf("transcript not available for this video: %w", siftErrors.ErrNotFound)

// Provider fetches a transcript from an external source.
type Provider interface {
	Fetch(ctx context.Context, videoID string) ([]Segment, error)
}

// Service resolves transcripts through the session cache and falls back to
// the provider on a miss. Concurrent misses for the same video share a single
// provider call. The shared call is detached from any single caller, so one
// caller giving up never fails the others.
type Service struct {
	cache        *Cache
	provider     Provider
	fetchTimeout time.Duration
	group        singleflight.Group
}

func NewService(cache *Cache, provider Provider) *Service {
	return &Service{cache: cache, provider: provider, fetchTimeout: DefaultFetchTimeout}
}

// WithFetchTimeout sets the bound on a shared provider fetch. Non-positive
// values keep the default.
func (s *Service) WithFetchTimeout(d time.Duration) *Service {
	if d > 0 {
		s.fetchTimeout = d
	}
	return s
}

func (s *Service) Cache() *Cache {
	return s.cache
}

// Resolve returns the transcript for videoID within sessionKey. A transcript
// supplied by the caller wins and is cached as is.
func (s *Service) Resolve(ctx context.Context, sessionKey, videoID string, provided []Segment) ([]Segment, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, siftErrors.InvalidInput("video_id is required")
	}

	log := logger.From(ctx)

	if len(provided) > 0 {
		s.cache.Store(sessionKey, videoID, provided)
		log.Debug("Stored caller transcript", "video_id", videoID, "segments", len(provided))
		return provided, nil
	}

	if segments, ok := s.cache.Get(sessionKey, videoID); ok && len(segments) > 0 {
		log.Debug("Transcript cache hit", "video_id", videoID)
		return segments, nil
	}

	if s.provider == nil {
		return nil, ErrUnavailable
	}

	ch := s.group.DoChan(videoID, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.provider.Fetch(fetchCtx, videoID)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		log.Debug("Transcript wait abandoned", "video_id", videoID, "error", ctx.Err())
		return nil, ctx.Err()
	}
	if res.Err != nil {
		log.Warn("Transcript fetch failed", "video_id", videoID, "error", res.Err)
		return nil, siftErrors.MapError(res.Err)
	}

	segments, _ := res.Val.([]Segment)
	if len(segments) == 0 {
		return nil, ErrUnavailable
	}

	s.cache.Store(sessionKey, videoID, segments)
	log.Info("Transcript fetched", "video_id", videoID, "segments", len(segments), "shared", res.Shared)
	return segments, nil
}
