// Package transcript caches video transcripts per caller session and fetches
// them from an external provider on a miss.
package transcript

import (
	"slices"
	"sync"
	"time"
)

const (
	DefaultSessionExpiry = 30 * time.Minute
	DefaultMaxSessions   = 1000
)

// Clock abstracts time so expiry and eviction can be driven by tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type CacheConfig struct {
	SessionExpiry time.Duration
	MaxSessions   int
}

// Stats is a point-in-time view of the cache, reported by the health endpoint.
type Stats struct {
	Sessions    int    `json:"sessions"`
	Videos      int    `json:"videos"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

type cachedTranscript struct {
	segments     []Segment
	lastAccessed time.Time
}

type session struct {
	videos map[string]*cachedTranscript
	seq    uint64
}

// lastAccess is the most recent access across all videos of the session.
func (s *session) lastAccess() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, v := range s.videos {
		if !found || v.lastAccessed.After(latest) {
			latest = v.lastAccessed
			found = true
		}
	}
	return latest, found
}

// Cache maps (session, video) to a transcript. Sessions expire once every
// video in them has been idle for SessionExpiry, and the number of sessions is
// bounded by MaxSessions through least-recently-used eviction. One mutex
// guards the whole store, so each Get or Store runs its sweep, eviction and
// insert as a single unit.
type Cache struct {
	mu          sync.Mutex
	clock       Clock
	expiry      time.Duration
	maxSessions int
	sessions    map[string]*session
	nextSeq     uint64
	stats       Stats
}

func NewCache(cfg CacheConfig, clock Clock) *Cache {
	if cfg.SessionExpiry <= 0 {
		cfg.SessionExpiry = DefaultSessionExpiry
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &Cache{
		clock:       clock,
		expiry:      cfg.SessionExpiry,
		maxSessions: cfg.MaxSessions,
		sessions:    make(map[string]*session),
	}
}

// Get returns the cached transcript for the video within the session and
// refreshes its access time. A miss is reported through ok, never as an error.
func (c *Cache) Get(sessionKey, videoID string) ([]Segment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.sweepLocked(now)

	sess, ok := c.sessions[sessionKey]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	entry, ok := sess.videos[videoID]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	entry.lastAccessed = now
	c.stats.Hits++
	return slices.Clone(entry.segments), true
}

// Store caches segments for the video, replacing any previous entry. When the
// insert pushes the session count over the limit, the least recently used
// session is dropped as a whole.
func (c *Cache) Store(sessionKey, videoID string, segments []Segment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.sweepLocked(now)

	sess, ok := c.sessions[sessionKey]
	if !ok {
		c.nextSeq++
		sess = &session{videos: make(map[string]*cachedTranscript), seq: c.nextSeq}
		c.sessions[sessionKey] = sess
	}

	sess.videos[videoID] = &cachedTranscript{
		segments:     slices.Clone(segments),
		lastAccessed: now,
	}

	if len(c.sessions) > c.maxSessions {
		c.evictOldestLocked()
	}
}

// Sweep removes expired sessions and returns how many were dropped.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.clock.Now())
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.stats
	out.Sessions = len(c.sessions)
	for _, sess := range c.sessions {
		out.Videos += len(sess.videos)
	}
	return out
}

func (c *Cache) sweepLocked(now time.Time) int {
	removed := 0
	for key, sess := range c.sessions {
		latest, ok := sess.lastAccess()
		if !ok || now.Sub(latest) >= c.expiry {
			delete(c.sessions, key)
			removed++
		}
	}
	c.stats.Expirations += uint64(removed)
	return removed
}

// evictOldestLocked drops the session whose latest access is the oldest.
// Ties go to the session created first.
func (c *Cache) evictOldestLocked() {
	var (
		victim     string
		victimTime time.Time
		victimSeq  uint64
		found      bool
	)

	for key, sess := range c.sessions {
		latest, _ := sess.lastAccess()
		if !found || latest.Before(victimTime) || (latest.Equal(victimTime) && sess.seq < victimSeq) {
			victim, victimTime, victimSeq, found = key, latest, sess.seq, true
		}
	}

	if found {
		delete(c.sessions, victim)
		c.stats.Evictions++
	}
}
