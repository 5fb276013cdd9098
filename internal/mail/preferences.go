package mail

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	siftErrors "github.com/harunnryd/sift/internal/errors"
	"github.com/harunnryd/sift/internal/priority"
	"github.com/harunnryd/sift/internal/store"
)

// Preferences is the user-editable agent configuration persisted as JSON in
// the mail data dir.
type Preferences struct {
	CheckIntervalMinutes    int                         `json:"check_interval_minutes"`
	Folders                 map[priority.Label]string   `json:"folders"`
	VIPSenders              []string                    `json:"vip_senders"`
	AutoCategorize          bool                        `json:"auto_categorize"`
	NotificationPreferences map[priority.Label]bool     `json:"notification_preferences"`
	PriorityKeywords        map[priority.Label][]string `json:"priority_keywords"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		CheckIntervalMinutes: 15,
		Folders: map[priority.Label]string{
			priority.Urgent:    "URGENT",
			priority.Important: "IMPORTANT",
			priority.Routine:   "ROUTINE",
			priority.Low:       "LOW-PRIORITY",
		},
		VIPSenders:     []string{},
		AutoCategorize: true,
		NotificationPreferences: map[priority.Label]bool{
			priority.Urgent:    true,
			priority.Important: true,
			priority.Routine:   false,
			priority.Low:       false,
		},
		PriorityKeywords: map[priority.Label][]string{
			priority.Urgent:    {"urgent", "asap", "emergency", "critical", "immediate"},
			priority.Important: {"important", "priority", "attention", "review", "required"},
			priority.Low:       {"newsletter", "promotion", "offer", "subscription", "digest"},
		},
	}
}

// Rules projects the preferences onto the rule engine input.
func (p Preferences) Rules() priority.Preferences {
	return priority.Preferences{
		VIPSenders:       p.VIPSenders,
		PriorityKeywords: p.PriorityKeywords,
	}
}

func (p Preferences) clone() Preferences {
	out := p
	out.Folders = maps.Clone(p.Folders)
	out.VIPSenders = slices.Clone(p.VIPSenders)
	out.NotificationPreferences = maps.Clone(p.NotificationPreferences)
	out.PriorityKeywords = make(map[priority.Label][]string, len(p.PriorityKeywords))
	for label, words := range p.PriorityKeywords {
		out.PriorityKeywords[label] = slices.Clone(words)
	}
	return out
}

// normalize trims entries, lowercases keywords and rejects unknown labels.
func (p *Preferences) normalize() error {
	if p.CheckIntervalMinutes < 1 {
		return siftErrors.InvalidInput("check_interval_minutes must be at least 1")
	}

	for label := range p.Folders {
		if _, ok := priority.ParseLabel(string(label)); !ok {
			return siftErrors.InvalidInput(fmt.Sprintf("unknown folder label %q", label))
		}
	}
	for label := range p.NotificationPreferences {
		if _, ok := priority.ParseLabel(string(label)); !ok {
			return siftErrors.InvalidInput(fmt.Sprintf("unknown notification label %q", label))
		}
	}

	vips := make([]string, 0, len(p.VIPSenders))
	for _, v := range p.VIPSenders {
		if v = strings.TrimSpace(v); v != "" && !slices.Contains(vips, v) {
			vips = append(vips, v)
		}
	}
	p.VIPSenders = vips

	keywords := make(map[priority.Label][]string, len(p.PriorityKeywords))
	for label, words := range p.PriorityKeywords {
		if _, ok := priority.ParseLabel(string(label)); !ok {
			return siftErrors.InvalidInput(fmt.Sprintf("unknown keyword label %q", label))
		}
		cleaned := make([]string, 0, len(words))
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				cleaned = append(cleaned, w)
			}
		}
		keywords[label] = cleaned
	}
	p.PriorityKeywords = keywords

	return nil
}

// PreferencesStore keeps preferences in memory and writes every change
// through to disk.
type PreferencesStore struct {
	path  string
	prefs Preferences
	mu    sync.RWMutex
}

// LoadPreferences reads path. A missing file is created with defaults; a
// malformed file is logged and replaced in memory by defaults.
func LoadPreferences(path string) (*PreferencesStore, error) {
	s := &PreferencesStore{path: path, prefs: DefaultPreferences()}

	// Decoding over the defaults keeps them for keys the file leaves out.
	loaded := DefaultPreferences()
	found, err := store.ReadJSON(path, &loaded)
	switch {
	case err != nil:
		slog.Warn("Preferences unreadable, using defaults", "path", path, "error", err)
	case !found:
		if err := store.WriteJSON(path, s.prefs); err != nil {
			return nil, err
		}
	default:
		if err := loaded.normalize(); err != nil {
			slog.Warn("Preferences invalid, using defaults", "path", path, "error", err)
		} else {
			s.prefs = loaded
		}
	}

	return s, nil
}

func (s *PreferencesStore) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.clone()
}

// Update applies fn to a copy of the current preferences and persists the
// result. Nothing changes if fn or validation fails.
func (s *PreferencesStore) Update(fn func(*Preferences) error) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.prefs.clone()
	if err := fn(&next); err != nil {
		return Preferences{}, err
	}
	if err := next.normalize(); err != nil {
		return Preferences{}, err
	}
	if err := store.WriteJSON(s.path, next); err != nil {
		return Preferences{}, siftErrors.WrapWithCategory(err, "save preferences", siftErrors.ErrInternal)
	}

	s.prefs = next
	return next.clone(), nil
}

func (s *PreferencesStore) AddVIP(address string) (Preferences, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Preferences{}, siftErrors.InvalidInput("email address is required")
	}
	return s.Update(func(p *Preferences) error {
		if !slices.Contains(p.VIPSenders, address) {
			p.VIPSenders = append(p.VIPSenders, address)
		}
		return nil
	})
}

func (s *PreferencesStore) RemoveVIP(address string) (Preferences, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Preferences{}, siftErrors.InvalidInput("email address is required")
	}
	return s.Update(func(p *Preferences) error {
		p.VIPSenders = slices.DeleteFunc(p.VIPSenders, func(v string) bool { return v == address })
		return nil
	})
}
