package mail

import (
	"slices"
	"sync"

	"github.com/harunnryd/sift/internal/priority"
)

type SummaryEntry struct {
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
}

// DailySummary groups processed messages by their final label until reset.
type DailySummary struct {
	mu      sync.Mutex
	entries map[priority.Label][]SummaryEntry
}

func NewDailySummary() *DailySummary {
	return &DailySummary{entries: make(map[priority.Label][]SummaryEntry)}
}

func (d *DailySummary) Add(label priority.Label, entry SummaryEntry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[label] = append(d.entries[label], entry)
}

// Snapshot returns a copy holding only labels that have entries.
func (d *DailySummary) Snapshot() map[priority.Label][]SummaryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[priority.Label][]SummaryEntry, len(d.entries))
	for label, list := range d.entries {
		out[label] = slices.Clone(list)
	}
	return out
}

func (d *DailySummary) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = make(map[priority.Label][]SummaryEntry)
}
