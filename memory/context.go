package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/becomeliminal/salesdesk/core"
)

// Well-known context keys agents publish under.
const (
	KeyMeetingSummary  = "latest_meeting_summary"
	KeyLeadSuggestions = "latest_lead_suggestions"
	KeyLeadScores      = "latest_lead_scores"
	KeyProposal        = "latest_proposal_context"
	KeyFollowUp        = "latest_follow_up"
)

// ContextEntry is the latest document stored under a key.
type ContextEntry struct {
	Key      string        `json:"key"`
	Payload  core.Document `json:"payload"`
	StoredAt time.Time     `json:"stored_at"`
}

// ContextStore is a last-write-wins map from key to document.
// Entries live until EvictOlderThan removes them or the process exits.
// All methods are safe for concurrent use.
type ContextStore struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]ContextEntry
}

// NewContextStore creates an empty store. A nil clock means time.Now.
func NewContextStore(clock func() time.Time) *ContextStore {
	if clock == nil {
		clock = time.Now
	}
	return &ContextStore{
		now:     clock,
		entries: make(map[string]ContextEntry),
	}
}

// Store saves doc under key, replacing any previous value.
func (s *ContextStore) Store(key string, doc core.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = ContextEntry{
		Key:      key,
		Payload:  doc,
		StoredAt: s.now(),
	}
}

// Get returns the document stored under key. The second result is false when
// nothing is stored there, which is distinct from a stored empty document.
func (s *ContextStore) Get(key string) (core.Document, bool) {
	e, ok := s.Entry(key)
	return e.Payload, ok
}

// Entry returns the full entry stored under key.
func (s *ContextStore) Entry(key string) (ContextEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return e, ok
}

// Keys returns the stored keys in sorted order.
func (s *ContextStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (s *ContextStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// EvictOlderThan removes every entry whose age exceeds maxAge and returns
// how many were removed. Negative ages are treated as zero.
func (s *ContextStore) EvictOlderThan(maxAge time.Duration) int {
	if maxAge < 0 {
		maxAge = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for key, e := range s.entries {
		if e.StoredAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
