package pending

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/knowledge-gate/backend/internal/knowledge"
	"github.com/knowledge-gate/backend/internal/quality"
)

var (
	// ErrNotFound means the pending id never existed or was already
	// confirmed, rejected or swept.
	ErrNotFound = errors.New("pending entry not found")
	// ErrExpired means the id existed but its TTL has passed. It is
	// reported distinctly so callers can tell "too late" from "never
	// existed".
	ErrExpired = errors.New("pending entry expired")
)

// Entry wraps a submission awaiting confirmation together with its
// quality report and the embedding computed at process time, so a
// later approve does not re-embed.
type Entry struct {
	ID         string                `json:"id"`
	Submission knowledge.Submission  `json:"submission"`
	Report     quality.Report        `json:"report"`
	Embedding  []float32             `json:"-"`
	Duplicates []knowledge.Duplicate `json:"duplicates,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
	ExpiresAt  time.Time             `json:"expires_at"`
}

// Store is the in-memory holding area for pending entries. It is the
// only shared mutable state in the pipeline; a single mutex guards all
// operations, which is plenty at the expected volume. Entries found
// expired by Get, Claim or List are removed on the spot, so expiry is
// never observed later than TTL plus one sweep interval.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Add stores a new pending entry and returns it with a fresh id and
// computed expiry.
func (s *Store) Add(sub knowledge.Submission, report quality.Report, embedding []float32, duplicates []knowledge.Duplicate) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := &Entry{
		ID:         fmt.Sprintf("pending-%s", uuid.New().String()[:12]),
		Submission: sub,
		Report:     report,
		Embedding:  embedding,
		Duplicates: duplicates,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	s.entries[entry.ID] = entry
	return entry
}

func (s *Store) Get(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(id)
}

// Claim removes and returns an entry in one step. Confirmation uses it
// so two concurrent confirms of the same id cannot both proceed.
func (s *Store) Claim(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.lookupLocked(id)
	if err != nil {
		return nil, err
	}
	delete(s.entries, id)
	return entry, nil
}

// Restore puts a claimed entry back, keeping its original id and
// timestamps. Used when the external store hand-off fails so the
// caller can retry the confirmation until the TTL runs out.
func (s *Store) Restore(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ID] = entry
}

// List returns non-expired entries sorted by creation time ascending,
// oldest (closest to expiry) first.
func (s *Store) List() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	list := make([]*Entry, 0, len(s.entries))
	for id, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, id)
			continue
		}
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// CleanupExpired removes every entry past its expiry and reports how
// many were dropped.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if now.After(entry.ExpiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len counts non-expired entries without removing anything.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, entry := range s.entries {
		if !now.After(entry.ExpiresAt) {
			count++
		}
	}
	return count
}

func (s *Store) lookupLocked(id string) (*Entry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(entry.ExpiresAt) {
		delete(s.entries, id)
		return nil, ErrExpired
	}
	return entry, nil
}
