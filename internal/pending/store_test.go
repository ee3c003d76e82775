package pending

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/knowledge-gate/backend/internal/knowledge"
	"github.com/knowledge-gate/backend/internal/quality"
)

// testClock is a manually advanced clock for the store's now hook.
type testClock struct {
	current time.Time
}

func newTestClock() *testClock {
	return &testClock{current: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) now() time.Time {
	return c.current
}

func (c *testClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestStore(ttl time.Duration) (*Store, *testClock) {
	clock := newTestClock()
	s := NewStore(ttl)
	s.now = clock.now
	return s, clock
}

func testSubmission(content string) knowledge.Submission {
	return knowledge.Submission{
		Content: content,
		Type:    "bug",
		Source:  "github",
	}
}

func TestAddAndGet(t *testing.T) {
	s, clock := newTestStore(30 * time.Minute)

	entry := s.Add(testSubmission("first"), quality.Report{Composite: 0.7}, []float32{0.1, 0.2}, nil)

	if !strings.HasPrefix(entry.ID, "pending-") {
		t.Errorf("entry ID = %q, want pending- prefix", entry.ID)
	}
	if !entry.ExpiresAt.Equal(clock.current.Add(30 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want creation + TTL", entry.ExpiresAt)
	}

	got, err := s.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get() = %v, want nil", err)
	}
	if got.Submission.Content != "first" {
		t.Errorf("Get() content = %q, want %q", got.Submission.Content, "first")
	}
	if len(got.Embedding) != 2 {
		t.Errorf("Get() embedding length = %d, want 2", len(got.Embedding))
	}
}

func TestGetUnknownID(t *testing.T) {
	s, _ := newTestStore(30 * time.Minute)

	_, err := s.Get("pending-nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() = %v, want ErrNotFound", err)
	}
}

func TestExpiryDistinctFromNotFound(t *testing.T) {
	s, clock := newTestStore(30 * time.Minute)
	entry := s.Add(testSubmission("stale"), quality.Report{}, nil, nil)

	clock.advance(31 * time.Minute)

	_, err := s.Get(entry.ID)
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("Get() = %v, want ErrExpired on first touch", err)
	}

	// The expired entry is removed on touch; a second lookup no longer
	// knows the id.
	_, err = s.Get(entry.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() = %v, want ErrNotFound after removal", err)
	}
}

func TestEntryAtExactTTLIsNotExpired(t *testing.T) {
	s, clock := newTestStore(30 * time.Minute)
	entry := s.Add(testSubmission("edge"), quality.Report{}, nil, nil)

	clock.advance(30 * time.Minute)

	if _, err := s.Get(entry.ID); err != nil {
		t.Fatalf("Get() at exact TTL = %v, want nil", err)
	}
}

func TestClaimRemovesEntry(t *testing.T) {
	s, _ := newTestStore(30 * time.Minute)
	entry := s.Add(testSubmission("once"), quality.Report{}, nil, nil)

	claimed, err := s.Claim(entry.ID)
	if err != nil {
		t.Fatalf("Claim() = %v, want nil", err)
	}
	if claimed.ID != entry.ID {
		t.Errorf("Claim() ID = %q, want %q", claimed.ID, entry.ID)
	}

	if _, err := s.Claim(entry.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Claim() = %v, want ErrNotFound", err)
	}
}

func TestRestoreKeepsIdentityAndExpiry(t *testing.T) {
	s, clock := newTestStore(30 * time.Minute)
	entry := s.Add(testSubmission("retry"), quality.Report{}, nil, nil)

	claimed, err := s.Claim(entry.ID)
	if err != nil {
		t.Fatalf("Claim() = %v", err)
	}
	s.Restore(claimed)

	got, err := s.Get(entry.ID)
	if err != nil {
		t.Fatalf("Get() after Restore = %v, want nil", err)
	}
	if !got.ExpiresAt.Equal(entry.ExpiresAt) {
		t.Errorf("ExpiresAt changed across Restore: %v vs %v", got.ExpiresAt, entry.ExpiresAt)
	}

	// Restore does not extend the TTL.
	clock.advance(31 * time.Minute)
	if _, err := s.Get(entry.ID); !errors.Is(err, ErrExpired) {
		t.Fatalf("Get() = %v, want ErrExpired after original TTL", err)
	}
}

func TestListSortsOldestFirstAndPrunes(t *testing.T) {
	s, clock := newTestStore(30 * time.Minute)

	first := s.Add(testSubmission("first"), quality.Report{}, nil, nil)
	clock.advance(5 * time.Minute)
	second := s.Add(testSubmission("second"), quality.Report{}, nil, nil)
	clock.advance(5 * time.Minute)
	third := s.Add(testSubmission("third"), quality.Report{}, nil, nil)

	// 26 minutes after the first entry was added, only it has expired.
	clock.advance(21 * time.Minute)

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("List() length = %d, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != third.ID {
		t.Errorf("List() order = [%s %s], want [%s %s]", list[0].ID, list[1].ID, second.ID, third.ID)
	}

	if _, err := s.Get(first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(first) = %v, want ErrNotFound after List pruned it", err)
	}
}

func TestCleanupExpired(t *testing.T) {
	s, clock := newTestStore(10 * time.Minute)

	s.Add(testSubmission("a"), quality.Report{}, nil, nil)
	s.Add(testSubmission("b"), quality.Report{}, nil, nil)
	clock.advance(5 * time.Minute)
	s.Add(testSubmission("c"), quality.Report{}, nil, nil)

	clock.advance(6 * time.Minute)

	if removed := s.CleanupExpired(); removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	if removed := s.CleanupExpired(); removed != 0 {
		t.Errorf("second CleanupExpired() = %d, want 0", removed)
	}
}

func TestLenExcludesExpired(t *testing.T) {
	s, clock := newTestStore(10 * time.Minute)

	s.Add(testSubmission("a"), quality.Report{}, nil, nil)
	clock.advance(11 * time.Minute)
	s.Add(testSubmission("b"), quality.Report{}, nil, nil)

	if got := s.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}
