package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	inserted  []Entry
	hits      []SearchResult
	searchErr error
	deleted   []string
}

func (f *fakeStore) Insert(ctx context.Context, entry Entry, embedding []float32) error {
	f.inserted = append(f.inserted, entry)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, embedding []float32, typeFilter string, limit int) ([]SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*Entry, error) {
	for i := range f.inserted {
		if f.inserted[i].ID == id {
			return &f.inserted[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) QueryByFilePath(ctx context.Context, filePath string, limit int) ([]Entry, error) {
	return nil, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func hit(id string, score float32, createdAt time.Time, content string) SearchResult {
	return SearchResult{
		Entry: Entry{ID: id, Content: content, CreatedAt: createdAt},
		Score: score,
	}
}

func TestStoreDerivesDeterministicID(t *testing.T) {
	store := &fakeStore{}
	b := NewBase(store, &fakeEmbedder{vector: []float32{1}}, 0.90)

	sub := Submission{Content: "the fix", Type: "bug", Source: "github"}

	id1, err := b.Store(context.Background(), sub, []float32{1})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	id2, err := b.Store(context.Background(), sub, []float32{1})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if id1 != id2 {
		t.Errorf("same content and source gave ids %q and %q, want identical", id1, id2)
	}

	// A different source must change the id even for identical content.
	sub.Source = "slack"
	id3, err := b.Store(context.Background(), sub, []float32{1})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if id3 == id1 {
		t.Error("different source gave the same id")
	}
}

func TestStorePersistsSubmissionFields(t *testing.T) {
	store := &fakeStore{}
	b := NewBase(store, &fakeEmbedder{vector: []float32{1}}, 0.90)

	sub := Submission{
		Content:   "connection pool exhausted",
		Type:      "incident",
		Tags:      []string{"db"},
		Source:    "jira",
		FilePaths: []string{"internal/db/pool.go"},
	}
	if _, err := b.Store(context.Background(), sub, []float32{1}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	entry := store.inserted[0]
	if entry.Content != sub.Content || entry.Type != sub.Type || entry.Source != sub.Source {
		t.Errorf("stored entry = %+v, want submission fields carried over", entry)
	}
	if len(entry.FilePaths) != 1 || entry.FilePaths[0] != "internal/db/pool.go" {
		t.Errorf("FilePaths = %v, want preserved", entry.FilePaths)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestFindDuplicatesFiltersByThreshold(t *testing.T) {
	now := time.Now()
	store := &fakeStore{hits: []SearchResult{
		hit("a", 0.95, now, "close match"),
		hit("b", 0.90, now, "exactly at threshold"),
		hit("c", 0.89, now, "just below"),
		hit("d", 0.40, now, "unrelated"),
	}}
	b := NewBase(store, &fakeEmbedder{}, 0.90)

	dups, err := b.FindDuplicates(context.Background(), []float32{1})
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if len(dups) != 2 {
		t.Fatalf("got %d duplicates, want 2 (threshold is inclusive)", len(dups))
	}
	if dups[0].ID != "a" || dups[1].ID != "b" {
		t.Errorf("order = [%s %s], want most similar first", dups[0].ID, dups[1].ID)
	}
}

func TestFindDuplicatesTieBreaksByRecency(t *testing.T) {
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	store := &fakeStore{hits: []SearchResult{
		hit("old", 0.95, older, "first write-up"),
		hit("new", 0.95, newer, "second write-up"),
	}}
	b := NewBase(store, &fakeEmbedder{}, 0.90)

	dups, err := b.FindDuplicates(context.Background(), []float32{1})
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if dups[0].ID != "new" {
		t.Errorf("tie broke to %q, want newest first", dups[0].ID)
	}
}

func TestFindDuplicatesTruncatesPreview(t *testing.T) {
	long := make([]rune, 0, 150)
	for i := 0; i < 150; i++ {
		long = append(long, 'x')
	}
	store := &fakeStore{hits: []SearchResult{
		hit("a", 0.95, time.Now(), string(long)),
	}}
	b := NewBase(store, &fakeEmbedder{}, 0.90)

	dups, err := b.FindDuplicates(context.Background(), []float32{1})
	if err != nil {
		t.Fatalf("FindDuplicates() error = %v", err)
	}
	if got := len([]rune(dups[0].ContentPreview)); got != 100 {
		t.Errorf("preview length = %d, want 100", got)
	}
}

func TestFindDuplicatesSearchError(t *testing.T) {
	store := &fakeStore{searchErr: errors.New("collection not loaded")}
	b := NewBase(store, &fakeEmbedder{}, 0.90)

	if _, err := b.FindDuplicates(context.Background(), []float32{1}); err == nil {
		t.Fatal("FindDuplicates() = nil error, want search failure surfaced")
	}
}

func TestSearchEmbedsQuery(t *testing.T) {
	store := &fakeStore{hits: []SearchResult{hit("a", 0.8, time.Now(), "match")}}
	b := NewBase(store, &fakeEmbedder{vector: []float32{1}}, 0.90)

	results, err := b.Search(context.Background(), "pool exhaustion", "incident", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
}

func TestSearchEmbedFailure(t *testing.T) {
	b := NewBase(&fakeStore{}, &fakeEmbedder{err: errors.New("api down")}, 0.90)

	if _, err := b.Search(context.Background(), "anything", "", 10); err == nil {
		t.Fatal("Search() = nil error, want embed failure surfaced")
	}
}
