package knowledge

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/pkg/logger"
)

// duplicateProbeLimit bounds how many nearest neighbors are inspected
// for the duplicate check.
const duplicateProbeLimit = 5

const previewLength = 100

// Base is the domain wrapper over the external vector store and the
// embedding service.
type Base struct {
	store               VectorStore
	embedder            Embedder
	duplicateSimilarity float64
	now                 func() time.Time
}

func NewBase(store VectorStore, embedder Embedder, duplicateSimilarity float64) *Base {
	return &Base{
		store:               store,
		embedder:            embedder,
		duplicateSimilarity: duplicateSimilarity,
		now:                 time.Now,
	}
}

func (b *Base) Embed(ctx context.Context, text string) ([]float32, error) {
	return b.embedder.Embed(ctx, text)
}

// Store persists a submission with a pre-computed embedding and
// returns the store-assigned identifier. IDs are derived from
// content and source, so re-storing identical content upserts.
func (b *Base) Store(ctx context.Context, sub Submission, embedding []float32) (string, error) {
	entry := Entry{
		ID:        entryID(sub.Content, sub.Source),
		Content:   sub.Content,
		Type:      sub.Type,
		Tags:      sub.Tags,
		Source:    sub.Source,
		FilePaths: sub.FilePaths,
		CreatedAt: b.now().UTC(),
	}

	if err := b.store.Insert(ctx, entry, embedding); err != nil {
		return "", fmt.Errorf("failed to store entry: %w", err)
	}

	logger.Info("knowledge entry stored",
		zap.String("id", entry.ID),
		zap.String("type", entry.Type),
		zap.String("source", entry.Source),
	)
	return entry.ID, nil
}

// Search runs a semantic query with an optional type filter.
func (b *Base) Search(ctx context.Context, query, typeFilter string, limit int) ([]SearchResult, error) {
	embedding, err := b.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return b.store.Search(ctx, embedding, typeFilter, limit)
}

// FindDuplicates returns existing entries whose similarity to the
// embedding is at or above the configured threshold, most similar
// first; equal similarity orders by entry recency, newest first. The
// result is informational and never blocks storage on its own.
func (b *Base) FindDuplicates(ctx context.Context, embedding []float32) ([]Duplicate, error) {
	hits, err := b.store.Search(ctx, embedding, "", duplicateProbeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search for duplicates: %w", err)
	}

	// Compare in the score's float32 domain so an exact-threshold hit
	// stays inclusive instead of falling just under the float64 value.
	threshold := float32(b.duplicateSimilarity)
	duplicates := make([]Duplicate, 0)
	for _, hit := range hits {
		if hit.Score < threshold {
			continue
		}
		duplicates = append(duplicates, Duplicate{
			ID:             hit.ID,
			Similarity:     hit.Score,
			ContentPreview: preview(hit.Content),
			CreatedAt:      hit.CreatedAt,
		})
	}

	sort.SliceStable(duplicates, func(i, j int) bool {
		if duplicates[i].Similarity != duplicates[j].Similarity {
			return duplicates[i].Similarity > duplicates[j].Similarity
		}
		return duplicates[i].CreatedAt.After(duplicates[j].CreatedAt)
	})
	return duplicates, nil
}

func (b *Base) GetByID(ctx context.Context, id string) (*Entry, error) {
	return b.store.GetByID(ctx, id)
}

func (b *Base) GetByFilePath(ctx context.Context, filePath string, limit int) ([]Entry, error) {
	return b.store.QueryByFilePath(ctx, filePath, limit)
}

func (b *Base) Delete(ctx context.Context, id string) error {
	return b.store.Delete(ctx, id)
}

// entryID derives a UUID-shaped identifier from content and source.
func entryID(content, source string) string {
	sum := sha256.Sum256([]byte(content + "|" + source))
	id, err := uuid.FromBytes(sum[:16])
	if err != nil {
		// sum is always 16 bytes here; FromBytes cannot fail.
		panic(err)
	}
	return id.String()
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength])
}
