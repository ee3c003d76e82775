package knowledge

import (
	"context"
	"time"
)

// Submission is a candidate knowledge entry as received from a caller.
// It is never mutated; the pipeline only reads it to produce a decision.
type Submission struct {
	Content   string   `json:"content"`
	Type      string   `json:"type"`
	Tags      []string `json:"tags"`
	Source    string   `json:"source"`
	FilePaths []string `json:"file_paths,omitempty"`
}

// Entry is a persisted knowledge record as held by the vector store.
type Entry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Type      string    `json:"type"`
	Tags      []string  `json:"tags"`
	Source    string    `json:"source"`
	FilePaths []string  `json:"file_paths,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchResult pairs an entry with its similarity to a query.
type SearchResult struct {
	Entry
	Score float32 `json:"score"`
}

// Duplicate describes an existing entry whose similarity to a new
// submission is at or above the configured duplicate threshold.
type Duplicate struct {
	ID             string    `json:"id"`
	Similarity     float32   `json:"similarity"`
	ContentPreview string    `json:"content_preview"`
	CreatedAt      time.Time `json:"created_at"`
}

// VectorStore is the external store boundary. Milvus implements it in
// production; tests substitute fakes.
type VectorStore interface {
	Insert(ctx context.Context, entry Entry, embedding []float32) error
	Search(ctx context.Context, embedding []float32, typeFilter string, limit int) ([]SearchResult, error)
	GetByID(ctx context.Context, id string) (*Entry, error)
	QueryByFilePath(ctx context.Context, filePath string, limit int) ([]Entry, error)
	Delete(ctx context.Context, id string) error
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
