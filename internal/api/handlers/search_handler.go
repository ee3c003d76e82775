package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/knowledge"
	"github.com/knowledge-gate/backend/pkg/logger"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Searcher is the knowledge base surface the read endpoints need.
type Searcher interface {
	Search(ctx context.Context, query, typeFilter string, limit int) ([]knowledge.SearchResult, error)
	GetByID(ctx context.Context, id string) (*knowledge.Entry, error)
	GetByFilePath(ctx context.Context, filePath string, limit int) ([]knowledge.Entry, error)
	Delete(ctx context.Context, id string) error
}

type SearchHandler struct {
	kb Searcher
}

func NewSearchHandler(kb Searcher) *SearchHandler {
	return &SearchHandler{
		kb: kb,
	}
}

func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
		Type  string `json:"type"`
		Limit int    `json:"limit"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Query) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Query is required",
		})
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	results, err := h.kb.Search(c.Context(), req.Query, req.Type, limit)
	if err != nil {
		logger.Error("Failed to search knowledge base", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to search knowledge base",
		})
	}

	return c.JSON(fiber.Map{
		"results": results,
		"count":   len(results),
	})
}

func (h *SearchHandler) GetEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Entry id is required",
		})
	}

	entry, err := h.kb.GetByID(c.Context(), id)
	if err != nil {
		logger.Error("Failed to fetch entry", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch entry",
		})
	}
	if entry == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Entry not found",
		})
	}

	return c.JSON(entry)
}

func (h *SearchHandler) DeleteEntry(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Entry id is required",
		})
	}

	if err := h.kb.Delete(c.Context(), id); err != nil {
		logger.Error("Failed to delete entry", zap.String("id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete entry",
		})
	}

	return c.JSON(fiber.Map{
		"deleted": id,
	})
}

// GetFileContext returns stored knowledge attached to a source file,
// for editor and agent integrations asking "what do we know about this
// file".
func (h *SearchHandler) GetFileContext(c *fiber.Ctx) error {
	filePath := c.Query("file_path")
	if filePath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file_path is required",
		})
	}

	entries, err := h.kb.GetByFilePath(c.Context(), filePath, defaultSearchLimit)
	if err != nil {
		logger.Error("Failed to fetch file context", zap.String("file_path", filePath), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch file context",
		})
	}

	return c.JSON(fiber.Map{
		"file_path": filePath,
		"entries":   entries,
		"count":     len(entries),
	})
}
