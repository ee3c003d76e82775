package handlers

import (
	"context"
	"errors"
	"math"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/knowledge"
	"github.com/knowledge-gate/backend/internal/pending"
	"github.com/knowledge-gate/backend/internal/pipeline"
	"github.com/knowledge-gate/backend/internal/quality"
	"github.com/knowledge-gate/backend/pkg/logger"
)

// Processor is the pipeline surface the submission endpoints need.
type Processor interface {
	Process(ctx context.Context, sub knowledge.Submission) (*pipeline.Outcome, error)
	Confirm(ctx context.Context, pendingID string, approved bool) (*pipeline.Outcome, error)
	ListPending() []*pending.Entry
}

type SubmissionHandler struct {
	processor Processor
}

func NewSubmissionHandler(processor Processor) *SubmissionHandler {
	return &SubmissionHandler{
		processor: processor,
	}
}

func (h *SubmissionHandler) HandleSubmit(c *fiber.Ctx) error {
	var req struct {
		Content   string   `json:"content"`
		Type      string   `json:"type"`
		Tags      []string `json:"tags"`
		Source    string   `json:"source"`
		FilePaths []string `json:"file_paths"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Content is required",
		})
	}
	if req.Source == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Source is required",
		})
	}

	sub := knowledge.Submission{
		Content:   req.Content,
		Type:      req.Type,
		Tags:      req.Tags,
		Source:    req.Source,
		FilePaths: req.FilePaths,
	}

	outcome, err := h.processor.Process(c.Context(), sub)
	if err != nil {
		logger.Error("Failed to process submission", zap.Error(err))
		if errors.Is(err, pipeline.ErrStorageFailure) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Knowledge store unavailable, submission not stored",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process submission",
		})
	}

	return c.JSON(renderOutcome(outcome))
}

func (h *SubmissionHandler) HandleConfirm(c *fiber.Ctx) error {
	pendingID := c.Params("id")
	if pendingID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Pending id is required",
		})
	}

	var req struct {
		Approved bool `json:"approved"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	outcome, err := h.processor.Confirm(c.Context(), pendingID, req.Approved)
	if err != nil {
		switch {
		case errors.Is(err, pending.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Pending entry not found",
			})
		case errors.Is(err, pending.ErrExpired):
			return c.Status(fiber.StatusGone).JSON(fiber.Map{
				"error": "Pending entry expired",
			})
		case errors.Is(err, pipeline.ErrStorageFailure):
			logger.Error("Failed to store confirmed entry", zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "Knowledge store unavailable, confirmation can be retried",
			})
		default:
			logger.Error("Failed to confirm pending entry", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to confirm pending entry",
			})
		}
	}

	return c.JSON(renderOutcome(outcome))
}

func (h *SubmissionHandler) ListPending(c *fiber.Ctx) error {
	entries := h.processor.ListPending()

	items := make([]fiber.Map, 0, len(entries))
	for _, entry := range entries {
		items = append(items, fiber.Map{
			"id":         entry.ID,
			"submission": entry.Submission,
			"report":     renderReport(&entry.Report),
			"duplicates": entry.Duplicates,
			"created_at": entry.CreatedAt,
			"expires_at": entry.ExpiresAt,
		})
	}

	return c.JSON(fiber.Map{
		"pending": items,
		"count":   len(items),
	})
}

// renderOutcome shapes an outcome for the API. Scores are rounded to
// two decimals here only; routing always compares full precision.
func renderOutcome(outcome *pipeline.Outcome) fiber.Map {
	m := fiber.Map{
		"status": outcome.Status,
	}
	if outcome.Reason != "" {
		m["reason"] = outcome.Reason
	}
	if outcome.StoredID != "" {
		m["stored_id"] = outcome.StoredID
	}
	if outcome.PendingID != "" {
		m["pending_id"] = outcome.PendingID
	}
	if outcome.Report != nil {
		m["report"] = renderReport(outcome.Report)
	}
	if len(outcome.Duplicates) > 0 {
		m["duplicates"] = outcome.Duplicates
	}
	return m
}

func renderReport(report *quality.Report) fiber.Map {
	return fiber.Map{
		"relevance":            round2(report.Relevance),
		"completeness":         round2(report.Completeness),
		"credibility":          round2(report.Credibility),
		"composite":            round2(report.Composite),
		"relevance_details":    report.RelevanceDetails,
		"completeness_details": report.CompletenessDetails,
		"recommendations":      report.Recommendations,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
