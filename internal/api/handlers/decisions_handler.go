package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/storage/models"
	"github.com/knowledge-gate/backend/pkg/logger"
)

const defaultDecisionLimit = 50

// DecisionLister reads the audit log.
type DecisionLister interface {
	ListDecisions(limit int) ([]models.Decision, error)
}

type DecisionsHandler struct {
	audit DecisionLister
}

func NewDecisionsHandler(audit DecisionLister) *DecisionsHandler {
	return &DecisionsHandler{
		audit: audit,
	}
}

func (h *DecisionsHandler) ListDecisions(c *fiber.Ctx) error {
	limit := defaultDecisionLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	decisions, err := h.audit.ListDecisions(limit)
	if err != nil {
		logger.Error("Failed to list decisions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list decisions",
		})
	}

	return c.JSON(fiber.Map{
		"decisions": decisions,
		"count":     len(decisions),
	})
}
