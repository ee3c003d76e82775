package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Config bounds transport-level request shapes. Semantic checks
// (excluded patterns, word counts, allowed types) live in the quality
// layer; this only keeps malformed or oversized payloads off it.
type Config struct {
	MaxContentBytes     int
	MaxQueryLength      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxContentBytes == 0 {
		cfg.MaxContentBytes = 1 * 1024 * 1024
	}
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 2000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/submissions") && c.Method() == fiber.MethodPost {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			content, ok := req["content"].(string)
			if !ok || content == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Content is required and must be a string",
				})
			}

			if len(content) > cfg.MaxContentBytes {
				cfg.Logger.Warn("Oversized submission rejected",
					zap.String("ip", c.IP()),
					zap.Int("bytes", len(content)),
				)
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Content exceeds maximum size",
				})
			}
		}

		if strings.Contains(path, "/api/v1/search") && c.Method() == fiber.MethodPost {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			query, ok := req["query"].(string)
			if !ok || query == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Query is required and must be a string",
				})
			}

			if len(query) > cfg.MaxQueryLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Query exceeds maximum length",
				})
			}
		}

		return c.Next()
	}
}
