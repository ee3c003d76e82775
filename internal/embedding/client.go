package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/knowledge-gate/backend/internal/metrics"
	"github.com/knowledge-gate/backend/pkg/circuitbreaker"
	"github.com/knowledge-gate/backend/pkg/logger"
	"github.com/knowledge-gate/backend/pkg/retry"
	"github.com/knowledge-gate/backend/pkg/utils"
)

// Cache is the optional embedding cache; a nil Cache disables caching.
type Cache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

// Client generates embeddings through the OpenAI API. Retries and the
// circuit breaker live here, inside the collaborator boundary; the
// quality pipeline itself never retries.
type Client struct {
	api         *openai.Client
	model       string
	timeout     time.Duration
	cache       Cache
	cacheTTL    time.Duration
	cb          *circuitbreaker.Breaker
	retryConfig retry.Config
}

func NewClient(apiKey, model string, timeout time.Duration, cache Cache, cacheTTL time.Duration) *Client {
	cb := circuitbreaker.New("embedding", circuitbreaker.Config{
		MaxRequests:      5,
		OpenTimeout:      30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("embedding client initialized", zap.String("model", model))

	return &Client{
		api:         openai.NewClient(apiKey),
		model:       model,
		timeout:     timeout,
		cache:       cache,
		cacheTTL:    cacheTTL,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	textHash := utils.HashString(text)

	if c.cache != nil {
		cached, ok, err := c.cache.GetEmbedding(ctx, textHash)
		if err != nil {
			logger.Warn("embedding cache lookup failed", zap.Error(err))
		}
		if ok {
			metrics.EmbeddingCacheHits.WithLabelValues("hit").Inc()
			return cached, nil
		}
		metrics.EmbeddingCacheHits.WithLabelValues("miss").Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var embedding []float32
	err := c.cb.Execute(func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: []string{text},
				Model: openai.EmbeddingModel(c.model),
			})
			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			copy(embedding, resp.Data[0].Embedding)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetEmbedding(ctx, textHash, embedding, c.cacheTTL); err != nil {
			logger.Warn("embedding cache store failed", zap.Error(err))
		}
	}

	return embedding, nil
}
