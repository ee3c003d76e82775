package config

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidConfig wraps every validation failure so callers can treat
// any of them as fatal with a single errors.Is check.
var ErrInvalidConfig = errors.New("invalid configuration")

const weightSumTolerance = 1e-9

// Validate checks the invariants the pipeline relies on. A process must
// not serve requests if this returns an error.
func (c *Config) Validate() error {
	q := &c.Quality

	unit := map[string]float64{
		"quality.reject_below":         q.RejectBelow,
		"quality.approve_above":        q.ApproveAbove,
		"quality.duplicate_similarity": q.DuplicateSimilarity,
		"quality.default_credibility":  q.DefaultCredibility,
		"quality.weights.relevance":    q.Weights.Relevance,
		"quality.weights.completeness": q.Weights.Completeness,
		"quality.weights.credibility":  q.Weights.Credibility,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s = %v outside [0,1]", ErrInvalidConfig, name, v)
		}
	}

	sum := q.Weights.Relevance + q.Weights.Completeness + q.Weights.Credibility
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: scoring weights sum to %v, want 1.0", ErrInvalidConfig, sum)
	}

	for source, cred := range q.SourceCredibility {
		if cred < 0 || cred > 1 {
			return fmt.Errorf("%w: credibility for source %q = %v outside [0,1]", ErrInvalidConfig, source, cred)
		}
	}

	for typeName, o := range q.TypeOverrides {
		if o.RejectBelow != nil && (*o.RejectBelow < 0 || *o.RejectBelow > 1) {
			return fmt.Errorf("%w: reject_below override for type %q = %v outside [0,1]", ErrInvalidConfig, typeName, *o.RejectBelow)
		}
		if o.ApproveAbove != nil && (*o.ApproveAbove < 0 || *o.ApproveAbove > 1) {
			return fmt.Errorf("%w: approve_above override for type %q = %v outside [0,1]", ErrInvalidConfig, typeName, *o.ApproveAbove)
		}
	}

	if q.MinContentLength < 0 {
		return fmt.Errorf("%w: min_content_length must not be negative", ErrInvalidConfig)
	}
	if q.MaxContentLength <= q.MinContentLength {
		return fmt.Errorf("%w: max_content_length (%d) must exceed min_content_length (%d)",
			ErrInvalidConfig, q.MaxContentLength, q.MinContentLength)
	}

	if len(q.AllowedTypes) == 0 {
		return fmt.Errorf("%w: at least one allowed submission type is required", ErrInvalidConfig)
	}

	if c.Pending.TTLMinutes <= 0 {
		return fmt.Errorf("%w: pending.ttl_minutes must be positive", ErrInvalidConfig)
	}
	if c.Pending.CleanupIntervalSeconds <= 0 {
		return fmt.Errorf("%w: pending.cleanup_interval_seconds must be positive", ErrInvalidConfig)
	}

	return nil
}
