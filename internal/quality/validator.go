package quality

import (
	"fmt"
	"strings"

	"github.com/knowledge-gate/backend/pkg/config"
)

// ValidationResult reports the first failed pre-check, if any.
type ValidationResult struct {
	OK     bool
	Reason string
}

// Validator runs the deterministic pre-checks that can short-circuit
// scoring: type, excluded patterns, length. Checks run in that order
// and the first failure wins. The pattern check is a hard security
// boundary; a match always rejects before any scoring happens.
type Validator struct {
	cfg     *config.QualityConfig
	allowed map[string]struct{}
}

func NewValidator(cfg *config.QualityConfig) *Validator {
	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, t := range cfg.AllowedTypes {
		allowed[t] = struct{}{}
	}
	return &Validator{cfg: cfg, allowed: allowed}
}

func (v *Validator) Validate(content, typeName string) ValidationResult {
	if _, ok := v.allowed[typeName]; !ok {
		return ValidationResult{
			Reason: fmt.Sprintf("invalid type %q, allowed types: %s",
				typeName, strings.Join(v.cfg.AllowedTypes, ", ")),
		}
	}

	contentLower := strings.ToLower(content)
	for _, pattern := range v.cfg.ExcludedPatterns {
		if strings.Contains(contentLower, strings.ToLower(pattern)) {
			return ValidationResult{
				Reason: fmt.Sprintf("content contains excluded pattern %q", pattern),
			}
		}
	}

	wordCount := len(strings.Fields(content))
	if wordCount < v.cfg.MinContentLength {
		return ValidationResult{
			Reason: fmt.Sprintf("content too short (%d words), minimum %d",
				wordCount, v.cfg.MinContentLength),
		}
	}
	if wordCount > v.cfg.MaxContentLength {
		return ValidationResult{
			Reason: fmt.Sprintf("content too long (%d words), maximum %d",
				wordCount, v.cfg.MaxContentLength),
		}
	}

	return ValidationResult{OK: true}
}
