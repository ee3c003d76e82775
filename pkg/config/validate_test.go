package config

import (
	"errors"
	"testing"
)

func validConfig() *Config {
	reject := 0.60
	approve := 0.90
	return &Config{
		Quality: QualityConfig{
			RejectBelow:         0.65,
			ApproveAbove:        0.85,
			DuplicateSimilarity: 0.90,
			MinContentLength:    15,
			MaxContentLength:    5000,
			AllowedTypes:        []string{"bug", "incident"},
			TypeOverrides: map[string]TypeOverride{
				"incident": {RejectBelow: &reject, ApproveAbove: &approve},
			},
			SourceCredibility:  map[string]float64{"github": 0.95, "slack": 0.60},
			DefaultCredibility: 0.50,
			Weights: ScoringWeights{
				Relevance:    0.40,
				Completeness: 0.35,
				Credibility:  0.25,
			},
		},
		Pending: PendingConfig{
			TTLMinutes:             30,
			CleanupIntervalSeconds: 60,
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	outOfRange := 1.5

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "reject threshold above one",
			mutate: func(c *Config) { c.Quality.RejectBelow = 1.2 },
		},
		{
			name:   "negative approve threshold",
			mutate: func(c *Config) { c.Quality.ApproveAbove = -0.1 },
		},
		{
			name:   "weights do not sum to one",
			mutate: func(c *Config) { c.Quality.Weights.Relevance = 0.50 },
		},
		{
			name: "source credibility out of range",
			mutate: func(c *Config) {
				c.Quality.SourceCredibility["github"] = 1.1
			},
		},
		{
			name: "override out of range",
			mutate: func(c *Config) {
				c.Quality.TypeOverrides["incident"] = TypeOverride{RejectBelow: &outOfRange}
			},
		},
		{
			name: "max length below min length",
			mutate: func(c *Config) {
				c.Quality.MaxContentLength = 10
			},
		},
		{
			name:   "no allowed types",
			mutate: func(c *Config) { c.Quality.AllowedTypes = nil },
		},
		{
			name:   "zero pending ttl",
			mutate: func(c *Config) { c.Pending.TTLMinutes = 0 },
		},
		{
			name:   "zero cleanup interval",
			mutate: func(c *Config) { c.Pending.CleanupIntervalSeconds = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestWeightSumTolerance(t *testing.T) {
	cfg := validConfig()
	// Three floats that sum to 1.0 only within floating point error.
	cfg.Quality.Weights = ScoringWeights{
		Relevance:    0.1,
		Completeness: 0.2,
		Credibility:  0.7,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil for near-exact weight sum", err)
	}
}

func TestThresholdResolution(t *testing.T) {
	q := &validConfig().Quality

	tests := []struct {
		name        string
		typeName    string
		wantReject  float64
		wantApprove float64
	}{
		{"override applies", "incident", 0.60, 0.90},
		{"no override falls back", "bug", 0.65, 0.85},
		{"unknown type falls back", "unknown", 0.65, 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := q.RejectThresholdFor(tt.typeName); got != tt.wantReject {
				t.Errorf("RejectThresholdFor(%q) = %v, want %v", tt.typeName, got, tt.wantReject)
			}
			if got := q.ApproveThresholdFor(tt.typeName); got != tt.wantApprove {
				t.Errorf("ApproveThresholdFor(%q) = %v, want %v", tt.typeName, got, tt.wantApprove)
			}
		})
	}
}

func TestPartialOverrideKeepsOtherThreshold(t *testing.T) {
	q := &validConfig().Quality
	reject := 0.75
	q.TypeOverrides["architecture"] = TypeOverride{RejectBelow: &reject}

	if got := q.RejectThresholdFor("architecture"); got != 0.75 {
		t.Errorf("RejectThresholdFor = %v, want 0.75", got)
	}
	if got := q.ApproveThresholdFor("architecture"); got != 0.85 {
		t.Errorf("ApproveThresholdFor = %v, want global 0.85", got)
	}
}

func TestCredibilityFor(t *testing.T) {
	q := &validConfig().Quality

	if got := q.CredibilityFor("github"); got != 0.95 {
		t.Errorf("CredibilityFor(github) = %v, want 0.95", got)
	}
	if got := q.CredibilityFor("random-blog"); got != 0.50 {
		t.Errorf("CredibilityFor(random-blog) = %v, want default 0.50", got)
	}
}
