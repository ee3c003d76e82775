package quality

import (
	"strings"
	"testing"

	"github.com/knowledge-gate/backend/pkg/config"
)

func testQualityConfig() *config.QualityConfig {
	return &config.QualityConfig{
		RejectBelow:         0.65,
		ApproveAbove:        0.85,
		DuplicateSimilarity: 0.90,
		MinContentLength:    15,
		MaxContentLength:    5000,
		ExcludedPatterns: []string{
			"password", "api_key", "api-key", "secret", "token",
			"credential", "private_key", "private-key",
		},
		AllowedTypes: []string{
			"bug", "feature", "incident", "debugging", "architecture",
			"error", "investigation",
		},
		SourceCredibility: map[string]float64{
			"github":        0.95,
			"confluence":    0.85,
			"jira":          0.80,
			"agent_session": 0.70,
			"slack":         0.60,
		},
		DefaultCredibility: 0.50,
		Weights: config.ScoringWeights{
			Relevance:    0.40,
			Completeness: 0.35,
			Credibility:  0.25,
		},
		Keywords: config.KeywordConfig{
			HighRelevance:   []string{"kernel", "panic", "deadlock", "outage", "regression"},
			MediumRelevance: []string{"logging", "deploy"},
			StructureMarkers: map[string][]string{
				"problem":  {"problem", "issue"},
				"cause":    {"cause", "because"},
				"solution": {"solution", "fixed by"},
				"context":  {"environment", "version"},
			},
			ActionableMarkers: []string{"step", "run", "1."},
			TypeBonusTriggers: map[string][]string{
				"bug":      {"fixed by"},
				"incident": {"timeline"},
			},
		},
	}
}

// words returns n space-separated filler words.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestValidate(t *testing.T) {
	v := NewValidator(testQualityConfig())

	tests := []struct {
		name       string
		content    string
		typeName   string
		wantOK     bool
		wantReason string
	}{
		{
			name:     "valid submission",
			content:  words(20),
			typeName: "bug",
			wantOK:   true,
		},
		{
			name:       "unknown type",
			content:    words(20),
			typeName:   "poetry",
			wantReason: "invalid type",
		},
		{
			name:       "empty type",
			content:    words(20),
			typeName:   "",
			wantReason: "invalid type",
		},
		{
			name:       "too short",
			content:    "fixed it",
			typeName:   "bug",
			wantReason: "too short",
		},
		{
			name:       "too long",
			content:    words(5001),
			typeName:   "bug",
			wantReason: "too long",
		},
		{
			name:       "excluded pattern",
			content:    "use token=abc123 to authenticate with the service " + words(15),
			typeName:   "debugging",
			wantReason: "excluded pattern",
		},
		{
			name:       "excluded pattern is case insensitive",
			content:    "the PASSWORD field was logged in plain text " + words(15),
			typeName:   "incident",
			wantReason: "excluded pattern",
		},
		{
			name:       "pattern inside a larger word still rejects",
			content:    "the tokenizer split the input into subwords " + words(15),
			typeName:   "debugging",
			wantReason: "excluded pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.content, tt.typeName)
			if result.OK != tt.wantOK {
				t.Fatalf("Validate() OK = %v, want %v (reason %q)", result.OK, tt.wantOK, result.Reason)
			}
			if tt.wantReason != "" && !strings.Contains(result.Reason, tt.wantReason) {
				t.Errorf("Validate() reason = %q, want substring %q", result.Reason, tt.wantReason)
			}
		})
	}
}

func TestValidateCheckOrder(t *testing.T) {
	v := NewValidator(testQualityConfig())

	// Fails type, pattern and length at once; type must win.
	result := v.Validate("password", "poetry")
	if result.OK {
		t.Fatal("Validate() OK = true, want false")
	}
	if !strings.Contains(result.Reason, "invalid type") {
		t.Errorf("Validate() reason = %q, want type failure first", result.Reason)
	}

	// Fails pattern and length; pattern must win over length.
	result = v.Validate("password", "bug")
	if !strings.Contains(result.Reason, "excluded pattern") {
		t.Errorf("Validate() reason = %q, want pattern failure before length", result.Reason)
	}
}

func TestValidateWordCountUsesFields(t *testing.T) {
	v := NewValidator(testQualityConfig())

	// 15 words separated by assorted whitespace still pass.
	content := strings.Repeat("word\t word\n", 7) + "word"
	result := v.Validate(content, "bug")
	if !result.OK {
		t.Fatalf("Validate() rejected %d-word content: %s", 15, result.Reason)
	}
}
