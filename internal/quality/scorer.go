package quality

import (
	"fmt"
	"sort"
	"strings"

	"github.com/knowledge-gate/backend/pkg/config"
)

// Report holds the per-factor scores for one submission. Scores are
// kept at full precision; rendering layers round for display.
type Report struct {
	Relevance           float64  `json:"relevance"`
	Completeness        float64  `json:"completeness"`
	Credibility         float64  `json:"credibility"`
	Composite           float64  `json:"composite"`
	RelevanceDetails    string   `json:"relevance_details"`
	CompletenessDetails string   `json:"completeness_details"`
	Recommendations     []string `json:"recommendations,omitempty"`
}

// Scorer computes a composite quality score from three factors:
// relevance (domain-keyword density, technical markers, type-specific
// bonus), completeness (length tiers plus structure and actionability
// markers) and source credibility. Score is a pure function of
// (content, type, source) over the config tables.
type Scorer struct {
	cfg *config.QualityConfig
}

func NewScorer(cfg *config.QualityConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Score(content, typeName, source string) Report {
	relevance, relDetails := s.relevance(content, typeName)
	completeness, compDetails := s.completeness(content)
	credibility := s.cfg.CredibilityFor(source)

	w := s.cfg.Weights
	composite := relevance*w.Relevance + completeness*w.Completeness + credibility*w.Credibility

	return Report{
		Relevance:           relevance,
		Completeness:        completeness,
		Credibility:         credibility,
		Composite:           clamp01(composite),
		RelevanceDetails:    relDetails,
		CompletenessDetails: compDetails,
		Recommendations:     s.recommendations(content, relevance, completeness, credibility),
	}
}

const (
	highKeywordWeight   = 0.08
	mediumKeywordWeight = 0.04
	keywordScoreCap     = 0.4

	codeBlockBonus    = 0.15
	stackTraceBonus   = 0.10
	errorPatternBonus = 0.05

	weakTypeBonus   = 0.1
	strongTypeBonus = 0.2
)

func (s *Scorer) relevance(content, typeName string) (float64, string) {
	contentLower := strings.ToLower(content)
	score := 0.0
	var factors []string

	highMatches := countContained(contentLower, s.cfg.Keywords.HighRelevance)
	mediumMatches := countContained(contentLower, s.cfg.Keywords.MediumRelevance)

	keywordScore := float64(highMatches)*highKeywordWeight + float64(mediumMatches)*mediumKeywordWeight
	if keywordScore > keywordScoreCap {
		keywordScore = keywordScoreCap
	}
	score += keywordScore
	if highMatches > 0 {
		factors = append(factors, fmt.Sprintf("found %d high-relevance keywords", highMatches))
	}
	if mediumMatches > 0 {
		factors = append(factors, fmt.Sprintf("found %d medium-relevance keywords", mediumMatches))
	}

	hasCodeBlock := strings.Contains(content, "```") || strings.Contains(content, "    ")
	hasStackTrace := strings.Contains(contentLower, "traceback") || strings.Contains(contentLower, "at ")
	hasErrorPattern := containsAny(contentLower, []string{"error:", "exception:", "fatal", "error "})

	if hasCodeBlock {
		score += codeBlockBonus
		factors = append(factors, "contains code blocks")
	}
	if hasStackTrace {
		score += stackTraceBonus
		factors = append(factors, "contains stack trace")
	}
	if hasErrorPattern {
		score += errorPatternBonus
		factors = append(factors, "contains error patterns")
	}

	typeBonus := s.typeBonus(contentLower, typeName)
	score += typeBonus
	if typeBonus > weakTypeBonus {
		factors = append(factors, fmt.Sprintf("type-specific content detected for %s", typeName))
	}

	if len(factors) == 0 {
		return clamp01(score), "no relevant signals"
	}
	return clamp01(score), strings.Join(factors, "; ")
}

// typeBonus rewards content that matches the configured trigger terms
// for its declared type. Incident and error reports with their
// hallmark structure get the larger bonus.
func (s *Scorer) typeBonus(contentLower, typeName string) float64 {
	triggers, ok := s.cfg.Keywords.TypeBonusTriggers[typeName]
	if !ok {
		return weakTypeBonus
	}
	if !containsAny(contentLower, triggers) {
		return weakTypeBonus
	}
	switch typeName {
	case "incident", "error":
		return 0.25
	default:
		return strongTypeBonus
	}
}

const (
	structureSectionWeight = 0.0875 // 0.35 spread over 4 sections
	actionableMarkerWeight = 0.08
	actionableScoreCap     = 0.40
)

func (s *Scorer) completeness(content string) (float64, string) {
	contentLower := strings.ToLower(content)
	score := 0.0
	var present, missing []string

	// Length tiers penalize short content nonlinearly: a one-liner
	// earns a fifth of what a moderate note does.
	wordCount := len(strings.Fields(content))
	switch {
	case wordCount < 20:
		score += 0.05
		missing = append(missing, "very short content (<20 words)")
	case wordCount < 50:
		score += 0.15
		missing = append(missing, "brief content (20-50 words)")
	case wordCount < 150:
		score += 0.20
		present = append(present, "moderate detail (50-150 words)")
	default:
		score += 0.25
		present = append(present, "detailed content (150+ words)")
	}

	for _, section := range sortedKeys(s.cfg.Keywords.StructureMarkers) {
		if containsAny(contentLower, s.cfg.Keywords.StructureMarkers[section]) {
			score += structureSectionWeight
			present = append(present, "has "+section)
		} else {
			missing = append(missing, "missing "+section)
		}
	}

	actionableCount := countContained(contentLower, s.cfg.Keywords.ActionableMarkers)
	actionableScore := float64(actionableCount) * actionableMarkerWeight
	if actionableScore > actionableScoreCap {
		actionableScore = actionableScoreCap
	}
	score += actionableScore
	if actionableCount > 0 {
		present = append(present, fmt.Sprintf("contains %d actionable elements", actionableCount))
	} else {
		missing = append(missing, "no actionable steps found")
	}

	details := fmt.Sprintf("present: %s. missing: %s",
		strings.Join(present, ", "), strings.Join(missing, ", "))
	return clamp01(score), details
}

// recommendations suggest improvements based on the weakest factors.
// Advisory only; they never feed back into the score.
func (s *Scorer) recommendations(content string, relevance, completeness, credibility float64) []string {
	var recs []string
	if relevance < 0.6 {
		recs = append(recs, "add more technical details (code, error messages, stack traces)")
	}
	if completeness < 0.6 {
		recs = append(recs, "include problem, cause, and solution sections")
	}
	if credibility < 0.7 {
		recs = append(recs, "consider adding references to pull requests or documentation")
	}
	if len(strings.Fields(content)) < 50 {
		recs = append(recs, "expand content with more context and details")
	}
	return recs
}

func countContained(haystackLower string, needles []string) int {
	count := 0
	for _, n := range needles {
		if strings.Contains(haystackLower, strings.ToLower(n)) {
			count++
		}
	}
	return count
}

func containsAny(haystackLower string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystackLower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
