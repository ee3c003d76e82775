package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Milvus    MilvusConfig    `mapstructure:"milvus"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Quality   QualityConfig   `mapstructure:"quality"`
	Pending   PendingConfig   `mapstructure:"pending"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	BodyLimit    int    `mapstructure:"body_limit"`
}

type MilvusConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	CollectionName string `mapstructure:"collection_name"`
	VectorDim      int    `mapstructure:"vector_dim"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl_seconds"`
}

type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// QualityConfig drives the validation and scoring pipeline. Every
// threshold, weight and credibility value must lie in [0,1]; Validate
// rejects anything else before the process starts serving.
type QualityConfig struct {
	RejectBelow         float64                 `mapstructure:"reject_below"`
	ApproveAbove        float64                 `mapstructure:"approve_above"`
	DuplicateSimilarity float64                 `mapstructure:"duplicate_similarity"`
	MinContentLength    int                     `mapstructure:"min_content_length"`
	MaxContentLength    int                     `mapstructure:"max_content_length"`
	ExcludedPatterns    []string                `mapstructure:"excluded_patterns"`
	AllowedTypes        []string                `mapstructure:"allowed_types"`
	TypeOverrides       map[string]TypeOverride `mapstructure:"type_overrides"`
	SourceCredibility   map[string]float64      `mapstructure:"source_credibility"`
	DefaultCredibility  float64                 `mapstructure:"default_credibility"`
	Weights             ScoringWeights          `mapstructure:"weights"`
	Keywords            KeywordConfig           `mapstructure:"keywords"`
}

type TypeOverride struct {
	RejectBelow  *float64 `mapstructure:"reject_below"`
	ApproveAbove *float64 `mapstructure:"approve_above"`
}

type ScoringWeights struct {
	Relevance    float64 `mapstructure:"relevance"`
	Completeness float64 `mapstructure:"completeness"`
	Credibility  float64 `mapstructure:"credibility"`
}

type KeywordConfig struct {
	HighRelevance     []string            `mapstructure:"high_relevance"`
	MediumRelevance   []string            `mapstructure:"medium_relevance"`
	StructureMarkers  map[string][]string `mapstructure:"structure_markers"`
	ActionableMarkers []string            `mapstructure:"actionable_markers"`
	TypeBonusTriggers map[string][]string `mapstructure:"type_bonus_triggers"`
}

type PendingConfig struct {
	TTLMinutes             int `mapstructure:"ttl_minutes"`
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/knowledge-gate")

	viper.SetEnvPrefix("KGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.body_limit", 1048576)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collection_name", "knowledge_entries")
	viper.SetDefault("milvus.vector_dim", 1536)

	viper.SetDefault("sqlite.path", "./data/decisions.db")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl_seconds", 86400)

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 1536)
	viper.SetDefault("embedding.timeout_sec", 15)

	viper.SetDefault("quality.reject_below", 0.65)
	viper.SetDefault("quality.approve_above", 0.85)
	viper.SetDefault("quality.duplicate_similarity", 0.90)
	viper.SetDefault("quality.min_content_length", 15)
	viper.SetDefault("quality.max_content_length", 5000)
	viper.SetDefault("quality.excluded_patterns", []string{
		"password", "api_key", "api-key", "secret", "token",
		"credential", "private_key", "private-key",
	})
	viper.SetDefault("quality.allowed_types", []string{
		"bug", "feature", "incident", "debugging", "architecture",
		"error", "investigation",
	})
	viper.SetDefault("quality.type_overrides", map[string]map[string]float64{
		"incident":      {"reject_below": 0.60},
		"investigation": {"reject_below": 0.60},
		"architecture":  {"reject_below": 0.75},
	})
	viper.SetDefault("quality.source_credibility", map[string]float64{
		"github":        0.95,
		"confluence":    0.85,
		"jira":          0.80,
		"agent_session": 0.70,
		"slack":         0.60,
	})
	viper.SetDefault("quality.default_credibility", 0.50)
	viper.SetDefault("quality.weights.relevance", 0.40)
	viper.SetDefault("quality.weights.completeness", 0.35)
	viper.SetDefault("quality.weights.credibility", 0.25)
	viper.SetDefault("quality.keywords.high_relevance", []string{
		"bug", "fix", "error", "exception", "stack trace", "traceback",
		"implementation", "feature", "refactor", "optimization",
		"incident", "outage", "rca", "root cause", "architecture",
		"design", "pattern", "service", "api", "database", "performance",
	})
	viper.SetDefault("quality.keywords.medium_relevance", []string{
		"configuration", "deploy", "test", "review", "documentation",
		"setup", "migration", "update", "change",
	})
	viper.SetDefault("quality.keywords.structure_markers", map[string][]string{
		"problem":  {"problem", "issue", "error", "bug", "symptom", "failing"},
		"cause":    {"cause", "reason", "because", "due to", "root cause", "rca"},
		"solution": {"solution", "fix", "resolved", "fixed by", "workaround", "fixed"},
		"context":  {"context", "background", "when", "environment", "version", "affect"},
	})
	viper.SetDefault("quality.keywords.actionable_markers", []string{
		"step", "1.", "2.", "3.", "first", "then", "finally",
		"run", "execute", "add", "remove", "change", "update", "```",
	})
	viper.SetDefault("quality.keywords.type_bonus_triggers", map[string][]string{
		"bug":          {"error", "traceback", "fix"},
		"feature":      {"implement", "```", "feature"},
		"incident":     {"rca", "root cause", "timeline"},
		"debugging":    {"traceback", "debug", "stack"},
		"architecture": {"diagram", "service", "component"},
		"error":        {"error:", "exception", "fatal"},
	})

	viper.SetDefault("pending.ttl_minutes", 30)
	viper.SetDefault("pending.cleanup_interval_seconds", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

// RejectThresholdFor resolves the effective reject threshold for a
// submission type, honoring per-type overrides.
func (q *QualityConfig) RejectThresholdFor(typeName string) float64 {
	if o, ok := q.TypeOverrides[typeName]; ok && o.RejectBelow != nil {
		return *o.RejectBelow
	}
	return q.RejectBelow
}

// ApproveThresholdFor resolves the effective auto-approve threshold for
// a submission type, honoring per-type overrides.
func (q *QualityConfig) ApproveThresholdFor(typeName string) float64 {
	if o, ok := q.TypeOverrides[typeName]; ok && o.ApproveAbove != nil {
		return *o.ApproveAbove
	}
	return q.ApproveAbove
}

// CredibilityFor looks up configured source credibility, falling back
// to the default for unknown sources.
func (q *QualityConfig) CredibilityFor(source string) float64 {
	if c, ok := q.SourceCredibility[source]; ok {
		return c
	}
	return q.DefaultCredibility
}
