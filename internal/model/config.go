package model

import (
	"errors"
	"fmt"
	"time"
)

// Config holds every externally supplied setting
type Config struct {
	Mode           Mode                `yaml:"mode" mapstructure:"mode"`
	Aggressiveness float64             `yaml:"aggressiveness" mapstructure:"aggressiveness"`
	MinWords       int                 `yaml:"min_words" mapstructure:"min_words"` // Below this a paragraph is skipped
	Modes          map[Mode]ModeConfig `yaml:"modes" mapstructure:"modes"`

	Transform    TransformConfig   `yaml:"transform" mapstructure:"transform"`
	Quality      QualityConfig     `yaml:"quality" mapstructure:"quality"`
	Similarity   SimilarityConfig  `yaml:"similarity" mapstructure:"similarity"`
	Risk         RiskConfig        `yaml:"risk" mapstructure:"risk"`
	Patterns     PatternsConfig    `yaml:"patterns" mapstructure:"patterns"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Fetch        FetchConfig       `yaml:"fetch" mapstructure:"fetch"`
	Output       OutputConfig      `yaml:"output" mapstructure:"output"`
}

// TransformConfig tunes the local rewriter
type TransformConfig struct {
	MinWords          int    `yaml:"min_words" mapstructure:"min_words"`                     // Below this only phrase substitution runs
	StructureMinWords int    `yaml:"structure_min_words" mapstructure:"structure_min_words"` // Minimum length for structural rules
	Seed              int64  `yaml:"seed" mapstructure:"seed"`                               // 0 derives the seed from content
	SynonymsPath      string `yaml:"synonyms_path,omitempty" mapstructure:"synonyms_path"`   // Replaces the embedded synonym DB
}

// QualityConfig tunes the readability checks
type QualityConfig struct {
	Threshold            float64 `yaml:"threshold" mapstructure:"threshold"`
	MaxAvgWordLength     float64 `yaml:"max_avg_word_length" mapstructure:"max_avg_word_length"`
	MaxRepetitionRatio   float64 `yaml:"max_repetition_ratio" mapstructure:"max_repetition_ratio"`
	MinWordVariety       float64 `yaml:"min_word_variety" mapstructure:"min_word_variety"`
	MaxWeirdCombinations int     `yaml:"max_weird_combinations" mapstructure:"max_weird_combinations"`
}

// SimilarityConfig weighs the signals combined into one similarity score
type SimilarityConfig struct {
	JaccardWeight  float64 `yaml:"jaccard_weight" mapstructure:"jaccard_weight"`
	SequenceWeight float64 `yaml:"sequence_weight" mapstructure:"sequence_weight"`
	ConceptWeight  float64 `yaml:"concept_weight" mapstructure:"concept_weight"`
}

// RiskConfig tunes window segmentation and pattern matching
type RiskConfig struct {
	SimilarityThreshold float64            `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	HighRiskThreshold   float64            `yaml:"high_risk_threshold" mapstructure:"high_risk_threshold"`
	MinSegment          int                `yaml:"min_segment" mapstructure:"min_segment"`
	MaxSegment          int                `yaml:"max_segment" mapstructure:"max_segment"`
	Overlap             int                `yaml:"overlap" mapstructure:"overlap"`
	FractionWeight      float64            `yaml:"fraction_weight" mapstructure:"fraction_weight"`
	CategoryWeights     map[string]float64 `yaml:"category_weights" mapstructure:"category_weights"`
	MemoTTL             time.Duration      `yaml:"memo_ttl" mapstructure:"memo_ttl"`
}

// PatternsConfig locates the pattern database
type PatternsConfig struct {
	Path          string `yaml:"path,omitempty" mapstructure:"path"` // Empty uses the embedded catalog
	AllowDegraded bool   `yaml:"allow_degraded" mapstructure:"allow_degraded"`
}

// CacheConfig controls the refinement cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Persist bool          `yaml:"persist" mapstructure:"persist"` // Also write entries to Dir
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LLMConfig configures the external refiner
type LLMConfig struct {
	Provider     string        `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, gemini, "" (disabled)
	Model        string        `yaml:"model" mapstructure:"model"`
	APIKey       string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL      string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Temperature  float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens    int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"` // Per attempt
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	CostPerToken float64       `yaml:"cost_per_token" mapstructure:"cost_per_token"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// RateLimitConfig bounds refiner request rate per provider
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// StoreConfig locates the progress database used for resumable runs
type StoreConfig struct {
	Path string `yaml:"path,omitempty" mapstructure:"path"` // Empty keeps progress in memory
}

// FetchConfig controls loading documents from URLs
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// OutputConfig controls logging and reports
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text or json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:           ModeSmart,
		Aggressiveness: 0.5,
		MinWords:       3,
		Modes:          DefaultModeConfigs(),
		Transform: TransformConfig{
			MinWords:          5,
			StructureMinWords: 12,
		},
		Quality: QualityConfig{
			Threshold:            60,
			MaxAvgWordLength:     8,
			MaxRepetitionRatio:   0.3,
			MinWordVariety:       0.4,
			MaxWeirdCombinations: 2,
		},
		Similarity: SimilarityConfig{
			JaccardWeight:  0.5,
			SequenceWeight: 0.3,
			ConceptWeight:  0.2,
		},
		Risk: RiskConfig{
			SimilarityThreshold: 0.75,
			HighRiskThreshold:   0.9,
			MinSegment:          5,
			MaxSegment:          15,
			Overlap:             3,
			FractionWeight:      0.4,
			CategoryWeights: map[string]float64{
				"academic_templates":    1.0,
				"academic_boilerplate":  0.95,
				"technical_definitions": 0.85,
				"methodology_patterns":  0.8,
				"domain_terms":          0.5,
			},
			MemoTTL: time.Hour,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".parafrasa/cache",
			TTL:     24 * time.Hour,
		},
		LLM: LLMConfig{
			Temperature:  0.4,
			MaxTokens:    1024,
			Timeout:      30 * time.Second,
			MaxRetries:   3,
			RetryDelay:   time.Second,
			CostPerToken: 0.000002,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Fetch: FetchConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "parafrasa/0.1",
			MaxBodyBytes:  5 << 20,
			RespectRobots: true,
		},
		Output: OutputConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

// ModeConfig returns the threshold bundle for m, falling back to the built-in one
func (c *Config) ModeConfig(m Mode) ModeConfig {
	if mc, ok := c.Modes[m]; ok {
		return mc
	}
	return DefaultModeConfigs()[m]
}

// Validate checks the configuration once at construction time
func (c *Config) Validate() error {
	var errs []error

	if !c.Mode.Valid() {
		errs = append(errs, fmt.Errorf("mode: unknown mode %q", c.Mode))
	}
	if c.Aggressiveness < 0 || c.Aggressiveness > 1 {
		errs = append(errs, fmt.Errorf("aggressiveness must be in [0,1], got %.2f", c.Aggressiveness))
	}
	if c.MinWords < 0 {
		errs = append(errs, fmt.Errorf("min_words must be >= 0, got %d", c.MinWords))
	}
	for m, mc := range c.Modes {
		if !m.Valid() {
			errs = append(errs, fmt.Errorf("modes: unknown mode %q", m))
			continue
		}
		if err := mc.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("modes.%s: %w", m, err))
		}
	}

	if c.Quality.Threshold < 0 || c.Quality.Threshold > 100 {
		errs = append(errs, fmt.Errorf("quality.threshold must be in [0,100], got %.2f", c.Quality.Threshold))
	}
	sim := c.Similarity
	if sim.JaccardWeight < 0 || sim.SequenceWeight < 0 || sim.ConceptWeight < 0 ||
		sim.JaccardWeight+sim.SequenceWeight+sim.ConceptWeight == 0 {
		errs = append(errs, errors.New("similarity weights must be non-negative with a positive sum"))
	}

	r := c.Risk
	if r.SimilarityThreshold <= 0 || r.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("risk.similarity_threshold must be in (0,1], got %.2f", r.SimilarityThreshold))
	}
	if r.HighRiskThreshold < 0 || r.HighRiskThreshold > 1 {
		errs = append(errs, fmt.Errorf("risk.high_risk_threshold must be in [0,1], got %.2f", r.HighRiskThreshold))
	}
	if r.MinSegment <= 0 || r.MaxSegment < r.MinSegment {
		errs = append(errs, fmt.Errorf("risk segments must satisfy 0 < min_segment <= max_segment, got %d/%d", r.MinSegment, r.MaxSegment))
	}
	if r.Overlap < 0 || r.Overlap >= r.MinSegment {
		errs = append(errs, fmt.Errorf("risk.overlap must be in [0,min_segment), got %d", r.Overlap))
	}
	if r.FractionWeight < 0 || r.FractionWeight > 1 {
		errs = append(errs, fmt.Errorf("risk.fraction_weight must be in [0,1], got %.2f", r.FractionWeight))
	}
	for cat, w := range r.CategoryWeights {
		if w < 0 || w > 1 {
			errs = append(errs, fmt.Errorf("risk.category_weights.%s must be in [0,1], got %.2f", cat, w))
		}
	}

	if c.LLM.Provider != "" {
		if c.LLM.Timeout <= 0 {
			errs = append(errs, errors.New("llm.timeout must be positive"))
		}
		if c.LLM.MaxRetries < 1 {
			errs = append(errs, fmt.Errorf("llm.max_retries must be >= 1, got %d", c.LLM.MaxRetries))
		}
	}
	if c.Cache.Persist && c.Cache.Dir == "" {
		errs = append(errs, errors.New("cache.dir is required when cache.persist is set"))
	}

	return errors.Join(errs...)
}
