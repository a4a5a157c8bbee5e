// Package engine runs paragraphs through the local transform, quality gate,
// risk assessment, routing and optional AI refinement.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/parafrasa/internal/cache"
	"github.com/ppiankov/parafrasa/internal/ledger"
	"github.com/ppiankov/parafrasa/internal/llm"
	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/patterns"
	"github.com/ppiankov/parafrasa/internal/risk"
	"github.com/ppiankov/parafrasa/internal/routing"
	"github.com/ppiankov/parafrasa/internal/score"
	"github.com/ppiankov/parafrasa/internal/transform"
)

// Engine owns the refinement cache and cost ledger for a session.
// It is safe for concurrent use.
type Engine struct {
	cfg         *model.Config
	transformer *transform.Engine
	quality     *score.QualityAssessor
	weights     score.SimilarityWeights
	risk        *risk.Analyzer
	policy      *routing.Policy
	refiner     llm.Refiner
	cache       *cache.RefinementCache
	ledger      *ledger.Ledger
	logger      *slog.Logger
	flight      singleflight.Group
}

type options struct {
	refiner    llm.Refiner
	logger     *slog.Logger
	patterns   risk.PatternSource
	backend    cache.Cache
	ledger     *ledger.Ledger
	registerer prometheus.Registerer
	transform  []transform.Option
}

// Option configures an Engine
type Option func(*options)

// WithRefiner sets the AI refiner. Without one every escalation falls back.
func WithRefiner(r llm.Refiner) Option {
	return func(o *options) { o.refiner = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPatterns supplies the pattern catalog instead of loading it from config
func WithPatterns(src risk.PatternSource) Option {
	return func(o *options) { o.patterns = src }
}

// WithCache supplies the refinement cache backend
func WithCache(c cache.Cache) Option {
	return func(o *options) { o.backend = c }
}

// WithLedger supplies a ledger shared with other engines
func WithLedger(l *ledger.Ledger) Option {
	return func(o *options) { o.ledger = l }
}

// WithRegisterer exposes ledger counters as Prometheus metrics
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTransformOptions customizes the local transformer
func WithTransformOptions(opts ...transform.Option) Option {
	return func(o *options) { o.transform = append(o.transform, opts...) }
}

// New validates cfg and builds an engine.
// A pattern catalog that fails to load is fatal unless patterns.allow_degraded
// is set, in which case risk detection is disabled and a warning is logged.
func New(cfg *model.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	weights := score.WeightsFromConfig(cfg.Similarity)
	transformer, err := transform.New(cfg.Transform, append([]transform.Option{transform.WithSimilarityWeights(weights)}, o.transform...)...)
	if err != nil {
		return nil, fmt.Errorf("build transformer: %w", err)
	}

	source, err := loadPatterns(cfg.Patterns, o.patterns, logger)
	if err != nil {
		if !cfg.Patterns.AllowDegraded {
			return nil, err
		}
		logger.Warn("Risk detection disabled", "error", err)
		source = nil
	}

	l := o.ledger
	if l == nil {
		l = ledger.New(cfg.LLM.CostPerToken, ledger.WithRegisterer(o.registerer))
	}

	var refinements *cache.RefinementCache
	if cfg.Cache.Enabled {
		backend := o.backend
		if backend == nil {
			backend = cache.New(cfg.Cache)
		}
		refinements = cache.NewRefinementCache(backend, cfg.Cache.TTL, logger)
	}

	return &Engine{
		cfg:         cfg,
		transformer: transformer,
		quality:     score.NewQualityAssessor(cfg.Quality),
		weights:     weights,
		risk:        risk.NewAnalyzer(source, cfg.Risk, nil, logger),
		policy:      routing.NewPolicy(cfg.Modes, cfg.Quality.Threshold, cfg.Risk.HighRiskThreshold),
		refiner:     o.refiner,
		cache:       refinements,
		ledger:      l,
		logger:      logger,
	}, nil
}

// loadPatterns returns the supplied source or loads the configured catalog
func loadPatterns(cfg model.PatternsConfig, supplied risk.PatternSource, logger *slog.Logger) (risk.PatternSource, error) {
	if supplied != nil {
		return supplied, nil
	}

	var db *patterns.Database
	var err error
	if cfg.Path != "" {
		db, err = patterns.Load(cfg.Path)
	} else {
		db, err = patterns.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}
	db.SetLogger(logger)
	return db, nil
}

// RiskDetectionEnabled reports whether a pattern catalog is loaded
func (e *Engine) RiskDetectionEnabled() bool {
	return e.risk.Enabled()
}

// Ledger returns the session's cost ledger
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Config returns the validated configuration
func (e *Engine) Config() *model.Config {
	return e.cfg
}
