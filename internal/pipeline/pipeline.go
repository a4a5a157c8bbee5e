// Package pipeline wires the engine, refiner, progress store and batch runner
// into a single document run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/parafrasa/internal/cache"
	"github.com/ppiankov/parafrasa/internal/engine"
	"github.com/ppiankov/parafrasa/internal/llm"
	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/report"
	"github.com/ppiankov/parafrasa/internal/store"
	"github.com/ppiankov/parafrasa/internal/worker"
)

// Pipeline orchestrates a complete document run
type Pipeline struct {
	config   *model.Config
	engine   *engine.Engine
	batch    *worker.BatchProcessor
	store    store.Store
	loader   *Loader
	provider string
	logger   *slog.Logger
}

// Option customizes a Pipeline
type Option func(*options)

type options struct {
	refiner    llm.Refiner
	store      store.Store
	registerer prometheus.Registerer
	logger     *slog.Logger
	progress   func(done, total int)
}

// WithRefiner replaces the refiner built from the llm config
func WithRefiner(r llm.Refiner) Option {
	return func(o *options) { o.refiner = r }
}

// WithStore replaces the store built from the store config
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// WithRegisterer registers ledger metrics with reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithLogger sets the logger shared by every stage
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProgress reports batch progress
func WithProgress(fn func(done, total int)) Option {
	return func(o *options) { o.progress = fn }
}

// New builds a pipeline from cfg
func New(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	refiner := o.refiner
	if refiner == nil {
		var err error
		if refiner, err = NewRefiner(cfg); err != nil {
			return nil, err
		}
	}
	provider := ""
	if refiner != nil {
		provider = refiner.Name()
	}

	eng, err := engine.New(cfg,
		engine.WithRefiner(refiner),
		engine.WithLogger(logger),
		engine.WithRegisterer(o.registerer),
	)
	if err != nil {
		return nil, err
	}

	st := o.store
	if st == nil {
		if st, err = OpenStore(cfg.Store); err != nil {
			return nil, err
		}
	}

	batchOpts := []worker.BatchOption{worker.WithBatchLogger(logger)}
	if o.progress != nil {
		batchOpts = append(batchOpts, worker.WithProgress(o.progress))
	}

	return &Pipeline{
		config:   cfg,
		engine:   eng,
		batch:    worker.NewBatchProcessor(eng, st, cfg.Concurrency.Workers, batchOpts...),
		store:    st,
		loader:   NewLoader(cfg.Fetch),
		provider: provider,
		logger:   logger,
	}, nil
}

// NewRefiner builds the configured refiner wrapped with retries, a per-attempt
// timeout and the per-provider rate limit. It returns nil when no provider is set.
func NewRefiner(cfg *model.Config) (llm.Refiner, error) {
	inner, err := llm.NewRefiner(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("build refiner: %w", err)
	}
	if inner == nil {
		return nil, nil
	}
	retry := llm.RetryOptions{
		MaxAttempts:  cfg.LLM.MaxRetries + 1,
		InitialDelay: cfg.LLM.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	}
	limiter := llm.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	return llm.NewResilient(inner, retry, limiter, cfg.LLM.Timeout), nil
}

// OpenStore opens the progress store: SQLite when a path is set, memory otherwise
func OpenStore(cfg model.StoreConfig) (store.Store, error) {
	if cfg.Path == "" {
		return store.NewMemory(), nil
	}
	st, err := store.NewSQLite(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// Engine exposes the underlying engine
func (p *Pipeline) Engine() *engine.Engine {
	return p.engine
}

// Load reads a document from a path or URL
func (p *Pipeline) Load(ctx context.Context, src string) (*Document, error) {
	return p.loader.Load(ctx, src)
}

// RunKey identifies a document run for resumption. It depends on the source
// and mode only, so edited documents resume by paragraph identity.
func RunKey(source string, mode model.Mode) string {
	return cache.Key("run", source, string(mode))
}

// Run processes every paragraph of doc. When ctx is cancelled the report still
// holds the paragraphs that finished, and the error wraps ctx's error.
func (p *Pipeline) Run(ctx context.Context, doc *Document) (*report.Report, error) {
	mode := p.config.Mode
	runKey := RunKey(doc.Source, mode)
	rep := report.New(mode, runKey, doc.Source)
	rep.Provider = p.provider

	p.logger.Info("Processing document",
		"source", doc.Source,
		"paragraphs", len(doc.Paragraphs),
		"mode", mode,
		"refiner", p.provider,
		"risk_detection", p.engine.RiskDetectionEnabled())

	reqs := worker.Requests(doc.Paragraphs, mode, p.config.Aggressiveness)
	res, err := p.batch.Run(ctx, runKey, reqs)
	if res == nil {
		return nil, err
	}
	rep.Finish(res.Results, res.Incomplete, p.engine.Ledger().Snapshot())

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return rep, err
		}
		return nil, err
	}
	return rep, nil
}

// Reset forgets stored progress for doc so the next run starts over
func (p *Pipeline) Reset(ctx context.Context, doc *Document) error {
	return p.store.Reset(ctx, RunKey(doc.Source, p.config.Mode))
}

// Close releases the progress store
func (p *Pipeline) Close() error {
	return p.store.Close()
}
