// Package ledger accounts for local work, AI calls, cache hits and fallbacks.
package ledger

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ppiankov/parafrasa/internal/model"
)

// ModeStats holds per-mode counters
type ModeStats struct {
	LocalCalls int `json:"local_calls"`
	AICalls    int `json:"ai_calls"`
	CacheHits  int `json:"cache_hits"`
	Fallbacks  int `json:"fallbacks"`
}

// Snapshot is a point-in-time copy of the ledger
type Snapshot struct {
	LocalCalls         int                      `json:"local_calls"`
	AICalls            int                      `json:"ai_calls"`
	CacheHits          int                      `json:"cache_hits"`
	Fallbacks          int                      `json:"fallbacks"`
	TokensEstimate     int                      `json:"tokens_estimate"`
	CostEstimate       float64                  `json:"cost_estimate"`
	AIUsageRatio       float64                  `json:"ai_usage_ratio"`       // AI calls per transformed paragraph
	CostSavingsPercent float64                  `json:"cost_savings_percent"` // Share of paragraphs that needed no paid call
	PerMode            map[model.Mode]ModeStats `json:"per_mode"`
}

type metrics struct {
	local     *prometheus.CounterVec
	ai        *prometheus.CounterVec
	cacheHits *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	tokens    prometheus.Counter
	latency   *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		local: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parafrasa",
			Subsystem: "ledger",
			Name:      "local_total",
			Help:      "Paragraphs transformed locally",
		}, []string{"mode"}),
		ai: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parafrasa",
			Subsystem: "ledger",
			Name:      "ai_calls_total",
			Help:      "Successful refiner calls",
		}, []string{"mode"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parafrasa",
			Subsystem: "ledger",
			Name:      "cache_hits_total",
			Help:      "Escalations served from the refinement cache",
		}, []string{"mode"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parafrasa",
			Subsystem: "ledger",
			Name:      "fallbacks_total",
			Help:      "Escalations that fell back to the local candidate",
		}, []string{"mode"}),
		tokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parafrasa",
			Subsystem: "ledger",
			Name:      "tokens_total",
			Help:      "Estimated refiner tokens",
		}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parafrasa",
			Subsystem: "refiner",
			Name:      "latency_seconds",
			Help:      "Refiner call latency including retries",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode"}),
	}
}

// Ledger is an append-only, concurrency-safe cost ledger
type Ledger struct {
	mu           sync.Mutex
	costPerToken float64
	snap         Snapshot
	metrics      *metrics
}

// Option configures a Ledger
type Option func(*Ledger)

// WithRegisterer mirrors counters to Prometheus collectors registered on reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(l *Ledger) {
		if reg != nil {
			l.metrics = newMetrics(reg)
		}
	}
}

// New creates a ledger that prices tokens at costPerToken
func New(costPerToken float64, opts ...Option) *Ledger {
	l := &Ledger{
		costPerToken: costPerToken,
		snap:         Snapshot{PerMode: make(map[model.Mode]ModeStats)},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordLocal counts a local transformation
func (l *Ledger) RecordLocal(mode model.Mode) {
	l.update(mode, func(s *ModeStats) {
		l.snap.LocalCalls++
		s.LocalCalls++
	})
	if l.metrics != nil {
		l.metrics.local.WithLabelValues(string(mode)).Inc()
	}
}

// RecordAI counts a successful refiner call and its estimated tokens
func (l *Ledger) RecordAI(mode model.Mode, tokens int) {
	tokens = max(tokens, 0)
	l.update(mode, func(s *ModeStats) {
		l.snap.AICalls++
		l.snap.TokensEstimate += tokens
		l.snap.CostEstimate += float64(tokens) * l.costPerToken
		s.AICalls++
	})
	if l.metrics != nil {
		l.metrics.ai.WithLabelValues(string(mode)).Inc()
		l.metrics.tokens.Add(float64(tokens))
	}
}

// RecordCacheHit counts an escalation served from cache
func (l *Ledger) RecordCacheHit(mode model.Mode) {
	l.update(mode, func(s *ModeStats) {
		l.snap.CacheHits++
		s.CacheHits++
	})
	if l.metrics != nil {
		l.metrics.cacheHits.WithLabelValues(string(mode)).Inc()
	}
}

// RecordFallback counts an escalation that fell back to local output
func (l *Ledger) RecordFallback(mode model.Mode) {
	l.update(mode, func(s *ModeStats) {
		l.snap.Fallbacks++
		s.Fallbacks++
	})
	if l.metrics != nil {
		l.metrics.fallbacks.WithLabelValues(string(mode)).Inc()
	}
}

// ObserveRefine records how long an escalation waited on the refiner
func (l *Ledger) ObserveRefine(mode model.Mode, d time.Duration) {
	if l.metrics != nil {
		l.metrics.latency.WithLabelValues(string(mode)).Observe(d.Seconds())
	}
}

// Snapshot returns a copy of the current totals with derived ratios
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := l.snap
	s.PerMode = make(map[model.Mode]ModeStats, len(l.snap.PerMode))
	for m, st := range l.snap.PerMode {
		s.PerMode[m] = st
	}
	if s.LocalCalls > 0 {
		s.AIUsageRatio = float64(s.AICalls) / float64(s.LocalCalls)
		s.CostSavingsPercent = max(0, 100*(1-s.AIUsageRatio))
	}
	return s
}

func (l *Ledger) update(mode model.Mode, fn func(*ModeStats)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := l.snap.PerMode[mode]
	fn(&st)
	l.snap.PerMode[mode] = st
}
