// Package risk finds spans of a paragraph that resemble known high-risk phrasing.
package risk

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/ppiankov/parafrasa/internal/cache"
	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/score"
	"github.com/ppiankov/parafrasa/internal/textutil"
)

// defaultCategoryWeight applies when neither the entry nor the config weighs a category
const defaultCategoryWeight = 0.5

// PatternSource supplies the entries windows are matched against
type PatternSource interface {
	Entries() []model.PatternEntry
	Version() uint64
}

// match is the best pattern for one window
type match struct {
	Score    float64 `json:"score"` // 0-1
	Phrase   string  `json:"phrase"`
	Category string  `json:"category"`
	Weight   float64 `json:"weight"`
}

// compiledEntry is a pattern prepared for repeated comparison
type compiledEntry struct {
	entry  model.PatternEntry
	norm   string
	words  map[string]struct{}
	weight float64
}

// Analyzer scores paragraphs against a pattern source.
// Window results are memoized by content, so recurring boilerplate is matched once.
type Analyzer struct {
	source PatternSource
	cfg    model.RiskConfig
	memo   cache.Cache
	logger *slog.Logger

	mu       sync.Mutex
	version  uint64
	compiled []compiledEntry
}

// NewAnalyzer creates an analyzer. A nil source yields a disabled analyzer
// whose assessments are marked Disabled.
func NewAnalyzer(source PatternSource, cfg model.RiskConfig, memo cache.Cache, logger *slog.Logger) *Analyzer {
	if memo == nil {
		memo = cache.NewMemoryCache(cfg.MemoTTL, cfg.MemoTTL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{source: source, cfg: cfg, memo: memo, logger: logger}
}

// Enabled reports whether risk detection is active
func (a *Analyzer) Enabled() bool {
	return a.source != nil
}

// Assess segments text into windows and matches each against every pattern
func (a *Analyzer) Assess(text string) model.RiskAssessment {
	if !a.Enabled() {
		return model.RiskAssessment{Disabled: true}
	}

	words := strings.Fields(text)
	windows := Segment(len(words), a.cfg.MinSegment, a.cfg.MaxSegment, a.cfg.Overlap)
	if len(windows) == 0 {
		return model.RiskAssessment{}
	}

	entries, version := a.entries()
	result := model.RiskAssessment{WindowCount: len(windows)}
	var best match

	for _, w := range windows {
		windowText := strings.Join(words[w.Start:w.End], " ")
		m := a.matchWindow(windowText, entries, version)

		if m.Score > best.Score {
			best = m
		}
		if m.Score >= a.cfg.SimilarityThreshold {
			result.FlaggedSegments = append(result.FlaggedSegments, model.FlaggedSegment{
				StartWord:      w.Start,
				EndWord:        w.End,
				Text:           windowText,
				MatchedPattern: m.Phrase,
				Similarity:     m.Score,
				Category:       m.Category,
			})
		}
	}

	fraction := float64(len(result.FlaggedSegments)) / float64(len(windows))
	f := a.cfg.FractionWeight
	raw := 100 * best.Weight * (f*fraction + (1-f)*best.Score)

	result.MaxSimilarity = best.Score
	result.BestCategory = best.Category
	result.RiskScore = model.ClampPercent(math.Round(raw*100) / 100)
	return result
}

// matchWindow returns the best entry for a window, consulting the memo first
func (a *Analyzer) matchWindow(windowText string, entries []compiledEntry, version uint64) match {
	norm := textutil.Normalize(windowText)
	key := cache.Key("risk", strconv.FormatUint(version, 10), norm)

	if data, ok := a.memo.Get(key); ok {
		var m match
		if err := json.Unmarshal(data, &m); err == nil {
			return m
		}
	}

	windowWords := textutil.WordSet(textutil.Words(norm))
	var best match
	for _, e := range entries {
		s := max(score.SequenceRatio(norm, e.norm), textutil.Jaccard(windowWords, e.words))
		if s > best.Score {
			best = match{Score: s, Phrase: e.entry.Phrase, Category: e.entry.Category, Weight: e.weight}
		}
		if best.Score >= 1 {
			break
		}
	}
	best.Score = math.Round(best.Score*10000) / 10000

	if data, err := json.Marshal(best); err == nil {
		if err := a.memo.Set(key, data, 0); err != nil {
			a.logger.Debug("Risk memo write failed", "error", err)
		}
	}
	return best
}

// entries returns the compiled catalog, recompiling when the source changed
func (a *Analyzer) entries() ([]compiledEntry, uint64) {
	version := a.source.Version()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.compiled != nil && a.version == version {
		return a.compiled, version
	}

	raw := a.source.Entries()
	compiled := make([]compiledEntry, 0, len(raw))
	for _, e := range raw {
		norm := textutil.Normalize(e.Phrase)
		if norm == "" {
			continue
		}
		compiled = append(compiled, compiledEntry{
			entry:  e,
			norm:   norm,
			words:  textutil.WordSet(textutil.Words(norm)),
			weight: a.weightFor(e),
		})
	}
	a.compiled = compiled
	a.version = version
	return compiled, version
}

func (a *Analyzer) weightFor(e model.PatternEntry) float64 {
	if e.Weight > 0 {
		return e.Weight
	}
	if w, ok := a.cfg.CategoryWeights[e.Category]; ok {
		return w
	}
	return defaultCategoryWeight
}
