// Package transform produces local paraphrase candidates without calling
// any external service.
package transform

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/score"
	"github.com/ppiankov/parafrasa/internal/textutil"
)

// ProvenanceLocal tags candidates produced by this package
const ProvenanceLocal = "local"

// phraseRule is a compiled phrase with its alternatives
type phraseRule struct {
	phrase       string
	pattern      *regexp.Regexp
	alternatives []string
}

// Engine rewrites paragraphs with phrase tables, synonyms and structural rules.
// It holds no mutable state; all randomness comes from the seed passed to Transform.
type Engine struct {
	cfg           model.TransformConfig
	phrases       []phraseRule
	domain        []phraseRule
	synonyms      map[string][]string
	academicWords map[string]struct{}
	indicators    map[string]struct{}
	structural    []structuralRule
	similarity    func(a, b string) float64
}

// Option customizes an Engine
type Option func(*engineOptions)

type engineOptions struct {
	lexicon  *Lexicon
	synonyms map[string][]string
	weights  *score.SimilarityWeights
}

// WithLexicon replaces the embedded lexicon
func WithLexicon(lex *Lexicon) Option {
	return func(o *engineOptions) { o.lexicon = lex }
}

// WithSynonyms replaces the synonym database
func WithSynonyms(syn map[string][]string) Option {
	return func(o *engineOptions) { o.synonyms = syn }
}

// WithSimilarityWeights sets the weights used to score candidates
func WithSimilarityWeights(w score.SimilarityWeights) Option {
	return func(o *engineOptions) { o.weights = &w }
}

// New creates a transformation engine. Unless overridden, the embedded
// lexicon is used and synonyms come from cfg.SynonymsPath or the embedded set.
func New(cfg model.TransformConfig, opts ...Option) (*Engine, error) {
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	var err error
	if o.lexicon == nil {
		if o.lexicon, err = DefaultLexicon(); err != nil {
			return nil, err
		}
	}
	if o.synonyms == nil {
		if cfg.SynonymsPath != "" {
			o.synonyms, err = LoadSynonymsFile(cfg.SynonymsPath)
		} else {
			o.synonyms, err = DefaultSynonyms()
		}
		if err != nil {
			return nil, err
		}
	}
	weights := score.DefaultWeights()
	if o.weights != nil {
		weights = *o.weights
	}

	phrases, err := compilePhrases(o.lexicon.Phrases)
	if err != nil {
		return nil, err
	}
	domain, err := compilePhrases(o.lexicon.DomainPhrases)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:           cfg,
		phrases:       phrases,
		domain:        domain,
		synonyms:      o.synonyms,
		academicWords: textutil.WordSet(o.lexicon.AcademicWords),
		indicators:    textutil.WordSet(o.lexicon.AcademicIndicators),
		structural:    defaultStructuralRules(),
		similarity:    weights.Similarity,
	}, nil
}

// compilePhrases orders phrases longest first, alphabetically on ties
func compilePhrases(table map[string][]string) ([]phraseRule, error) {
	rules := make([]phraseRule, 0, len(table))
	for phrase, alts := range table {
		var usable []string
		for _, a := range alts {
			if a = strings.TrimSpace(a); a != "" && !strings.EqualFold(a, phrase) {
				usable = append(usable, a)
			}
		}
		if phrase == "" || len(usable) == 0 {
			continue
		}
		re, err := regexp.Compile(phrasePattern(phrase))
		if err != nil {
			return nil, fmt.Errorf("compile phrase %q: %w", phrase, err)
		}
		rules = append(rules, phraseRule{phrase: phrase, pattern: re, alternatives: usable})
	}
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].phrase) != len(rules[j].phrase) {
			return len(rules[i].phrase) > len(rules[j].phrase)
		}
		return rules[i].phrase < rules[j].phrase
	})
	return rules, nil
}

// SeedFor derives a stable seed from paragraph content
func SeedFor(text string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(textutil.Normalize(text)))
	return int64(h.Sum64() >> 1)
}

// IsAcademic reports whether text contains at least three academic indicator words
func (e *Engine) IsAcademic(text string) bool {
	found := make(map[string]struct{})
	for _, w := range textutil.Words(text) {
		if _, ok := e.indicators[w]; ok {
			found[w] = struct{}{}
			if len(found) >= 3 {
				return true
			}
		}
	}
	return false
}

// Transform rewrites text and returns the scored candidate.
// The same text, aggressiveness and seed always produce the same candidate.
func (e *Engine) Transform(text string, aggressiveness float64, seed int64) model.Candidate {
	if strings.TrimSpace(text) == "" {
		return model.NewCandidate(text, 100, nil, ProvenanceLocal)
	}
	aggressiveness = min(max(aggressiveness, 0), 1)

	rng := rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
	d := &draft{text: text}
	applied := make(map[string]bool)
	var changes []model.Change

	// 1. Phrase substitution
	changes = append(changes, e.substitutePhrases(d, e.phrases, model.ChangePhrase, applied, rng)...)

	if textutil.WordCount(text) >= e.cfg.MinWords {
		// 2. Lexical synonyms
		changes = append(changes, e.substituteSynonyms(d, aggressiveness, rng)...)

		// 3. Structural rewrite
		if aggressiveness > 0.4 && textutil.WordCount(d.text) >= e.cfg.StructureMinWords {
			changes = append(changes, e.restructure(d)...)
		}

		// 4. Domain phrases
		if aggressiveness > 0.5 && e.IsAcademic(text) {
			changes = append(changes, e.substitutePhrases(d, e.domain, model.ChangeAcademicPhrase, applied, rng)...)
		}
	}

	return model.NewCandidate(d.text, e.similarity(text, d.text), changes, ProvenanceLocal)
}

// substitutePhrases rewrites the first unprotected occurrence of each phrase
func (e *Engine) substitutePhrases(d *draft, rules []phraseRule, kind model.ChangeType, applied map[string]bool, rng *rand.Rand) []model.Change {
	var changes []model.Change
	for _, rule := range rules {
		if applied[rule.phrase] {
			continue
		}
		for _, loc := range rule.pattern.FindAllStringIndex(d.text, -1) {
			if d.overlaps(loc[0], loc[1]) {
				continue
			}
			original := d.text[loc[0]:loc[1]]
			repl := matchCase(original, rule.alternatives[rng.IntN(len(rule.alternatives))])
			d.replace(loc[0], loc[1], repl)
			applied[rule.phrase] = true
			changes = append(changes, model.Change{
				Type:        kind,
				Original:    original,
				Replacement: repl,
				Position:    loc[0],
			})
			break
		}
	}
	return changes
}

// substituteSynonyms replaces eligible words with a probability that grows with aggressiveness
func (e *Engine) substituteSynonyms(d *draft, aggressiveness float64, rng *rand.Rand) []model.Change {
	academicRate := min(0.3+0.4*aggressiveness, 0.8)
	generalRate := min(0.1+0.4*aggressiveness, 0.5)

	type edit struct {
		start, end int
		change     model.Change
	}
	var edits []edit

	for i, loc := range textutil.WordSpans(d.text) {
		word := d.text[loc[0]:loc[1]]
		lower := strings.ToLower(word)
		if textutil.RuneLen(lower) <= 3 || textutil.IsStopword(lower) || d.overlaps(loc[0], loc[1]) {
			continue
		}
		alts := e.synonyms[lower]
		if len(alts) == 0 {
			continue
		}
		rate := generalRate
		if _, ok := e.academicWords[lower]; ok {
			rate = academicRate
		}
		if rng.Float64() >= rate {
			continue
		}
		repl := matchCase(word, alts[rng.IntN(len(alts))])
		edits = append(edits, edit{loc[0], loc[1], model.Change{
			Type:        model.ChangeSynonym,
			Original:    word,
			Replacement: repl,
			Position:    i,
		}})
	}

	// Apply right to left so earlier offsets stay valid
	changes := make([]model.Change, len(edits))
	for i := len(edits) - 1; i >= 0; i-- {
		d.replace(edits[i].start, edits[i].end, edits[i].change.Replacement)
		changes[i] = edits[i].change
	}
	return changes
}
