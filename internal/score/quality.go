package score

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/textutil"
)

var (
	// Connective pairs that only appear when rewrites collide
	awkwardPairPattern = regexp.MustCompile(`(?i)\b(menjadi adalah|adalah merupakan|merupakan adalah|sangat sekali|membuat menciptakan|yang yang|dan dan)\b`)

	prepositionCollisionPattern = regexp.MustCompile(`(?i)\b(di|ke|dari)\s+(di|ke|dari)\b`)
)

// QualityAssessor scores candidate text for readability defects
type QualityAssessor struct {
	cfg model.QualityConfig
}

// NewQualityAssessor creates a new quality assessor
func NewQualityAssessor(cfg model.QualityConfig) *QualityAssessor {
	return &QualityAssessor{cfg: cfg}
}

// Threshold is the score at which a candidate counts as good enough
func (q *QualityAssessor) Threshold() float64 {
	return q.cfg.Threshold
}

// Assess scores candidate against the original paragraph
func (q *QualityAssessor) Assess(original, candidate string) model.QualityAssessment {
	if strings.TrimSpace(candidate) == "" {
		return model.QualityAssessment{Score: 0, Issues: []string{"Empty result"}}
	}

	words := textutil.Words(candidate)
	if len(words) == 0 {
		return model.QualityAssessment{Score: 0, Issues: []string{"No words in result"}}
	}

	score := 100.0
	var issues []string

	// 1. Average word length (-20)
	totalRunes := 0
	for _, w := range words {
		totalRunes += textutil.RuneLen(w)
	}
	avg := float64(totalRunes) / float64(len(words))
	if avg > q.cfg.MaxAvgWordLength {
		score -= 20
		issues = append(issues, fmt.Sprintf("Overly complex words (avg %.1f chars)", avg))
	}

	// 2. Repetition and 3. variety, over words longer than 3 runes
	var long []string
	for _, w := range words {
		if textutil.RuneLen(w) > 3 {
			long = append(long, w)
		}
	}
	if len(long) > 0 {
		freq := make(map[string]int)
		maxFreq := 0
		for _, w := range long {
			freq[w]++
			if freq[w] > maxFreq {
				maxFreq = freq[w]
			}
		}

		if ratio := float64(maxFreq) / float64(len(words)); maxFreq > 1 && ratio > q.cfg.MaxRepetitionRatio {
			score -= 25
			issues = append(issues, fmt.Sprintf("Excessive repetition (%.0f%%)", ratio*100))
		}
		if variety := float64(len(freq)) / float64(len(long)); variety < q.cfg.MinWordVariety {
			score -= 20
			issues = append(issues, fmt.Sprintf("Low word variety (%.2f)", variety))
		}
	}

	// 4. Unnatural adjacency (proportional, capped at -40)
	weird := len(awkwardPairPattern.FindAllStringIndex(candidate, -1))
	for i := 1; i < len(words); i++ {
		if words[i] == words[i-1] {
			weird++
		}
	}
	if weird > q.cfg.MaxWeirdCombinations {
		score -= min(10*float64(weird), 40)
		issues = append(issues, fmt.Sprintf("Unnatural word combinations (%d)", weird))
	}

	// 5. Preposition collisions (-15)
	if prepositionCollisionPattern.MatchString(candidate) {
		score -= 15
		issues = append(issues, "Preposition collision")
	}

	// 6. Terminal punctuation lost (-10)
	if textutil.EndsWithTerminal(original) && !textutil.EndsWithTerminal(candidate) {
		score -= 10
		issues = append(issues, "Missing terminal punctuation")
	}

	return model.QualityAssessment{
		Score:  max(score, 0),
		Issues: issues,
	}
}

// Sufficient reports whether a assessment clears the configured threshold
func (q *QualityAssessor) Sufficient(a model.QualityAssessment) bool {
	return a.Score >= q.cfg.Threshold
}
