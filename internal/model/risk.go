package model

// PatternEntry is one known high-risk phrase
type PatternEntry struct {
	Category string  `json:"category" yaml:"category"`
	Phrase   string  `json:"phrase" yaml:"phrase"`
	Weight   float64 `json:"weight,omitempty" yaml:"weight,omitempty"` // 0 means category default
}

// FlaggedSegment is a window that matched a pattern above the threshold
type FlaggedSegment struct {
	StartWord      int     `json:"start_word"`
	EndWord        int     `json:"end_word"` // Exclusive
	Text           string  `json:"text"`
	MatchedPattern string  `json:"matched_pattern"`
	Similarity     float64 `json:"similarity"` // 0-1
	Category       string  `json:"category"`
}

// RiskAssessment summarizes pattern matches for a paragraph
type RiskAssessment struct {
	RiskScore       float64          `json:"risk_score"` // 0-100
	FlaggedSegments []FlaggedSegment `json:"flagged_segments,omitempty"`
	WindowCount     int              `json:"window_count"`
	MaxSimilarity   float64          `json:"max_similarity"`          // 0-1
	BestCategory    string           `json:"best_category,omitempty"` // Category of the strongest match
	Disabled        bool             `json:"disabled,omitempty"`      // Risk detection unavailable
}

// Categories returns the distinct categories of flagged segments in order of appearance
func (r *RiskAssessment) Categories() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range r.FlaggedSegments {
		if !seen[s.Category] {
			seen[s.Category] = true
			out = append(out, s.Category)
		}
	}
	return out
}

// HighRisk counts flagged segments at or above the given similarity
func (r *RiskAssessment) HighRisk(threshold float64) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, s := range r.FlaggedSegments {
		if s.Similarity >= threshold {
			n++
		}
	}
	return n
}
