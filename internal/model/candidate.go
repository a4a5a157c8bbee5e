package model

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
)

// Request is one paragraph submitted for transformation
type Request struct {
	ID              string  `json:"id"`               // Stable paragraph identity
	Text            string  `json:"text"`             // Raw paragraph text
	Mode            Mode    `json:"mode"`             // Routing mode
	Aggressiveness  float64 `json:"aggressiveness"`   // Local rewrite strength, 0-1
	ParagraphIndex  int     `json:"paragraph_index"`  // Position in the source document
	TotalParagraphs int     `json:"total_paragraphs"` // Size of the source document
}

// ParagraphID derives a stable identity from paragraph content.
// Whitespace and case differences map to the same ID.
func ParagraphID(text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:12])
}

// ChangeType classifies an edit in a candidate's change log
type ChangeType string

const (
	ChangePhrase         ChangeType = "phrase"
	ChangeSynonym        ChangeType = "synonym"
	ChangeStructure      ChangeType = "structure"
	ChangeAcademicPhrase ChangeType = "academic_phrase"
)

// Change records a single rewrite applied to the text
type Change struct {
	Type        ChangeType `json:"type"`
	Original    string     `json:"original"`
	Replacement string     `json:"replacement"`
	Position    int        `json:"position"` // Byte offset for phrases, word index for synonyms
}

// Candidate is a rewritten paragraph produced by one strategy
type Candidate struct {
	Text                string   `json:"text"`
	Similarity          float64  `json:"similarity"`           // 0-100 against the original
	PlagiarismReduction float64  `json:"plagiarism_reduction"` // 100 - Similarity
	Changes             []Change `json:"changes,omitempty"`
	Provenance          string   `json:"provenance"` // Strategy that produced the text
}

// NewCandidate builds a Candidate with a clamped similarity and derived reduction
func NewCandidate(text string, similarity float64, changes []Change, provenance string) Candidate {
	similarity = ClampPercent(similarity)
	return Candidate{
		Text:                text,
		Similarity:          similarity,
		PlagiarismReduction: math.Round((100-similarity)*100) / 100,
		Changes:             changes,
		Provenance:          provenance,
	}
}

// ClampPercent bounds v to [0,100], mapping NaN to 0
func ClampPercent(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// QualityAssessment scores a candidate for readability defects
type QualityAssessment struct {
	Score  float64  `json:"score"`            // 0-100
	Issues []string `json:"issues,omitempty"` // Triggered checks, in order
}

// RoutingDecision is the escalation verdict for a paragraph
type RoutingDecision struct {
	Escalate bool   `json:"escalate"`
	Reason   string `json:"reason"`
}
