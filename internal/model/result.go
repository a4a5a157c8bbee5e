package model

import "errors"

// ErrInputTooShort marks paragraphs skipped for having too few words.
// It is recorded on the result, never returned to callers.
var ErrInputTooShort = errors.New("input too short")

// Stage is a step of the per-paragraph state machine
type Stage string

const (
	StageCreated          Stage = "CREATED"
	StageLocalTransformed Stage = "LOCAL_TRANSFORMED"
	StageQualityAssessed  Stage = "QUALITY_ASSESSED"
	StageSufficient       Stage = "SUFFICIENT"
	StageInsufficient     Stage = "INSUFFICIENT"
	StageRiskAssessed     Stage = "RISK_ASSESSED"
	StageRouted           Stage = "ROUTED"
	StageAIEscalated      Stage = "AI_ESCALATED"
	StageLocalAccepted    Stage = "LOCAL_ACCEPTED"
	StageDone             Stage = "DONE"
)

// Provenance tags for paths that never reach a strategy
const (
	ProvenancePassthrough = "passthrough"
	ProvenanceSkipped     = "skipped"
	ProvenanceProtected   = "protected"
	FallbackSuffix        = "_fallback"
	FallbackReasonMarker  = " (AI failed)"
)

// Comparison records how the local and AI candidates fared against each other
type Comparison struct {
	LocalReduction float64 `json:"local_reduction"`
	AIReduction    float64 `json:"ai_reduction"`
	Improvement    float64 `json:"improvement"`
	LocalQuality   float64 `json:"local_quality"`
	AIQuality      float64 `json:"ai_quality"`
	Winner         string  `json:"winner"` // "local" or "ai"
}

// Result is the terminal record of a paragraph's trip through the pipeline
type Result struct {
	RequestID      string             `json:"request_id"`
	ParagraphIndex int                `json:"paragraph_index"`
	Mode           Mode               `json:"mode"`
	Original       string             `json:"original"`
	Candidate      Candidate          `json:"candidate"`           // Final selected candidate
	Reason         string             `json:"reason"`              // Why this path was taken
	Decision       *RoutingDecision   `json:"decision,omitempty"`  // Nil when routing was skipped
	Quality        *QualityAssessment `json:"quality,omitempty"`   // Quality of the local candidate
	Risk           *RiskAssessment    `json:"risk,omitempty"`      // Nil when never assessed
	Comparison     *Comparison        `json:"comparison,omitempty"`
	CacheHit       bool               `json:"cache_hit,omitempty"`
	Fallback       bool               `json:"fallback,omitempty"`
	AIError        string             `json:"ai_error,omitempty"`
	Trace          []Stage            `json:"trace"`
}

// Stage returns the last stage reached
func (r *Result) Stage() Stage {
	if len(r.Trace) == 0 {
		return ""
	}
	return r.Trace[len(r.Trace)-1]
}

// Done reports whether the result reached the terminal stage
func (r *Result) Done() bool {
	return r.Stage() == StageDone
}
