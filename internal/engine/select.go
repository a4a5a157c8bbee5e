package engine

import "github.com/ppiankov/parafrasa/internal/model"

// selectCandidate picks the final candidate after a successful refinement.
// Ties keep the local candidate.
func selectCandidate(mode model.Mode, local, ai model.Candidate) (model.Candidate, string) {
	switch mode {
	case model.ModeAggressive:
		return ai, "ai"
	case model.ModeTurnitinSafe:
		if ai.Similarity < local.Similarity {
			return ai, "ai"
		}
	default:
		if ai.PlagiarismReduction > local.PlagiarismReduction {
			return ai, "ai"
		}
	}
	return local, "local"
}
