package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/parafrasa/internal/cache"
	"github.com/ppiankov/parafrasa/internal/llm"
	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/routing"
	"github.com/ppiankov/parafrasa/internal/textutil"
	"github.com/ppiankov/parafrasa/internal/transform"
)

// Process runs one paragraph to DONE. It never fails: refiner errors fall
// back to the local candidate and are reported on the result.
func (e *Engine) Process(ctx context.Context, req model.Request) model.Result {
	if !req.Mode.Valid() {
		req.Mode = e.cfg.Mode
	}
	if req.ID == "" {
		req.ID = model.ParagraphID(req.Text)
	}
	req.Aggressiveness = min(max(req.Aggressiveness, 0), 1)

	res := model.Result{
		RequestID:      req.ID,
		ParagraphIndex: req.ParagraphIndex,
		Mode:           req.Mode,
		Original:       req.Text,
		Trace:          []model.Stage{model.StageCreated},
	}

	if ok, reason := transform.Protected(req.Text); ok {
		return e.finish(res, model.NewCandidate(req.Text, 100, nil, model.ProvenanceProtected), "Protected content: "+reason)
	}
	if strings.TrimSpace(req.Text) == "" {
		return e.finish(res, model.NewCandidate(req.Text, 100, nil, model.ProvenancePassthrough), "Empty input")
	}
	if n := textutil.WordCount(req.Text); n < e.cfg.MinWords {
		reason := fmt.Sprintf("%v: %d words (minimum %d)", model.ErrInputTooShort, n, e.cfg.MinWords)
		return e.finish(res, model.NewCandidate(req.Text, 100, nil, model.ProvenanceSkipped), reason)
	}

	seed := e.cfg.Transform.Seed
	if seed == 0 {
		seed = transform.SeedFor(req.Text)
	}
	local := e.transformer.Transform(req.Text, req.Aggressiveness, seed)
	local.Provenance = localProvenance(req.Mode)
	e.ledger.RecordLocal(req.Mode)
	res.Trace = append(res.Trace, model.StageLocalTransformed)

	quality := e.quality.Assess(req.Text, local.Text)
	res.Quality = &quality
	res.Trace = append(res.Trace, model.StageQualityAssessed)

	if ok, reason := e.policy.Sufficient(req.Mode, quality, local); ok {
		res.Trace = append(res.Trace, model.StageSufficient)
		return e.finish(res, local, reason)
	}
	res.Trace = append(res.Trace, model.StageInsufficient)

	assessment := e.risk.Assess(req.Text)
	res.Risk = &assessment
	res.Trace = append(res.Trace, model.StageRiskAssessed)

	decision := e.policy.Decide(routing.Input{
		Request:  req,
		Local:    local,
		Quality:  quality,
		Risk:     &assessment,
		Academic: e.transformer.IsAcademic(req.Text),
	})
	res.Decision = &decision
	res.Trace = append(res.Trace, model.StageRouted)

	if !decision.Escalate {
		res.Trace = append(res.Trace, model.StageLocalAccepted)
		return e.finish(res, local, decision.Reason)
	}

	res.Trace = append(res.Trace, model.StageAIEscalated)
	return e.escalate(ctx, res, req, local, quality, &assessment, decision)
}

// escalate obtains an AI candidate from cache or the refiner and selects the final one
func (e *Engine) escalate(ctx context.Context, res model.Result, req model.Request, local model.Candidate, quality model.QualityAssessment, assessment *model.RiskAssessment, decision model.RoutingDecision) model.Result {
	key := cache.RefinementKey(req.Text, req.Mode)

	ai, hit := e.cachedCandidate(key)
	if hit {
		e.ledger.RecordCacheHit(req.Mode)
		res.CacheHit = true
		ai.Provenance = "ai_cached_" + string(req.Mode)
	} else {
		var err error
		ai, hit, err = e.refineOnce(ctx, key, req, quality, assessment)
		if err != nil {
			e.ledger.RecordFallback(req.Mode)
			e.logger.Warn("AI refinement failed, using local candidate",
				"paragraph", req.ParagraphIndex,
				"mode", req.Mode,
				"error", err)

			fallback := local
			fallback.Provenance = localProvenance(req.Mode) + model.FallbackSuffix
			res.Fallback = true
			res.AIError = err.Error()
			return e.finish(res, fallback, decision.Reason+model.FallbackReasonMarker)
		}
		if hit {
			e.ledger.RecordCacheHit(req.Mode)
			res.CacheHit = true
		}
	}

	aiQuality := e.quality.Assess(req.Text, ai.Text)
	chosen, winner := selectCandidate(req.Mode, local, ai)
	res.Comparison = &model.Comparison{
		LocalReduction: local.PlagiarismReduction,
		AIReduction:    ai.PlagiarismReduction,
		Improvement:    ai.PlagiarismReduction - local.PlagiarismReduction,
		LocalQuality:   quality.Score,
		AIQuality:      aiQuality.Score,
		Winner:         winner,
	}
	if req.Mode == model.ModeBalanced {
		e.logger.Info("Local vs AI comparison",
			"paragraph", req.ParagraphIndex,
			"local_reduction", local.PlagiarismReduction,
			"ai_reduction", ai.PlagiarismReduction,
			"improvement", res.Comparison.Improvement,
			"winner", winner)
	}

	return e.finish(res, chosen, decision.Reason)
}

// cachedCandidate looks up a prior refinement
func (e *Engine) cachedCandidate(key string) (model.Candidate, bool) {
	if e.cache == nil {
		return model.Candidate{}, false
	}
	return e.cache.Get(key)
}

type flightResult struct {
	cand   model.Candidate
	cached bool
}

// refineOnce calls the refiner at most once per key across concurrent callers.
// The second return is true when the candidate came from another caller's
// refinement rather than a new refiner call.
func (e *Engine) refineOnce(ctx context.Context, key string, req model.Request, quality model.QualityAssessment, assessment *model.RiskAssessment) (model.Candidate, bool, error) {
	executed := false
	v, err, _ := e.flight.Do(key, func() (any, error) {
		executed = true
		// a flight that finished since our lookup has filled the cache
		if cand, ok := e.cachedCandidate(key); ok {
			return flightResult{cand: cand, cached: true}, nil
		}
		cand, err := e.refine(ctx, key, req, quality, assessment)
		return flightResult{cand: cand}, err
	})
	if err != nil {
		return model.Candidate{}, false, err
	}
	r := v.(flightResult)
	shared := !executed || r.cached
	if shared {
		r.cand.Provenance = "ai_cached_" + string(req.Mode)
	}
	return r.cand, shared, nil
}

// refine calls the refiner, scores its answer and caches it
func (e *Engine) refine(ctx context.Context, key string, req model.Request, quality model.QualityAssessment, assessment *model.RiskAssessment) (model.Candidate, error) {
	if e.refiner == nil {
		return model.Candidate{}, fmt.Errorf("%w: no refiner configured", llm.ErrUnavailable)
	}

	modeCfg := e.policy.Config(req.Mode)
	start := time.Now()
	resp, err := e.refiner.Refine(ctx, llm.RefineRequest{
		Text: req.Text,
		Context: llm.RefinementContext{
			Mode:            req.Mode,
			RiskCategories:  assessment.Categories(),
			TargetReduction: modeCfg.LocalConfidenceThreshold * 100,
			QualityIssues:   quality.Issues,
		},
	})
	e.ledger.ObserveRefine(req.Mode, time.Since(start))
	if err != nil {
		return model.Candidate{}, err
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return model.Candidate{}, fmt.Errorf("%w: empty text", llm.ErrMalformedResponse)
	}

	tokens := resp.TokensUsed
	if tokens <= 0 {
		tokens = (len(req.Text) + len(resp.Text)) / 4
	}
	e.ledger.RecordAI(req.Mode, tokens)

	cand := model.NewCandidate(resp.Text, e.weights.Similarity(req.Text, resp.Text), nil, "ai_"+string(req.Mode))
	if e.cache != nil {
		if err := e.cache.Put(key, cand); err != nil {
			e.logger.Warn("Failed to cache refinement", "error", err)
		}
	}
	return cand, nil
}

// finish closes the trace and guarantees the result carries text
func (e *Engine) finish(res model.Result, cand model.Candidate, reason string) model.Result {
	if strings.TrimSpace(cand.Text) == "" && strings.TrimSpace(res.Original) != "" {
		cand = model.NewCandidate(res.Original, 100, nil, model.ProvenancePassthrough)
	}
	res.Candidate = cand
	res.Reason = reason
	res.Trace = append(res.Trace, model.StageDone)

	e.logger.Debug("Paragraph processed",
		"paragraph", res.ParagraphIndex,
		"mode", res.Mode,
		"provenance", cand.Provenance,
		"similarity", cand.Similarity,
		"reason", reason)
	return res
}

func localProvenance(mode model.Mode) string {
	return "local_" + string(mode)
}
