package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/store"
)

// Processor runs one paragraph through the pipeline
type Processor interface {
	Process(ctx context.Context, req model.Request) model.Result
}

// ParagraphJob processes a single paragraph
type ParagraphJob struct {
	Request   model.Request
	Processor Processor
}

// Execute executes the paragraph job
func (j *ParagraphJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &ParagraphResult{Request: j.Request, Error: err}
	}
	result := j.Processor.Process(ctx, j.Request)
	// A result finished under a cancelled context may be a forced fallback;
	// leave it out so a resumed run retries the paragraph.
	if err := ctx.Err(); err != nil {
		return &ParagraphResult{Request: j.Request, Error: err}
	}
	return &ParagraphResult{Request: j.Request, Result: result}
}

// ParagraphResult represents the result of a paragraph job
type ParagraphResult struct {
	Request model.Request
	Result  model.Result
	Error   error
}

// GetError returns the error from the paragraph result
func (r *ParagraphResult) GetError() error {
	return r.Error
}

// BatchResult summarizes a batch run
type BatchResult struct {
	RunKey     string
	Results    []model.Result // DONE results ordered by paragraph index
	Processed  int            // Paragraphs processed in this run
	Resumed    int            // Paragraphs taken from the store
	Incomplete int            // Paragraphs left unfinished by cancellation
}

// BatchOption customizes a BatchProcessor
type BatchOption func(*BatchProcessor)

// WithProgress registers a callback invoked after every finished paragraph
func WithProgress(fn func(done, total int)) BatchOption {
	return func(b *BatchProcessor) { b.progress = fn }
}

// WithBatchLogger sets the logger
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) { b.logger = logger }
}

// BatchProcessor processes paragraphs concurrently and records progress in a store
type BatchProcessor struct {
	processor   Processor
	store       store.Store
	concurrency int
	progress    func(done, total int)
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor. A nil store keeps progress in memory.
func NewBatchProcessor(processor Processor, st store.Store, concurrency int, opts ...BatchOption) *BatchProcessor {
	if st == nil {
		st = store.NewMemory()
	}
	b := &BatchProcessor{
		processor:   processor,
		store:       st,
		concurrency: concurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes reqs under runKey. Paragraphs already DONE for runKey are
// reused instead of reprocessed, matched by paragraph ID rather than position.
// On cancellation the finished results are returned together with ctx's error.
func (b *BatchProcessor) Run(ctx context.Context, runKey string, reqs []model.Request) (*BatchResult, error) {
	out := &BatchResult{RunKey: runKey}
	if len(reqs) == 0 {
		return out, nil
	}

	done, err := b.store.Completed(ctx, runKey)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	var pending []model.Request
	for _, req := range reqs {
		if req.ID == "" {
			req.ID = model.ParagraphID(req.Text)
		}
		if prev, ok := done[req.ID]; ok {
			prev.ParagraphIndex = req.ParagraphIndex
			out.Results = append(out.Results, prev)
			out.Resumed++
			continue
		}
		pending = append(pending, req)
	}
	if out.Resumed > 0 {
		b.logger.Info("Resuming batch", "run", runKey, "done", out.Resumed, "pending", len(pending))
	}
	finished := out.Resumed
	b.report(finished, len(reqs))

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for _, req := range pending {
			if !pool.Submit(&ParagraphJob{Request: req, Processor: b.processor}) {
				return
			}
		}
	}()

	for res := range pool.Results() {
		pr := res.(*ParagraphResult)
		if pr.Error != nil {
			continue
		}
		// Results that finished before a cancel are still recorded
		if err := b.store.Save(context.WithoutCancel(ctx), runKey, pr.Result); err != nil {
			b.logger.Warn("Failed to record progress", "paragraph", pr.Request.ID, "error", err)
		}
		out.Results = append(out.Results, pr.Result)
		out.Processed++
		finished++
		b.report(finished, len(reqs))
	}

	sort.SliceStable(out.Results, func(i, j int) bool {
		return out.Results[i].ParagraphIndex < out.Results[j].ParagraphIndex
	})
	out.Incomplete = len(reqs) - len(out.Results)

	if err := ctx.Err(); err != nil {
		b.logger.Warn("Batch interrupted", "run", runKey, "done", len(out.Results), "incomplete", out.Incomplete)
		return out, fmt.Errorf("batch %s interrupted: %w", runKey, err)
	}
	return out, nil
}

func (b *BatchProcessor) report(done, total int) {
	if b.progress != nil {
		b.progress(done, total)
	}
}

// Requests builds one request per paragraph, numbered in document order
func Requests(paragraphs []string, mode model.Mode, aggressiveness float64) []model.Request {
	reqs := make([]model.Request, len(paragraphs))
	for i, p := range paragraphs {
		reqs[i] = model.Request{
			ID:              model.ParagraphID(p),
			Text:            p,
			Mode:            mode,
			Aggressiveness:  aggressiveness,
			ParagraphIndex:  i,
			TotalParagraphs: len(paragraphs),
		}
	}
	return reqs
}

// ReadParagraphs splits r into paragraphs separated by blank lines.
// Lines inside a paragraph are joined with single spaces.
func ReadParagraphs(r io.Reader) ([]string, error) {
	var paragraphs []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, " "))
			current = current[:0]
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan paragraphs: %w", err)
	}
	flush()

	return paragraphs, nil
}
