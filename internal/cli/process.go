package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/parafrasa/internal/model"
	"github.com/ppiankov/parafrasa/internal/pipeline"
)

var (
	outputDir      string
	processTimeout time.Duration
	noCache        bool
	noProgress     bool
	resetProgress  bool
	metricsAddr    string
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <file|url|->",
	Short: "Paraphrase every paragraph of a document",
	Long: `Process reads a document (plain text with blank-line separated paragraphs,
HTML, DOCX, PDF, a URL, or - for stdin) and paraphrases each paragraph:
- Rewrite locally with phrase tables, synonyms and structural rules
- Score the rewrite's quality and its residual similarity to known templates
- Escalate to the configured AI refiner only when the mode's policy says so
- Write the paraphrased text plus JSON and Markdown reports

Interrupted runs resume where they stopped when a store path is configured.

Example:
  parafrasa process skripsi.txt
  parafrasa process skripsi.docx --mode smart
  parafrasa process skripsi.txt --mode turnitin_safe --llm-provider openai --llm-model gpt-4o-mini
  parafrasa process bab2.txt --store ~/.parafrasa/progress.db --workers 8
  cat bab1.txt | parafrasa process - --mode balanced`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	f := processCmd.Flags()
	f.String("mode", string(model.ModeSmart), "routing mode (smart, balanced, aggressive, turnitin_safe)")
	f.Float64("aggressiveness", 0.5, "local rewrite strength (0-1)")
	f.Int("workers", 4, "number of concurrent workers")
	f.String("llm-provider", "", "AI refiner provider (openai, anthropic, ollama, gemini); empty disables escalation")
	f.String("llm-model", "", "AI refiner model name")
	f.String("store", "", "progress database path for resumable runs (empty keeps progress in memory)")
	f.String("patterns", "", "pattern catalog path (default: embedded catalog)")
	f.Bool("allow-degraded", false, "continue without risk detection if the pattern catalog fails to load")

	_ = viper.BindPFlag("mode", f.Lookup("mode"))
	_ = viper.BindPFlag("aggressiveness", f.Lookup("aggressiveness"))
	_ = viper.BindPFlag("concurrency.workers", f.Lookup("workers"))
	_ = viper.BindPFlag("llm.provider", f.Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", f.Lookup("llm-model"))
	_ = viper.BindPFlag("store.path", f.Lookup("store"))
	_ = viper.BindPFlag("patterns.path", f.Lookup("patterns"))
	_ = viper.BindPFlag("patterns.allow_degraded", f.Lookup("allow-degraded"))

	f.StringVar(&outputDir, "output-dir", "./parafrasa-output", "output directory for text and reports")
	f.DurationVar(&processTimeout, "timeout", 30*time.Minute, "total timeout for the run")
	f.BoolVar(&noCache, "no-cache", false, "disable the refinement cache")
	f.BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	f.BoolVar(&resetProgress, "reset", false, "discard stored progress for this document and start over")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run (e.g. :9090)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	src := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	mode, err := model.ParseMode(string(cfg.Mode))
	if err != nil {
		return err
	}
	cfg.Mode = mode
	if noCache {
		cfg.Cache.Enabled = false
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), processTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := loadDocument(ctx, cfg, src)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Parafrasa\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Source:       %s\n", doc.Source)
	fmt.Fprintf(os.Stderr, "  Paragraphs:   %d\n", len(doc.Paragraphs))
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", cfg.Mode)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  Refiner:      %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	} else {
		fmt.Fprintf(os.Stderr, "  Refiner:      disabled (local only)\n")
	}
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	opts := []pipeline.Option{pipeline.WithLogger(slog.Default())}

	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, pipeline.WithRegisterer(reg))
		shutdown := serveMetrics(metricsAddr, reg)
		defer shutdown()
	}

	var bar *progressbar.ProgressBar
	if !noProgress && len(doc.Paragraphs) > 0 {
		bar = progressbar.NewOptions(len(doc.Paragraphs),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Paraphrasing...[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(os.Stderr)
			}),
		)
		opts = append(opts, pipeline.WithProgress(func(done, total int) {
			_ = bar.Set(done)
		}))
	}

	p, err := pipeline.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if resetProgress {
		if err := p.Reset(ctx, doc); err != nil {
			return fmt.Errorf("reset progress: %w", err)
		}
	}

	rep, runErr := p.Run(ctx, doc)
	if rep == nil {
		return fmt.Errorf("process failed: %w", runErr)
	}
	if bar != nil && runErr != nil {
		fmt.Fprintln(os.Stderr)
	}

	slug := sanitizeFilename(doc.Title)
	textPath := filepath.Join(outputDir, slug+".txt")
	jsonPath := filepath.Join(outputDir, slug+".report.json")
	mdPath := filepath.Join(outputDir, slug+".report.md")
	if err := rep.WriteFiles(jsonPath, mdPath, textPath); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	_ = rep.RenderSummary(os.Stderr)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "✓ Wrote text:     %s\n", textPath)
	fmt.Fprintf(os.Stderr, "✓ Wrote JSON:     %s\n", jsonPath)
	fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
	fmt.Fprintf(os.Stderr, "\n")

	if runErr != nil {
		if cfg.Store.Path == "" {
			fmt.Fprintf(os.Stderr, "⚠ Run interrupted; set --store to resume without reprocessing finished paragraphs\n")
		} else {
			fmt.Fprintf(os.Stderr, "⚠ Run interrupted; re-run the same command to resume\n")
		}
		if errors.Is(runErr, context.DeadlineExceeded) {
			return fmt.Errorf("timed out after %v: %w", processTimeout, runErr)
		}
		return runErr
	}
	return nil
}

func loadDocument(ctx context.Context, cfg *model.Config, src string) (*pipeline.Document, error) {
	loader := pipeline.NewLoader(cfg.Fetch)
	if src == "-" {
		doc, err := loader.LoadReader(os.Stdin, "stdin")
		if err != nil {
			return nil, err
		}
		doc.Title = "stdin"
		return doc, nil
	}
	doc, err := loader.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

// serveMetrics exposes reg on addr until the returned function is called
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("Metrics server stopped", "addr", addr, "error", err)
		}
	}()
	slog.Info("Serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	s = filepath.Base(strings.TrimSpace(s))

	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	s = replacer.Replace(s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." || s == "_" {
		s = "document"
	}
	return s
}
