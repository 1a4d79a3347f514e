package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/benchdiff/internal/config"
	"github.com/torosent/benchdiff/internal/output"
	"github.com/torosent/benchdiff/internal/pairing"
	"github.com/torosent/benchdiff/internal/runner"
	"github.com/torosent/benchdiff/internal/source"
	"github.com/torosent/benchdiff/internal/threshold"
	"github.com/torosent/benchdiff/internal/tracing"
)

const (
	prefetchDepth   = 256
	shutdownTimeout = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return execute(ctx, args, os.Stdout, os.Stderr)
}

// execute runs one session. stdout must be a terminal in live mode.
func execute(ctx context.Context, args []string, stdout *os.File, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}
	strategy, err := pairing.StrategyByName(cfg.Pairing)
	if err != nil {
		return err
	}

	var renderer *output.Renderer
	if cfg.Format == config.FormatLive {
		term, err := output.NewANSITerminal(stdout)
		if err != nil {
			return err
		}
		renderer = output.NewRenderer(term, cfg.RefreshInterval, nil)
	}

	runID := ulid.Make().String()
	provider, err := tracing.Init(ctx, cfg.Tracing, tracing.Session{
		RunID:      runID,
		Input:      cfg.Input,
		Base:       cfg.Baseline,
		Labels:     cfg.Labels,
		Confidence: cfg.Confidence,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("flushing traces failed", slog.Any("error", err))
		}
	}()

	src, closer, err := source.Open(cfg.Input, cfg.InputFormat)
	if err != nil {
		return err
	}
	defer closer.Close()
	prefetched := source.Prefetch(src, prefetchDepth)
	defer prefetched.Close()

	logger.Debug("starting session",
		slog.String("run_id", runID),
		slog.String("input", cfg.Input),
		slog.String("format", string(cfg.Format)),
		slog.Any("labels", cfg.Labels),
		slog.String("base", cfg.Baseline),
	)

	r := runner.New(runner.Options{
		Source:     prefetched,
		Plan:       pairing.NewPlan(cfg.Baseline, cfg.Labels, strategy),
		Renderer:   renderer,
		Confidence: cfg.Confidence,
		TargetCI:   cfg.TargetCI,
		Logger:     logger,
		Tracer:     provider.Tracer(),
	})
	result, err := r.Run(ctx)
	if err != nil {
		return err
	}

	var results []threshold.Result
	if len(thresholds) > 0 {
		results = threshold.NewEvaluator(thresholds, cfg.Confidence).Evaluate(result.Diffs)
	}

	if renderer != nil {
		for _, res := range results {
			fmt.Fprintln(stdout, res.Message)
		}
	} else {
		report := output.NewReport(result.FrameData(cfg.Confidence), results)
		report.RunID = runID
		if err := writeReport(cfg, stdout, report); err != nil {
			return err
		}
	}

	var errs []error
	if failed := threshold.Failed(results); len(failed) > 0 {
		errs = append(errs, thresholdError(failed, len(results)))
	}
	if cfg.DenyPositive {
		if err := threshold.Gate(result.Diffs, threshold.GateLevel); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func writeReport(cfg *config.Config, stdout io.Writer, report output.Report) (err error) {
	w := stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close report: %w", cerr)
			}
		}()
		w = f
	}

	switch cfg.Format {
	case config.FormatJSON:
		return output.PrintJSONReport(w, report)
	case config.FormatYAML:
		return output.PrintYAMLReport(w, report)
	case config.FormatHTML:
		return output.PrintHTMLReport(w, report)
	default:
		return fmt.Errorf("unsupported report format %q", cfg.Format)
	}
}

func thresholdError(failed []threshold.Result, total int) error {
	msgs := make([]string, 0, len(failed))
	for _, r := range failed {
		msgs = append(msgs, r.Message)
	}
	return fmt.Errorf("%d of %d thresholds failed: %s", len(failed), total, strings.Join(msgs, "; "))
}
