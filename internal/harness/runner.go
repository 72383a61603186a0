// Package harness runs the benchmark case registry and reports the results.
//
// A run has two phases. Compile-time probes run first and any failure aborts
// the run. Match-time probes then run inside a failure boundary: a missing
// tokenizer, a probe error or a panic turns the phase into a skip notice and
// the compile-time results are still returned.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/KromDaniel/excludebench/internal/bench"
	"github.com/KromDaniel/excludebench/internal/cases"
	"github.com/KromDaniel/excludebench/internal/logging"
	"github.com/KromDaniel/excludebench/internal/metrics"
)

// DefaultTimeout bounds tokenizer acquisition.
const DefaultTimeout = 5 * time.Minute

// ErrNoTokenizer is the skip reason when no tokenizer source is configured.
var ErrNoTokenizer = errors.New("no tokenizer source configured")

// TokenizerLoader acquires the vocabulary-bound engine used by match-time
// probes.
type TokenizerLoader func(ctx context.Context) (bench.MatchEngine, error)

// Config holds the parameters of a run.
type Config struct {
	Registry   cases.Registry
	Iterations int
	Format     Format
	// SkipMatch disables the match-time phase.
	SkipMatch bool
	// Timeout bounds the tokenizer loader. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultConfig returns the built-in registry with default settings.
func DefaultConfig() Config {
	return Config{
		Registry:   cases.Default(),
		Iterations: bench.DefaultIterations,
		Format:     FormatTable,
		Timeout:    DefaultTimeout,
	}
}

// Runner executes a benchmark run.
type Runner struct {
	cfg           Config
	out           io.Writer
	compiler      bench.Compiler
	loadTokenizer TokenizerLoader
	clock         clock.PassiveClock
	recorder      *metrics.Recorder
	logger        *logging.Logger
	runID         string
}

// Option configures a Runner.
type Option func(*Runner)

// WithOutput sets where the report is written.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithCompiler sets the tokenizer-free compiler used by compile-time probes.
func WithCompiler(c bench.Compiler) Option {
	return func(r *Runner) { r.compiler = c }
}

// WithTokenizerLoader sets how the match-time engine is acquired.
func WithTokenizerLoader(l TokenizerLoader) Option {
	return func(r *Runner) { r.loadTokenizer = l }
}

// WithClock sets the clock used for timing.
func WithClock(c clock.PassiveClock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithRecorder records every sample into rec.
func WithRecorder(rec *metrics.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLogger sets the progress logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// NewRunner validates cfg and returns a Runner.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Iterations < 1 {
		return nil, fmt.Errorf("%w, got %d", bench.ErrInvalidIterations, cfg.Iterations)
	}
	if len(cfg.Registry.Compile) == 0 {
		return nil, fmt.Errorf("registry has no compile cases")
	}
	if cfg.Format == "" {
		cfg.Format = FormatTable
	}
	if _, err := ParseFormat(string(cfg.Format)); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := &Runner{
		cfg:      cfg,
		out:      os.Stdout,
		compiler: bench.EngineCompiler,
		clock:    clock.RealClock{},
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	r.logger = r.logger.WithField("run_id", r.runID)
	return r, nil
}

// RunID returns the id attached to the run's log lines.
func (r *Runner) RunID() string { return r.runID }

func (r *Runner) prober(label string) *bench.Prober {
	opts := []bench.Option{bench.WithClock(r.clock)}
	if r.recorder != nil {
		opts = append(opts, bench.WithObserver(r.recorder.Case(label)))
	}
	return bench.NewProber(opts...)
}

// Run executes both phases and writes the report. It returns an error only
// when a compile-time probe fails or the report cannot be written.
func (r *Runner) Run(ctx context.Context) (RunResult, error) {
	res := RunResult{RunID: r.runID}
	rep := newReporter(r.out, r.cfg.Format)

	if err := rep.compileStart(); err != nil {
		return res, fmt.Errorf("failed to write report: %w", err)
	}
	compiled, err := r.runCompilePhase(rep)
	res.Compile = compiled
	if err != nil {
		return res, err
	}
	rep.compileEnd()
	rep.ratios(res.Ratios())

	rep.matchHeader()
	res.Match = r.runMatchPhase(ctx, rep)
	if res.Match.Skipped {
		r.logger.Warn("Matching benchmark skipped: %s", res.Match.Reason)
	}
	return res, nil
}

// runCompilePhase writes each row as soon as its case finishes and returns
// the cases completed so far alongside any error.
func (r *Runner) runCompilePhase(rep *reporter) ([]CompileResult, error) {
	r.logger.Section("Compile time")
	results := make([]CompileResult, 0, len(r.cfg.Registry.Compile))
	for _, c := range r.cfg.Registry.Compile {
		r.logger.Log("Compiling %q (%d excludes) x%d", c.Label, len(c.Excludes), r.cfg.Iterations)
		stat, err := r.prober(c.Label).BenchmarkCompile(r.compiler, c.Pattern, c.Excludes, r.cfg.Iterations)
		if err != nil {
			return results, fmt.Errorf("case %q: %w", c.Label, err)
		}
		r.logger.Log("%s: mean %.3f ms, std %.3f ms, %d rules", c.Label, stat.MeanMs, stat.StdMs, stat.Rules)
		if r.recorder != nil {
			r.recorder.SetRules(c.Label, stat.Rules)
		}
		res := CompileResult{Case: c, Stat: stat}
		results = append(results, res)
		if err := rep.compileRow(res); err != nil {
			return results, fmt.Errorf("failed to write report: %w", err)
		}
	}
	return results, nil
}

// runMatchPhase never fails; every error and panic becomes a skip.
func (r *Runner) runMatchPhase(ctx context.Context, rep *reporter) (outcome MatchOutcome) {
	defer func() {
		if p := recover(); p != nil {
			outcome = Skipped(fmt.Sprintf("panic: %v", p))
			rep.matchSkipped(outcome.Reason)
		}
	}()

	results, err := r.matchAll(ctx, rep)
	if err != nil {
		rep.matchSkipped(err.Error())
		return Skipped(err.Error())
	}
	return Completed(results)
}

func (r *Runner) matchAll(ctx context.Context, rep *reporter) ([]MatchResult, error) {
	if r.cfg.SkipMatch {
		return nil, errors.New("match phase disabled")
	}
	if r.loadTokenizer == nil {
		return nil, ErrNoTokenizer
	}

	r.logger.Section("Match time")
	loadCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	e, err := r.loadTokenizer(loadCtx)
	if err != nil {
		return nil, err
	}

	results := make([]MatchResult, 0, len(r.cfg.Registry.Match))
	for _, c := range r.cfg.Registry.Match {
		var input string
		if c.TestString != nil {
			input = *c.TestString
		}
		r.logger.Log("Matching %q against %q", c.Label, input)
		stat, err := r.prober(c.Label).BenchmarkMatching(e, c.Pattern, c.Excludes, input)
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", c.Label, err)
		}
		res := MatchResult{Case: c, Stat: stat}
		rep.matchResult(res)
		results = append(results, res)
	}
	return results, nil
}
