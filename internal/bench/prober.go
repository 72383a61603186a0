package bench

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"k8s.io/utils/clock"

	"github.com/KromDaniel/excludebench/internal/engine"
)

// DefaultIterations is the number of compilations per compile-time probe.
const DefaultIterations = 10

// ErrInvalidIterations is returned when a compile probe is asked for fewer
// than one iteration.
var ErrInvalidIterations = errors.New("iterations must be at least 1")

// CompileStat is the result of one compile-time probe.
type CompileStat struct {
	MeanMs float64
	StdMs  float64
	MinMs  float64
	MaxMs  float64
	// Rules counts rule delimiters in the last compiled grammar. It is a proxy
	// for grammar complexity, not a cost measure.
	Rules int
}

// MatchStat is the mean time in microseconds to derive the token bitmask
// after one character.
type MatchStat float64

// Observer receives each timed sample of a probe.
type Observer interface {
	ObserveCompile(d time.Duration)
	ObserveMaskFill(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCompile(time.Duration)  {}
func (nopObserver) ObserveMaskFill(time.Duration) {}

// Prober runs compile-time and match-time probes.
type Prober struct {
	clock    clock.PassiveClock
	observer Observer
}

// Option configures a Prober.
type Option func(*Prober)

// WithClock sets the clock used for timing.
func WithClock(c clock.PassiveClock) Option {
	return func(p *Prober) { p.clock = c }
}

// WithObserver sets the sample observer.
func WithObserver(o Observer) Option {
	return func(p *Prober) { p.observer = o }
}

// NewProber returns a Prober timing with the monotonic wall clock.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		clock:    clock.RealClock{},
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BenchmarkCompile compiles pattern and excludes iterations times and
// summarizes the latency of each independent compilation. A compile error is
// returned as is; it invalidates the probe.
func (p *Prober) BenchmarkCompile(c Compiler, pattern string, excludes []string, iterations int) (CompileStat, error) {
	if iterations < 1 {
		return CompileStat{}, fmt.Errorf("%w, got %d", ErrInvalidIterations, iterations)
	}
	tag := engine.RegexTag(pattern, excludes)

	samples := make([]float64, 0, iterations)
	var last Grammar
	for i := 0; i < iterations; i++ {
		start := p.clock.Now()
		g, err := c.CompileStructuralTag(tag)
		elapsed := p.clock.Since(start)
		if err != nil {
			return CompileStat{}, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
		}
		p.observer.ObserveCompile(elapsed)
		samples = append(samples, milliseconds(elapsed))
		last = g
	}

	s := Summarize(samples)
	return CompileStat{
		MeanMs: s.Mean,
		StdMs:  s.Std,
		MinMs:  s.Min,
		MaxMs:  s.Max,
		Rules:  strings.Count(last.String(), engine.RuleDelimiter),
	}, nil
}

// ProbeMatching replays testString one character at a time through a fresh
// matcher and returns, per character, the microseconds spent deriving the
// token bitmask after accepting it. Accepting is not timed.
func (p *Prober) ProbeMatching(e MatchEngine, pattern string, excludes []string, testString string) ([]float64, error) {
	tag := engine.RegexTag(pattern, excludes)

	compiler, err := e.NewCompiler(false)
	if err != nil {
		return nil, fmt.Errorf("failed to create compiler: %w", err)
	}
	compiled, err := compiler.CompileStructuralTag(tag)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern %q: %w", pattern, err)
	}
	matcher, err := compiled.NewMatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create matcher: %w", err)
	}
	mask := engine.NewBitmask(e.VocabSize())

	samples := make([]float64, 0, utf8.RuneCountInString(testString))
	for pos, r := range testString {
		if err := matcher.AcceptString(string(r)); err != nil {
			return nil, fmt.Errorf("failed to accept %q at offset %d: %w", r, pos, err)
		}
		start := p.clock.Now()
		err := matcher.FillNextTokenBitmask(mask)
		elapsed := p.clock.Since(start)
		if err != nil {
			return nil, fmt.Errorf("failed to fill token bitmask at offset %d: %w", pos, err)
		}
		p.observer.ObserveMaskFill(elapsed)
		samples = append(samples, microseconds(elapsed))
	}
	return samples, nil
}

// BenchmarkMatching returns the mean of ProbeMatching, or 0 for an empty
// test string.
func (p *Prober) BenchmarkMatching(e MatchEngine, pattern string, excludes []string, testString string) (MatchStat, error) {
	samples, err := p.ProbeMatching(e, pattern, excludes, testString)
	if err != nil {
		return 0, err
	}
	return MatchStat(Mean(samples)), nil
}

// BenchmarkCompile runs a compile-time probe with a default Prober.
func BenchmarkCompile(c Compiler, pattern string, excludes []string, iterations int) (CompileStat, error) {
	return NewProber().BenchmarkCompile(c, pattern, excludes, iterations)
}

// BenchmarkMatching runs a match-time probe with a default Prober.
func BenchmarkMatching(e MatchEngine, pattern string, excludes []string, testString string) (MatchStat, error) {
	return NewProber().BenchmarkMatching(e, pattern, excludes, testString)
}
