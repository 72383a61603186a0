package harness

import (
	"github.com/KromDaniel/excludebench/internal/bench"
	"github.com/KromDaniel/excludebench/internal/cases"
)

// CompileResult is the compile-time probe of one case.
type CompileResult struct {
	Case cases.Case
	Stat bench.CompileStat
}

// MatchResult is the match-time probe of one case.
type MatchResult struct {
	Case cases.Case
	Stat bench.MatchStat
}

// MatchOutcome is either the completed match-time results or the reason the
// phase was skipped.
type MatchOutcome struct {
	Results []MatchResult
	Skipped bool
	Reason  string
}

// Completed returns an outcome holding results.
func Completed(results []MatchResult) MatchOutcome {
	return MatchOutcome{Results: results}
}

// Skipped returns an outcome for a phase that did not complete.
func Skipped(reason string) MatchOutcome {
	return MatchOutcome{Skipped: true, Reason: reason}
}

// RunResult is the outcome of a full benchmark run. Compile results are
// always present once Run succeeds; the match phase may have been skipped.
type RunResult struct {
	RunID   string
	Compile []CompileResult
	Match   MatchOutcome
}

// Ratio is a compile-time mean relative to the baseline mean.
type Ratio struct {
	Label string
	Value float64
}

// Ratios returns every compile case's mean divided by the baseline mean, in
// registry order. The baseline's own ratio is 1.
func (r RunResult) Ratios() []Ratio {
	if len(r.Compile) == 0 {
		return nil
	}
	base := r.Compile[0].Stat.MeanMs
	out := make([]Ratio, 0, len(r.Compile))
	out = append(out, Ratio{Label: r.Compile[0].Case.Label, Value: 1})
	for _, c := range r.Compile[1:] {
		out = append(out, Ratio{Label: c.Case.Label, Value: c.Stat.MeanMs / base})
	}
	return out
}
