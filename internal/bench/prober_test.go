package bench

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/KromDaniel/excludebench/internal/engine"
)

type fakeGrammar string

func (g fakeGrammar) String() string { return string(g) }

// steppingCompiler advances the fake clock by a growing number of
// milliseconds per call, so samples are 1ms, 2ms, 3ms, ...
type steppingCompiler struct {
	clock *clocktesting.FakeClock
	calls int
	tags  []engine.StructuralTag
	err   error
}

func (c *steppingCompiler) CompileStructuralTag(tag engine.StructuralTag) (Grammar, error) {
	c.calls++
	c.tags = append(c.tags, tag)
	c.clock.Step(time.Duration(c.calls) * time.Millisecond)
	if c.err != nil {
		return nil, c.err
	}
	return fakeGrammar(strings.Repeat("r ::= x\n", c.calls)), nil
}

func newFakeClock() *clocktesting.FakeClock {
	return clocktesting.NewFakeClock(time.Unix(0, 0))
}

func TestBenchmarkCompileStatistics(t *testing.T) {
	clk := newFakeClock()
	c := &steppingCompiler{clock: clk}
	p := NewProber(WithClock(clk))

	stat, err := p.BenchmarkCompile(c, "[a-z]+", []string{"bad"}, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, c.calls)
	assert.InDelta(t, 3.0, stat.MeanMs, 1e-9)
	assert.InDelta(t, math.Sqrt(2.5), stat.StdMs, 1e-9)
	assert.InDelta(t, 1.0, stat.MinMs, 1e-9)
	assert.InDelta(t, 5.0, stat.MaxMs, 1e-9)
	// Rules come from the last artifact.
	assert.Equal(t, 5, stat.Rules)

	for _, tag := range c.tags {
		assert.Equal(t, engine.RegexTag("[a-z]+", []string{"bad"}), tag)
	}
}

func TestBenchmarkCompileSingleIteration(t *testing.T) {
	clk := newFakeClock()
	p := NewProber(WithClock(clk))

	stat, err := p.BenchmarkCompile(&steppingCompiler{clock: clk}, "[a-z]+", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stat.StdMs)
	assert.Equal(t, stat.MinMs, stat.MeanMs)
	assert.Equal(t, stat.MaxMs, stat.MeanMs)
}

func TestBenchmarkCompileInvalidIterations(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := BenchmarkCompile(EngineCompiler, "[a-z]+", nil, n)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidIterations))
	}
}

func TestBenchmarkCompilePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	clk := newFakeClock()
	c := &steppingCompiler{clock: clk, err: boom}

	_, err := NewProber(WithClock(clk)).BenchmarkCompile(c, "x", nil, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 1, c.calls, "no retries after a failure")

	_, err = BenchmarkCompile(EngineCompiler, "[a-", nil, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[a-")
}

func TestBenchmarkCompileWithEngine(t *testing.T) {
	base, err := BenchmarkCompile(EngineCompiler, "[a-z]+", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, base.Rules)
	assert.LessOrEqual(t, base.MinMs, base.MeanMs)
	assert.LessOrEqual(t, base.MeanMs, base.MaxMs)

	excl, err := BenchmarkCompile(EngineCompiler, "[a-z]+", []string{"bad"}, 3)
	require.NoError(t, err)
	assert.Greater(t, excl.Rules, base.Rules)

	again, err := BenchmarkCompile(EngineCompiler, "[a-z]+", []string{"bad"}, 2)
	require.NoError(t, err)
	assert.Equal(t, excl.Rules, again.Rules)
}

// recordingEngine fakes the whole match-time stack. Accepting a unit moves
// the clock by a second; filling the mask moves it by fillStep.
type recordingEngine struct {
	clock     *clocktesting.FakeClock
	fillStep  time.Duration
	vocabSize int

	cacheFlags []bool
	events     []string
	masks      []*engine.Bitmask
	rejectAt   string
	compileErr error
}

func (e *recordingEngine) VocabSize() int { return e.vocabSize }

func (e *recordingEngine) NewCompiler(cacheEnabled bool) (MatchCompiler, error) {
	e.cacheFlags = append(e.cacheFlags, cacheEnabled)
	return recordingCompiler{e}, nil
}

type recordingCompiler struct{ e *recordingEngine }

func (c recordingCompiler) CompileStructuralTag(engine.StructuralTag) (CompiledGrammar, error) {
	c.e.events = append(c.e.events, "compile")
	if c.e.compileErr != nil {
		return nil, c.e.compileErr
	}
	return c, nil
}

func (c recordingCompiler) NewMatcher() (Matcher, error) {
	c.e.events = append(c.e.events, "matcher")
	return recordingMatcher{c.e}, nil
}

type recordingMatcher struct{ e *recordingEngine }

func (m recordingMatcher) AcceptString(s string) error {
	m.e.events = append(m.e.events, "accept:"+s)
	m.e.clock.Step(time.Second)
	if s == m.e.rejectAt {
		return engine.ErrRejected
	}
	return nil
}

func (m recordingMatcher) FillNextTokenBitmask(mask *engine.Bitmask) error {
	m.e.events = append(m.e.events, "fill")
	m.e.masks = append(m.e.masks, mask)
	m.e.clock.Step(m.e.fillStep)
	return nil
}

func TestProbeMatchingTimesOnlyMaskFill(t *testing.T) {
	clk := newFakeClock()
	e := &recordingEngine{clock: clk, fillStep: 7 * time.Microsecond, vocabSize: 100}
	p := NewProber(WithClock(clk))

	samples, err := p.ProbeMatching(e, "[a-z]+", nil, "héllo")
	require.NoError(t, err)

	require.Len(t, samples, 5)
	for _, s := range samples {
		assert.InDelta(t, 7.0, s, 1e-9)
	}
	assert.Equal(t, []bool{false}, e.cacheFlags, "compiled once with caching disabled")
	assert.Equal(t, []string{
		"compile", "matcher",
		"accept:h", "fill",
		"accept:é", "fill",
		"accept:l", "fill",
		"accept:l", "fill",
		"accept:o", "fill",
	}, e.events)

	require.Len(t, e.masks, 5)
	for _, m := range e.masks {
		assert.Same(t, e.masks[0], m, "bitmask is reused")
	}
	assert.Equal(t, 100, e.masks[0].Len())
}

func TestBenchmarkMatchingTwoSamples(t *testing.T) {
	clk := newFakeClock()
	e := &recordingEngine{clock: clk, fillStep: 4 * time.Microsecond, vocabSize: 8}

	stat, err := NewProber(WithClock(clk)).BenchmarkMatching(e, "[a-z]+", nil, "ab")
	require.NoError(t, err)
	assert.InDelta(t, 4.0, float64(stat), 1e-9)
	assert.Equal(t, 2, strings.Count(strings.Join(e.events, " "), "fill"))
}

func TestBenchmarkMatchingEmptyString(t *testing.T) {
	clk := newFakeClock()
	e := &recordingEngine{clock: clk, vocabSize: 8}

	stat, err := NewProber(WithClock(clk)).BenchmarkMatching(e, "[a-z]+", nil, "")
	require.NoError(t, err)
	assert.Equal(t, MatchStat(0), stat)
}

func TestProbeMatchingErrors(t *testing.T) {
	clk := newFakeClock()

	rejecting := &recordingEngine{clock: clk, vocabSize: 8, rejectAt: "1"}
	_, err := NewProber(WithClock(clk)).ProbeMatching(rejecting, "[a-z]+", nil, "a1b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrRejected))
	assert.NotContains(t, rejecting.events, "accept:b", "no skipping past a rejected unit")

	boom := errors.New("boom")
	failing := &recordingEngine{clock: clk, vocabSize: 8, compileErr: boom}
	_, err = NewProber(WithClock(clk)).ProbeMatching(failing, "[a-z]+", nil, "a")
	assert.True(t, errors.Is(err, boom))
}

func TestBenchmarkMatchingWithEngine(t *testing.T) {
	info, err := engine.NewTokenizerInfo([]string{"</s>", "a", "b", "ab", "bad", "1"}, engine.WithStopTokens(0))
	require.NoError(t, err)
	backend := NewEngineBackend(info)

	samples, err := NewProber().ProbeMatching(backend, "[a-z]+", []string{"bad"}, "helloworld")
	require.NoError(t, err)
	assert.Len(t, samples, 10)

	stat, err := BenchmarkMatching(backend, "[a-z]+", nil, "")
	require.NoError(t, err)
	assert.Equal(t, MatchStat(0), stat)

	_, err = BenchmarkMatching(backend, "[a-z]+", nil, "ab1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, engine.ErrRejected))
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		want    Summary
	}{
		{name: "empty", samples: nil, want: Summary{}},
		{name: "single", samples: []float64{2.5}, want: Summary{Mean: 2.5, Min: 2.5, Max: 2.5}},
		{name: "pair", samples: []float64{1, 3}, want: Summary{Mean: 2, Std: math.Sqrt(2), Min: 1, Max: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.samples)
			assert.InDelta(t, tt.want.Mean, got.Mean, 1e-12)
			assert.InDelta(t, tt.want.Std, got.Std, 1e-12)
			assert.Equal(t, tt.want.Min, got.Min)
			assert.Equal(t, tt.want.Max, got.Max)
		})
	}
}

func TestSummarizeOrdering(t *testing.T) {
	samples := []float64{0.1, 0.1, 0.1}
	s := Summarize(samples)
	assert.LessOrEqual(t, s.Min, s.Mean)
	assert.LessOrEqual(t, s.Mean, s.Max)
}
