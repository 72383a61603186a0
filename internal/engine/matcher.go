package engine

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrRejected is returned when input is not allowed by the grammar.
	ErrRejected = errors.New("input rejected by grammar")
	// ErrTerminated is returned when the matcher already accepted a stop token.
	ErrTerminated = errors.New("matcher is terminated")
)

// Matcher tracks the grammar state of one generated sequence.
type Matcher struct {
	fsm        *fsm
	info       *TokenizerInfo
	state      int
	terminated bool
	stack      []int
}

// NewMatcher returns a matcher positioned at the start of cg.
func NewMatcher(cg *CompiledGrammar) *Matcher {
	return &Matcher{
		fsm:   cg.grammar.fsm,
		info:  cg.info,
		state: cg.grammar.fsm.start,
		stack: make([]int, cg.info.maxTokLen+1),
	}
}

// AcceptString advances the matcher by s. Either all of s is accepted or the
// state is left unchanged. Text that is not valid UTF-8 is rejected.
func (m *Matcher) AcceptString(s string) error {
	if m.terminated {
		return ErrTerminated
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: invalid UTF-8 %q", ErrRejected, s)
	}
	next := m.fsm.walk(m.state, s)
	if next < 0 {
		return fmt.Errorf("%w: %q", ErrRejected, s)
	}
	m.state = next
	return nil
}

// AcceptToken advances the matcher by a token id. A stop token terminates
// the matcher when the grammar can end.
func (m *Matcher) AcceptToken(id int) error {
	if m.terminated {
		return ErrTerminated
	}
	if id < 0 || id >= m.info.VocabSize() {
		return fmt.Errorf("token %d out of range", id)
	}
	for _, stop := range m.info.stop {
		if stop != id {
			continue
		}
		if !m.CanTerminate() {
			return fmt.Errorf("%w: stop token %d before end of grammar", ErrRejected, id)
		}
		m.terminated = true
		return nil
	}
	if m.info.special[id] {
		return fmt.Errorf("%w: special token %d", ErrRejected, id)
	}
	return m.AcceptString(m.info.decoded[id])
}

// CanTerminate reports whether the input so far is a complete string.
func (m *Matcher) CanTerminate() bool { return m.fsm.accept[m.state] }

// IsTerminated reports whether a stop token was accepted.
func (m *Matcher) IsTerminated() bool { return m.terminated }

// Reset returns the matcher to the start of the grammar.
func (m *Matcher) Reset() {
	m.state = m.fsm.start
	m.terminated = false
}

// FillNextTokenBitmask writes the set of tokens permitted at the current
// position into mask.
//
// Tokens are visited in sorted order so the automaton states along a shared
// prefix are reused; once a prefix is rejected every following token that
// shares it is skipped without stepping the automaton.
func (m *Matcher) FillNextTokenBitmask(mask *Bitmask) error {
	if m.terminated {
		return ErrTerminated
	}
	if mask.Len() != m.info.VocabSize() {
		return fmt.Errorf("bitmask size %d does not match vocabulary size %d", mask.Len(), m.info.VocabSize())
	}
	mask.Clear()

	info := m.info
	stack := m.stack
	stack[0] = m.state
	valid := 0
	n := len(info.sorted)
	for i := 0; i < n; {
		toks := info.runes[i]
		d := min(info.lcp[i], valid)
		ok := true
		for d < len(toks) {
			next := m.fsm.next(stack[d], toks[d])
			if next < 0 {
				ok = false
				break
			}
			stack[d+1] = next
			d++
		}
		valid = d
		if ok {
			mask.Set(info.sorted[i])
			i++
			continue
		}
		// toks[:d+1] is rejected; so is every following token sharing it.
		for i++; i < n && info.lcp[i] > d; i++ {
		}
	}

	if m.fsm.accept[m.state] {
		for _, id := range info.stop {
			mask.Set(id)
		}
	}
	return nil
}
