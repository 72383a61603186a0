package engine

import (
	"errors"
	"fmt"
	"regexp/syntax"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxStates bounds the automaton of a single grammar.
const DefaultMaxStates = 10000

var (
	// ErrEmptyLanguage is returned when no string satisfies both the pattern
	// and the excludes.
	ErrEmptyLanguage = errors.New("regex with excludes results in empty language")
	// ErrTooManyStates is returned when the automaton grows past the state limit.
	ErrTooManyStates = errors.New("grammar automaton exceeds state limit")
	// ErrUnsupported is returned for regex constructs the engine cannot express.
	ErrUnsupported = errors.New("unsupported regex construct")
)

const (
	beginFlags = syntax.EmptyBeginText | syntax.EmptyBeginLine
	endFlags   = syntax.EmptyEndText | syntax.EmptyEndLine
)

// edge is a transition on the closed rune interval [lo, hi].
type edge struct {
	lo, hi rune
	to     int
}

// fsm is a deterministic automaton over runes. Edges of each state are sorted
// and do not overlap.
type fsm struct {
	start  int
	accept []bool
	edges  [][]edge
}

func (f *fsm) numStates() int { return len(f.accept) }

// next returns the successor of state on r, or -1 when r is not allowed.
func (f *fsm) next(state int, r rune) int {
	es := f.edges[state]
	i := sort.Search(len(es), func(i int) bool { return es[i].hi >= r })
	if i < len(es) && es[i].lo <= r {
		return es[i].to
	}
	return -1
}

// walk feeds s from state and returns the final state, or -1.
func (f *fsm) walk(state int, s string) int {
	for _, r := range s {
		if state = f.next(state, r); state < 0 {
			return -1
		}
	}
	return state
}

// dstate is a state of the subset construction: the live NFA threads, the
// position in the exclusion automaton and whether no input was consumed yet.
type dstate struct {
	pcs   []uint32
	ac    int
	begin bool
}

type fsmBuilder struct {
	prog      *syntax.Prog
	ac        *acAutomaton
	acRunes   []rune
	maxStates int

	states []dstate
	accept []bool
	edges  [][]edge
	index  map[string]int

	stamp   []uint32
	gen     uint32
	bounds  []rune
	ranges  []rune
	seeds   []uint32
	keyBuf  strings.Builder
	scratch []uint32
}

// buildFSM determinizes prog, intersected with a filter rejecting every string
// that contains one of excludes, and prunes states that cannot reach an
// accepting state.
func buildFSM(prog *syntax.Prog, excludes []string, maxStates int) (*fsm, error) {
	for i := range prog.Inst {
		inst := &prog.Inst[i]
		if inst.Op != syntax.InstEmptyWidth {
			continue
		}
		op := syntax.EmptyOp(inst.Arg)
		if op&(syntax.EmptyWordBoundary|syntax.EmptyNoWordBoundary) != 0 {
			return nil, fmt.Errorf("%w: word boundary assertions", ErrUnsupported)
		}
		// Line anchors would have to fire on '\n' edges mid-input.
		if op&(syntax.EmptyBeginLine|syntax.EmptyEndLine) != 0 {
			return nil, fmt.Errorf("%w: multi-line anchors", ErrUnsupported)
		}
	}

	b := &fsmBuilder{
		prog:      prog,
		ac:        newACAutomaton(excludes),
		maxStates: maxStates,
		index:     make(map[string]int),
		stamp:     make([]uint32, len(prog.Inst)),
	}
	b.acRunes = b.ac.alphabet()

	start := b.closure([]uint32{uint32(prog.Start)}, beginFlags)
	if _, err := b.intern(start, 0, true); err != nil {
		return nil, err
	}
	for i := 0; i < len(b.states); i++ {
		if err := b.expand(i); err != nil {
			return nil, err
		}
	}
	return b.prune()
}

// closure follows empty transitions from seeds. Rune and match instructions
// are kept, as are assertions that may still hold at the end of input.
func (b *fsmBuilder) closure(seeds []uint32, cond syntax.EmptyOp) []uint32 {
	b.gen++
	kept := b.scratch[:0]
	var visit func(pc uint32)
	visit = func(pc uint32) {
		if b.stamp[pc] == b.gen {
			return
		}
		b.stamp[pc] = b.gen
		inst := &b.prog.Inst[pc]
		switch inst.Op {
		case syntax.InstAlt, syntax.InstAltMatch:
			visit(inst.Out)
			visit(inst.Arg)
		case syntax.InstCapture, syntax.InstNop:
			visit(inst.Out)
		case syntax.InstEmptyWidth:
			need := syntax.EmptyOp(inst.Arg)
			switch {
			case need&^cond == 0:
				visit(inst.Out)
			case need&^(cond|endFlags) == 0:
				kept = append(kept, pc)
			}
		case syntax.InstFail:
		default:
			kept = append(kept, pc)
		}
	}
	for _, pc := range seeds {
		visit(pc)
	}
	b.scratch = kept
	out := append([]uint32(nil), kept...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *fsmBuilder) key(pcs []uint32, ac int, begin bool) string {
	b.keyBuf.Reset()
	if begin {
		b.keyBuf.WriteByte('^')
	}
	b.keyBuf.WriteString(strconv.Itoa(ac))
	for _, pc := range pcs {
		b.keyBuf.WriteByte(',')
		b.keyBuf.WriteString(strconv.FormatUint(uint64(pc), 10))
	}
	return b.keyBuf.String()
}

func (b *fsmBuilder) intern(pcs []uint32, ac int, begin bool) (int, error) {
	k := b.key(pcs, ac, begin)
	if id, ok := b.index[k]; ok {
		return id, nil
	}
	if len(b.states) >= b.maxStates {
		return 0, fmt.Errorf("%w (%d)", ErrTooManyStates, b.maxStates)
	}
	id := len(b.states)
	b.index[k] = id
	b.states = append(b.states, dstate{pcs: pcs, ac: ac, begin: begin})
	b.accept = append(b.accept, b.accepting(pcs, begin))
	b.edges = append(b.edges, nil)
	return id, nil
}

func (b *fsmBuilder) accepting(pcs []uint32, begin bool) bool {
	cond := endFlags
	if begin {
		cond |= beginFlags
	}
	var pending []uint32
	for _, pc := range pcs {
		switch b.prog.Inst[pc].Op {
		case syntax.InstMatch:
			return true
		case syntax.InstEmptyWidth:
			pending = append(pending, pc)
		}
	}
	if len(pending) == 0 {
		return false
	}
	for _, pc := range b.closure(pending, cond) {
		if b.prog.Inst[pc].Op == syntax.InstMatch {
			return true
		}
	}
	return false
}

// expand computes the outgoing edges of state i. The rune space is split at
// every boundary of the live threads' ranges and at every exclude rune, so
// all runes of an elementary interval behave the same.
func (b *fsmBuilder) expand(i int) error {
	st := b.states[i]
	bounds := append(b.bounds[:0], 0, utf8.MaxRune+1)
	for _, pc := range st.pcs {
		b.ranges = instRanges(&b.prog.Inst[pc], b.ranges[:0])
		for j := 0; j+1 < len(b.ranges); j += 2 {
			bounds = append(bounds, b.ranges[j], b.ranges[j+1]+1)
		}
	}
	for _, r := range b.acRunes {
		bounds = append(bounds, r, r+1)
	}
	sort.Slice(bounds, func(x, y int) bool { return bounds[x] < bounds[y] })
	bounds = dedupeRunes(bounds)
	b.bounds = bounds

	var out []edge
	for k := 0; k+1 < len(bounds); k++ {
		lo, hi := bounds[k], bounds[k+1]-1

		acNext := b.ac.step(st.ac, lo)
		if b.ac.dead[acNext] {
			continue
		}
		seeds := b.seeds[:0]
		for _, pc := range st.pcs {
			inst := &b.prog.Inst[pc]
			if instMatches(inst, lo) {
				seeds = append(seeds, inst.Out)
			}
		}
		b.seeds = seeds
		if len(seeds) == 0 {
			continue
		}
		pcs := b.closure(seeds, 0)
		if len(pcs) == 0 {
			continue
		}
		to, err := b.intern(pcs, acNext, false)
		if err != nil {
			return err
		}
		if n := len(out); n > 0 && out[n-1].to == to && out[n-1].hi+1 == lo {
			out[n-1].hi = hi
		} else {
			out = append(out, edge{lo: lo, hi: hi, to: to})
		}
	}
	b.edges[i] = out
	return nil
}

// prune drops states that cannot reach an accepting state and renumbers the
// rest in breadth-first order from the start state.
func (b *fsmBuilder) prune() (*fsm, error) {
	n := len(b.states)
	rev := make([][]int, n)
	for from, es := range b.edges {
		for _, e := range es {
			rev[e.to] = append(rev[e.to], from)
		}
	}
	live := make([]bool, n)
	var queue []int
	for s, ok := range b.accept {
		if ok {
			live[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, p := range rev[s] {
			if !live[p] {
				live[p] = true
				queue = append(queue, p)
			}
		}
	}
	if !live[0] {
		return nil, ErrEmptyLanguage
	}

	renum := make([]int, n)
	for i := range renum {
		renum[i] = -1
	}
	order := []int{0}
	renum[0] = 0
	for k := 0; k < len(order); k++ {
		for _, e := range b.edges[order[k]] {
			if live[e.to] && renum[e.to] < 0 {
				renum[e.to] = len(order)
				order = append(order, e.to)
			}
		}
	}

	f := &fsm{
		accept: make([]bool, len(order)),
		edges:  make([][]edge, len(order)),
	}
	for newID, old := range order {
		f.accept[newID] = b.accept[old]
		for _, e := range b.edges[old] {
			if !live[e.to] {
				continue
			}
			f.edges[newID] = append(f.edges[newID], edge{lo: e.lo, hi: e.hi, to: renum[e.to]})
		}
	}
	return f, nil
}

// instRanges appends the [lo, hi] pairs matched by a rune instruction.
func instRanges(inst *syntax.Inst, dst []rune) []rune {
	switch inst.Op {
	case syntax.InstRune:
		if len(inst.Rune) == 1 {
			r0 := inst.Rune[0]
			dst = append(dst, r0, r0)
			if syntax.Flags(inst.Arg)&syntax.FoldCase != 0 {
				for r := unicode.SimpleFold(r0); r != r0; r = unicode.SimpleFold(r) {
					dst = append(dst, r, r)
				}
			}
			return dst
		}
		return append(dst, inst.Rune...)
	case syntax.InstRune1:
		return append(dst, inst.Rune[0], inst.Rune[0])
	case syntax.InstRuneAny:
		return append(dst, 0, utf8.MaxRune)
	case syntax.InstRuneAnyNotNL:
		return append(dst, 0, '\n'-1, '\n'+1, utf8.MaxRune)
	}
	return dst
}

// dedupeRunes removes adjacent duplicates from a sorted slice in place.
func dedupeRunes(rs []rune) []rune {
	if len(rs) < 2 {
		return rs
	}
	out := rs[:1]
	for _, r := range rs[1:] {
		if r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	return out
}

// instMatches reports whether a rune instruction consumes r. MatchRune only
// covers InstRune and InstRune1.
func instMatches(inst *syntax.Inst, r rune) bool {
	switch inst.Op {
	case syntax.InstRune, syntax.InstRune1:
		return inst.MatchRune(r)
	case syntax.InstRuneAny:
		return true
	case syntax.InstRuneAnyNotNL:
		return r != '\n'
	}
	return false
}
