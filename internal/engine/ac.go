package engine

import "sort"

// acAutomaton is an Aho-Corasick automaton over runes. A state is dead when
// the input read so far ends with one of the words.
type acAutomaton struct {
	next []map[rune]int
	fail []int
	dead []bool
}

func newACAutomaton(words []string) *acAutomaton {
	a := &acAutomaton{
		next: []map[rune]int{{}},
		fail: []int{0},
		dead: []bool{false},
	}
	for _, w := range words {
		s := 0
		for _, r := range w {
			to, ok := a.next[s][r]
			if !ok {
				to = len(a.next)
				a.next = append(a.next, map[rune]int{})
				a.fail = append(a.fail, 0)
				a.dead = append(a.dead, false)
				a.next[s][r] = to
			}
			s = to
		}
		a.dead[s] = true
	}

	// Breadth-first so a state's fail target is final before its children.
	queue := make([]int, 0, len(a.next))
	for _, to := range a.next[0] {
		queue = append(queue, to)
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for r, to := range a.next[s] {
			f := a.fail[s]
			for f != 0 {
				if _, ok := a.next[f][r]; ok {
					break
				}
				f = a.fail[f]
			}
			if t, ok := a.next[f][r]; ok && t != to {
				a.fail[to] = t
			}
			if a.dead[a.fail[to]] {
				a.dead[to] = true
			}
			queue = append(queue, to)
		}
	}
	return a
}

// step returns the state after reading r from s.
func (a *acAutomaton) step(s int, r rune) int {
	for {
		if to, ok := a.next[s][r]; ok {
			return to
		}
		if s == 0 {
			return 0
		}
		s = a.fail[s]
	}
}

// alphabet returns the sorted runes that appear in any word.
func (a *acAutomaton) alphabet() []rune {
	seen := map[rune]bool{}
	for _, m := range a.next {
		for r := range m {
			seen[r] = true
		}
	}
	out := make([]rune, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
