package engine

import (
	"fmt"
	"regexp/syntax"
	"strconv"
	"strings"
	"unicode"
)

// RuleDelimiter separates a rule name from its body in the textual grammar.
const RuleDelimiter = "::="

// Grammar is the compiled form of a structural tag. It is immutable.
type Grammar struct {
	tag StructuralTag
	fsm *fsm
}

// CompileStructuralTag compiles a regex structural tag into a Grammar. The
// pattern must match the whole generated text; excludes forbid any
// occurrence of the given literal substrings.
func CompileStructuralTag(tag StructuralTag) (*Grammar, error) {
	return compileTag(tag, DefaultMaxStates)
}

func compileTag(tag StructuralTag, maxStates int) (*Grammar, error) {
	if err := tag.Validate(); err != nil {
		return nil, err
	}
	re, err := syntax.Parse(tag.Format.Pattern, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pattern: %w", err)
	}
	prog, err := syntax.Compile(re.Simplify())
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}
	f, err := buildFSM(prog, tag.Format.Excludes, maxStates)
	if err != nil {
		return nil, fmt.Errorf("failed to build grammar for %q: %w", tag.Format.Pattern, err)
	}
	return &Grammar{tag: tag, fsm: f}, nil
}

// Tag returns the structural tag the grammar was compiled from.
func (g *Grammar) Tag() StructuralTag { return g.tag }

// NumStates returns the number of automaton states.
func (g *Grammar) NumStates() int { return g.fsm.numStates() }

// NumRules returns the number of rules in the textual grammar: one per state
// plus the root rule.
func (g *Grammar) NumRules() int { return g.fsm.numStates() + 1 }

// Accepts reports whether s is a complete string of the grammar.
func (g *Grammar) Accepts(s string) bool {
	st := g.fsm.walk(g.fsm.start, s)
	return st >= 0 && g.fsm.accept[st]
}

// String renders the grammar as EBNF, e.g.
//
//	root ::= regex_state_0
//	regex_state_0 ::= ([a-z] regex_state_1)
//	regex_state_1 ::= "" | ([a-z] regex_state_1)
func (g *Grammar) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "root %s %s\n", RuleDelimiter, ruleName(g.fsm.start))
	for s := 0; s < g.fsm.numStates(); s++ {
		sb.WriteString(ruleName(s))
		sb.WriteString(" " + RuleDelimiter + " ")
		first := true
		if g.fsm.accept[s] {
			sb.WriteString(`""`)
			first = false
		}
		for _, e := range g.fsm.edges[s] {
			if !first {
				sb.WriteString(" | ")
			}
			first = false
			sb.WriteString("(")
			sb.WriteString(charClass(e.lo, e.hi))
			sb.WriteString(" ")
			sb.WriteString(ruleName(e.to))
			sb.WriteString(")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func ruleName(state int) string {
	return "regex_state_" + strconv.Itoa(state)
}

func charClass(lo, hi rune) string {
	if lo == hi {
		return "[" + escapeClassRune(lo) + "]"
	}
	return "[" + escapeClassRune(lo) + "-" + escapeClassRune(hi) + "]"
}

func escapeClassRune(r rune) string {
	switch r {
	case '\\', ']', '[', '-', '^':
		return `\` + string(r)
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	}
	if r > unicode.MaxRune || !unicode.IsPrint(r) {
		if r > 0xFFFF {
			return fmt.Sprintf(`\U%08x`, r)
		}
		return fmt.Sprintf(`\u%04x`, r)
	}
	return string(r)
}
