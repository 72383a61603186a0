// Package codegen provides code generation helpers and constants.
package codegen

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Variable names used in generated code
const (
	BenchName       = "b"
	TagName         = "tag"
	InfoName        = "info"
	CompilerName    = "compiler"
	CompiledName    = "compiled"
	MaskName        = "mask"
	MatcherName     = "m"
	InputName       = "input"
	RuneName        = "r"
	TokenizerFunc   = "benchTokenizer"
	StopTokenText   = "</s>"
	BenchmarkKind   = "Benchmark"
	GeneratedNotice = "Code generated by benchgen. DO NOT EDIT."
)

// Identifier converts a free-form case label into an exported Go identifier
// fragment: runs of letters and digits are kept, every other rune starts a
// new word.
func Identifier(label string) string {
	var sb strings.Builder
	upper := true
	for _, r := range label {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
		}
		sb.WriteRune(r)
		upper = false
	}
	return sb.String()
}

// UpperFirst upper-cases the first rune of s, leaving digits and symbols as
// they are.
func UpperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Namer hands out unique benchmark function names.
type Namer struct {
	used map[string]int
}

// NewNamer returns an empty Namer.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]int)}
}

// Name returns Benchmark<Kind><Identifier(label)>, suffixed with _N when the
// same name was already handed out.
func (n *Namer) Name(kind, label string) string {
	id := BenchmarkKind + UpperFirst(kind) + Identifier(label)
	n.used[id]++
	if k := n.used[id]; k > 1 {
		id = fmt.Sprintf("%s_%d", id, k)
	}
	return id
}
