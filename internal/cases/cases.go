// Package cases holds the benchmark case registry.
//
// Cases are plain data. The first compile-time case is the baseline that every
// other case is compared against, so the order of the tables is significant.
package cases

import "strings"

// Case is one labeled benchmark configuration.
type Case struct {
	Label    string   `yaml:"label"`
	Pattern  string   `yaml:"pattern"`
	Excludes []string `yaml:"excludes,omitempty"`
	// TestString is the literal input replayed by match-time cases.
	// Compile-time cases leave it nil.
	TestString *string `yaml:"test_string,omitempty"`
}

// Registry is an ordered catalog of compile-time and match-time cases.
type Registry struct {
	Compile []Case `yaml:"compile"`
	Match   []Case `yaml:"match"`
}

// Baseline returns the first compile-time case.
func (r Registry) Baseline() (Case, bool) {
	if len(r.Compile) == 0 {
		return Case{}, false
	}
	return r.Compile[0], true
}

const (
	identifierPattern = `[a-zA-Z_][a-zA-Z0-9_]*`
	lowerPattern      = `[a-z]+`
)

var keywords = []string{"function", "return", "class", "if", "else", "while", "for"}

var compileCases = []Case{
	{Label: "Baseline: no excludes", Pattern: lowerPattern},
	{Label: "1 short exclude", Pattern: lowerPattern, Excludes: []string{"bad"}},
	{Label: "3 short excludes", Pattern: lowerPattern, Excludes: []string{"foo", "bar", "baz"}},
	{Label: "1 long exclude (10)", Pattern: lowerPattern, Excludes: []string{strings.Repeat("a", 10)}},
	{Label: "1 long exclude (20)", Pattern: lowerPattern, Excludes: []string{strings.Repeat("a", 20)}},
	{Label: "5 medium excludes", Pattern: lowerPattern, Excludes: []string{"hello", "world", "test", "debug", "error"}},
	{Label: "10 short excludes", Pattern: lowerPattern, Excludes: []string{"ab", "bc", "cd", "de", "ef", "fg", "gh", "hi", "ij", "jk"}},
	{Label: "Complex regex", Pattern: identifierPattern, Excludes: keywords[:3]},
	{Label: "Complex regex + 7 excludes", Pattern: identifierPattern, Excludes: keywords},
}

var matchCases = []Case{
	{Label: "Baseline: no excludes", Pattern: lowerPattern, TestString: str("helloworld")},
	{Label: "1 short exclude", Pattern: lowerPattern, Excludes: []string{"bad"}, TestString: str("helloworld")},
	{Label: "3 short excludes", Pattern: lowerPattern, Excludes: []string{"foo", "bar", "baz"}, TestString: str("helloworld")},
	{Label: "Complex regex + 7 excludes", Pattern: identifierPattern, Excludes: keywords, TestString: str("myVariable")},
}

// CompileCases returns the built-in compile-time cases in registry order.
func CompileCases() []Case {
	return cloneAll(compileCases)
}

// MatchCases returns the built-in match-time cases in registry order.
func MatchCases() []Case {
	return cloneAll(matchCases)
}

// Default returns the built-in registry.
func Default() Registry {
	return Registry{Compile: CompileCases(), Match: MatchCases()}
}

func str(s string) *string { return &s }

// clone copies the slices and the test string so callers can never mutate
// the package tables.
func clone(c Case) Case {
	out := c
	if c.Excludes != nil {
		out.Excludes = append([]string(nil), c.Excludes...)
	}
	if c.TestString != nil {
		out.TestString = str(*c.TestString)
	}
	return out
}

func cloneAll(in []Case) []Case {
	out := make([]Case, len(in))
	for i, c := range in {
		out[i] = clone(c)
	}
	return out
}
