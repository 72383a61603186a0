package cases

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileCasesBaselineFirst(t *testing.T) {
	got := CompileCases()
	require.Len(t, got, 9)
	assert.Equal(t, "Baseline: no excludes", got[0].Label)
	assert.Empty(t, got[0].Excludes)

	reg := Default()
	base, ok := reg.Baseline()
	require.True(t, ok)
	assert.Equal(t, got[0].Label, base.Label)
}

func TestCompileCasesUniqueLabels(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range CompileCases() {
		if seen[c.Label] {
			t.Errorf("duplicate label %q", c.Label)
		}
		seen[c.Label] = true
		if c.TestString != nil {
			t.Errorf("compile case %q carries a test string", c.Label)
		}
	}
}

func TestMatchCasesHaveTestStrings(t *testing.T) {
	got := MatchCases()
	require.Len(t, got, 4)
	for _, c := range got {
		require.NotNil(t, c.TestString, c.Label)
		assert.NotEmpty(t, *c.TestString, c.Label)
	}
	assert.Equal(t, "myVariable", *got[3].TestString)
}

func TestRegistryReturnsCopies(t *testing.T) {
	first := CompileCases()
	first[1].Excludes[0] = "mutated"
	first[0].Label = "mutated"

	m := MatchCases()
	*m[0].TestString = "mutated"

	assert.Equal(t, "bad", CompileCases()[1].Excludes[0])
	assert.Equal(t, "Baseline: no excludes", CompileCases()[0].Label)
	assert.Equal(t, "helloworld", *MatchCases()[0].TestString)
}

func TestLongExcludes(t *testing.T) {
	got := CompileCases()
	assert.Len(t, got[3].Excludes[0], 10)
	assert.Len(t, got[4].Excludes[0], 20)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Registry
		wantErr string
	}{
		{
			name: "compile and match",
			input: `
compile:
  - label: baseline
    pattern: "[a-z]+"
  - label: excl
    pattern: "[a-z]+"
    excludes: [bad]
match:
  - label: baseline
    pattern: "[a-z]+"
    test_string: ab
`,
			want: Registry{
				Compile: []Case{
					{Label: "baseline", Pattern: "[a-z]+"},
					{Label: "excl", Pattern: "[a-z]+", Excludes: []string{"bad"}},
				},
				Match: []Case{
					{Label: "baseline", Pattern: "[a-z]+", TestString: str("ab")},
				},
			},
		},
		{
			name:  "malformed pattern is accepted",
			input: "compile:\n  - label: broken\n    pattern: \"[a-\"\n",
			want:  Registry{Compile: []Case{{Label: "broken", Pattern: "[a-"}}},
		},
		{
			name:    "no compile cases",
			input:   "match: []\n",
			wantErr: "no compile cases",
		},
		{
			name:    "missing label",
			input:   "compile:\n  - pattern: x\n",
			wantErr: "label cannot be empty",
		},
		{
			name:    "match without test string",
			input:   "compile:\n  - label: a\n    pattern: x\nmatch:\n  - label: m\n    pattern: x\n",
			wantErr: "test_string is required",
		},
		{
			name:    "unknown field",
			input:   "compile:\n  - label: a\n    regex: x\n",
			wantErr: "failed to decode cases",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
