package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KromDaniel/excludebench/internal/bench"
)

const testTokenizer = `{
  "added_tokens": [{"id": 4, "content": "<|eot_id|>", "special": true}],
  "decoder": {"type": "ByteLevel"},
  "model": {"type": "BPE", "vocab": {"hello": 0, "world": 1, "my": 2, "Variable": 3}}
}`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunSkipMatch(t *testing.T) {
	out, _, err := execute(t, "--iterations", "1", "--skip-match")
	require.NoError(t, err)

	assert.Contains(t, out, "REGEX EXCLUDES BENCHMARK - COMPILE TIME")
	assert.Contains(t, out, "Complex regex + 7 excludes")
	assert.Contains(t, out, "Relative to baseline:")
	assert.Contains(t, out, "  Matching benchmark skipped: match phase disabled")
}

func TestRunCSVFromEnv(t *testing.T) {
	t.Setenv("EXCLUDEBENCH_FORMAT", "csv")
	t.Setenv("EXCLUDEBENCH_SKIP_MATCH", "true")

	out, _, err := execute(t, "--iterations", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "label,mean_ms,min_ms,max_ms,rules", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Baseline: no excludes,"))
	assert.Equal(t, "# matching skipped: match phase disabled", lines[10])
}

func TestRunGatedModel(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		http.Error(w, "gated", http.StatusUnauthorized)
	}))
	defer srv.Close()
	t.Setenv("HF_TOKEN", "from-env")

	out, _, err := execute(t, "--iterations", "1", "--hf-endpoint", srv.URL, "--model", "org/gated")
	require.NoError(t, err)

	assert.Equal(t, "Bearer from-env", auth)
	assert.Contains(t, out, "  Matching benchmark skipped: fetching tokenizer for org/gated: 401 Unauthorized")
}

func TestRunMatchPhase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testTokenizer))
	}))
	defer srv.Close()

	out, _, err := execute(t, "--iterations", "1", "--hf-endpoint", srv.URL, "--metrics")
	require.NoError(t, err)

	assert.Contains(t, out, "MATCHING PERFORMANCE (avg us per char)")
	assert.Contains(t, out, "  Complex regex + 7 excludes: ")
	assert.Contains(t, out, " us/char")
	assert.NotContains(t, out, "skipped")
	assert.Contains(t, out, "excludebench_mask_fill_duration_seconds_count")
}

func TestRunCasesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
compile:
  - label: plain
    pattern: "[a-z]+"
  - label: no bad
    pattern: "[a-z]+"
    excludes: [bad]
`), 0o644))

	out, _, err := execute(t, "--iterations", "2", "--skip-match", "--format", "csv", "--cases", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "no bad,"))
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero iterations", []string{"--iterations", "0"}, bench.ErrInvalidIterations.Error()},
		{"bad format", []string{"--format", "xml"}, "unknown output format"},
		{"missing cases file", []string{"--cases", "does-not-exist.yaml"}, "does-not-exist.yaml"},
		{"positional args", []string{"extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, stderr, "Error:")
		})
	}
}
