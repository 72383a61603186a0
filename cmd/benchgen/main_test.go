package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KromDaniel/excludebench/internal/cases"
	"github.com/KromDaniel/excludebench/internal/logging"
)

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, generate(cases.Default(), "generated").Render(&buf))
	src := buf.String()

	assert.Contains(t, src, "// Code generated by benchgen. DO NOT EDIT.")
	assert.Contains(t, src, "package generated")
	assert.Contains(t, src, "func BenchmarkCompileBaselineNoExcludes(b *testing.B) {")
	assert.Contains(t, src, `engine.RegexTag("[a-z]+", nil)`)
	assert.Contains(t, src, `engine.RegexTag("[a-z]+", []string{"foo", "bar", "baz"})`)
	assert.Contains(t, src, "func BenchmarkMatchComplexRegex7Excludes(b *testing.B) {")
	assert.Contains(t, src, `input := "myVariable"`)
	assert.Contains(t, src, "func benchTokenizer(b *testing.B) *engine.TokenizerInfo {")
}

func TestGenerateCompileOnly(t *testing.T) {
	reg := cases.Registry{Compile: []cases.Case{{Label: "only", Pattern: "a+"}}}

	var buf bytes.Buffer
	require.NoError(t, generate(reg, "bench").Render(&buf))

	assert.Contains(t, buf.String(), "func BenchmarkCompileOnly(")
	assert.NotContains(t, buf.String(), "benchTokenizer")
}

func TestRunWritesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "cases_bench_test.go")
	require.NoError(t, run("", out, "generated", logging.Discard()))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BenchmarkCompile10ShortExcludes")
}

func TestRunMissingCases(t *testing.T) {
	err := run(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), "x_test.go"), "generated", logging.Discard())
	require.Error(t, err)
}
