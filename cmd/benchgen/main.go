// Command benchgen writes Go benchmarks for every case of the registry, so the
// probes can also be run with `go test -bench`.
//
// Usage:
//
//	go run ./cmd/benchgen [--cases file.yaml] [--out benchmarks/generated/cases_bench_test.go]
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dave/jennifer/jen"
	"github.com/spf13/pflag"

	"github.com/KromDaniel/excludebench/internal/cases"
	"github.com/KromDaniel/excludebench/internal/codegen"
	"github.com/KromDaniel/excludebench/internal/logging"
)

const (
	enginePkg  = "github.com/KromDaniel/excludebench/internal/engine"
	testingPkg = "testing"
)

func main() {
	casesFile := pflag.String("cases", "", "YAML case file replacing the built-in registry")
	out := pflag.String("out", filepath.Join("benchmarks", "generated", "cases_bench_test.go"), "output file")
	pkg := pflag.String("package", "generated", "package name of the generated file")
	verbose := pflag.BoolP("verbose", "v", false, "log progress to stderr")
	pflag.Parse()

	logger := logging.NewLogger(*verbose)
	if err := run(*casesFile, *out, *pkg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "benchgen: %v\n", err)
		os.Exit(1)
	}
}

func run(casesFile, out, pkg string, logger *logging.Logger) error {
	registry := cases.Default()
	if casesFile != "" {
		var err error
		if registry, err = cases.Load(casesFile); err != nil {
			return err
		}
	}

	f := generate(registry, pkg)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.Save(out); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	logger.Log("Wrote %d compile and %d match benchmarks to %s", len(registry.Compile), len(registry.Match), out)
	return nil
}

// generate builds the benchmark file for registry.
func generate(registry cases.Registry, pkg string) *jen.File {
	f := jen.NewFile(pkg)
	f.HeaderComment(codegen.GeneratedNotice)

	names := codegen.NewNamer()
	for _, c := range registry.Compile {
		f.Add(compileBenchmark(names.Name("Compile", c.Label), c))
		f.Line()
	}
	if len(registry.Match) > 0 {
		f.Add(vocabHelper(registry.Match))
		f.Line()
	}
	for _, c := range registry.Match {
		f.Add(matchBenchmark(names.Name("Match", c.Label), c))
		f.Line()
	}
	return f
}

func tagExpr(c cases.Case) *jen.Statement {
	excludes := jen.Nil()
	if len(c.Excludes) > 0 {
		lits := make([]jen.Code, len(c.Excludes))
		for i, e := range c.Excludes {
			lits[i] = jen.Lit(e)
		}
		excludes = jen.Index().String().Values(lits...)
	}
	return jen.Qual(enginePkg, "RegexTag").Call(jen.Lit(c.Pattern), excludes)
}

func fatalIfErr() *jen.Statement {
	return jen.If(jen.Err().Op("!=").Nil()).Block(
		jen.Id(codegen.BenchName).Dot("Fatal").Call(jen.Err()),
	)
}

// compileBenchmark times one tokenizer-free compilation per iteration.
func compileBenchmark(name string, c cases.Case) jen.Code {
	return jen.Comment(fmt.Sprintf("%s: %s", name, c.Label)).Line().
		Func().Id(name).Params(jen.Id(codegen.BenchName).Op("*").Qual(testingPkg, "B")).Block(
		jen.Id(codegen.TagName).Op(":=").Add(tagExpr(c)),
		jen.Id(codegen.BenchName).Dot("ReportAllocs").Call(),
		jen.For(jen.Id(codegen.BenchName).Dot("Loop").Call()).Block(
			jen.If(
				jen.List(jen.Id("_"), jen.Err()).Op(":=").Qual(enginePkg, "CompileStructuralTag").Call(jen.Id(codegen.TagName)),
				jen.Err().Op("!=").Nil(),
			).Block(
				jen.Id(codegen.BenchName).Dot("Fatal").Call(jen.Err()),
			),
		),
	)
}

// vocabHelper emits benchTokenizer, a vocabulary of every distinct rune of
// the match test strings plus a stop token.
func vocabHelper(match []cases.Case) jen.Code {
	seen := map[rune]bool{}
	vocab := []jen.Code{jen.Lit(codegen.StopTokenText)}
	for _, c := range match {
		if c.TestString == nil {
			continue
		}
		for _, r := range *c.TestString {
			if !seen[r] {
				seen[r] = true
				vocab = append(vocab, jen.Lit(string(r)))
			}
		}
	}

	return jen.Func().Id(codegen.TokenizerFunc).Params(jen.Id(codegen.BenchName).Op("*").Qual(testingPkg, "B")).
		Op("*").Qual(enginePkg, "TokenizerInfo").Block(
		jen.Id(codegen.BenchName).Dot("Helper").Call(),
		jen.List(jen.Id(codegen.InfoName), jen.Err()).Op(":=").Qual(enginePkg, "NewTokenizerInfo").Call(
			jen.Index().String().Values(vocab...),
			jen.Qual(enginePkg, "WithStopTokens").Call(jen.Lit(0)),
		),
		fatalIfErr(),
		jen.Return(jen.Id(codegen.InfoName)),
	)
}

// matchBenchmark replays the test string through a fresh matcher per
// iteration, deriving the token bitmask after every rune.
func matchBenchmark(name string, c cases.Case) jen.Code {
	input := ""
	if c.TestString != nil {
		input = *c.TestString
	}
	return jen.Comment(fmt.Sprintf("%s: %s", name, c.Label)).Line().
		Func().Id(name).Params(jen.Id(codegen.BenchName).Op("*").Qual(testingPkg, "B")).Block(
		jen.Id(codegen.InfoName).Op(":=").Id(codegen.TokenizerFunc).Call(jen.Id(codegen.BenchName)),
		jen.List(jen.Id(codegen.CompilerName), jen.Err()).Op(":=").Qual(enginePkg, "NewCompiler").Call(
			jen.Id(codegen.InfoName), jen.Qual(enginePkg, "WithCache").Call(jen.False()),
		),
		fatalIfErr(),
		jen.List(jen.Id(codegen.CompiledName), jen.Err()).Op(":=").Id(codegen.CompilerName).Dot("CompileStructuralTag").Call(tagExpr(c)),
		fatalIfErr(),
		jen.Id(codegen.MaskName).Op(":=").Qual(enginePkg, "NewBitmask").Call(jen.Id(codegen.InfoName).Dot("VocabSize").Call()),
		jen.Id(codegen.InputName).Op(":=").Lit(input),
		jen.Id(codegen.BenchName).Dot("ReportAllocs").Call(),
		jen.For(jen.Id(codegen.BenchName).Dot("Loop").Call()).Block(
			jen.Id(codegen.MatcherName).Op(":=").Qual(enginePkg, "NewMatcher").Call(jen.Id(codegen.CompiledName)),
			jen.For(jen.List(jen.Id("_"), jen.Id(codegen.RuneName)).Op(":=").Range().Id(codegen.InputName)).Block(
				jen.If(
					jen.Err().Op(":=").Id(codegen.MatcherName).Dot("AcceptString").Call(jen.String().Call(jen.Id(codegen.RuneName))),
					jen.Err().Op("!=").Nil(),
				).Block(jen.Id(codegen.BenchName).Dot("Fatal").Call(jen.Err())),
				jen.If(
					jen.Err().Op(":=").Id(codegen.MatcherName).Dot("FillNextTokenBitmask").Call(jen.Id(codegen.MaskName)),
					jen.Err().Op("!=").Nil(),
				).Block(jen.Id(codegen.BenchName).Dot("Fatal").Call(jen.Err())),
			),
		),
	)
}
