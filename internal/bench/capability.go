// Package bench measures the compile-time and match-time cost of regex
// structural tags.
//
// The grammar engine is reached only through the small capability interfaces
// declared here, so probes can run against the built-in engine or a fake.
package bench

import (
	"github.com/KromDaniel/excludebench/internal/engine"
)

// Grammar is a compiled grammar artifact. Its textual form delimits rules
// with engine.RuleDelimiter.
type Grammar interface {
	String() string
}

// Compiler compiles a structural tag without a tokenizer.
type Compiler interface {
	CompileStructuralTag(tag engine.StructuralTag) (Grammar, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(tag engine.StructuralTag) (Grammar, error)

// CompileStructuralTag calls f(tag).
func (f CompilerFunc) CompileStructuralTag(tag engine.StructuralTag) (Grammar, error) {
	return f(tag)
}

// MatchEngine compiles grammars against a vocabulary and creates matchers.
type MatchEngine interface {
	VocabSize() int
	NewCompiler(cacheEnabled bool) (MatchCompiler, error)
}

// MatchCompiler compiles a structural tag bound to a vocabulary.
type MatchCompiler interface {
	CompileStructuralTag(tag engine.StructuralTag) (CompiledGrammar, error)
}

// CompiledGrammar creates matchers.
type CompiledGrammar interface {
	NewMatcher() (Matcher, error)
}

// Matcher is a stateful grammar matcher.
type Matcher interface {
	AcceptString(s string) error
	FillNextTokenBitmask(mask *engine.Bitmask) error
}

// EngineCompiler compiles with the built-in engine.
var EngineCompiler Compiler = CompilerFunc(func(tag engine.StructuralTag) (Grammar, error) {
	g, err := engine.CompileStructuralTag(tag)
	if err != nil {
		return nil, err
	}
	return g, nil
})

// NewEngineBackend returns a MatchEngine backed by the built-in engine.
func NewEngineBackend(info *engine.TokenizerInfo) MatchEngine {
	return engineBackend{info: info}
}

type engineBackend struct {
	info *engine.TokenizerInfo
}

func (b engineBackend) VocabSize() int { return b.info.VocabSize() }

func (b engineBackend) NewCompiler(cacheEnabled bool) (MatchCompiler, error) {
	c, err := engine.NewCompiler(b.info, engine.WithCache(cacheEnabled))
	if err != nil {
		return nil, err
	}
	return engineCompiler{c: c}, nil
}

type engineCompiler struct {
	c *engine.Compiler
}

func (c engineCompiler) CompileStructuralTag(tag engine.StructuralTag) (CompiledGrammar, error) {
	cg, err := c.c.CompileStructuralTag(tag)
	if err != nil {
		return nil, err
	}
	return engineGrammar{cg: cg}, nil
}

type engineGrammar struct {
	cg *engine.CompiledGrammar
}

func (g engineGrammar) NewMatcher() (Matcher, error) {
	return engine.NewMatcher(g.cg), nil
}
