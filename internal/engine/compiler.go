package engine

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of grammars a caching Compiler keeps.
const DefaultCacheSize = 128

type compilerOptions struct {
	cacheEnabled bool
	cacheSize    int
	maxStates    int
}

// CompilerOption configures NewCompiler.
type CompilerOption func(*compilerOptions)

// WithCache enables or disables the grammar cache. Caching is on by default.
func WithCache(enabled bool) CompilerOption {
	return func(o *compilerOptions) { o.cacheEnabled = enabled }
}

// WithCacheSize sets the cache capacity.
func WithCacheSize(n int) CompilerOption {
	return func(o *compilerOptions) { o.cacheSize = n }
}

// WithMaxStates bounds the automaton size of each grammar.
func WithMaxStates(n int) CompilerOption {
	return func(o *compilerOptions) { o.maxStates = n }
}

// Compiler compiles structural tags against a tokenizer vocabulary.
type Compiler struct {
	info      *TokenizerInfo
	maxStates int
	cache     *lru.Cache[string, *Grammar] // nil when caching is disabled
}

// NewCompiler returns a Compiler bound to info.
func NewCompiler(info *TokenizerInfo, opts ...CompilerOption) (*Compiler, error) {
	if info == nil {
		return nil, fmt.Errorf("tokenizer info cannot be nil")
	}
	o := compilerOptions{
		cacheEnabled: true,
		cacheSize:    DefaultCacheSize,
		maxStates:    DefaultMaxStates,
	}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Compiler{info: info, maxStates: o.maxStates}
	if o.cacheEnabled {
		cache, err := lru.New[string, *Grammar](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create grammar cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// CacheEnabled reports whether compiled grammars are memoized.
func (c *Compiler) CacheEnabled() bool { return c.cache != nil }

// CacheLen returns the number of cached grammars.
func (c *Compiler) CacheLen() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

// CompileStructuralTag compiles tag into a grammar bound to the vocabulary.
func (c *Compiler) CompileStructuralTag(tag StructuralTag) (*CompiledGrammar, error) {
	if c.cache == nil {
		g, err := compileTag(tag, c.maxStates)
		if err != nil {
			return nil, err
		}
		return &CompiledGrammar{grammar: g, info: c.info}, nil
	}

	key, err := tag.key()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	if g, ok := c.cache.Get(key); ok {
		return &CompiledGrammar{grammar: g, info: c.info}, nil
	}
	g, err := compileTag(tag, c.maxStates)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, g)
	return &CompiledGrammar{grammar: g, info: c.info}, nil
}

// CompiledGrammar is a Grammar bound to a tokenizer vocabulary.
type CompiledGrammar struct {
	grammar *Grammar
	info    *TokenizerInfo
}

// Grammar returns the underlying grammar.
func (cg *CompiledGrammar) Grammar() *Grammar { return cg.grammar }

// TokenizerInfo returns the vocabulary the grammar is bound to.
func (cg *CompiledGrammar) TokenizerInfo() *TokenizerInfo { return cg.info }
