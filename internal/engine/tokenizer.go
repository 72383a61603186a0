package engine

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// TokenizerInfo is the vocabulary metadata a Matcher needs: the decoded text
// of every token and which tokens end generation.
type TokenizerInfo struct {
	decoded []string
	stop    []int
	special map[int]bool

	// Walk order for mask computation: regular tokens sorted by text, their
	// runes and the length of the rune prefix shared with the previous one.
	sorted    []int
	runes     [][]rune
	lcp       []int
	maxTokLen int
}

// TokenizerOption configures NewTokenizerInfo.
type TokenizerOption func(*TokenizerInfo)

// WithStopTokens marks ids that terminate generation. They are permitted
// whenever the grammar can end.
func WithStopTokens(ids ...int) TokenizerOption {
	return func(t *TokenizerInfo) {
		t.stop = append(t.stop, ids...)
	}
}

// WithSpecialTokens marks ids that are never produced by the grammar.
func WithSpecialTokens(ids ...int) TokenizerOption {
	return func(t *TokenizerInfo) {
		for _, id := range ids {
			t.special[id] = true
		}
	}
}

// NewTokenizerInfo builds tokenizer metadata from the decoded vocabulary,
// indexed by token id.
func NewTokenizerInfo(decoded []string, opts ...TokenizerOption) (*TokenizerInfo, error) {
	if len(decoded) == 0 {
		return nil, fmt.Errorf("vocabulary is empty")
	}
	t := &TokenizerInfo{
		decoded: append([]string(nil), decoded...),
		special: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	for _, id := range t.stop {
		if id < 0 || id >= len(decoded) {
			return nil, fmt.Errorf("stop token %d out of range [0, %d)", id, len(decoded))
		}
		t.special[id] = true
	}

	// Tokens holding a partial UTF-8 sequence, such as byte-fallback tokens,
	// are never permitted: the grammar works on whole runes.
	for id, s := range t.decoded {
		if s == "" || t.special[id] || !utf8.ValidString(s) {
			continue
		}
		t.sorted = append(t.sorted, id)
	}
	sort.SliceStable(t.sorted, func(i, j int) bool {
		return t.decoded[t.sorted[i]] < t.decoded[t.sorted[j]]
	})
	t.runes = make([][]rune, len(t.sorted))
	t.lcp = make([]int, len(t.sorted))
	for i, id := range t.sorted {
		t.runes[i] = []rune(t.decoded[id])
		if len(t.runes[i]) > t.maxTokLen {
			t.maxTokLen = len(t.runes[i])
		}
		if i > 0 {
			t.lcp[i] = commonPrefix(t.runes[i-1], t.runes[i])
		}
	}
	return t, nil
}

// VocabSize returns the number of token ids.
func (t *TokenizerInfo) VocabSize() int { return len(t.decoded) }

// DecodedVocab returns a copy of the decoded vocabulary.
func (t *TokenizerInfo) DecodedVocab() []string {
	return append([]string(nil), t.decoded...)
}

// StopTokenIDs returns the stop token ids.
func (t *TokenizerInfo) StopTokenIDs() []int {
	return append([]int(nil), t.stop...)
}

func commonPrefix(a, b []rune) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
