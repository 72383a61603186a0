// Package engine is a small grammar-constrained decoding engine for
// regex structural tags.
//
// A structural tag pairs a regular expression with a list of literal strings
// that the generated text must never contain. Compiling a tag yields a Grammar
// whose textual form is EBNF with one rule per automaton state. A Compiler binds
// grammars to a tokenizer vocabulary and a Matcher walks the result one input
// unit at a time, deriving a token Bitmask of permitted next tokens.
package engine

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// TagTypeStructural is the only accepted top-level tag type.
	TagTypeStructural = "structural_tag"
	// FormatTypeRegex is the only accepted format type.
	FormatTypeRegex = "regex"
)

// ErrInvalidTag is returned for structurally invalid tags.
var ErrInvalidTag = errors.New("invalid structural tag")

// StructuralTag is a regex structural tag:
//
//	{"type": "structural_tag", "format": {"type": "regex", "pattern": ..., "excludes": [...]}}
type StructuralTag struct {
	Type   string      `json:"type"`
	Format RegexFormat `json:"format"`
}

// RegexFormat is the format body of a regex structural tag.
type RegexFormat struct {
	Type    string `json:"type"`
	Pattern string `json:"pattern"`
	// Excludes are literal substrings; they carry no regex meaning.
	Excludes []string `json:"excludes,omitempty"`
}

// RegexTag builds a regex structural tag. The excludes slice is copied.
func RegexTag(pattern string, excludes []string) StructuralTag {
	var ex []string
	if len(excludes) > 0 {
		ex = append([]string(nil), excludes...)
	}
	return StructuralTag{
		Type: TagTypeStructural,
		Format: RegexFormat{
			Type:     FormatTypeRegex,
			Pattern:  pattern,
			Excludes: ex,
		},
	}
}

// ParseStructuralTag decodes and validates a JSON structural tag.
func ParseStructuralTag(data []byte) (StructuralTag, error) {
	var tag StructuralTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return StructuralTag{}, fmt.Errorf("%w: %v", ErrInvalidTag, err)
	}
	if err := tag.Validate(); err != nil {
		return StructuralTag{}, err
	}
	return tag, nil
}

// Validate checks the tag shape. The pattern itself is checked at compile time.
func (t StructuralTag) Validate() error {
	if t.Type != TagTypeStructural {
		return fmt.Errorf("%w: type must be %q, got %q", ErrInvalidTag, TagTypeStructural, t.Type)
	}
	if t.Format.Type != FormatTypeRegex {
		return fmt.Errorf("%w: format type must be %q, got %q", ErrInvalidTag, FormatTypeRegex, t.Format.Type)
	}
	if t.Format.Pattern == "" {
		return fmt.Errorf("%w: regex format must have a non-empty pattern", ErrInvalidTag)
	}
	for i, ex := range t.Format.Excludes {
		if ex == "" {
			return fmt.Errorf("%w: exclude %d is empty", ErrInvalidTag, i)
		}
	}
	return nil
}

// key returns the canonical JSON form of the tag.
func (t StructuralTag) key() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
