package engine

import "math/bits"

// Bitmask marks which vocabulary tokens are permitted at one sequence
// position. Bit i of word i/32 stands for token i.
type Bitmask struct {
	words []uint32
	size  int
}

// NewBitmask allocates a bitmask for a vocabulary of vocabSize tokens.
func NewBitmask(vocabSize int) *Bitmask {
	if vocabSize < 0 {
		vocabSize = 0
	}
	return &Bitmask{
		words: make([]uint32, (vocabSize+31)/32),
		size:  vocabSize,
	}
}

// Len returns the vocabulary size the mask was allocated for.
func (b *Bitmask) Len() int { return b.size }

// Words exposes the backing words.
func (b *Bitmask) Words() []uint32 { return b.words }

// Set marks token id as permitted.
func (b *Bitmask) Set(id int) {
	b.words[id>>5] |= 1 << (uint(id) & 31)
}

// IsSet reports whether token id is permitted.
func (b *Bitmask) IsSet(id int) bool {
	if id < 0 || id >= b.size {
		return false
	}
	return b.words[id>>5]&(1<<(uint(id)&31)) != 0
}

// Clear rejects every token.
func (b *Bitmask) Clear() {
	clear(b.words)
}

// Count returns the number of permitted tokens.
func (b *Bitmask) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount32(w)
	}
	return n
}
