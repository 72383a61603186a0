package hub

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/KromDaniel/excludebench/internal/engine"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// stopTokenNames are added tokens treated as end of generation.
var stopTokenNames = map[string]bool{
	"</s>":                true,
	"<|endoftext|>":       true,
	"<|end_of_text|>":     true,
	"<|eot_id|>":          true,
	"<|im_end|>":          true,
	"<|end|>":             true,
	"<end_of_turn>":       true,
	"<|end_of_sentence|>": true,
}

type addedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

type decoderSpec struct {
	Type     string        `json:"type"`
	Decoders []decoderSpec `json:"decoders"`
}

type tokenizerFile struct {
	AddedTokens []addedToken `json:"added_tokens"`
	Decoder     *decoderSpec `json:"decoder"`
	Model       struct {
		Type  string              `json:"type"`
		Vocab jsoniter.RawMessage `json:"vocab"`
	} `json:"model"`
}

// vocabEncoding is how token strings map back to text.
type vocabEncoding int

const (
	encodingRaw vocabEncoding = iota
	// encodingByteLevel is the GPT-2 byte-to-unicode alphabet.
	encodingByteLevel
	// encodingSentencePiece uses U+2581 for spaces and <0xNN> byte tokens.
	encodingSentencePiece
)

// ParseTokenizerJSON builds tokenizer metadata from a Hugging Face
// tokenizer.json document.
func ParseTokenizerJSON(data []byte) (*engine.TokenizerInfo, error) {
	var f tokenizerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode tokenizer.json: %w", err)
	}
	vocab, err := parseVocab(f.Model.Vocab)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", f.Model.Type, err)
	}
	if len(vocab) == 0 && len(f.AddedTokens) == 0 {
		return nil, fmt.Errorf("tokenizer.json has no vocabulary")
	}

	size := 0
	for _, id := range vocab {
		size = max(size, id+1)
	}
	for _, t := range f.AddedTokens {
		size = max(size, t.ID+1)
	}

	enc := detectEncoding(f.Decoder)
	decoded := make([]string, size)
	for tok, id := range vocab {
		if id < 0 {
			return nil, fmt.Errorf("token %q has negative id %d", tok, id)
		}
		decoded[id] = decodeToken(tok, enc)
	}

	var stop, special []int
	for _, t := range f.AddedTokens {
		if t.ID < 0 {
			return nil, fmt.Errorf("added token %q has negative id %d", t.Content, t.ID)
		}
		decoded[t.ID] = t.Content
		switch {
		case stopTokenNames[t.Content]:
			stop = append(stop, t.ID)
		case t.Special:
			special = append(special, t.ID)
		}
	}
	sort.Ints(stop)

	return engine.NewTokenizerInfo(decoded,
		engine.WithStopTokens(stop...),
		engine.WithSpecialTokens(special...),
	)
}

// parseVocab accepts the BPE/WordPiece object form and the Unigram
// [[piece, score], ...] form.
func parseVocab(raw jsoniter.RawMessage) (map[string]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var byName map[string]int
	if err := json.Unmarshal(raw, &byName); err == nil {
		return byName, nil
	}
	var pieces [][2]interface{}
	if err := json.Unmarshal(raw, &pieces); err != nil {
		return nil, fmt.Errorf("unsupported vocab layout: %w", err)
	}
	out := make(map[string]int, len(pieces))
	for id, p := range pieces {
		s, ok := p[0].(string)
		if !ok {
			return nil, fmt.Errorf("vocab entry %d is not a string piece", id)
		}
		out[s] = id
	}
	return out, nil
}

func detectEncoding(d *decoderSpec) vocabEncoding {
	if d == nil {
		return encodingRaw
	}
	switch d.Type {
	case "ByteLevel":
		return encodingByteLevel
	case "ByteFallback", "Metaspace", "Replace":
		return encodingSentencePiece
	}
	for i := range d.Decoders {
		if enc := detectEncoding(&d.Decoders[i]); enc != encodingRaw {
			return enc
		}
	}
	return encodingRaw
}

func decodeToken(tok string, enc vocabEncoding) string {
	switch enc {
	case encodingByteLevel:
		var sb strings.Builder
		for _, r := range tok {
			if b, ok := byteLevelDecoder[r]; ok {
				sb.WriteByte(b)
			} else {
				sb.WriteRune(r)
			}
		}
		return sb.String()
	case encodingSentencePiece:
		if len(tok) == 6 && strings.HasPrefix(tok, "<0x") && tok[5] == '>' {
			if b, err := strconv.ParseUint(tok[3:5], 16, 8); err == nil {
				return string([]byte{byte(b)})
			}
		}
		return strings.ReplaceAll(tok, "▁", " ")
	}
	return tok
}

// byteLevelDecoder inverts the GPT-2 bytes_to_unicode table: printable
// Latin-1 bytes map to themselves, the remaining bytes to U+0100 onwards.
var byteLevelDecoder = func() map[rune]byte {
	m := make(map[rune]byte, 256)
	n := 0
	for b := 0; b < 256; b++ {
		if (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF) {
			m[rune(b)] = byte(b)
			continue
		}
		m[rune(256+n)] = byte(b)
		n++
	}
	return m
}()
