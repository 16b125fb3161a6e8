package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoder converts between text and token ids for one model family.
type Encoder interface {
	Encode(text string) ([]int, error)
	Decode(tokens []int) (string, error)
	Count(text string) (int, error)
	PadID() int
}

// TiktokenEncoder implements Encoder using tiktoken-go.
type TiktokenEncoder struct {
	encoding *tiktoken.Tiktoken
	padID    int
}

// NewTiktokenEncoder creates a tiktoken encoder for the named encoding. The
// pad id is explicit configuration rather than ambient tokenizer state.
func NewTiktokenEncoder(encodingName string, padID int) (*TiktokenEncoder, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding %s: %w", encodingName, err)
	}

	return &TiktokenEncoder{
		encoding: encoding,
		padID:    padID,
	}, nil
}

// Encode converts text to tokens.
func (e *TiktokenEncoder) Encode(text string) ([]int, error) {
	return e.encoding.Encode(text, nil, nil), nil
}

// Decode converts tokens to text.
func (e *TiktokenEncoder) Decode(tokens []int) (string, error) {
	return e.encoding.Decode(tokens), nil
}

// Count returns the number of tokens in text.
func (e *TiktokenEncoder) Count(text string) (int, error) {
	tokens := e.encoding.Encode(text, nil, nil)
	return len(tokens), nil
}

// PadID returns the designated pad token id.
func (e *TiktokenEncoder) PadID() int {
	return e.padID
}

// EncodedBatch is a chunk of tokenized prompts padded to a common width.
// Sequences are left-padded so that every prompt ends at position Width and
// continuations can be sliced off uniformly.
type EncodedBatch struct {
	InputIDs      [][]int
	AttentionMask [][]int
	Width         int
}

// PadBatch encodes a chunk of prompts with truncation to maxLen tokens and
// padding to the longest sequence in the chunk.
func PadBatch(enc Encoder, prompts []string, maxLen int) (EncodedBatch, error) {
	seqs := make([][]int, len(prompts))
	width := 0
	for i, p := range prompts {
		ids, err := enc.Encode(p)
		if err != nil {
			return EncodedBatch{}, fmt.Errorf("failed to encode prompt %d: %w", i, err)
		}
		if maxLen > 0 && len(ids) > maxLen {
			ids = ids[len(ids)-maxLen:]
		}
		seqs[i] = ids
		if len(ids) > width {
			width = len(ids)
		}
	}

	batch := EncodedBatch{
		InputIDs:      make([][]int, len(seqs)),
		AttentionMask: make([][]int, len(seqs)),
		Width:         width,
	}
	for i, ids := range seqs {
		padded := make([]int, width)
		mask := make([]int, width)
		offset := width - len(ids)
		for j := 0; j < offset; j++ {
			padded[j] = enc.PadID()
		}
		for j, id := range ids {
			padded[offset+j] = id
			mask[offset+j] = 1
		}
		batch.InputIDs[i] = padded
		batch.AttentionMask[i] = mask
	}
	return batch, nil
}
