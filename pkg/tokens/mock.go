package tokens

import (
	"fmt"
	"strings"
)

// MockEncoder implements Encoder with whitespace tokenization. Tests use it
// to get stable, human-readable token streams without encoding files.
type MockEncoder struct {
	vocab   map[string]int
	reverse []string
}

// NewMockEncoder creates a mock encoder with an empty vocabulary; ids are
// assigned in order of first appearance.
func NewMockEncoder() *MockEncoder {
	return &MockEncoder{
		vocab:   make(map[string]int),
		reverse: []string{"<pad>"},
	}
}

// Encode tokenizes text on whitespace, growing the vocabulary as needed.
func (e *MockEncoder) Encode(text string) ([]int, error) {
	fields := strings.Fields(text)
	ids := make([]int, len(fields))
	for i, f := range fields {
		id, ok := e.vocab[f]
		if !ok {
			id = len(e.reverse)
			e.vocab[f] = id
			e.reverse = append(e.reverse, f)
		}
		ids[i] = id
	}
	return ids, nil
}

// Decode joins tokens back into whitespace-separated text.
func (e *MockEncoder) Decode(tokens []int) (string, error) {
	words := make([]string, 0, len(tokens))
	for _, id := range tokens {
		if id == e.PadID() {
			continue
		}
		if id < 0 || id >= len(e.reverse) {
			return "", fmt.Errorf("unknown token id %d", id)
		}
		words = append(words, e.reverse[id])
	}
	return strings.Join(words, " "), nil
}

// Count returns the number of whitespace tokens in text.
func (e *MockEncoder) Count(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// PadID returns the reserved pad token id.
func (e *MockEncoder) PadID() int {
	return 0
}
