package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEncoder_RoundTrip(t *testing.T) {
	enc := NewMockEncoder()
	ids, err := enc.Encode("def walk ( ) :")
	require.NoError(t, err)
	assert.Len(t, ids, 5)

	text, err := enc.Decode(ids)
	require.NoError(t, err)
	assert.Equal(t, "def walk ( ) :", text)
}

func TestPadBatch_CommonWidth(t *testing.T) {
	enc := NewMockEncoder()
	batch, err := PadBatch(enc, []string{"a b c", "a"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Width)
	assert.Len(t, batch.InputIDs[0], 3)
	assert.Len(t, batch.InputIDs[1], 3)
	// short sequence is left-padded with the pad id and masked out
	assert.Equal(t, enc.PadID(), batch.InputIDs[1][0])
	assert.Equal(t, []int{0, 0, 1}, batch.AttentionMask[1])
	assert.Equal(t, []int{1, 1, 1}, batch.AttentionMask[0])
}

func TestPadBatch_Truncation(t *testing.T) {
	enc := NewMockEncoder()
	batch, err := PadBatch(enc, []string{"one two three four five"}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Width)

	// the tail of the prompt survives truncation
	text, err := enc.Decode(batch.InputIDs[0])
	require.NoError(t, err)
	assert.Equal(t, "three four five", text)
}

func TestPadBatch_DecodeSkipsPad(t *testing.T) {
	enc := NewMockEncoder()
	batch, err := PadBatch(enc, []string{"x y", "z"}, 0)
	require.NoError(t, err)

	text, err := enc.Decode(batch.InputIDs[1])
	require.NoError(t, err)
	assert.Equal(t, "z", text)
}
