package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerationSet_Order(t *testing.T) {
	s := NewGenerationSet()
	s.Add("b", Generation{Text: "1"})
	s.Add("a", Generation{Text: "2"})
	s.Add("b", Generation{Text: "3"})

	assert.Equal(t, []string{"b", "a"}, s.Prompts())
	assert.Equal(t, 2, s.Len())
	assert.Len(t, s.Get("b"), 2)
	assert.Len(t, s.Get("a"), 1)
}

func TestGenerationSet_DuplicatesMerge(t *testing.T) {
	s := NewGenerationSet()
	s.Add("same", Generation{Text: "x"})
	s.Add("same", Generation{Text: "y"})

	flat := s.Flatten()
	assert.Len(t, flat, 2)
	assert.Equal(t, "x", flat[0].Text)
	assert.Equal(t, "y", flat[1].Text)
}

func TestGenerationSet_Empty(t *testing.T) {
	s := NewGenerationSet()
	assert.Zero(t, s.Len())
	assert.Nil(t, s.Flatten())
	assert.Nil(t, s.Get("missing"))
}
