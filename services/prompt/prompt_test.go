package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Brief(t *testing.T) {
	t.Run("uses configured word limit", func(t *testing.T) {
		builder := NewBuilder(200)
		assert.Contains(t, builder.Brief(), "~200 words")
	})

	t.Run("defaults when limit is non-positive", func(t *testing.T) {
		builder := NewBuilder(0)
		assert.Contains(t, builder.Brief(), "~120 words")
	})
}

func TestBuilder_WithContext(t *testing.T) {
	builder := NewBuilder(120)
	base := builder.Brief()

	t.Run("empty context returns base unchanged", func(t *testing.T) {
		assert.Equal(t, base, builder.WithContext(base, ""))
	})

	t.Run("retrieved context is appended", func(t *testing.T) {
		got := builder.WithContext(base, "user prefers metric units")
		assert.Contains(t, got, base)
		assert.Contains(t, got, "CONTEXT:\nuser prefers metric units")
		assert.Contains(t, got, "Ignore context if irrelevant.")
	})
}

func TestBuilder_LongForm(t *testing.T) {
	builder := NewBuilder(120)
	got := builder.LongForm("Write approximately 1200 words.")
	assert.Contains(t, got, "long-form piece")
	assert.Contains(t, got, "Write approximately 1200 words.")
}
