// Package prompt builds system instructions for generation calls.
package prompt

import "fmt"

// Builder constructs the system instructions preceding the user turn
type Builder struct {
	// BriefMaxWords tunes the default concise-answer instruction
	BriefMaxWords int
}

// NewBuilder creates a prompt builder
func NewBuilder(briefMaxWords int) *Builder {
	if briefMaxWords <= 0 {
		briefMaxWords = 120
	}
	return &Builder{BriefMaxWords: briefMaxWords}
}

// Brief returns the default concise-answer system instructions
func (b *Builder) Brief() string {
	return fmt.Sprintf(`You are AeonForge.
Answer directly and concisely. Prefer short, actionable replies under ~%d words.
If you are unsure, say so briefly.`, b.BriefMaxWords)
}

// WithContext injects retrieved context into the system instructions.
// Empty context returns the base unchanged.
func (b *Builder) WithContext(base, retrieved string) string {
	if retrieved == "" {
		return base
	}
	return fmt.Sprintf("%s\n\nCONTEXT:\n%s\n\nIgnore context if irrelevant.", base, retrieved)
}

// LongForm returns system instructions for a long-form segment; the segment
// plan supplies the per-segment sizing instruction.
func (b *Builder) LongForm(segmentInstruction string) string {
	return fmt.Sprintf(`You are AeonForge, writing a long-form piece.
%s
Maintain a consistent voice and structure throughout.`, segmentInstruction)
}
