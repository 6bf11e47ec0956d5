// Package segment sizes very long outputs into bounded continuation
// requests that preserve coherence across segment boundaries.
package segment

import (
	"fmt"
	"strings"
)

// Plan tracks progress toward a declared target output size. WordsEmitted is
// monotonically non-decreasing and never exceeds TargetWords by more than
// one segment's worth.
type Plan struct {
	TargetWords     int
	MaxSegmentWords int
	MaxSegments     int
	AnchorChars     int

	wordsEmitted   int
	segmentsIssued int
}

// NewPlan creates a segmentation plan for a declared target word count
func NewPlan(targetWords, maxSegmentWords, maxSegments, anchorChars int) *Plan {
	if maxSegmentWords <= 0 {
		maxSegmentWords = 1200
	}
	if maxSegments <= 0 {
		maxSegments = 16
	}
	if anchorChars <= 0 {
		anchorChars = 1500
	}
	return &Plan{
		TargetWords:     targetWords,
		MaxSegmentWords: maxSegmentWords,
		MaxSegments:     maxSegments,
		AnchorChars:     anchorChars,
	}
}

// Done reports whether the plan has met its target or hit the hard segment
// ceiling. Hitting the ceiling is a normal termination, not an error.
func (p *Plan) Done() bool {
	return p.wordsEmitted >= p.TargetWords || p.segmentsIssued >= p.MaxSegments
}

// NextBudget returns the word budget for the next segment:
// min(MaxSegmentWords, TargetWords - wordsEmitted).
func (p *Plan) NextBudget() int {
	remaining := p.TargetWords - p.wordsEmitted
	if remaining < p.MaxSegmentWords {
		return remaining
	}
	return p.MaxSegmentWords
}

// Record notes one issued segment and the words it produced
func (p *Plan) Record(words int) {
	p.segmentsIssued++
	if words > 0 {
		p.wordsEmitted += words
	}
}

// WordsEmitted returns the words produced so far
func (p *Plan) WordsEmitted() int {
	return p.wordsEmitted
}

// SegmentsIssued returns how many segments have been issued
func (p *Plan) SegmentsIssued() int {
	return p.segmentsIssued
}

// OpeningPrompt instructs the first segment
func (p *Plan) OpeningPrompt() string {
	return fmt.Sprintf(
		"Write up to %d words answering the request. This is the first part of a longer piece of about %d words total; start directly with the content.",
		p.NextBudget(), p.TargetWords,
	)
}

// ContinuationPrompt instructs a follow-on segment anchored on the tail of
// the accumulated output. Only the last AnchorChars characters are supplied,
// not the full history, to bound request size.
func (p *Plan) ContinuationPrompt(accumulated string) string {
	return fmt.Sprintf(
		"Continue seamlessly from the following tail text. Write up to %d more words. Do not repeat earlier content and do not reintroduce the topic.\n\nTAIL:\n%s",
		p.NextBudget(), p.Anchor(accumulated),
	)
}

// Anchor returns the continuation anchor: the last AnchorChars characters of
// the accumulated output.
func (p *Plan) Anchor(accumulated string) string {
	accumulated = strings.TrimSpace(accumulated)
	if len(accumulated) <= p.AnchorChars {
		return accumulated
	}
	return accumulated[len(accumulated)-p.AnchorChars:]
}
