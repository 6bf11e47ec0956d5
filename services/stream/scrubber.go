package stream

import "strings"

const (
	openTag  = "<think>"
	closeTag = "</think>"
)

// Scrubber suppresses backend reasoning markup from visible output. It is a
// two-state machine (outside/inside the reasoning block) with a carry buffer
// for tags split across chunk boundaries: an undecided suffix is carried into
// the next call rather than guessed at, so no ambiguous partial-tag state
// ever persists across reads.
type Scrubber struct {
	inside bool
	carry  string
}

// Feed consumes the next raw chunk and returns the visible text it resolves.
// Pure with respect to I/O; all state lives in the receiver.
func (s *Scrubber) Feed(chunk string) string {
	data := s.carry + chunk
	s.carry = ""

	var out strings.Builder
	for len(data) > 0 {
		if !s.inside {
			if idx := strings.Index(data, openTag); idx >= 0 {
				out.WriteString(data[:idx])
				data = data[idx+len(openTag):]
				s.inside = true
				continue
			}
			keep := partialTagSuffix(data, openTag)
			out.WriteString(data[:len(data)-keep])
			s.carry = data[len(data)-keep:]
			data = ""
		} else {
			if idx := strings.Index(data, closeTag); idx >= 0 {
				data = data[idx+len(closeTag):]
				s.inside = false
				continue
			}
			// hidden text is dropped; only a possible partial close tag
			// needs to survive the read boundary
			keep := partialTagSuffix(data, closeTag)
			s.carry = data[len(data)-keep:]
			data = ""
		}
	}
	return out.String()
}

// Flush releases any held carry at end of stream. A suffix that looked like
// the start of an open tag but never completed is ordinary text; anything
// held inside an unterminated reasoning block stays hidden.
func (s *Scrubber) Flush() string {
	carry := s.carry
	s.carry = ""
	if s.inside {
		s.inside = false
		return ""
	}
	return carry
}

// StripReasoning removes complete reasoning blocks from a whole string, for
// one-shot results that never cross a chunk boundary.
func StripReasoning(text string) string {
	var sc Scrubber
	return sc.Feed(text) + sc.Flush()
}

// partialTagSuffix returns the length of the longest proper prefix of tag
// that ends the string, i.e. the undecided byte count to carry forward.
func partialTagSuffix(s, tag string) int {
	max := len(tag) - 1
	if max > len(s) {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}
	return 0
}
