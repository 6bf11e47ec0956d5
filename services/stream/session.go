package stream

import "strings"

// Session is the per-request mutable streaming state: the scrubber, the
// accumulated visible text, and the running word count used by segmentation.
// It is owned exclusively by the request-handling goroutine; no locking.
type Session struct {
	scrubber    Scrubber
	accumulated strings.Builder
	words       int
}

// Ingest scrubs one raw chunk, commits the visible part to the session, and
// returns it for immediate framing.
func (s *Session) Ingest(chunk string) string {
	visible := s.scrubber.Feed(chunk)
	s.commit(visible)
	return visible
}

// Finish flushes the scrubber's carry at end of stream and commits it.
func (s *Session) Finish() string {
	visible := s.scrubber.Flush()
	s.commit(visible)
	return visible
}

// Text returns the accumulated visible text so far.
func (s *Session) Text() string {
	return s.accumulated.String()
}

// Words returns the visible word count so far.
func (s *Session) Words() int {
	return s.words
}

func (s *Session) commit(visible string) {
	if visible == "" {
		return
	}
	s.accumulated.WriteString(visible)
	s.words += len(strings.Fields(visible))
}
