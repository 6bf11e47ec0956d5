package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Stream phases reported on status lines
const (
	PhaseRetrieving = "retrieving"
	PhaseGenerating = "generating"
	PhaseDone       = "done"
	PhaseBlocked    = "blocked"
)

// SegmentPhase names the status line for long-form segment n (1-based)
func SegmentPhase(n int) string {
	return fmt.Sprintf("segment-%d", n)
}

// Sink is the client-facing incremental delivery protocol. The framer is the
// HTTP implementation; tests substitute an in-memory one.
type Sink interface {
	// Status emits a machine-readable phase line
	Status(phase string)

	// Data emits a fragment of visible output, one frame per physical line
	Data(text string)

	// Done emits the terminal status and closes the protocol. Safe to call
	// once; the stream always ends with it, even on internal failure.
	Done()
}

// ErrStreamingUnsupported is returned when the response writer cannot flush
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// Framer writes the event-stream protocol: comment/heartbeat lines that
// carry no payload, status lines with a phase name, and data lines carrying
// visible text. Every visible fragment is flushed as soon as it is produced
// to keep time-to-first-token low.
type Framer struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
}

// NewFramer prepares the response for event streaming and emits the opening
// comment frame.
func NewFramer(w http.ResponseWriter) (*Framer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	f := &Framer{
		w:       w,
		flusher: flusher,
		stop:    make(chan struct{}),
	}
	f.writeRaw(":ok\n\n")
	return f, nil
}

// Status emits an "event: status" frame with the phase name
func (f *Framer) Status(phase string) {
	f.writeRaw("event: status\ndata: " + phase + "\n\n")
}

// Data frames visible text, splitting on newlines so each physical line is
// its own frame; blank lines are dropped to avoid flooding the client.
func (f *Framer) Data(text string) {
	if text == "" {
		return
	}
	var b strings.Builder
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line == "" {
			continue
		}
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n\n")
	}
	if b.Len() > 0 {
		f.writeRaw(b.String())
	}
}

// Done emits the terminal status and shuts the framer down. The heartbeat
// ticker, if running, is cancelled here.
func (f *Framer) Done() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	close(f.stop)
	f.write("event: status\ndata: " + PhaseDone + "\n\n")
	f.mu.Unlock()
}

// StartHeartbeat fires a comment frame on a fixed interval, independent of
// data arrival, so intermediary proxies keep the connection open. It stops
// when the context is cancelled or Done is called.
func (f *Framer) StartHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.writeRaw(":hb\n\n")
			case <-ctx.Done():
				return
			case <-f.stop:
				return
			}
		}
	}()
}

func (f *Framer) writeRaw(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.write(s)
}

// write assumes f.mu is held
func (f *Framer) write(s string) {
	if _, err := f.w.Write([]byte(s)); err != nil {
		return
	}
	f.flusher.Flush()
}
