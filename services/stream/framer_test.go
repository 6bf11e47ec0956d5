package stream

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramer_Protocol(t *testing.T) {
	rec := httptest.NewRecorder()

	f, err := NewFramer(rec)
	require.NoError(t, err)

	f.Status(PhaseRetrieving)
	f.Status(PhaseGenerating)
	f.Data("first line\nsecond line")
	f.Done()

	body := rec.Body.String()

	assert.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, ":ok\n\n"), "stream must open with the ok comment")
	assert.Contains(t, body, "event: status\ndata: retrieving\n\n")
	assert.Contains(t, body, "event: status\ndata: generating\n\n")
	assert.Contains(t, body, "data: first line\n\n")
	assert.Contains(t, body, "data: second line\n\n")
	assert.True(t, strings.HasSuffix(body, "event: status\ndata: done\n\n"), "stream must end with the done status")
}

func TestFramer_DataSplitsAndDropsBlankLines(t *testing.T) {
	rec := httptest.NewRecorder()
	f, err := NewFramer(rec)
	require.NoError(t, err)

	f.Data("a\n\n\nb\r\nc")
	f.Data("")

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "data: a\n\n"))
	assert.Equal(t, 1, strings.Count(body, "data: b\n\n"))
	assert.Equal(t, 1, strings.Count(body, "data: c\n\n"))
	// the empty payload contributes nothing
	assert.Equal(t, 3, strings.Count(body, "data: "))
}

func TestFramer_DoneIsIdempotent(t *testing.T) {
	rec := httptest.NewRecorder()
	f, err := NewFramer(rec)
	require.NoError(t, err)

	f.Done()
	f.Done()
	f.Data("after close")
	f.Status(PhaseGenerating)

	body := rec.Body.String()
	assert.Equal(t, 1, strings.Count(body, "data: done"))
	assert.NotContains(t, body, "after close")
	assert.NotContains(t, body, "generating")
}

func TestSegmentPhase(t *testing.T) {
	assert.Equal(t, "segment-1", SegmentPhase(1))
	assert.Equal(t, "segment-12", SegmentPhase(12))
}
