package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubber_Feed(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{
			name:   "plain text passes through",
			chunks: []string{"hello ", "world"},
			want:   "hello world",
		},
		{
			name:   "complete block in one chunk",
			chunks: []string{"<think>hidden</think>visible"},
			want:   "visible",
		},
		{
			name:   "open tag split across chunks",
			chunks: []string{"<thi", "nk>hidden</think>visible"},
			want:   "visible",
		},
		{
			name:   "close tag split across chunks",
			chunks: []string{"<think>hidden</thi", "nk>visible"},
			want:   "visible",
		},
		{
			name:   "tag split byte by byte",
			chunks: []string{"<", "t", "h", "i", "n", "k", ">", "x", "<", "/", "t", "h", "i", "n", "k", ">", "ok"},
			want:   "ok",
		},
		{
			name:   "text before and after block",
			chunks: []string{"before<think>mid", "dle</think>after"},
			want:   "beforeafter",
		},
		{
			name:   "multiple blocks",
			chunks: []string{"a<think>x</think>b<think>y</think>c"},
			want:   "abc",
		},
		{
			name:   "lone angle bracket is ordinary text",
			chunks: []string{"2 < 3 and 4 > 1"},
			want:   "2 < 3 and 4 > 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sc Scrubber
			var got string
			for _, chunk := range tt.chunks {
				got += sc.Feed(chunk)
			}
			got += sc.Flush()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScrubber_Flush(t *testing.T) {
	t.Run("partial open tag that never completes is ordinary text", func(t *testing.T) {
		var sc Scrubber
		got := sc.Feed("trailing <thin")
		got += sc.Flush()
		assert.Equal(t, "trailing <thin", got)
	})

	t.Run("unterminated block stays hidden", func(t *testing.T) {
		var sc Scrubber
		got := sc.Feed("visible<think>never closed")
		got += sc.Flush()
		assert.Equal(t, "visible", got)
	})

	t.Run("flush resets state for reuse", func(t *testing.T) {
		var sc Scrubber
		_ = sc.Feed("<think>abandoned")
		_ = sc.Flush()
		assert.Equal(t, "next segment", sc.Feed("next segment"))
	})
}

func TestStripReasoning(t *testing.T) {
	assert.Equal(t, "answer", StripReasoning("<think>chain of thought</think>answer"))
	assert.Equal(t, "no markup", StripReasoning("no markup"))
}

func TestSession_Accumulates(t *testing.T) {
	var s Session
	s.Ingest("one two ")
	s.Ingest("<think>ignored words</think>three")
	s.Finish()

	assert.Equal(t, "one two three", s.Text())
	assert.Equal(t, 3, s.Words())
}
