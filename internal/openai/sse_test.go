package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceFragments struct {
	items []string
	pos   int
	err   error
	// onNext runs before each advance with the index about to be returned.
	onNext func(i int)
}

func (s *sliceFragments) Next() bool {
	if s.onNext != nil {
		s.onNext(s.pos)
	}
	if s.pos >= len(s.items) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceFragments) Text() string { return s.items[s.pos-1] }
func (s *sliceFragments) Err() error   { return s.err }

// dataFrames returns the payload of every "data:" line in an SSE body.
func dataFrames(t *testing.T, body string) []string {
	t.Helper()
	var frames []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "data: ") {
			frames = append(frames, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NoError(t, sc.Err())
	return frames
}

func TestPipe_FixedFragments(t *testing.T) {
	rec := httptest.NewRecorder()
	cw, err := NewChunkWriter(rec, "zeempo-pidgin")
	require.NoError(t, err)

	text, err := Pipe(context.Background(), cw, &sliceFragments{items: []string{"Wet", "in", " dey"}})
	require.NoError(t, err)
	assert.Equal(t, "Wetin dey", text)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	frames := dataFrames(t, rec.Body.String())
	require.Len(t, frames, 4)

	want := []string{"Wet", "in", " dey"}
	for i, w := range want {
		var chunk Chunk
		require.NoError(t, json.Unmarshal([]byte(frames[i]), &chunk))
		assert.Equal(t, cw.ID(), chunk.ID)
		assert.True(t, strings.HasPrefix(chunk.ID, "chatcmpl-"))
		assert.Equal(t, ObjectChunk, chunk.Object)
		assert.Equal(t, "zeempo-pidgin", chunk.Model)
		assert.NotZero(t, chunk.Created)
		require.Len(t, chunk.Choices, 1)
		assert.Equal(t, w, chunk.Choices[0].Delta.Content)
		assert.Nil(t, chunk.Choices[0].FinishReason)
		assert.Contains(t, frames[i], `"finish_reason":null`)
	}
	assert.Equal(t, "[DONE]", frames[3])
}

func TestPipe_StopsAfterCancel(t *testing.T) {
	rec := httptest.NewRecorder()
	cw, err := NewChunkWriter(rec, "m")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	src := &sliceFragments{
		items: []string{"one", "two", "three"},
		onNext: func(i int) {
			if i == 1 {
				cancel()
			}
		},
	}

	text, err := Pipe(ctx, cw, src)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "one", text)

	frames := dataFrames(t, rec.Body.String())
	require.Len(t, frames, 1)
	assert.NotContains(t, rec.Body.String(), "[DONE]")
}

func TestPipe_SourceError(t *testing.T) {
	rec := httptest.NewRecorder()
	cw, err := NewChunkWriter(rec, "m")
	require.NoError(t, err)

	boom := errors.New("upstream broke")
	text, err := Pipe(context.Background(), cw, &sliceFragments{items: []string{"partial"}, err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial", text)
	assert.NotContains(t, rec.Body.String(), "[DONE]")

	require.NoError(t, cw.WriteError("AI no work o"))
	frames := dataFrames(t, rec.Body.String())
	require.Len(t, frames, 2)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(frames[1]), &errResp))
	assert.Equal(t, "AI no work o", errResp.Error.Message)
}

type plainWriter struct {
	header http.Header
}

func (w *plainWriter) Header() http.Header        { return w.header }
func (w *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (w *plainWriter) WriteHeader(int)             {}

func TestNewChunkWriter_RequiresFlusher(t *testing.T) {
	_, err := NewChunkWriter(&plainWriter{header: http.Header{}}, "m")
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}
