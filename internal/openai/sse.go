package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrStreamingUnsupported = errors.New("streaming not supported")

// Fragments is a pull-based source of generated text.
type Fragments interface {
	Next() bool
	Text() string
	Err() error
}

// ChunkWriter emits chat.completion.chunk events over server-sent events.
// All chunks of one response share an id and creation time.
type ChunkWriter struct {
	w       io.Writer
	flusher http.Flusher
	id      string
	model   string
	created int64
}

// NewChunkWriter writes the SSE response headers and returns a writer for
// the body. Headers the caller wants on the response must be set before.
func NewChunkWriter(w http.ResponseWriter, model string) (*ChunkWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &ChunkWriter{
		w:       w,
		flusher: flusher,
		id:      NewCompletionID(),
		model:   model,
		created: time.Now().Unix(),
	}, nil
}

func (cw *ChunkWriter) ID() string {
	return cw.id
}

// WriteFragment sends one chunk whose delta carries text.
func (cw *ChunkWriter) WriteFragment(text string) error {
	return cw.writeData(Chunk{
		ID:      cw.id,
		Object:  ObjectChunk,
		Created: cw.created,
		Model:   cw.model,
		Choices: []ChunkChoice{{
			Index: 0,
			Delta: Delta{Content: text},
		}},
	})
}

// WriteError reports a failure after streaming has begun. No [DONE] follows.
func (cw *ChunkWriter) WriteError(message string) error {
	return cw.writeData(ErrorResponse{Error: ErrorBody{Message: message, Type: "upstream_error"}})
}

// Done sends the terminal sentinel.
func (cw *ChunkWriter) Done() error {
	if _, err := io.WriteString(cw.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	cw.flusher.Flush()
	return nil
}

func (cw *ChunkWriter) writeData(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(cw.w, "data: %s\n\n", b); err != nil {
		return err
	}
	cw.flusher.Flush()
	return nil
}

// Pipe copies fragments from src to cw until src ends or ctx is done, and
// returns the text written. [DONE] is sent only when src ends cleanly. Once
// ctx is done nothing more is written.
func Pipe(ctx context.Context, cw *ChunkWriter, src Fragments) (string, error) {
	var text strings.Builder

	for src.Next() {
		if err := ctx.Err(); err != nil {
			return text.String(), err
		}
		if err := cw.WriteFragment(src.Text()); err != nil {
			return text.String(), err
		}
		text.WriteString(src.Text())
	}

	if err := ctx.Err(); err != nil {
		return text.String(), err
	}
	if err := src.Err(); err != nil {
		return text.String(), err
	}
	return text.String(), cw.Done()
}
