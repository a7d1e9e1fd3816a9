package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

const maxStreamLine = 1 << 20

var (
	sseDataPrefix = []byte("data:")
	sseDone       = []byte("[DONE]")
)

// Stream is a finite, non-restartable sequence of text fragments read from an
// upstream server-sent event stream.
//
//	for s.Next() {
//		use(s.Text())
//	}
//	err := s.Err()
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc

	text string
	err  error
	done bool

	closeOnce sync.Once
}

// NewStream reads OpenAI-style chunk events from body.
func NewStream(body io.ReadCloser) *Stream {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64<<10), maxStreamLine)
	return &Stream{body: body, scanner: sc}
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Next advances to the next non-empty fragment. It returns false at the end
// of the stream or on error.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if !bytes.HasPrefix(line, sseDataPrefix) {
			continue
		}
		data := bytes.TrimSpace(line[len(sseDataPrefix):])
		if bytes.Equal(data, sseDone) {
			s.done = true
			return false
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			return s.fail(fmt.Errorf("llm: decode stream chunk: %w", err))
		}
		if chunk.Error != nil {
			return s.fail(&UpstreamError{Message: chunk.Error.Message})
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		s.text = chunk.Choices[0].Delta.Content
		return true
	}

	if err := s.scanner.Err(); err != nil {
		return s.fail(fmt.Errorf("llm: read stream: %w", err))
	}
	return s.fail(io.ErrUnexpectedEOF)
}

func (s *Stream) fail(err error) bool {
	s.err = err
	s.done = true
	s.text = ""
	return false
}

// Text is the fragment produced by the last successful Next.
func (s *Stream) Text() string {
	return s.text
}

// Err is the error that stopped the stream, if any. A stream that ended with
// the provider's completion marker has a nil Err.
func (s *Stream) Err() error {
	if errors.Is(s.err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("llm: stream ended without completion marker: %w", s.err)
	}
	return s.err
}

// Close aborts the upstream request and releases the connection. It is safe
// to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		err = s.body.Close()
	})
	return err
}
