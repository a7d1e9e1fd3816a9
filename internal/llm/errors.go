package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxErrorBody    = 64 << 10
	maxErrorExcerpt = 200
)

// UpstreamError reports a failed provider call. StatusCode is zero when the
// provider was unreachable or reported the error inside a stream.
type UpstreamError struct {
	StatusCode int
	Message    string
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return "llm: upstream unreachable: " + e.Message
	case e.StatusCode == 0:
		return "llm: upstream error: " + e.Message
	}
	return fmt.Sprintf("llm: upstream returned %d: %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func newUpstreamError(status int, raw []byte) *UpstreamError {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := ""
	if json.Unmarshal(raw, &body) == nil {
		msg = body.Error.Message
	}
	if msg == "" {
		msg = excerpt(string(raw))
	}
	return &UpstreamError{
		StatusCode: status,
		Message:    msg,
		Body:       string(raw),
	}
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrorExcerpt {
		return s
	}
	cut := maxErrorExcerpt
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
