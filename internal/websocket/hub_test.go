package websocket

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHub_StoppedHubRejectsClients(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go h.Run()

	h.Stop()
	h.Stop() // idempotent

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.False(t, h.Register(&Client{}))
		h.Unregister(&Client{})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("register/unregister blocked on a stopped hub")
	}
	assert.Zero(t, h.ClientCount())
}
