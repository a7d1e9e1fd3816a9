package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/zeempo/zeempo-gateway/internal/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Message
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient creates a new WebSocket test client
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *websocket.Message, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			}
			return
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			select {
			case c.errors <- err:
			default:
			}
			continue
		}

		select {
		case c.messages <- &msg:
		case <-c.done:
			return
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

func (c *WSClient) send(msgType websocket.MessageType, payload any) {
	c.t.Helper()

	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			c.t.Fatalf("failed to marshal payload: %v", err)
		}
		raw = data
	}

	data, err := json.Marshal(websocket.Message{
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send %s: %v", msgType, err)
	}
}

// SendMessage starts an exchange. sessionID may be empty for a new session.
func (c *WSClient) SendMessage(message, sessionID, language string) {
	payload := websocket.SendMessagePayload{
		Message:  message,
		Language: language,
	}
	if sessionID != "" {
		payload.SessionID = &sessionID
	}
	c.send(websocket.MessageTypeSendMessage, payload)
}

// Cancel aborts the running exchange
func (c *WSClient) Cancel() {
	c.send(websocket.MessageTypeCancel, nil)
}

// SendRaw writes data as a text frame without any encoding
func (c *WSClient) SendRaw(data []byte) {
	c.t.Helper()

	c.mu.Lock()
	err := c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send raw frame: %v", err)
	}
}

// ExpectMessage waits for the next message and requires it to have msgType
func (c *WSClient) ExpectMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg == nil {
			c.t.Fatalf("connection closed while waiting for %s", msgType)
		}
		if msg.Type != msgType {
			c.t.Fatalf("expected %s, got %s: %s", msgType, msg.Type, string(msg.Payload))
		}
		return msg
	case err := <-c.errors:
		c.t.Fatalf("error while waiting for %s: %v", msgType, err)
	case <-time.After(timeout):
		c.t.Fatalf("timeout waiting for message type %s", msgType)
	}
	return nil
}

// ExpectStarted waits for and decodes a STARTED message
func (c *WSClient) ExpectStarted(timeout time.Duration) *websocket.StartedPayload {
	c.t.Helper()

	msg := c.ExpectMessage(websocket.MessageTypeStarted, timeout)

	var payload websocket.StartedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode started payload: %v", err)
	}
	return &payload
}

// CollectReply reads FRAGMENT messages until the exchange ends. It returns
// the fragments and the terminal message (COMPLETED or ERROR).
func (c *WSClient) CollectReply(timeout time.Duration) ([]string, *websocket.Message) {
	c.t.Helper()

	var fragments []string
	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed after %d fragments", len(fragments))
			}
			switch msg.Type {
			case websocket.MessageTypeFragment:
				var payload websocket.FragmentPayload
				if err := json.Unmarshal(msg.Payload, &payload); err != nil {
					c.t.Fatalf("failed to decode fragment payload: %v", err)
				}
				fragments = append(fragments, payload.Text)
			case websocket.MessageTypeCompleted, websocket.MessageTypeError:
				return fragments, msg
			default:
				c.t.Fatalf("unexpected message %s while collecting reply", msg.Type)
			}
		case err := <-c.errors:
			c.t.Fatalf("error after %d fragments: %v", len(fragments), err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for reply, got %d fragments", len(fragments))
		}
	}
}

// ExpectCompleted decodes a COMPLETED message
func (c *WSClient) ExpectCompleted(msg *websocket.Message) *websocket.CompletedPayload {
	c.t.Helper()

	if msg.Type != websocket.MessageTypeCompleted {
		c.t.Fatalf("expected COMPLETED, got %s: %s", msg.Type, string(msg.Payload))
	}
	var payload websocket.CompletedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		c.t.Fatalf("failed to decode completed payload: %v", err)
	}
	return &payload
}

// ExpectErrorWithCode waits for an ERROR with a specific code, skipping
// any fragments still in flight.
func (c *WSClient) ExpectErrorWithCode(code string, timeout time.Duration) *websocket.ErrorPayload {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed while waiting for %s", code)
			}
			if msg.Type == websocket.MessageTypeFragment || msg.Type == websocket.MessageTypeStarted {
				continue
			}
			if msg.Type != websocket.MessageTypeError {
				c.t.Fatalf("expected ERROR %s, got %s: %s", code, msg.Type, string(msg.Payload))
			}
			var payload websocket.ErrorPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				c.t.Fatalf("failed to decode error payload: %v", err)
			}
			if payload.Code != code {
				c.t.Fatalf("expected error code %s, got %s: %s", code, payload.Code, payload.Message)
			}
			return &payload
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", code, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for error code %s", code)
		}
	}
}

// ExpectClosed waits for the server to close the connection
func (c *WSClient) ExpectClosed(timeout time.Duration) {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				return
			}
		case <-c.errors:
			return
		case <-deadline:
			c.t.Fatal("timeout waiting for connection to close")
		}
	}
}
