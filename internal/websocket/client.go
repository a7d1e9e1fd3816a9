package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeempo/zeempo-gateway/internal/domain"
	"github.com/zeempo/zeempo-gateway/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Exchanger runs one streamed conversation exchange.
type Exchanger interface {
	StreamExchange(ctx context.Context, in service.ExchangeInput) (*service.ExchangeStream, error)
}

// Client is one authenticated socket. It runs at most one exchange at a time.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	userID    uuid.UUID
	exchanger Exchanger
	logger    *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu     sync.Mutex
	active context.CancelFunc // non-nil while an exchange runs
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, exchanger Exchanger, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		userID:    userID,
		exchanger: exchanger,
		logger:    logger.With("user_id", userID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Close aborts any running exchange and closes the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
	})
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(ErrCodeInvalidPayload, "Invalid message")
			continue
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSendMessage:
		var payload SendMessagePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			c.sendError(ErrCodeInvalidPayload, "Invalid send message payload")
			return
		}
		c.startExchange(payload)

	case MessageTypeCancel:
		c.mu.Lock()
		if c.active != nil {
			c.active()
		}
		c.mu.Unlock()

	default:
		c.sendError(ErrCodeUnknownType, "Unknown message type")
	}
}

func (c *Client) startExchange(payload SendMessagePayload) {
	text, err := domain.NormalizeMessage(payload.Message)
	if err != nil {
		c.sendError(ErrCodeInvalidMessage, "Message must be between 1 and 1000 characters")
		return
	}

	in := service.ExchangeInput{
		UserID:   c.userID,
		Message:  text,
		Language: payload.Language,
	}
	if payload.SessionID != nil && *payload.SessionID != "" {
		id, err := uuid.Parse(*payload.SessionID)
		if err != nil {
			c.sendError(ErrCodeSessionNotFound, "Yarn session no dey!")
			return
		}
		in.SessionID = &id
	}

	c.mu.Lock()
	if c.active != nil {
		c.mu.Unlock()
		c.sendError(ErrCodeBusy, "Another message is still in progress")
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.active = cancel
	c.mu.Unlock()

	go c.runExchange(ctx, cancel, in)
}

func (c *Client) finishExchange() {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
}

func (c *Client) runExchange(ctx context.Context, cancel context.CancelFunc, in service.ExchangeInput) {
	defer cancel()

	stream, err := c.exchanger.StreamExchange(ctx, in)
	if err != nil {
		c.finishExchange()
		c.sendExchangeError(ctx, err)
		return
	}

	c.Send(MessageTypeStarted, StartedPayload{SessionID: stream.SessionID().String()})

	for ctx.Err() == nil && stream.Next() {
		c.Send(MessageTypeFragment, FragmentPayload{Text: stream.Text()})
	}

	result, err := stream.Close(ctx)
	c.finishExchange()
	if err != nil {
		c.sendExchangeError(ctx, err)
		return
	}

	c.Send(MessageTypeCompleted, CompletedPayload{
		SessionID:      result.SessionID.String(),
		Response:       result.Reply,
		Language:       string(result.Language),
		ProcessingTime: result.Elapsed.Seconds(),
	})
}

func (c *Client) sendExchangeError(ctx context.Context, err error) {
	switch {
	case ctx.Err() != nil:
		c.sendError(ErrCodeCancelled, "Exchange cancelled")
	case errors.Is(err, domain.ErrSessionNotFound):
		c.sendError(ErrCodeSessionNotFound, "Yarn session no dey!")
	case errors.Is(err, domain.ErrInvalidLanguage):
		c.sendError(ErrCodeInvalidLanguage, "Language no dey supported. Use pidgin or swahili.")
	default:
		c.logger.Error("exchange failed", "error", err)
		c.sendError(ErrCodeGenerationFailed, "AI no work o. Abeg try again small time.")
	}
}

func (c *Client) sendError(code, message string) {
	c.Send(MessageTypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}

// Send queues a message for the write pump. It drops the message once the
// client is closed.
func (c *Client) Send(msgType MessageType, payload any) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		c.logger.Error("failed to build message", "type", msgType, "error", err)
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "type", msgType, "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	}
}
