package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	writeTimeout   = 10 * time.Second
)

var errUnregistered = errors.New("removed from hub")

// Client is one browser session subscribed to a user's change notices.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	userID int64
	send   chan []byte
	logger *slog.Logger
}

// NewClient binds conn to userID's channel on hub. logger should already
// carry the session's request ID.
func NewClient(hub *Hub, conn *ws.Conn, userID int64, logger *slog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With("user_id", userID),
	}
}

// Serve pushes hub messages to the peer until it disconnects or ctx ends.
// Sessions are push-only; a data message from the peer ends the session.
func (c *Client) Serve(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx = c.conn.CloseRead(ctx)

	began := time.Now()
	c.logger.Debug("websocket session started")
	sent, err := c.push(ctx)

	attrs := []any{"sent", sent, "duration", time.Since(began)}
	switch {
	case errors.Is(err, errUnregistered), errors.Is(err, context.Canceled), ws.CloseStatus(err) == ws.StatusNormalClosure, ws.CloseStatus(err) == ws.StatusGoingAway:
		c.logger.Debug("websocket session closed", attrs...)
	default:
		c.logger.Info("websocket session dropped", append(attrs, "error", err)...)
	}
}

func (c *Client) push(ctx context.Context) (sent int, err error) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return sent, errUnregistered
			}
			if err := c.write(ctx, msg); err != nil {
				return sent, fmt.Errorf("write notice: %w", err)
			}
			sent++
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				return sent, fmt.Errorf("ping: %w", err)
			}
		case <-ctx.Done():
			return sent, context.Cause(ctx)
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, ws.MessageText, msg)
}
