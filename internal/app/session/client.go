/*
Package session runs the room session engine.

This file defines the Client struct, representing an active WebSocket connection. It manages the
connection's lifecycle, its read and write loops (ReadPump and WritePump), and hands every inbound
command to the Engine in arrival order.
*/
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"planpoker/internal/pkg/errs"
	"planpoker/internal/pkg/logx"
	"planpoker/internal/pkg/metrics"
	"planpoker/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// capacity of the outbound queue of one connection.
	sendBufferSize = 64
)

// Client struct represents an active WebSocket connection and the participant it is bound to.
type Client struct {
	// ID identifies the connection in logs; it is not a participant ID.
	ID string

	// underlying WebSocket connection object.
	conn *websocket.Conn

	engine  *Engine
	manager *Manager

	// engine context of this connection.
	session *Session

	// limits how fast this connection may issue commands; nil disables limiting.
	limiter *rate.Limiter

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// mu guards closed and the closing of send.
	mu     sync.Mutex
	closed bool

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
func NewClient(wsConn *websocket.Conn, engine *Engine, manager *Manager, limiter *rate.Limiter) *Client {
	id := randx.ConnectionID()

	c := &Client{
		ID:      id,
		conn:    wsConn,
		engine:  engine,
		manager: manager,
		limiter: limiter,
		send:    make(chan []byte, sendBufferSize),
		logger:  logx.Logger().With().Str("conn_id", id).Logger(),
	}
	c.session = NewSession(c)
	return c
}

// TrySend queues msg for the WritePump without blocking.
func (c *Client) TrySend(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return ErrBackpressure
	}
}

// Closed reports whether the connection has stopped accepting messages.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// markClosed stops further sends and lets the WritePump drain and exit.
func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Serve registers the client and runs both pumps until the connection ends.
func (c *Client) Serve() {
	c.manager.register(c)
	metrics.ConnectionOpened()

	go c.WritePump()
	c.ReadPump()
}

// ReadPump handles reading commands from the WebSocket connection.
// Commands run one at a time in arrival order; cleanup runs after the last one finished.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().
		Str("room_id", c.session.RoomID()).
		Str("user_id", c.session.UserID()).
		Msg("Client connection cleanup starting.")

	c.markClosed()

	if err := c.engine.Leave(context.Background(), c.session); err != nil {
		c.logger.Error().Err(err).Msg("Failed to remove participant on disconnect")
	}

	c.manager.unregister(c)
	metrics.ConnectionClosed()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundMessage decodes and executes one inbound frame, replying with room:error on failure.
func (c *Client) processInboundMessage(messageBytes []byte) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.SendError(errs.NewError(errs.ErrRateLimitExceeded))
		return
	}

	cmd, err := DecodeCommand(messageBytes)
	if err != nil {
		c.logger.Warn().Err(err).Int("message_len", len(messageBytes)).Msg("Client sent invalid command")
		c.SendError(err)
		return
	}

	if err := c.engine.Handle(context.Background(), c.session, cmd); err != nil {
		c.logger.Debug().
			Err(err).
			Str("msg_type", string(cmd.Type())).
			Str("room_id", c.session.RoomID()).
			Msg("Command rejected")
		c.SendError(err)
	}
}

// SendError sends a room:error message to the client.
func (c *Client) SendError(err error) {
	if sendErr := c.TrySend(EncodeError(err)); sendErr != nil {
		c.logger.Debug().Err(sendErr).Msg("Failed to queue error message")
	}
}

// WritePump handles writing messages from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles messages pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// Kick closes the connection with the given close code, for example on server shutdown.
// The ReadPump then exits and runs the usual disconnect cleanup.
func (c *Client) Kick(code int, reason string) {
	c.logger.Info().
		Int("close_code", code).
		Str("reason", reason).
		Msg("Sending WS close message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send WS close message.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error in Kick")
	}
}
