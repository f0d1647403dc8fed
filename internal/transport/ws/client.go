package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/veil/internal/realtime"
	"nhooyr.io/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 16 << 10
	sendBufSize    = 256
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Client is one WebSocket connection. It implements realtime.Socket.
type Client struct {
	id     string
	hub    *realtime.Hub
	conn   *websocket.Conn
	logger *slog.Logger

	session *realtime.Session

	send chan []byte
	done chan struct{}

	closed      atomic.Bool
	closeOnce   sync.Once
	closeReason string
}

func NewClient(hub *realtime.Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	conn.SetReadLimit(maxMessageSize)
	id := uuid.NewString()
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		logger: logger.With("socket", id),
		send:   make(chan []byte, sendBufSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string { return c.id }

// Send queues a frame for the write pump. A full buffer drops the frame.
func (c *Client) Send(data []byte) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) IsOpen() bool { return !c.closed.Load() }

// Close stops the write pump, which flushes queued frames and closes the
// connection with reason.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		c.closed.Store(true)
		close(c.done)
	})
}

// Run registers the client with the hub and serves it until the connection
// ends. The read loop runs on the calling goroutine.
func (c *Client) Run(ctx context.Context, userID uuid.UUID) {
	c.session = c.hub.Connect(c, userID)
	c.logger = c.logger.With("user_id", userID)

	go c.WritePump()
	c.ReadPump(ctx)
}

// ReadPump handles client frames one at a time until the connection fails.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Disconnect(context.WithoutCancel(ctx), c.session)
		c.Close("")
	}()

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				c.logger.Debug("ws client disconnected")
			} else if c.IsOpen() {
				c.logger.Info("ws read failed", "error", err)
			}
			return
		}

		if typ != websocket.MessageText {
			c.hub.SendError(c.session, ErrBinaryFrame)
			continue
		}
		c.handleEvent(ctx, data)
	}
}

// WritePump drains the send buffer and keeps the connection alive.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.logger.Debug("ws write failed", "error", err)
				c.Close("")
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.logger.Debug("ws ping failed", "error", err)
				c.Close("")
				c.conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}

		case <-c.done:
			c.flush()
			c.conn.Close(websocket.StatusNormalClosure, c.closeReason)
			return
		}
	}
}

func (c *Client) write(message []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, message)
}

// flush writes whatever is already queued, such as a final ERROR frame.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// handleEvent parses one frame and dispatches it onto the hub. Failures are
// reported to this socket as ERROR and never close it.
func (c *Client) handleEvent(ctx context.Context, data []byte) {
	cmd, err := ParseEvent(data)
	if err == nil {
		err = c.dispatch(ctx, cmd)
	}
	if err != nil {
		c.hub.SendError(c.session, err)
	}
}

func (c *Client) dispatch(ctx context.Context, cmd any) error {
	s := c.session
	switch e := cmd.(type) {
	case JoinRoom:
		return c.hub.JoinRoom(ctx, s, e.RoomID, e.MaskID)
	case SendMessage:
		return c.hub.SendRoomMessage(ctx, s, realtime.Outgoing{
			ContextID:     e.RoomID,
			MaskID:        e.MaskID,
			Body:          e.Body,
			ImageUploadID: e.ImageUploadID,
		})
	case LeaveRoom:
		c.hub.LeaveRoom(ctx, s)
	case JoinDM:
		return c.hub.JoinDM(ctx, s, e.ThreadID, e.MaskID)
	case SendDM:
		return c.hub.SendDMMessage(ctx, s, realtime.Outgoing{
			ContextID:     e.ThreadID,
			MaskID:        e.MaskID,
			Body:          e.Body,
			ImageUploadID: e.ImageUploadID,
		})
	case LeaveDM:
		c.hub.LeaveDM(ctx, s)
	case JoinChannel:
		return c.hub.JoinChannel(ctx, s, e.ChannelID)
	case SendChannelMessage:
		return c.hub.SendChannelMessage(ctx, s, realtime.Outgoing{
			ContextID:     e.ChannelID,
			Body:          e.Body,
			ImageUploadID: e.ImageUploadID,
		})
	case LeaveChannel:
		c.hub.LeaveChannel(ctx, s)
	case Ping:
		c.hub.Pong(s)
	default:
		return ErrUnknownEvent
	}
	return nil
}
