package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// FrameHandler is the callback executed for every inbound frame.
type FrameHandler func(frame []byte)

// CloseHandler is executed exactly once when the connection terminates,
// with the error that caused the close (nil for a clean local close).
type CloseHandler func(err error)

type Config struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Transport is the surface the connection manager owns exclusively. Nothing
// else in the client writes to the socket.
type Transport interface {
	Send(frame []byte) bool
	Close(err error)
	Done() <-chan struct{}
}

// Connection is a single dialed WebSocket connection. It is safe for
// concurrent use.
type Connection struct {
	id     uuid.UUID
	conn   *websocket.Conn
	config Config
	send   chan []byte

	onFrame FrameHandler
	onClose CloseHandler

	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	logger *slog.Logger
}

var _ Transport = (*Connection)(nil)

// Dial opens a WebSocket connection to url and starts the read/write pumps.
// The credential travels inside the url; the caller builds it.
func Dial(ctx context.Context, url string, config Config, onFrame FrameHandler, onClose CloseHandler, logger *slog.Logger) (*Connection, error) {
	dialCtx := ctx
	if config.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, config.DialTimeout)
		defer cancel()
	}
	wsConn, _, err := websocket.Dial(dialCtx, url, nil)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	connCtx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:      id,
		conn:    wsConn,
		config:  config,
		send:    make(chan []byte, 256), // Buffered channel
		onFrame: onFrame,
		onClose: onClose,
		done:    make(chan struct{}),
		ctx:     connCtx,
		cancel:  cancel,
		logger:  logger.With(slog.String("connID", id.String())),
	}

	go c.readPump()
	go c.writePump()
	c.logger.Debug("transport connection established")
	return c, nil
}

// readPump pumps frames from the WebSocket connection to the frame handler.
func (c *Connection) readPump() {
	var readErr error
	defer func() {
		c.Close(readErr)
	}()

	for {
		readCtx := c.ctx
		var cancelRead context.CancelFunc
		if c.config.ReadTimeout > 0 {
			readCtx, cancelRead = context.WithTimeout(c.ctx, c.config.ReadTimeout)
		}
		typ, r, err := c.conn.Reader(readCtx)
		if err != nil {
			readErr = err
			if cancelRead != nil {
				cancelRead()
			}
			return
		}
		// Only text and binary frames carry events.
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			if cancelRead != nil {
				cancelRead()
			}
			continue
		}
		frame, err := io.ReadAll(r)
		if cancelRead != nil {
			cancelRead()
		}
		if err != nil {
			readErr = err
			return
		}
		if c.onFrame != nil {
			c.onFrame(frame)
		}
	}
}

// writePump pumps frames from the send channel to the WebSocket connection.
func (c *Connection) writePump() {
	var writeErr error
	defer func() {
		c.Close(writeErr)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				// The send channel was closed, signal clean closure.
				c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx := c.ctx
			var cancelWrite context.CancelFunc
			if c.config.WriteTimeout > 0 {
				writeCtx, cancelWrite = context.WithTimeout(c.ctx, c.config.WriteTimeout)
			}
			err := c.conn.Write(writeCtx, websocket.MessageText, frame)
			if cancelWrite != nil {
				cancelWrite()
			}
			if err != nil {
				writeErr = err
				return
			}
		case <-c.ctx.Done():
			c.conn.Close(websocket.StatusNormalClosure, "client going away")
			return
		}
	}
}

// Send queues a frame for writing. It returns false once the connection has
// started closing; the frame is dropped in that case.
func (c *Connection) Send(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	case <-c.ctx.Done():
		c.logger.Warn("Attempted to send on a closed connection")
		return false
	}
}

// Close gracefully shuts down the connection and its resources.
func (c *Connection) Close(err error) {
	c.closeOnce.Do(func() {
		status := websocket.CloseStatus(err)
		c.logger.Debug("Transport connection closing", slog.Any("reason", err), slog.String("status", status.String()))

		c.cancel() // Signal goroutines to stop.
		c.conn.Close(websocket.StatusNormalClosure, "")
		if c.onClose != nil {
			c.onClose(err)
		}
		close(c.done)
	})
}

// Done returns a channel that is closed when the connection is fully terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// ID returns the unique identifier of the connection.
func (c *Connection) ID() uuid.UUID {
	return c.id
}
