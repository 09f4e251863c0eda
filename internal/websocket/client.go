package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// Outbound buffer per connection. Streaming replies enqueue one frame
	// per token, so this needs more headroom than a request/reply socket.
	sendBufferSize = 1024
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSlowConsumer     = errors.New("send buffer full")
)

// Client is a middleman between one websocket connection and its session.
type Client struct {
	id      string
	session *Session
	conn    *websocket.Conn

	// Buffered channel of outbound frames. writePump is the only writer
	// on the wire, which gives the at-most-one-writer ordering guarantee.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(session *Session, conn *websocket.Conn) *Client {
	return &Client{
		id:      uuid.NewString(),
		session: session,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Deliver enqueues one outbound frame without blocking.
func (c *Client) Deliver(frame []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrSlowConsumer
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump pumps frames from the websocket connection into the session.
func (c *Client) readPump() {
	defer func() {
		c.session.Detach(c.id)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.session.deps.Logger.Warn("Client", "Unexpected close", map[string]interface{}{
					"conn":  c.id,
					"error": err.Error(),
				})
			}
			break
		}
		c.session.HandleFrame(c, frame)
	}
}

// writePump pumps frames from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeConn attaches a freshly upgraded connection to its session and
// blocks until the connection drops. Must be called from the fiber
// websocket handler goroutine.
func ServeConn(session *Session, conn *websocket.Conn) {
	client := newClient(session, conn)
	session.Attach(client)

	go client.writePump()
	client.readPump()
}
