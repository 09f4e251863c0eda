// Package chatclient is a Go consumer for the relay's duplex protocol. It
// owns the connect/retry/backoff lifecycle and keeps a local, replace-on-id
// message store so callers can re-render from a single source of truth.
package chatclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"chat-relay-be/internal/constant"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// State is the controller's connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const maxReconnectAttempts = 5

var (
	ErrNotConnected = errors.New("chatclient: not connected")
	ErrDestroyed    = errors.New("chatclient: client destroyed")
)

// Backoff returns the delay before the n-th reconnect attempt:
// 1s, 2s, 4s, 8s, capped at 10s.
func Backoff(attempt int) time.Duration {
	d := time.Second * (1 << attempt)
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}

// Message is the client-side view of one chat message. Streaming replies
// mutate Content in place while keeping Id stable, so consumers replace
// rather than append on each update. Status tracks the delivery
// lifecycle: sending, sent, streaming or error.
type Message struct {
	Id         string
	Role       string
	Content    string
	IsComplete bool
	Status     string
	Timestamp  time.Time
}

// Config enumerates everything an embedding caller may tune.
type Config struct {
	WorkerURL string
	SessionID string
	UserID    string
	ProjectID string
	Position  string
	Theme     string

	Dialer *websocket.Dialer

	// OnMessage fires after the local store is updated.
	OnMessage func(Message)
	// OnStateChange fires on every controller state transition.
	OnStateChange func(State)
	// OnError fires for protocol-level error envelopes.
	OnError func(string)
}

// Client is an explicit, constructible handle over one logical chat session.
// It is safe for concurrent use.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	open      bool
	destroyed bool
	attempts  int
	retry     *time.Timer

	// writeMu serializes wire writes; the underlying connection does
	// not tolerate concurrent writers.
	writeMu sync.Mutex

	order    []string
	messages map[string]*Message
}

func New(cfg Config) (*Client, error) {
	if cfg.WorkerURL == "" {
		return nil, errors.New("chatclient: WorkerURL is required")
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.UserID == "" {
		cfg.UserID = constant.DefaultUserID
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		cfg:      cfg,
		dialer:   dialer,
		state:    StateDisconnected,
		messages: make(map[string]*Message),
	}, nil
}

// Open shows the widget and establishes the connection if there is none.
func (c *Client) Open() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	c.open = true
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.connect()
}

// Close hides the widget and closes the connection cleanly. A clean close
// never triggers a reconnect.
func (c *Client) Close() {
	c.mu.Lock()
	c.open = false
	c.cancelRetryLocked()
	conn := c.conn
	c.conn = nil
	c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	if conn != nil {
		c.closeConn(conn)
	}
}

// closeConn sends the clean close frame and tears the socket down.
func (c *Client) closeConn(conn *websocket.Conn) {
	c.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	_ = conn.Close()
}

// Toggle flips between Open and Close.
func (c *Client) Toggle() error {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if open {
		c.Close()
		return nil
	}
	return c.Open()
}

// Destroy tears the client down permanently. Any pending retry timer is
// cancelled; the handle is unusable afterwards.
func (c *Client) Destroy() {
	c.mu.Lock()
	c.destroyed = true
	c.mu.Unlock()
	c.Close()
}

// State returns the current controller state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a snapshot of the local store in arrival order.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.messages[id])
	}
	return out
}

// SendMessage submits user text to the session. It fails fast when the
// controller is not connected; nothing is queued.
func (c *Client) SendMessage(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errors.New("chatclient: empty content")
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return "", ErrDestroyed
	}
	if c.state != StateConnected || c.conn == nil {
		c.mu.Unlock()
		return "", ErrNotConnected
	}
	conn := c.conn
	messageId := fmt.Sprintf("msg_%d", time.Now().UnixMilli())
	c.upsertLocked(Message{
		Id:         messageId,
		Role:       constant.ChatMessageRoleUser,
		Content:    content,
		IsComplete: true,
		Status:     constant.ChatMessageStatusSending,
		Timestamp:  time.Now(),
	})
	c.mu.Unlock()

	frame, _ := json.Marshal(map[string]interface{}{
		"type":      "user_message",
		"messageId": messageId,
		"data":      map[string]string{"content": content},
	})

	c.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, frame)
	c.writeMu.Unlock()

	c.mu.Lock()
	if err != nil {
		c.setStatusLocked(messageId, constant.ChatMessageStatusError)
	} else {
		c.setStatusLocked(messageId, constant.ChatMessageStatusSent)
	}
	c.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return messageId, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(c.socketURL(), nil)
	if err != nil {
		c.mu.Lock()
		c.setStateLocked(StateDisconnected)
		c.scheduleRetryLocked()
		c.mu.Unlock()
		return fmt.Errorf("dial: %w", err)
	}

	// Destroy or Close may have landed while the dial was in flight;
	// installing the fresh conn would resurrect a torn-down client.
	c.mu.Lock()
	if c.destroyed || !c.open {
		destroyed := c.destroyed
		c.setStateLocked(StateDisconnected)
		c.mu.Unlock()
		c.closeConn(conn)
		if destroyed {
			return ErrDestroyed
		}
		return nil
	}
	c.conn = conn
	c.attempts = 0
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.onDisconnect(conn, err)
			return
		}
		c.handleFrame(data)
	}
}

func (c *Client) onDisconnect(conn *websocket.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		// Close already replaced or dropped this connection.
		return
	}
	c.conn = nil
	c.setStateLocked(StateDisconnected)
	if c.destroyed || !c.open {
		return
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		return
	}
	c.scheduleRetryLocked()
}

// scheduleRetryLocked arms the backoff timer. Callers hold c.mu.
func (c *Client) scheduleRetryLocked() {
	if c.destroyed || !c.open {
		return
	}
	if c.attempts >= maxReconnectAttempts {
		return
	}
	attempt := c.attempts
	c.attempts++
	c.cancelRetryLocked()
	c.retry = time.AfterFunc(Backoff(attempt), func() {
		_ = c.connect()
	})
}

func (c *Client) cancelRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *Client) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.cfg.OnStateChange != nil {
		go c.cfg.OnStateChange(s)
	}
}

type wireEnvelope struct {
	Type      string          `json:"type"`
	MessageId string          `json:"messageId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (c *Client) handleFrame(data []byte) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}
	switch env.Type {
	case "assistant_message":
		var payload struct {
			Content    string `json:"content"`
			IsComplete bool   `json:"isComplete"`
		}
		if err := json.Unmarshal(env.Data, &payload); err != nil || env.MessageId == "" {
			return
		}
		status := constant.ChatMessageStatusStreaming
		if payload.IsComplete {
			status = constant.ChatMessageStatusSent
		}
		c.mu.Lock()
		msg := c.upsertLocked(Message{
			Id:         env.MessageId,
			Role:       constant.ChatMessageRoleAssistant,
			Content:    payload.Content,
			IsComplete: payload.IsComplete,
			Status:     status,
			Timestamp:  time.Now(),
		})
		c.mu.Unlock()
		if c.cfg.OnMessage != nil {
			c.cfg.OnMessage(msg)
		}
	case "error":
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(env.Data, &payload)
		if c.cfg.OnError != nil {
			c.cfg.OnError(payload.Error)
		}
	case "connection_status":
		// Informational only.
	}
}

// upsertLocked replaces an existing message with the same id or appends a
// new one. Identity is preserved so streaming updates re-render in place.
func (c *Client) upsertLocked(m Message) Message {
	if existing, ok := c.messages[m.Id]; ok {
		existing.Content = m.Content
		existing.IsComplete = m.IsComplete
		existing.Status = m.Status
		return *existing
	}
	stored := m
	c.messages[m.Id] = &stored
	c.order = append(c.order, m.Id)
	return stored
}

func (c *Client) setStatusLocked(id, status string) {
	if existing, ok := c.messages[id]; ok {
		existing.Status = status
	}
}

func (c *Client) socketURL() string {
	base := c.cfg.WorkerURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimSuffix(base, "/")

	q := url.Values{}
	q.Set("userId", c.cfg.UserID)
	if c.cfg.ProjectID != "" {
		q.Set("projectId", c.cfg.ProjectID)
	}
	return fmt.Sprintf("%s/socket/%s?%s", base, url.PathEscape(c.cfg.SessionID), q.Encode())
}
