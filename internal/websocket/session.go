package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"chat-relay-be/internal/constant"
	"chat-relay-be/internal/dto"
	"chat-relay-be/internal/model"
	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/pkg/rag"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ReplyGenerator produces one response text for a query. Implemented by
// rag.Bridge; it never fails, degrading internally to a fallback text.
type ReplyGenerator interface {
	Generate(ctx context.Context, query, scopeFilter string) string
}

// Subscriber is one attached physical connection. Deliver must not block:
// it either enqueues the frame or reports the connection dead/stalled.
type Subscriber interface {
	ID() string
	Deliver(frame []byte) error
	Close()
}

// SessionDeps carries the collaborators every session shares.
type SessionDeps struct {
	Bridge    ReplyGenerator
	Emitter   *Emitter
	Publisher message.Publisher // persistence topic, may be nil
	Logger    logger.ILogger
}

// Session multiplexes one logical chat conversation over any number of
// physical connections attaching and detaching across reconnects. The
// session key, not connection identity, addresses all in-memory state.
type Session struct {
	Key       string
	UserId    string
	ProjectId string

	mu    sync.Mutex
	conns map[string]Subscriber

	ctx    context.Context
	cancel context.CancelFunc

	deps SessionDeps
}

func NewSession(key, userId, projectId string, deps SessionDeps) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		Key:       key,
		UserId:    userId,
		ProjectId: projectId,
		conns:     make(map[string]Subscriber),
		ctx:       ctx,
		cancel:    cancel,
		deps:      deps,
	}
}

// Attach binds a new physical connection and confirms it with a
// connection_status frame. In-flight streaming replies keep broadcasting,
// so a reconnecting client resumes receiving them here.
func (s *Session) Attach(sub Subscriber) {
	s.mu.Lock()
	s.conns[sub.ID()] = sub
	s.mu.Unlock()

	if err := sub.Deliver(dto.NewConnectionStatusEnvelope("connected", s.Key)); err != nil {
		s.deps.Logger.Warn("Session", "Failed to confirm attach", map[string]interface{}{
			"session": s.Key,
			"error":   err.Error(),
		})
	}

	s.deps.Logger.Info("Session", "Connection attached", map[string]interface{}{
		"session": s.Key,
		"conn":    sub.ID(),
		"user_id": s.UserId,
	})
}

// Detach removes a connection. The session itself stays alive until the
// registry's retention window expires.
func (s *Session) Detach(connId string) {
	s.mu.Lock()
	sub, ok := s.conns[connId]
	if ok {
		delete(s.conns, connId)
	}
	s.mu.Unlock()

	if ok {
		sub.Close()
		s.deps.Logger.Info("Session", "Connection detached", map[string]interface{}{
			"session": s.Key,
			"conn":    connId,
		})
	}
}

func (s *Session) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close tears the session down, aborting in-flight emissions.
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[string]Subscriber)
	s.mu.Unlock()
	for _, sub := range conns {
		sub.Close()
	}
}

// Broadcast fans one frame out to every attached connection. A connection
// that cannot accept the frame is dropped; the reply stream carries on for
// whoever is still attached.
func (s *Session) Broadcast(frame []byte) {
	s.mu.Lock()
	var stalled []string
	for id, sub := range s.conns {
		if err := sub.Deliver(frame); err != nil {
			stalled = append(stalled, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stalled {
		s.deps.Logger.Warn("Session", "Dropping stalled connection", map[string]interface{}{
			"session": s.Key,
			"conn":    id,
		})
		s.Detach(id)
	}
}

// HandleFrame processes one inbound frame from a connection. A malformed
// frame is answered with an error envelope on the same connection and
// never kills it.
func (s *Session) HandleFrame(from Subscriber, frame []byte) {
	env, err := dto.ParseEnvelope(frame)
	if err != nil {
		s.deps.Logger.Warn("Session", "Malformed frame", map[string]interface{}{
			"session": s.Key,
			"error":   err.Error(),
		})
		_ = from.Deliver(dto.NewErrorEnvelope("Failed to process message"))
		return
	}

	switch env.Type {
	case constant.EnvelopeTypeUserMessage:
		s.handleUserMessage(from, env)
	default:
		// Unknown kinds are ignored; they must never crash the connection.
		s.deps.Logger.Debug("Session", "Ignoring envelope kind", map[string]interface{}{
			"session": s.Key,
			"type":    env.Type,
		})
	}
}

func (s *Session) handleUserMessage(from Subscriber, env *dto.Envelope) {
	data, err := env.UserMessage()
	if err != nil {
		_ = from.Deliver(dto.NewErrorEnvelope("Failed to process message"))
		return
	}

	messageId := env.MessageId
	if messageId == "" {
		messageId = model.GenerateMessageID()
	}
	assistantId := model.AssistantMessageID(messageId)

	s.persist(model.NewUserMessage(messageId, data.Content, s.UserId, s.ProjectId))

	// Acknowledge before the retrieval pipeline runs; the client swaps
	// the placeholder out as streamed content arrives under the same id.
	s.Broadcast(dto.NewAssistantEnvelope(assistantId, constant.AckText, false))

	// The reply pipeline must not block further inbound frames.
	go s.reply(assistantId, data.Content)
}

// reply drives bridge generation and streaming for one user message.
// Whatever goes wrong here is converted into an error envelope; it never
// propagates into the connection's read loop.
func (s *Session) reply(assistantId, query string) {
	defer func() {
		if r := recover(); r != nil {
			s.deps.Logger.Error("Session", "Reply pipeline panicked", map[string]interface{}{
				"session": s.Key,
				"panic":   r,
			})
			s.Broadcast(dto.NewErrorEnvelope("Failed to generate response"))
		}
	}()

	text := s.deps.Bridge.Generate(s.ctx, query, rag.ScopeFilter(s.UserId, s.ProjectId))

	if err := s.deps.Emitter.Stream(s.ctx, assistantId, text, s.Broadcast); err != nil {
		// The session died mid-stream. No terminal frame went out, so the
		// partial reply is deliberately not persisted.
		s.deps.Logger.Info("Session", "Emission abandoned", map[string]interface{}{
			"session":    s.Key,
			"message_id": assistantId,
		})
		return
	}

	s.persist(model.NewAssistantMessage(assistantId, text, s.UserId, s.ProjectId))
}

// persist hands the message to the fire-and-forget persistence pipeline.
// Failures are logged and swallowed; they never affect the in-flight reply.
func (s *Session) persist(msg model.ChatMessage) {
	if s.deps.Publisher == nil {
		return
	}

	job := dto.PersistChatMessageJob{
		Key:     model.StorageKey(msg.UserId, msg.ProjectId, msg.Id),
		Message: msg,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		s.deps.Logger.Error("Session", "Failed to marshal persist job", map[string]interface{}{
			"session": s.Key,
			"error":   err.Error(),
		})
		return
	}

	if err := s.deps.Publisher.Publish(constant.PersistChatMessageTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.deps.Logger.Error("Session", "Failed to publish persist job", map[string]interface{}{
			"session": s.Key,
			"key":     job.Key,
			"error":   err.Error(),
		})
	}
}
