package handler

import (
	_ "embed"

	"chat-relay-be/internal/constant"
	"chat-relay-be/internal/model"
	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/internal/repository/contract"
	internalWS "chat-relay-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

//go:embed assets/embed.js
var embedScript []byte

//go:embed assets/embed-js.js
var embedPureScript []byte

type ChatHandler struct {
	registry *internalWS.Registry
	store    contract.ChatStore
	logger   logger.ILogger
}

func NewChatHandler(registry *internalWS.Registry, store contract.ChatStore, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		registry: registry,
		store:    store,
		logger:   log,
	}
}

// ServeWs upgrades an inbound request on /socket/:sessionId and binds the
// connection into the session addressed by the path. Session identity
// comes from the URL, never from the physical connection.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	sessionId := c.Params("sessionId")
	if sessionId == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Session ID required"})
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	userId := c.Query("userId", constant.DefaultUserID)
	projectId := c.Query("projectId")

	session := h.registry.GetOrCreate(sessionId, userId, projectId)

	// The fiber ctx is recycled once the handler returns; everything the
	// websocket callback needs was captured above.
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ChatHandler", "Starting WebSocket session", map[string]interface{}{
			"session": sessionId,
			"user_id": userId,
		})
		internalWS.ServeConn(session, conn)
		h.logger.Info("ChatHandler", "WebSocket session ended", map[string]interface{}{
			"session": sessionId,
			"user_id": userId,
		})
	})(c)
}

// Health is the liveness probe.
func (h *ChatHandler) Health(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// GetHistory returns persisted messages for a user/project scope, so a
// reconnecting client can recover replies it missed while offline.
func (h *ChatHandler) GetHistory(c *fiber.Ctx) error {
	userId := c.Query("userId")
	if userId == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId is required"})
	}
	projectId := c.Query("projectId")

	messages, err := h.store.List(c.UserContext(), model.StorageKeyPrefix(userId, projectId))
	if err != nil {
		h.logger.Error("ChatHandler", "History lookup failed", map[string]interface{}{
			"user_id": userId,
			"error":   err.Error(),
		})
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load history"})
	}

	return c.JSON(fiber.Map{
		"data":  messages,
		"total": len(messages),
	})
}

// EmbedScript serves the iframe bootstrap.
func (h *ChatHandler) EmbedScript(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/javascript")
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(embedScript)
}

// EmbedPureScript serves the iframe-free bootstrap.
func (h *ChatHandler) EmbedPureScript(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "application/javascript")
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(embedPureScript)
}

// RegisterRoutes registers the relay's HTTP surface.
func (h *ChatHandler) RegisterRoutes(app fiber.Router) {
	app.Get("/health", h.Health)
	app.Get("/embed.js", h.EmbedScript)
	app.Get("/embed-js.js", h.EmbedPureScript)

	// WebSocket
	app.Get("/socket/:sessionId", h.ServeWs)

	api := app.Group("/api")
	api.Get("/messages", h.GetHistory)
}
