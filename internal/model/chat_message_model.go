package model

import (
	"fmt"
	"time"

	"chat-relay-be/internal/constant"
)

// ChatMessage is the persisted unit of conversation history. Timestamps are
// unix milliseconds to match what the widget stores client-side.
type ChatMessage struct {
	Id        string `json:"id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	Timestamp int64  `json:"timestamp"`
	UserId    string `json:"userId"`
	ProjectId string `json:"projectId,omitempty"`
	Status    string `json:"status"`
}

// NewUserMessage builds a user-role message stamped with the current time.
func NewUserMessage(id, content, userId, projectId string) ChatMessage {
	return ChatMessage{
		Id:        id,
		Content:   content,
		Role:      constant.ChatMessageRoleUser,
		Timestamp: time.Now().UnixMilli(),
		UserId:    userId,
		ProjectId: projectId,
		Status:    constant.ChatMessageStatusSent,
	}
}

// NewAssistantMessage builds an assistant-role message. The caller supplies
// the derived id (see AssistantMessageID).
func NewAssistantMessage(id, content, userId, projectId string) ChatMessage {
	return ChatMessage{
		Id:        id,
		Content:   content,
		Role:      constant.ChatMessageRoleAssistant,
		Timestamp: time.Now().UnixMilli(),
		UserId:    userId,
		ProjectId: projectId,
		Status:    constant.ChatMessageStatusSent,
	}
}

// AssistantMessageID derives the reply id from the triggering user message id.
// The derivation is deterministic so the client can correlate request and
// streamed reply without an extra round trip.
func AssistantMessageID(userMessageID string) string {
	return constant.AssistantMessageIDPrefix + userMessageID
}

// GenerateMessageID produces a fallback id for user messages that arrive
// without one.
func GenerateMessageID() string {
	return fmt.Sprintf("%s%d", constant.UserMessageIDPrefix, time.Now().UnixMilli())
}

// StorageKey builds the composite key a message is persisted under:
// chat:<userId>:<projectId|default>:<messageId>.
func StorageKey(userId, projectId, messageId string) string {
	if projectId == "" {
		projectId = constant.DefaultProjectID
	}
	return fmt.Sprintf("chat:%s:%s:%s", userId, projectId, messageId)
}

// StorageKeyPrefix builds the scan prefix covering every message persisted
// for a user/project scope.
func StorageKeyPrefix(userId, projectId string) string {
	if projectId == "" {
		projectId = constant.DefaultProjectID
	}
	return fmt.Sprintf("chat:%s:%s:", userId, projectId)
}
