package dto

import "chat-relay-be/internal/model"

// PersistChatMessageJob is the payload published on the persistence topic.
// Delivery is fire-and-forget: a lost or failed job never blocks or fails
// the in-flight reply.
type PersistChatMessageJob struct {
	Key     string            `json:"key"`
	Message model.ChatMessage `json:"message"`
}
