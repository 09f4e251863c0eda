package contract

import (
	"context"

	"chat-relay-be/internal/model"
)

// ChatStore is the opaque key-value collaborator persisting chat history.
// Keys follow model.StorageKey. Writes are best-effort from the relay's
// point of view: a failed Put is logged by the caller and never surfaced
// to the client.
type ChatStore interface {
	Put(ctx context.Context, key string, message model.ChatMessage) error
	Get(ctx context.Context, key string) (*model.ChatMessage, error)
	// List returns every message stored under the given key prefix,
	// ordered by message timestamp ascending.
	List(ctx context.Context, prefix string) ([]model.ChatMessage, error)
}
