package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"chat-relay-be/internal/model"
	"chat-relay-be/internal/repository/contract"
)

// ChatStore is an in-process ChatStore used in tests and when no Redis
// is configured (single-instance development).
type ChatStore struct {
	mu       sync.RWMutex
	messages map[string]model.ChatMessage
}

var _ contract.ChatStore = &ChatStore{}

func NewChatStore() *ChatStore {
	return &ChatStore{messages: make(map[string]model.ChatMessage)}
}

func (s *ChatStore) Put(_ context.Context, key string, message model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[key] = message
	return nil
}

func (s *ChatStore) Get(_ context.Context, key string) (*model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if message, ok := s.messages[key]; ok {
		return &message, nil
	}
	return nil, nil
}

func (s *ChatStore) List(_ context.Context, prefix string) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var messages []model.ChatMessage
	for key, message := range s.messages {
		if strings.HasPrefix(key, prefix) {
			messages = append(messages, message)
		}
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})

	return messages, nil
}
