package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"chat-relay-be/internal/model"
	"chat-relay-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

// RedisChatStore persists messages as JSON values under their composite
// chat:<user>:<project>:<messageId> key.
type RedisChatStore struct {
	rdb *redis.Client
}

var _ contract.ChatStore = &RedisChatStore{}

func NewRedisChatStore(rdb *redis.Client) *RedisChatStore {
	return &RedisChatStore{rdb: rdb}
}

func (s *RedisChatStore) Put(ctx context.Context, key string, message model.ChatMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisChatStore) Get(ctx context.Context, key string) (*model.ChatMessage, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var message model.ChatMessage
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("unmarshal message %s: %w", key, err)
	}
	return &message, nil
}

func (s *RedisChatStore) List(ctx context.Context, prefix string) ([]model.ChatMessage, error) {
	var messages []model.ChatMessage

	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		message, err := s.Get(ctx, iter.Val())
		if err != nil {
			return nil, err
		}
		if message != nil {
			messages = append(messages, *message)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Timestamp < messages[j].Timestamp
	})

	return messages, nil
}
