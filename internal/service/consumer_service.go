package service

import (
	"context"
	"encoding/json"
	"time"

	"chat-relay-be/internal/constant"
	"chat-relay-be/internal/dto"
	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/internal/repository/contract"
	"chat-relay-be/pkg/events"
	pktNats "chat-relay-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the persistence topic: each job is written to the
// chat store and, when NATS is configured, announced to downstream
// consumers. Persistence is best-effort end to end; a failed write is
// logged and dropped rather than retried into a storm.
type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	store          contract.ChatStore
	eventPublisher *pktNats.Publisher
	logger         logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	store contract.ChatStore,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		store:          store,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// Always Ack: persistence is fire-and-forget and a poison job must
	// not loop forever on the in-process channel.
	defer msg.Ack()

	var job dto.PersistChatMessageJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal persist job", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := cs.store.Put(ctx, job.Key, job.Message); err != nil {
		cs.logger.Error("Consumer", "Chat store write failed", map[string]interface{}{
			"key":   job.Key,
			"error": err.Error(),
		})
		return
	}

	cs.logger.Debug("Consumer", "Message persisted", map[string]interface{}{
		"key":  job.Key,
		"role": job.Message.Role,
	})

	if cs.eventPublisher == nil {
		return
	}

	evt := events.BaseEvent{
		Type: constant.EventChatMessagePersisted,
		Data: map[string]interface{}{
			"key":        job.Key,
			"message_id": job.Message.Id,
			"role":       job.Message.Role,
			"user_id":    job.Message.UserId,
			"project_id": job.Message.ProjectId,
		},
		OccurredAt: time.Now(),
	}
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		cs.logger.Warn("Consumer", "Failed to publish persisted event", map[string]interface{}{
			"key":   job.Key,
			"error": err.Error(),
		})
	}
}
