package bootstrap

import (
	"fmt"
	"log"

	"chat-relay-be/internal/config"
	"chat-relay-be/internal/constant"
	"chat-relay-be/internal/handler"
	"chat-relay-be/internal/pkg/logger"
	"chat-relay-be/internal/repository/contract"
	"chat-relay-be/internal/repository/implementation"
	"chat-relay-be/internal/repository/memory"
	"chat-relay-be/internal/service"
	internalWS "chat-relay-be/internal/websocket"
	"chat-relay-be/pkg/autorag"
	"chat-relay-be/pkg/llm/factory"
	pktNats "chat-relay-be/pkg/nats"
	"chat-relay-be/pkg/rag"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// Container wires every collaborator of the relay. Construction order is
// leaves first: store and external clients, then the bridge, then the
// session layer, then handlers.
type Container struct {
	Logger          logger.ILogger
	Store           contract.ChatStore
	PubSub          *gochannel.GoChannel
	NatsPublisher   *pktNats.Publisher
	Registry        *internalWS.Registry
	ChatHandler     *handler.ChatHandler
	ConsumerService service.IConsumerService
}

func NewContainer(cfg *config.Config) (*Container, error) {
	zapLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Chat store: Redis when configured, in-process map otherwise.
	var store contract.ChatStore
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		store = implementation.NewRedisChatStore(redis.NewClient(opt))
	} else {
		log.Println("Note: REDIS_URL not set, using in-memory chat store")
		store = memory.NewChatStore()
	}

	// In-process persistence pipeline
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)

	// NATS is optional; without it persisted-message events stay local.
	var natsPublisher *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			zapLogger.Warn("Bootstrap", "NATS unavailable, integration events disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			natsPublisher = pub
		}
	}

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("create llm provider: %w", err)
	}

	searcher := autorag.NewClient(cfg.AutoRAG.BaseURL, cfg.AutoRAG.Namespace, cfg.AutoRAG.APIToken)

	bridge := rag.NewBridge(searcher, llmProvider, rag.Config{
		MaxResults:     cfg.AutoRAG.MaxResults,
		ScoreThreshold: cfg.AutoRAG.ScoreThreshold,
		MaxTokens:      cfg.Ai.MaxTokens,
	}, zapLogger)

	registry := internalWS.NewRegistry(internalWS.SessionDeps{
		Bridge:    bridge,
		Emitter:   internalWS.NewEmitter(cfg.Chat.StreamDelay),
		Publisher: pubSub,
		Logger:    zapLogger,
	}, cfg.Chat.SessionRetention, zapLogger)

	consumerService := service.NewConsumerService(pubSub, constant.PersistChatMessageTopic, store, natsPublisher, zapLogger)

	chatHandler := handler.NewChatHandler(registry, store, zapLogger)

	return &Container{
		Logger:          zapLogger,
		Store:           store,
		PubSub:          pubSub,
		NatsPublisher:   natsPublisher,
		Registry:        registry,
		ChatHandler:     chatHandler,
		ConsumerService: consumerService,
	}, nil
}
