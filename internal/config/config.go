package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	AutoRAG AutoRAGConfig
	Ai      AIConfig
	Chat    ChatConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type AutoRAGConfig struct {
	BaseURL   string
	Namespace string
	APIToken  string
	// Retrieval caps shared by both search tiers
	MaxResults     int
	ScoreThreshold float64
}

type AIConfig struct {
	LLMProvider   string // "ollama" for now
	LLMModel      string // e.g. "llama3", "qwen2.5"
	OllamaBaseURL string
	MaxTokens     int
}

type ChatConfig struct {
	// Inter-token delay while streaming a precomputed response.
	StreamDelay time.Duration
	// A session with no attached connections is dropped after this window.
	SessionRetention time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8787"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "chat-relay.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		AutoRAG: AutoRAGConfig{
			BaseURL:        getEnv("AUTORAG_BASE_URL", "http://localhost:9090"),
			Namespace:      getEnv("AUTORAG_NAMESPACE", "default"),
			APIToken:       getEnv("AUTORAG_API_TOKEN", ""),
			MaxResults:     getEnvAsInt("AUTORAG_MAX_RESULTS", 10),
			ScoreThreshold: getEnvAsFloat("AUTORAG_SCORE_THRESHOLD", 0.3),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			MaxTokens:     getEnvAsInt("LLM_MAX_TOKENS", 512),
		},
		Chat: ChatConfig{
			StreamDelay:      time.Duration(getEnvAsInt("STREAM_DELAY_MS", 50)) * time.Millisecond,
			SessionRetention: time.Duration(getEnvAsInt("SESSION_RETENTION_MINUTES", 60)) * time.Minute,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
