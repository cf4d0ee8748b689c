// Package config centralises configuration parsing for the higher-pleasures services.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values shared by the api and bot binaries.
type Config struct {
	HTTPAddress    string
	MetricsAddress string
	PostgresURL    string

	KafkaBrokers    []string
	ChatTopic       string
	ReplyTopic      string
	EntryTopic      string
	ConsumerGroupID string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	ExtractorTimeout time.Duration

	MatchScorer    string  // "lexical" or "embedding"
	MatchThreshold float64 // minimum similarity for category reuse

	DefaultDurationMin int

	StoreMaxRetries int           // retry ceiling for ledger appends
	StoreBaseDelay  time.Duration // base delay for exponential backoff

	JWTSecret string
	JWTIssuer string
}

// Load reads environment variables into Config, applying sensible defaults for local dev.
func Load() Config {
	cfg := Config{
		HTTPAddress:        getEnv("HTTP_ADDRESS", ":8080"),
		MetricsAddress:     getEnv("METRICS_ADDRESS", ":9090"),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		ChatTopic:          getEnv("CHAT_TOPIC", "chat_messages"),
		ReplyTopic:         getEnv("REPLY_TOPIC", "chat_replies"),
		EntryTopic:         getEnv("ENTRY_TOPIC", "entry_recorded"),
		ConsumerGroupID:    getEnv("CONSUMER_GROUP_ID", "higher-pleasures-bot"),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ExtractorTimeout:   getDurationEnv("EXTRACTOR_TIMEOUT", 20*time.Second),
		MatchScorer:        getEnv("MATCH_SCORER", "lexical"),
		MatchThreshold:     getFloatEnv("MATCH_THRESHOLD", 0.72),
		DefaultDurationMin: getIntEnv("DEFAULT_DURATION_MIN", 30),
		StoreMaxRetries:    getIntEnv("STORE_MAX_RETRIES", 4),
		StoreBaseDelay:     getDurationEnv("STORE_BASE_DELAY", 250*time.Millisecond),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:          getEnv("JWT_ISSUER", "higher-pleasures.identity"),
	}

	brokers := getEnv("KAFKA_BROKERS", "kafka:9092")
	cfg.KafkaBrokers = splitAndTrim(brokers)
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
