package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration fields for the application.
type Config struct {
	// Graph API application secret. Absence is fatal at startup.
	GraphAppID     string
	GraphAppSecret string
	GraphBaseURL   string

	// Webhook subscription verification token.
	VerifyToken string

	DatabaseURL string
	Port        string
	WebhookPath string

	// Notification fan-out.
	AmqpURL     string
	QueuePrefix string

	// Optional attachment archiving.
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables. A .env file is
// loaded first if present; real environment variables take precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GraphAppID:     os.Getenv("GRAPH_APP_ID"),
		GraphAppSecret: os.Getenv("GRAPH_APP_SECRET"),
		GraphBaseURL:   os.Getenv("GRAPH_BASE_URL"),
		VerifyToken:    os.Getenv("VERIFY_TOKEN"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Port:           os.Getenv("PORT"),
		WebhookPath:    os.Getenv("WEBHOOK_PATH"),
		AmqpURL:        os.Getenv("AMQP_URL"),
		QueuePrefix:    os.Getenv("AMQP_QUEUE_PREFIX"),
		S3Bucket:       os.Getenv("S3_BUCKET"),
		S3Region:       os.Getenv("S3_REGION"),
		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:    os.Getenv("S3_SECRET_KEY"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogFormat:      os.Getenv("LOG_FORMAT"),
	}

	// The application secret is the single required startup secret.
	if cfg.GraphAppID == "" || cfg.GraphAppSecret == "" {
		return nil, fmt.Errorf("GRAPH_APP_ID and GRAPH_APP_SECRET must be set")
	}

	if cfg.GraphBaseURL == "" {
		cfg.GraphBaseURL = "https://graph.facebook.com/v12.0"
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "pageinbox.db"
		log.Info().Str("database_url", cfg.DatabaseURL).Msg("DATABASE_URL not set, using default")
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/webhooks/facebook"
		log.Info().Str("path", cfg.WebhookPath).Msg("WEBHOOK_PATH not set, using default")
	}
	if cfg.QueuePrefix == "" {
		cfg.QueuePrefix = "pageinbox"
	}

	return cfg, nil
}
