package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DBConfig struct {
		Host     string
		Port     int
		User     string
		Password string
		Name     string
		SSLMode  string
	}

	HTTPPort int

	// Secret used to verify the provider's HMAC-SHA512 webhook signature.
	PaystackWebhookSecret string

	KafkaBrokerURL             string
	KafkaSettlementEventsTopic string

	OutboxPollInterval time.Duration
	OutboxPollTimeout  time.Duration

	// Upper bound for processing one webhook event end to end. The provider
	// retries on timeout, so this just has to beat its client deadline.
	WebhookProcessTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	cfg.DBConfig.Host = getEnvOrDefault("SETTLEMENT_DB_HOST", "localhost")
	cfg.DBConfig.Port = getEnvAsInt("SETTLEMENT_DB_PORT", 5432)
	cfg.DBConfig.User = getEnvOrDefault("SETTLEMENT_DB_USER", "user")
	cfg.DBConfig.Password = getEnvOrDefault("SETTLEMENT_DB_PASSWORD", "password")
	cfg.DBConfig.Name = getEnvOrDefault("SETTLEMENT_DB_NAME", "settlement_db")
	cfg.DBConfig.SSLMode = getEnvOrDefault("SETTLEMENT_DB_SSLMODE", "disable")

	cfg.HTTPPort = getEnvAsInt("SETTLEMENT_HTTP_PORT", 8083)

	cfg.PaystackWebhookSecret = os.Getenv("PAYSTACK_WEBHOOK_SECRET")
	if cfg.PaystackWebhookSecret == "" {
		return nil, fmt.Errorf("PAYSTACK_WEBHOOK_SECRET must be set")
	}

	cfg.KafkaBrokerURL = getEnvOrDefault("KAFKA_BROKER_URL", "localhost:9092")
	cfg.KafkaSettlementEventsTopic = getEnvOrDefault("KAFKA_SETTLEMENT_EVENTS_TOPIC", "settlement_events")

	cfg.OutboxPollInterval = getEnvAsDuration("OUTBOX_POLL_INTERVAL", 1*time.Second)
	cfg.OutboxPollTimeout = getEnvAsDuration("OUTBOX_POLL_TIMEOUT", 500*time.Millisecond)

	cfg.WebhookProcessTimeout = getEnvAsDuration("SETTLEMENT_WEBHOOK_PROCESS_TIMEOUT", 10*time.Second)

	return cfg, nil
}

func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetDBMigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBConfig.User, c.DBConfig.Password, c.DBConfig.Host, c.DBConfig.Port, c.DBConfig.Name, c.DBConfig.SSLMode)
}

func (c *Config) GetKafkaBrokers() []string {
	return strings.Split(c.KafkaBrokerURL, ",")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnvOrDefault(key, strconv.Itoa(defaultValue))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnvOrDefault(key, defaultValue.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
