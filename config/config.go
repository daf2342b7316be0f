package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	JWTSecret      string
	AuthRequired   bool
	LogLevel       string
	InstanceID     string

	// EventBuffer sizes the hub's inbound event channel, SendBuffer each
	// connection's outbound queue.
	EventBuffer int
	SendBuffer  int

	Mongo    MongoConfig
	Redis    RedisConfig
	Presence PresenceConfig
	Broker   BrokerConfig
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Enabled reports whether an Identity Directory backend is configured.
func (m MongoConfig) Enabled() bool {
	return m.URI != ""
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether Redis is configured. Without it the server runs
// as a single instance with purely in-memory presence.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type PresenceConfig struct {
	TTL time.Duration
}

type BrokerConfig struct {
	Kind    string // "redis", "nats" or "none"
	NATSURL string
}

func Load() *Config {
	// Parse allowed origins (comma-separated)
	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	origins := strings.Split(originsStr, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	redisCfg := RedisConfig{
		Host:     getEnv("REDIS_HOST", ""),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	defaultBroker := "none"
	if redisCfg.Enabled() {
		defaultBroker = "redis"
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		AuthRequired:   getEnvBool("AUTH_REQUIRED", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		InstanceID:     getEnv("INSTANCE_ID", uuid.New().String()),
		EventBuffer:    getEnvInt("EVENT_BUFFER", 1024),
		SendBuffer:     getEnvInt("SEND_BUFFER", 256),
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", ""),
			Database: getEnv("MONGO_DATABASE", "social"),
			Timeout:  getEnvDuration("MONGO_TIMEOUT", 5*time.Second),
		},
		Redis: redisCfg,
		Presence: PresenceConfig{
			TTL: getEnvDuration("PRESENCE_TTL", 24*time.Hour),
		},
		Broker: BrokerConfig{
			Kind:    strings.ToLower(getEnv("BROKER", defaultBroker)),
			NATSURL: getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
