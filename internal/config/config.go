// Package config provides configuration management for the webhook gateway.
// It loads configuration from environment variables with sensible defaults and
// validates it so that the process refuses to start with an unusable setup.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 3978)
//   - TLS_CERT, TLS_KEY: Certificate and key files; both or neither
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Append logs to this file instead of stdout
//   - BASE_URL: Public URL of the gateway, used to build webhook URLs (required)
//
// Bot Platform:
//   - BOT_APP_ID: Application (client) id of the bot (required); also the expected
//     audience of inbound tokens
//   - BOT_APP_PASSWORD: Client secret of the bot (required)
//   - AUTH_ISSUER: Expected issuer of inbound tokens (default: https://api.botframework.com)
//   - JWKS_URL: Signing keys of inbound tokens
//     (default: https://login.botframework.com/v1/.well-known/keys)
//   - TOKEN_URL: Client-credentials endpoint for outbound calls
//     (default: https://login.microsoftonline.com/botframework.com/oauth2/v2.0/token)
//   - TOKEN_SCOPE: Scope requested for outbound calls
//     (default: https://api.botframework.com/.default)
//   - SERVICE_URL_OVERRIDE: Replaces the service URL of every outbound call (development)
//
// Storage:
//   - STORE_BACKEND: "redis" or "memory" (default: redis)
//   - REDIS_ADDRESS: Redis server address (default: localhost:6379)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Webhooks:
//   - MAX_WEBHOOKS_PER_CONVERSATION: Soft limit per conversation (default: 5)
//   - MAX_MESSAGE_CHARS: Character ceiling of webhook request bodies (default: 5000)
//   - DELIVERY_WORKERS: Background delivery workers (default: 4)
//   - DELIVERY_QUEUE_SIZE: Pending background deliveries (default: 100)
//   - AUTO_PROVISION_WEBHOOK: Create a webhook when the bot joins a conversation
//     (default: false)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"webhook-gateway/internal/common/validation"
)

// Store backends accepted in STORE_BACKEND
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds all configuration values for the gateway.
//
// The configuration is loaded using Load() and should be validated using the
// Validate() method before use.
type Config struct {
	// Application settings
	Port     string
	TLSCert  string
	TLSKey   string
	LogLevel string
	LogFile  string
	BaseURL  string

	// Bot platform credentials and endpoints
	BotAppID           string
	BotAppPassword     string
	AuthIssuer         string
	JWKSURL            string
	TokenURL           string
	TokenScope         string
	ServiceURLOverride string

	// Storage backend
	StoreBackend  string
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Webhook behaviour
	MaxWebhooksPerConversation int
	MaxMessageChars            int
	DeliveryWorkers            int
	DeliveryQueueSize          int
	AutoProvisionWebhook       bool

	// invalid collects variables whose values could not be parsed
	invalid []string
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	c := &Config{
		Port:     getEnv("PORT", "3978"),
		TLSCert:  getEnv("TLS_CERT", ""),
		TLSKey:   getEnv("TLS_KEY", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
		BaseURL:  strings.TrimSuffix(getEnv("BASE_URL", ""), "/"),

		BotAppID:           getEnv("BOT_APP_ID", ""),
		BotAppPassword:     getEnv("BOT_APP_PASSWORD", ""),
		AuthIssuer:         getEnv("AUTH_ISSUER", "https://api.botframework.com"),
		JWKSURL:            getEnv("JWKS_URL", "https://login.botframework.com/v1/.well-known/keys"),
		TokenURL:           getEnv("TOKEN_URL", "https://login.microsoftonline.com/botframework.com/oauth2/v2.0/token"),
		TokenScope:         getEnv("TOKEN_SCOPE", "https://api.botframework.com/.default"),
		ServiceURLOverride: getEnv("SERVICE_URL_OVERRIDE", ""),

		StoreBackend:  strings.ToLower(getEnv("STORE_BACKEND", BackendRedis)),
		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
	}

	c.RedisDB = c.getIntEnv("REDIS_DB", 0)
	c.RedisPoolSize = c.getIntEnv("REDIS_POOL_SIZE", 10)
	c.MaxWebhooksPerConversation = c.getIntEnv("MAX_WEBHOOKS_PER_CONVERSATION", 5)
	c.MaxMessageChars = c.getIntEnv("MAX_MESSAGE_CHARS", 5000)
	c.DeliveryWorkers = c.getIntEnv("DELIVERY_WORKERS", 4)
	c.DeliveryQueueSize = c.getIntEnv("DELIVERY_QUEUE_SIZE", 100)
	c.AutoProvisionWebhook = getBoolEnv("AUTO_PROVISION_WEBHOOK", false)

	return c
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
// Any value strconv.ParseBool does not understand yields the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable. Unparseable values are
// remembered and reported by Validate.
func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		c.invalid = append(c.invalid, key)
		return defaultValue
	}
	return parsed
}

// Validate performs validation on the configuration to ensure all required fields
// are present and all values are usable.
//
// This method checks:
//   - Required bot credentials and the public base URL
//   - URL formats of the platform endpoints
//   - Ranges of numeric settings
//   - Backend selection and its dependencies
//
// Returns a descriptive error listing every problem found, nil if the configuration
// is valid.
func (c *Config) Validate() error {
	v := validation.NewValidator()

	for _, key := range c.invalid {
		v.AddError(fmt.Errorf("%s must be an integer", key))
	}

	v.RequireString(c.BotAppID, "BOT_APP_ID").
		RequireString(c.BotAppPassword, "BOT_APP_PASSWORD").
		RequireURL(c.BaseURL, "BASE_URL").
		RequireString(c.AuthIssuer, "AUTH_ISSUER").
		RequireURL(c.JWKSURL, "JWKS_URL").
		RequireURL(c.TokenURL, "TOKEN_URL").
		RequireString(c.TokenScope, "TOKEN_SCOPE").
		OptionalURL(c.ServiceURLOverride, "SERVICE_URL_OVERRIDE").
		RequireTogether(c.TLSCert, "TLS_CERT", c.TLSKey, "TLS_KEY").
		RequireOneOf(c.StoreBackend, []string{BackendRedis, BackendMemory}, "STORE_BACKEND").
		RequireRange(c.MaxWebhooksPerConversation, 1, 100, "MAX_WEBHOOKS_PER_CONVERSATION").
		RequirePositive(c.MaxMessageChars, "MAX_MESSAGE_CHARS").
		RequirePositive(c.DeliveryWorkers, "DELIVERY_WORKERS").
		RequirePositive(c.DeliveryQueueSize, "DELIVERY_QUEUE_SIZE")

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		v.AddError(fmt.Errorf("PORT must be a valid port number between 1 and 65535"))
	}

	if c.StoreBackend == BackendRedis {
		v.RequireString(c.RedisAddress, "REDIS_ADDRESS").
			RequireRange(c.RedisDB, 0, 15, "REDIS_DB").
			RequirePositive(c.RedisPoolSize, "REDIS_POOL_SIZE")
	}

	return v.Error()
}
