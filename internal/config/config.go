package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	HTTPAddr string

	BotToken        string
	BotUsername     string
	WebhookSecret   string
	UsersboxURL     string
	UsersboxToken   string
	AdminUsername   string
	RequiredChannel string

	PollingMode    bool
	WorkerPoolSize int
	Debug          bool
}

// Load reads the environment (plus .env when present). Credentials and
// identifiers without a sane default are required; a missing one is a fatal
// configuration error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "usersbox_bot"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		BotUsername:   getEnv("BOT_USERNAME", "search1_test_bot"),
		PollingMode:   getEnv("POLLING_MODE", "") == "true",
		Debug:         getEnv("DEBUG", "") == "true",
	}

	var err error
	if cfg.BotToken, err = requireEnv("TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.WebhookSecret, err = requireEnv("WEBHOOK_SECRET"); err != nil {
		return nil, err
	}
	if cfg.UsersboxToken, err = requireEnv("USERSBOX_TOKEN"); err != nil {
		return nil, err
	}
	if cfg.UsersboxURL, err = requireEnv("USERSBOX_BASE_URL"); err != nil {
		return nil, err
	}
	if cfg.AdminUsername, err = requireEnv("ADMIN_USERNAME"); err != nil {
		return nil, err
	}
	if cfg.RequiredChannel, err = requireEnv("REQUIRED_CHANNEL"); err != nil {
		return nil, err
	}

	poolSize := getEnv("WORKER_POOL_SIZE", "8")
	cfg.WorkerPoolSize, err = strconv.Atoi(poolSize)
	if err != nil || cfg.WorkerPoolSize <= 0 {
		return nil, fmt.Errorf("invalid WORKER_POOL_SIZE: %q", poolSize)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func requireEnv(key string) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return "", fmt.Errorf("missing required configuration: %s", key)
	}
	return value, nil
}
