package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything main needs to wire the engine.
type Config struct {
	HTTPPort        string
	RedisAddr       string
	RedisPassword   string
	BackendBaseURL  string
	PositionAgent   string
	RequestTimeout  time.Duration
	RefreshInterval time.Duration
	ShutdownTimeout time.Duration
}

// Load reads .env when present, then the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		BackendBaseURL:  getEnv("BACKEND_BASE_URL", "http://localhost:3000"),
		PositionAgent:   getEnv("POSITION_AGENT_URL", "http://localhost:7700"),
		RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
		RefreshInterval: getDuration("PRICE_REFRESH_SECONDS", 5*time.Minute),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
