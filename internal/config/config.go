package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Host        string
	Env         string // "development" or "production"
	FrontendURL string // allowed CORS origin and invite link base
}

// GameConfig holds game-related configuration
type GameConfig struct {
	MinPlayers        int
	MaxPlayers        int
	RevealDelay       time.Duration
	DefaultIdentity   string
	StaleMatchTimeout time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load loads configuration from environment variables with defaults.
// Variables from a .env file in the working directory are applied first
// without overriding the real environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8000"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Env:         getEnv("ENV", "development"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
		Game: GameConfig{
			MinPlayers:        getEnvIntAtLeast("MIN_PLAYERS", 3, 3),
			MaxPlayers:        getEnvIntAtLeast("MAX_PLAYERS", 10, 3),
			RevealDelay:       getEnvDuration("REVEAL_DELAY_SECONDS", 5*time.Second, time.Second),
			DefaultIdentity:   getEnv("DEFAULT_IDENTITY", "Kanye West"),
			StaleMatchTimeout: getEnvDuration("STALE_MATCH_MINUTES", 2*time.Hour, time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as an integer or a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvIntAtLeast is getEnvInt with values below floor raised to floor
func getEnvIntAtLeast(key string, defaultValue, floor int) int {
	if value := getEnvInt(key, defaultValue); value > floor {
		return value
	}
	return floor
}

// getEnvDuration reads an integer count of unit, or returns the default
func getEnvDuration(key string, defaultValue, unit time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return time.Duration(intValue) * unit
		}
	}
	return defaultValue
}
