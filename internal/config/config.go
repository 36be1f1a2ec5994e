package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the dev server
type Config struct {
	// HTTP listen address
	ListenAddr string

	// Database Configuration
	Database DatabaseConfig

	// Auth Configuration
	Auth AuthConfig

	// Seed file with initial users (YAML), optional
	SeedFile string

	// Logging Configuration
	Logging LoggingConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds token-signing configuration
type AuthConfig struct {
	JWTSecret string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	listenAddr := os.Getenv("DEVSERVER_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "dropvault-dev.sqlite"
	}

	// A fixed default is fine here: the dev server never guards real
	// accounts.
	jwtSecret := os.Getenv("DEVSERVER_JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dropvault-dev-secret"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "console"
	}

	return &Config{
		ListenAddr: listenAddr,
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
		},
		SeedFile: os.Getenv("DEVSERVER_SEED"),
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
	}, nil
}
