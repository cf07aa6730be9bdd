package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Sending  SendingConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Path string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// DefaultBCC is applied when a sequence carries no BCC of its own.
	DefaultBCC string
}

type SendingConfig struct {
	MaxEmailsPerDay  int
	WindowStartHour  int
	WindowEndHour    int
	Timezone         string
	DispatchInterval time.Duration
	// SlotGrace pushes a freshly allocated slot that already lies in the
	// past forward so a new cohort is not fired in one burst.
	SlotGrace time.Duration
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./coldreach.db"),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", "smtp.example.com"),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			From:       getEnv("SMTP_FROM", ""),
			DefaultBCC: getEnv("SMTP_BCC", ""),
		},
		Sending: SendingConfig{
			MaxEmailsPerDay:  getEnvAsInt("MAX_EMAILS_PER_DAY", 100),
			WindowStartHour:  getEnvAsInt("SEND_WINDOW_START_HOUR", 9),
			WindowEndHour:    getEnvAsInt("SEND_WINDOW_END_HOUR", 21),
			Timezone:         getEnv("SEND_TIMEZONE", "Europe/Paris"),
			DispatchInterval: time.Duration(getEnvAsInt("DISPATCH_INTERVAL_MINUTES", 5)) * time.Minute,
			SlotGrace:        time.Duration(getEnvAsInt("SLOT_GRACE_MINUTES", 30)) * time.Minute,
		},
	}

	if AppConfig.Sending.WindowStartHour >= AppConfig.Sending.WindowEndHour {
		return fmt.Errorf("invalid send window: start hour %d must be before end hour %d",
			AppConfig.Sending.WindowStartHour, AppConfig.Sending.WindowEndHour)
	}
	if _, err := time.LoadLocation(AppConfig.Sending.Timezone); err != nil {
		return fmt.Errorf("invalid SEND_TIMEZONE %q: %w", AppConfig.Sending.Timezone, err)
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
