package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries process-level settings. JWT settings live in the auth
// package, which reads the environment directly.
type Config struct {
	Port      string
	DBPath    string
	UploadDir string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
}

// Load reads .env if present, then the environment, with defaults suitable
// for local development.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	return &Config{
		Port:         getEnv("PORT", "8008"),
		DBPath:       getEnv("DB_PATH", "tripstars.db"),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
