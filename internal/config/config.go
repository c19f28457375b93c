package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the server needs at startup. Values come from
// the environment, with a .env file as a development convenience.
type Config struct {
	Addr             string
	DBDSN            string
	RedisAddr        string
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	ClientURL string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string
}

func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:             getEnv("ADDR", ":8080"),
		DBDSN:            os.Getenv("DB_DSN"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTRefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		ClientURL:        getEnv("CLIENT_URL", "http://localhost:3000"),
		SMTPHost:         os.Getenv("EMAIL_HOST"),
		SMTPUser:         os.Getenv("EMAIL_USER"),
		SMTPPass:         os.Getenv("EMAIL_PASS"),
		MailFrom:         getEnv("EMAIL_FROM", "Socket Talk <no-reply@sockettalk.app>"),
	}

	cfg.SMTPPort = 587
	if v := os.Getenv("EMAIL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.SMTPPort = p
		}
	}

	// The refresh secret may be omitted in dev; fall back to the main one.
	if cfg.JWTRefreshSecret == "" {
		cfg.JWTRefreshSecret = cfg.JWTSecret
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
