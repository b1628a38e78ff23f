package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is loaded once at startup and injected into the components that
// need it. No package reads the environment after Load returns.
type Config struct {
	DatabaseURL string
	HTTPPort    string
	JWTSecret   string
	// JWTTTL keeps tokens short-lived; they prove identity, not
	// authorization, so there is no reason for day-long sessions.
	JWTTTL     time.Duration
	LogLevel   string
	LoginRate  float64 // login attempts per second per IP
	LoginBurst int

	SeedAdminEmail    string
	SeedAdminPassword string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		HTTPPort:          getenv("HTTP_PORT", "8080"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		JWTTTL:            time.Hour,
		LogLevel:          os.Getenv("LOG_LEVEL"),
		LoginRate:         1,
		LoginBurst:        5,
		SeedAdminEmail:    getenv("SEED_ADMIN_EMAIL", "root@backoffice.local"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is empty")
	}
	if s := os.Getenv("JWT_EXPIRES_IN"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.JWTTTL = d
		}
	}
	if s := os.Getenv("LOGIN_RATE"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
			cfg.LoginRate = v
		}
	}
	if s := os.Getenv("LOGIN_BURST"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			cfg.LoginBurst = v
		}
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
