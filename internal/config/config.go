package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	BaseURL      string
	DBPath       string
	UploadDir    string
	CSRFKey      []byte
	SessionKey   []byte
	CookieDomain string
	CookieSecure bool
	LogLevel     slog.Level

	// Seeded when the admins table is empty.
	AdminUsername string
	AdminPassword string

	MaxUploadBytes        int64
	OrderRatePerMinute    int
	OrderRateBurst        int
	NotificationRetention time.Duration
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn(".env file could not be loaded", "error", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8585"),
		DBPath:        getEnv("DB_PATH", "./laundry.db"),
		UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
		CookieDomain:  getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:  getEnv("COOKIE_SECURE", "false") == "true",
		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		LogLevel:      parseLevel(getEnv("LOG_LEVEL", "debug")),

		MaxUploadBytes:        int64(getInt("MAX_UPLOAD_MB", 10)) << 20,
		OrderRatePerMinute:    getInt("ORDER_RATE_PER_MIN", 6),
		OrderRateBurst:        getInt("ORDER_RATE_BURST", 3),
		NotificationRetention: time.Duration(getInt("NOTIFICATION_RETENTION_DAYS", 30)) * 24 * time.Hour,
	}

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", cfg.Port)
		cfg.Port = "8585"
	}
	cfg.BaseURL = strings.TrimRight(getEnv("BASE_URL", "http://localhost:"+cfg.Port), "/")

	cfg.CSRFKey = loadKey("CSRF_KEY")
	cfg.SessionKey = loadKey("SESSION_KEY")

	if cfg.AdminUsername != "" && cfg.AdminPassword == "" {
		return nil, errors.New("ADMIN_USERNAME is set but ADMIN_PASSWORD is empty")
	}

	return cfg, nil
}

// loadKey decodes a base64 key of at least 32 bytes. Anything else gets a
// random key that changes on every restart.
func loadKey(name string) []byte {
	raw := os.Getenv(name)
	if raw == "" {
		slog.Warn(name + " environment variable not set. Generating a random key for development. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(decoded) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes). Generating a random key for development.")
		return generateRandomBytes(32)
	}
	return decoded
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("Invalid numeric environment variable. Falling back to default.", "key", key, "value", value, "default", defaultValue)
		return defaultValue
	}
	return n
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		slog.Warn("Invalid LOG_LEVEL, using debug", "value", s)
		return slog.LevelDebug
	}
	return level
}

// generateRandomBytes uses crypto/rand; failure there means the process
// cannot produce secure keys at all.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return b
}
