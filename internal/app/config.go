package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"yomitore/internal/dataset"
	"yomitore/internal/db"
	"yomitore/internal/quiz"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	AppEnv   string
	HTTPAddr string

	DatasetSource       string
	QuestionColumn      int
	DisplayColumn       int
	ReadingColumn       int
	DatasetFetchTimeout time.Duration

	RevealEnabled     bool
	RevealInterval    time.Duration
	RevealMinInterval time.Duration
	RevealMaxInterval time.Duration
	SessionTTL        time.Duration

	DBDSN             string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifeMins int

	CSRFEnforced       bool
	APIRateLimitPerMin int

	// AdminTokenHash is a bcrypt hash of the admin token. Empty disables
	// the admin routes.
	AdminTokenHash string
}

func LoadConfig() Config {
	return Config{
		AppEnv:              envOrDefault("APP_ENV", "development"),
		HTTPAddr:            envOrDefault("HTTP_ADDR", ":8080"),
		DatasetSource:       envOrDefault("DATASET_SOURCE", "data/questions.csv"),
		QuestionColumn:      columnOrDefault("DATASET_QUESTION_COLUMN", 0),
		DisplayColumn:       columnOrDefault("DATASET_DISPLAY_COLUMN", 1),
		ReadingColumn:       columnOrDefault("DATASET_READING_COLUMN", 2),
		DatasetFetchTimeout: time.Duration(intOrDefault("DATASET_FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		RevealEnabled:       boolOrDefault("REVEAL_ENABLED", false),
		RevealInterval:      time.Duration(intOrDefault("REVEAL_INTERVAL_MS", 100)) * time.Millisecond,
		RevealMinInterval:   time.Duration(intOrDefault("REVEAL_MIN_INTERVAL_MS", 20)) * time.Millisecond,
		RevealMaxInterval:   time.Duration(intOrDefault("REVEAL_MAX_INTERVAL_MS", 1000)) * time.Millisecond,
		SessionTTL:          time.Duration(intOrDefault("SESSION_TTL_MINUTES", 120)) * time.Minute,
		DBDSN:               strings.TrimSpace(os.Getenv("DB_DSN")),
		DBMaxOpenConns:      intOrDefault("DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:      intOrDefault("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifeMins:   intOrDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30),
		CSRFEnforced:        boolOrDefault("CSRF_ENFORCED", false),
		APIRateLimitPerMin:  intOrDefault("API_RATE_LIMIT_PER_MINUTE", 600),
		AdminTokenHash:      strings.TrimSpace(os.Getenv("ADMIN_TOKEN_HASH")),
	}
}

func (c Config) Columns() dataset.Columns {
	return dataset.Columns{Question: c.QuestionColumn, Display: c.DisplayColumn, Reading: c.ReadingColumn}
}

func (c Config) Reveal() quiz.RevealSettings {
	return quiz.RevealSettings{Enabled: c.RevealEnabled, Interval: c.RevealInterval}
}

func (c Config) Pool() db.PoolConfig {
	return db.PoolConfig{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(c.DBConnMaxLifeMins) * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsToInt(v string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(v))
	return n
}

func intOrDefault(key string, fallback int) int {
	v := stringsToInt(os.Getenv(key))
	if v <= 0 {
		return fallback
	}
	return v
}

// columnOrDefault accepts 0 as a valid index.
func columnOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func boolOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
