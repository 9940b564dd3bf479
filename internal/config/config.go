package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Triage    TriageConfig
	Oracle    OracleConfig
	SMTP      SMTPConfig
	Upload    UploadConfig
	Worker    WorkerConfig
	Dashboard DashboardConfig
	Notify    NotifyConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// TriageConfig holds the workflow thresholds. The gate conditions read them
// from here; nothing in workflow logic hardcodes them.
type TriageConfig struct {
	CriticalThreshold        float64
	QueueConfidenceThreshold float64
	DraftConfidenceThreshold float64
	RetrievalLimit           int
}

// OracleConfig points at the external scoring/drafting services.
type OracleConfig struct {
	ScoringURL     string
	DraftingURL    string
	TimeoutSeconds int
}

// SMTPConfig configures the outbound response sender. When disabled the
// sender logs emails instead of delivering them.
type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// UploadConfig controls ticket attachment storage.
type UploadConfig struct {
	Dir           string
	MaxFileSizeMB int
}

// WorkerConfig controls the auto-send background worker.
type WorkerConfig struct {
	AutoSendEnabled         bool
	AutoSendIntervalSeconds int
	AutoSendBatchSize       int
}

// DashboardConfig controls aggregate caching.
type DashboardConfig struct {
	CacheTTLSeconds int
}

// NotifyConfig holds the optional webhook the notification service posts
// workflow milestones to.
type NotifyConfig struct {
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "triage-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Triage: TriageConfig{
			CriticalThreshold:        getEnvAsFloat("TRIAGE_CRITICAL_THRESHOLD", 0.5),
			QueueConfidenceThreshold: getEnvAsFloat("TRIAGE_QUEUE_CONFIDENCE_THRESHOLD", 0.7),
			DraftConfidenceThreshold: getEnvAsFloat("TRIAGE_DRAFT_CONFIDENCE_THRESHOLD", 0.7),
			RetrievalLimit:           getEnvAsInt("TRIAGE_RETRIEVAL_LIMIT", 3),
		},
		Oracle: OracleConfig{
			ScoringURL:     getEnv("ORACLE_SCORING_URL", "http://127.0.0.1:9000/predict"),
			DraftingURL:    getEnv("ORACLE_DRAFTING_URL", "http://127.0.0.1:9001/generate"),
			TimeoutSeconds: getEnvAsInt("ORACLE_TIMEOUT_SECONDS", 20),
		},
		SMTP: SMTPConfig{
			Enabled:  getEnvAsBool("SMTP_ENABLED", false),
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "noreply@itsupport.com"),
		},
		Upload: UploadConfig{
			Dir:           getEnv("UPLOAD_DIR", "./uploads"),
			MaxFileSizeMB: getEnvAsInt("MAX_FILE_SIZE_MB", 10),
		},
		Worker: WorkerConfig{
			AutoSendEnabled:         getEnvAsBool("AUTOSEND_ENABLED", true),
			AutoSendIntervalSeconds: getEnvAsInt("AUTOSEND_INTERVAL_SECONDS", 60),
			AutoSendBatchSize:       getEnvAsInt("AUTOSEND_BATCH_SIZE", 20),
		},
		Dashboard: DashboardConfig{
			CacheTTLSeconds: getEnvAsInt("DASHBOARD_CACHE_TTL_SECONDS", 30),
		},
		Notify: NotifyConfig{
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if cfg.Triage.CriticalThreshold < 0 || cfg.Triage.CriticalThreshold > 1 {
		return nil, fmt.Errorf("TRIAGE_CRITICAL_THRESHOLD out of range: %f", cfg.Triage.CriticalThreshold)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call oracle timeout.
func (o OracleConfig) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Interval returns the auto-send sweep interval.
func (w WorkerConfig) Interval() time.Duration {
	if w.AutoSendIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(w.AutoSendIntervalSeconds) * time.Second
}

// CacheTTL returns the dashboard cache lifetime.
func (d DashboardConfig) CacheTTL() time.Duration {
	if d.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.CacheTTLSeconds) * time.Second
}

// MaxFileSizeBytes returns the attachment size cap.
func (u UploadConfig) MaxFileSizeBytes() int64 {
	return int64(u.MaxFileSizeMB) * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
