package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Log       LogConfig
	Lifecycle LifecycleConfig
	Warnings  WarningConfig
	Mail      MailConfig
	Summary   SummaryConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

type JWTConfig struct {
	Secret string
}

type LogConfig struct {
	Level  string
	Format string
}

// LifecycleConfig governs the daily request transition jobs.
type LifecycleConfig struct {
	TriggerTime      string
	GraceDays        int
	ReminderLeadDays int
	RetryBackoff     time.Duration
	BatchLimit       int
}

// WarningConfig governs the periodic attendance warning sweep.
type WarningConfig struct {
	CheckInterval time.Duration
	DedupCooldown time.Duration
	TermID        string
}

// MailConfig configures the optional SMTP sender for reminder mails.
type MailConfig struct {
	Enabled bool
	Host    string
	Port    int
	From    string
}

// SummaryConfig controls the daily transition summary export.
type SummaryConfig struct {
	Enabled    bool
	StorageDir string
	Retries    int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		Enabled:  v.GetBool("REDIS_DEDUP_ENABLED"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Lifecycle = LifecycleConfig{
		TriggerTime:      v.GetString("LIFECYCLE_TRIGGER_TIME"),
		GraceDays:        v.GetInt("LIFECYCLE_GRACE_DAYS"),
		ReminderLeadDays: v.GetInt("LIFECYCLE_REMINDER_LEAD_DAYS"),
		RetryBackoff:     parseDuration(v.GetString("LIFECYCLE_RETRY_BACKOFF"), 30*time.Second),
		BatchLimit:       v.GetInt("LIFECYCLE_BATCH_LIMIT"),
	}

	cfg.Warnings = WarningConfig{
		CheckInterval: parseDuration(v.GetString("WARNING_CHECK_INTERVAL"), 6*time.Hour),
		DedupCooldown: parseDuration(v.GetString("WARNING_DEDUP_COOLDOWN"), 24*time.Hour),
		TermID:        v.GetString("WARNING_TERM_ID"),
	}

	cfg.Mail = MailConfig{
		Enabled: v.GetBool("MAIL_ENABLED"),
		Host:    v.GetString("MAIL_HOST"),
		Port:    v.GetInt("MAIL_PORT"),
		From:    v.GetString("MAIL_FROM"),
	}

	cfg.Summary = SummaryConfig{
		Enabled:    v.GetBool("SUMMARY_ENABLED"),
		StorageDir: v.GetString("SUMMARY_STORAGE_DIR"),
		Retries:    v.GetInt("SUMMARY_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8081)
	v.SetDefault("API_PREFIX", "/ops")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "cets")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DEDUP_ENABLED", false)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LIFECYCLE_TRIGGER_TIME", "00:00")
	v.SetDefault("LIFECYCLE_GRACE_DAYS", 14)
	v.SetDefault("LIFECYCLE_REMINDER_LEAD_DAYS", 3)
	v.SetDefault("LIFECYCLE_RETRY_BACKOFF", "30s")
	v.SetDefault("LIFECYCLE_BATCH_LIMIT", 500)

	v.SetDefault("WARNING_CHECK_INTERVAL", "6h")
	v.SetDefault("WARNING_DEDUP_COOLDOWN", "24h")
	v.SetDefault("WARNING_TERM_ID", "")

	v.SetDefault("MAIL_ENABLED", false)
	v.SetDefault("MAIL_HOST", "localhost")
	v.SetDefault("MAIL_PORT", 25)
	v.SetDefault("MAIL_FROM", "noreply@cets.local")

	v.SetDefault("SUMMARY_ENABLED", false)
	v.SetDefault("SUMMARY_STORAGE_DIR", "./summaries")
	v.SetDefault("SUMMARY_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
