package config

import (
	"errors"
	"fmt"
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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Calendar   CalendarConfig
	Cache      CacheConfig
	Exports    ExportsConfig
	Recurrence RecurrenceConfig
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
}

// JWTConfig holds the settings needed to verify access tokens issued by the
// identity provider. Tokens are never minted here.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CalendarConfig controls how calendar days are resolved.
type CalendarConfig struct {
	Timezone string
	Location *time.Location
}

// CacheConfig governs caching of derived class views.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	RolloverCron string
}

// ExportsConfig toggles roster and schedule exports and signs feed links.
type ExportsConfig struct {
	Enabled           bool
	FeedSigningSecret string
	FeedTokenTTL      time.Duration
}

// RecurrenceConfig bounds recurring session generation.
type RecurrenceConfig struct {
	MaxOccurrences int
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
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
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	tz := v.GetString("CALENDAR_TIMEZONE")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load CALENDAR_TIMEZONE %q: %w", tz, err)
	}
	cfg.Calendar = CalendarConfig{Timezone: tz, Location: loc}

	cfg.Cache = CacheConfig{
		Enabled:      v.GetBool("ENABLE_CACHE"),
		TTL:          parseDuration(v.GetString("CLASS_VIEW_CACHE_TTL"), 5*time.Minute),
		RolloverCron: v.GetString("CACHE_ROLLOVER_CRON"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:           v.GetBool("ENABLE_EXPORTS"),
		FeedSigningSecret: v.GetString("FEED_SIGNING_SECRET"),
		FeedTokenTTL:      parseDuration(v.GetString("FEED_TOKEN_TTL"), 90*24*time.Hour),
	}
	if cfg.Env == EnvProduction && cfg.Exports.Enabled && strings.TrimSpace(cfg.Exports.FeedSigningSecret) == "" {
		return nil, errors.New("FEED_SIGNING_SECRET is required in production")
	}

	maxOccurrences := v.GetInt("RECURRENCE_MAX_OCCURRENCES")
	if maxOccurrences <= 0 {
		maxOccurrences = 500
	}
	cfg.Recurrence = RecurrenceConfig{MaxOccurrences: maxOccurrences}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lms")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CALENDAR_TIMEZONE", "UTC")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("CLASS_VIEW_CACHE_TTL", "5m")
	v.SetDefault("CACHE_ROLLOVER_CRON", "0 0 * * *")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("FEED_SIGNING_SECRET", "dev_feed_secret")
	v.SetDefault("FEED_TOKEN_TTL", "2160h")
	v.SetDefault("RECURRENCE_MAX_OCCURRENCES", 500)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
