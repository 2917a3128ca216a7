package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hugh/salespulse/pkg/util"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Storage    StorageConfig
	Jobs       JobsConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// AppConfig holds settings for the activity calendar.
type AppConfig struct {
	Timezone string
	location *time.Location
}

type DatabaseConfig struct {
	URL                   string
	Host                  string
	Port                  int
	User                  string
	Password              string
	Name                  string
	SSLMode               string
	MaxOpenConns          int
	MaxIdleConns          int
	ConnectTimeoutSeconds int
	AutoMigrate           bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// EncryptionConfig holds the age identity used for activity metadata.
// RetiredKeys still decrypt but never encrypt.
type EncryptionConfig struct {
	Key         string
	RetiredKeys []string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// StorageConfig configures S3 uploads for hub resources. Uploads are
// disabled when Bucket is empty.
type StorageConfig struct {
	Bucket            string
	Region            string
	Endpoint          string
	AccessKeyID       string
	SecretAccessKey   string
	PublicBaseURL     string
	PresignTTLMinutes int
}

type JobsConfig struct {
	AuditCron  string
	AuditWeeks int
}

// DSN returns the connection string. DATABASE_URL wins over the discrete
// fields; the connect timeout is appended when the URL does not set one.
func (d *DatabaseConfig) DSN() string {
	if d.URL != "" {
		if d.ConnectTimeoutSeconds <= 0 || strings.Contains(d.URL, "connect_timeout") {
			return d.URL
		}
		sep := "?"
		if strings.Contains(d.URL, "?") {
			sep = "&"
		}
		return fmt.Sprintf("%s%sconnect_timeout=%d", d.URL, sep, d.ConnectTimeoutSeconds)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode, d.ConnectTimeoutSeconds,
	)
}

// MigrationURL returns the DSN in URL form, as required by golang-migrate.
func (d *DatabaseConfig) MigrationURL() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// SafeHost is the database host for log lines, without credentials.
func (d *DatabaseConfig) SafeHost() string {
	if d.URL != "" {
		if u, err := url.Parse(d.URL); err == nil {
			return u.Host
		}
		return "database-url"
	}
	return d.Host
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

// Location is the time zone that defines calendar days and week starts.
func (a *AppConfig) Location() *time.Location {
	if a.location == nil {
		return time.UTC
	}
	return a.location
}

func (s *StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

func (s *StorageConfig) PresignTTL() time.Duration {
	return time.Duration(s.PresignTTLMinutes) * time.Minute
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("APP_TIMEZONE", "UTC")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "salespulse")
	v.SetDefault("DATABASE_PASSWORD", "salespulse_secret")
	v.SetDefault("DATABASE_NAME", "salespulse")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("DATABASE_MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE_MAX_IDLE_CONNS", 10)
	v.SetDefault("DATABASE_CONNECT_TIMEOUT_SECONDS", 2)
	v.SetDefault("DATABASE_AUTO_MIGRATE", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("ENCRYPTION_KEY", "")
	v.SetDefault("ENCRYPTION_RETIRED_KEYS", "")
	v.SetDefault("RATE_LIMIT_REQUESTS", 300)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 28)
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")
	v.SetDefault("S3_PUBLIC_BASE_URL", "")
	v.SetDefault("S3_PRESIGN_TTL_MINUTES", 15)
	v.SetDefault("ROLLUP_AUDIT_CRON", "30 2 * * *")
	v.SetDefault("ROLLUP_AUDIT_WEEKS", 4)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		App: AppConfig{
			Timezone: v.GetString("APP_TIMEZONE"),
		},
		Database: DatabaseConfig{
			URL:                   v.GetString("DATABASE_URL"),
			Host:                  v.GetString("DATABASE_HOST"),
			Port:                  v.GetInt("DATABASE_PORT"),
			User:                  v.GetString("DATABASE_USER"),
			Password:              v.GetString("DATABASE_PASSWORD"),
			Name:                  v.GetString("DATABASE_NAME"),
			SSLMode:               v.GetString("DATABASE_SSLMODE"),
			MaxOpenConns:          v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:          v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnectTimeoutSeconds: v.GetInt("DATABASE_CONNECT_TIMEOUT_SECONDS"),
			AutoMigrate:           v.GetBool("DATABASE_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Encryption: EncryptionConfig{
			Key:         v.GetString("ENCRYPTION_KEY"),
			RetiredKeys: splitList(v.GetString("ENCRYPTION_RETIRED_KEYS")),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
		Storage: StorageConfig{
			Bucket:            v.GetString("S3_BUCKET"),
			Region:            v.GetString("S3_REGION"),
			Endpoint:          v.GetString("S3_ENDPOINT"),
			AccessKeyID:       v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey:   v.GetString("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:     v.GetString("S3_PUBLIC_BASE_URL"),
			PresignTTLMinutes: v.GetInt("S3_PRESIGN_TTL_MINUTES"),
		},
		Jobs: JobsConfig{
			AuditCron:  v.GetString("ROLLUP_AUDIT_CRON"),
			AuditWeeks: v.GetInt("ROLLUP_AUDIT_WEEKS"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	c.App.location = loc

	if err := util.ValidateCronExpr(c.Jobs.AuditCron); err != nil {
		return fmt.Errorf("invalid ROLLUP_AUDIT_CRON: %w", err)
	}
	if c.Jobs.AuditWeeks < 1 {
		c.Jobs.AuditWeeks = 1
	}
	if c.Database.MaxOpenConns < 1 {
		c.Database.MaxOpenConns = 20
	}
	if c.Server.Env == "production" && c.JWT.Secret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.Server.Env == "production" && c.Encryption.Key == "" {
		return fmt.Errorf("ENCRYPTION_KEY must be set in production")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
