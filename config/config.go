package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Admin    AdminConfig
	AWS      AWSConfig
	Booking  BookingConfig
	Email    EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings. An empty Addr keeps drafts
// and preferences in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	DraftTTL time.Duration
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AdminConfig is the back-office login. PasswordHash (bcrypt) wins over
// Password, which is hashed at startup.
type AdminConfig struct {
	Email        string
	Password     string
	PasswordHash string
	Role         string
}

// AWSConfig holds AWS credentials and S3 bucket names.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AttachmentsBucket    string
	MediaBucket          string
	PresignExpireMinutes int
}

// Submission modes for the booking form.
const (
	SubmitLocal = "local" // store directly through the bookings service
	SubmitHTTP  = "http"  // POST to APIURL
	SubmitStub  = "stub"  // simulated success after StubDelay
)

// BookingConfig controls the booking form.
type BookingConfig struct {
	AutosaveInterval time.Duration
	SubmitMode       string
	APIURL           string
	APITimeout       time.Duration
	StubDelay        time.Duration
	BlockedDates     []string // YYYY-MM-DD
	TimeZone         string
	// SessionIdle closes booking forms untouched for this long (their drafts stay saved).
	SessionIdle time.Duration
	MaxSessions int
}

// EmailConfig holds booking notification settings (Resend).
type EmailConfig struct {
	ResendAPIKey string
	From         string
	NotifyTo     []string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Location returns the booking time zone, falling back to UTC.
func (c BookingConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Blocked parses BlockedDates in the booking time zone, skipping malformed entries.
func (c BookingConfig) Blocked() []time.Time {
	loc := c.Location()
	out := make([]time.Time, 0, len(c.BlockedDates))
	for _, d := range c.BlockedDates {
		t, err := time.ParseInLocation("2006-01-02", d, loc)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5500"),
		},
		Database: DatabaseConfig{
			URL:      os.Getenv("DATABASE_URL"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ramsoftware"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			DraftTTL: time.Duration(getEnvInt("DRAFT_TTL_HOURS", 24*30)) * time.Hour,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", "admin@ramsoftware.com"),
			Password:     os.Getenv("ADMIN_PASSWORD"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			Role:         getEnv("ADMIN_ROLE", "admin"),
		},
		AWS: AWSConfig{
			Region:               os.Getenv("AWS_REGION"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			AttachmentsBucket:    getEnv("AWS_S3_ATTACHMENTS_BUCKET", "ramsoftware-booking-attachments"),
			MediaBucket:          getEnv("AWS_S3_MEDIA_BUCKET", "ramsoftware-site-media"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Booking: BookingConfig{
			AutosaveInterval: time.Duration(getEnvInt("BOOKING_AUTOSAVE_SEC", 30)) * time.Second,
			SubmitMode:       strings.ToLower(getEnv("BOOKING_SUBMIT_MODE", SubmitLocal)),
			APIURL:           getEnv("BOOKING_API_URL", ""),
			APITimeout:       time.Duration(getEnvInt("BOOKING_API_TIMEOUT_SEC", 30)) * time.Second,
			StubDelay:        time.Duration(getEnvInt("BOOKING_STUB_DELAY_MS", 2000)) * time.Millisecond,
			BlockedDates:     splitTrim(getEnv("BOOKING_BLOCKED_DATES", ""), ","),
			TimeZone:         getEnv("BOOKING_TIMEZONE", "UTC"),
			SessionIdle:      time.Duration(getEnvInt("BOOKING_SESSION_IDLE_MIN", 30)) * time.Minute,
			MaxSessions:      getEnvInt("BOOKING_MAX_SESSIONS", 10000),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "RAM Software <noreply@ramsoftware.com>"),
			NotifyTo:     splitTrim(getEnv("BOOKING_NOTIFY_TO", ""), ","),
		},
	}

	switch cfg.Booking.SubmitMode {
	case SubmitLocal, SubmitStub:
	case SubmitHTTP:
		if cfg.Booking.APIURL == "" {
			return nil, fmt.Errorf("BOOKING_SUBMIT_MODE=http requires BOOKING_API_URL")
		}
	default:
		return nil, fmt.Errorf("unknown BOOKING_SUBMIT_MODE %q", cfg.Booking.SubmitMode)
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
