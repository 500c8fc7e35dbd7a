package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port       string
	DBDriver   string // postgres | mysql | sqlite
	DBDSN      string // overrides the DB_* parts when set
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret    string
	JWTExpiresIn string // minutes

	// Gatepass guardian links
	ActionTokenSecret   string
	ActionTokenTTLHours string
	FrontendURL         string

	HostelFee string

	// Outbound mail
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	MailWorkers   string
	MailQueueSize string

	RateLimitPerSec   string
	RateLimitBurst    string
	RoomsCacheSeconds string
	RoomsSeedFile     string
	LogLevel          string
}

func Load() *Config {
	return &Config{
		Port:                getenv("PORT", "5000"),
		DBDriver:            strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DBDSN:               getenv("DB_DSN", ""),
		DBHost:              getenv("DB_HOST", "localhost"),
		DBPort:              getenv("DB_PORT", "5432"),
		DBUser:              getenv("DB_USER", "postgres"),
		DBPassword:          getenv("DB_PASSWORD", "postgres"),
		DBName:              getenv("DB_NAME", "college_portal"),
		DBSSLMode:           getenv("DB_SSLMODE", "disable"),
		JWTSecret:           getenv("JWT_SECRET", "supersecret_change_me"),
		JWTExpiresIn:        getenv("JWT_EXPIRES_IN", "10080"),
		ActionTokenSecret:   getenv("ACTION_TOKEN_SECRET", getenv("JWT_SECRET", "supersecret_change_me")+"_gatepass"),
		ActionTokenTTLHours: getenv("ACTION_TOKEN_TTL_HOURS", "72"),
		FrontendURL:         strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:5173"), "/"),
		HostelFee:           getenv("HOSTEL_FEE", "5000"),
		SMTPHost:            getenv("SMTP_HOST", ""),
		SMTPPort:            getenv("SMTP_PORT", "587"),
		SMTPUser:            getenv("SMTP_USER", ""),
		SMTPPass:            getenv("SMTP_PASS", ""),
		SMTPFrom:            getenv("SMTP_FROM", ""),
		MailWorkers:         getenv("MAIL_WORKERS", "2"),
		MailQueueSize:       getenv("MAIL_QUEUE_SIZE", "100"),
		RateLimitPerSec:     getenv("RATE_LIMIT_PER_SEC", "5"),
		RateLimitBurst:      getenv("RATE_LIMIT_BURST", "10"),
		RoomsCacheSeconds:   getenv("ROOMS_CACHE_SECONDS", "30"),
		RoomsSeedFile:       getenv("ROOMS_SEED_FILE", ""),
		LogLevel:            strings.ToLower(getenv("LOG_LEVEL", "info")),
	}
}

// TokenTTL is the session token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(atoiDefault(c.JWTExpiresIn, 10080)) * time.Minute
}

func (c *Config) ActionTokenTTL() time.Duration {
	return time.Duration(atoiDefault(c.ActionTokenTTLHours, 72)) * time.Hour
}

// HostelFeeAmount is the fee charged when a student pays an allotment without
// supplying an amount.
func (c *Config) HostelFeeAmount() float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(c.HostelFee), 64)
	if err != nil || v <= 0 {
		return 5000
	}
	return v
}

func (c *Config) MailWorkerCount() int {
	return atoiDefault(c.MailWorkers, 2)
}

func (c *Config) MailQueueCapacity() int {
	return atoiDefault(c.MailQueueSize, 100)
}

func (c *Config) RateLimit() (perSec float64, burst int) {
	perSec, err := strconv.ParseFloat(strings.TrimSpace(c.RateLimitPerSec), 64)
	if err != nil || perSec <= 0 {
		perSec = 5
	}
	return perSec, atoiDefault(c.RateLimitBurst, 10)
}

func (c *Config) RoomsCacheTTL() time.Duration {
	return time.Duration(atoiDefault(c.RoomsCacheSeconds, 30)) * time.Second
}

// SMTPConfigured reports whether real SMTP delivery is possible.
func (c *Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != ""
}

func getenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func atoiDefault(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
