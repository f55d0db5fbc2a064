package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Cancel modes.
const (
	CancelModeRetain = "retain"
	CancelModeDelete = "delete"
)

// Config holds all application configuration loaded from environment.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	StoreDriver       string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	// Operator account created at startup when both are set.
	OperatorEmail    string
	OperatorPassword string

	Schedule Schedule
}

// Schedule holds the booking rules enforced by the scheduler.
type Schedule struct {
	Location         *time.Location
	OpeningTime      time.Duration // offset from local midnight
	ClosingTime      time.Duration // offset from local midnight
	AllowedDurations []time.Duration
	CancelMode       string
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	// Production origin (default: empty)
	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	// Application environment (default: dev)
	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	// HTTP listen address (default: :8080)
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		// Database DSN is required
		cfg.DBDSN = os.Getenv("DB_DSN")
		if cfg.DBDSN == "" {
			return nil, fmt.Errorf("DB_DSN is required")
		}
	case StoreDriverMemory:
		if cfg.IsProduction {
			return nil, fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}

	// JWT secret is required for signing tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// JWT access token TTL, parse as time.Duration (e.g. "15m", "1h").
	ttl, err := time.ParseDuration(getEnv("JWT_ACCESS_TOKEN_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_TTL: %w", err)
	}
	cfg.JWTAccessTokenTTL = ttl

	// Bcrypt cost for password hashing (default: 12)
	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	cfg.OperatorEmail = os.Getenv("OPERATOR_EMAIL")
	cfg.OperatorPassword = os.Getenv("OPERATOR_PASSWORD")
	if (cfg.OperatorEmail == "") != (cfg.OperatorPassword == "") {
		return nil, fmt.Errorf("OPERATOR_EMAIL and OPERATOR_PASSWORD must be set together")
	}

	cfg.Schedule, err = loadSchedule()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadSchedule() (Schedule, error) {
	var s Schedule

	tz := getEnv("BUSINESS_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return s, fmt.Errorf("invalid BUSINESS_TIMEZONE: %w", err)
	}
	s.Location = loc

	if s.OpeningTime, err = ParseClock(getEnv("OPENING_TIME", "07:00")); err != nil {
		return s, fmt.Errorf("invalid OPENING_TIME: %w", err)
	}
	if s.ClosingTime, err = ParseClock(getEnv("CLOSING_TIME", "22:00")); err != nil {
		return s, fmt.Errorf("invalid CLOSING_TIME: %w", err)
	}
	if s.OpeningTime >= s.ClosingTime {
		return s, fmt.Errorf("OPENING_TIME must be before CLOSING_TIME")
	}

	if s.AllowedDurations, err = ParseMinutesList(getEnv("ALLOWED_DURATIONS", "30,60,90,120,180,240,360,480")); err != nil {
		return s, fmt.Errorf("invalid ALLOWED_DURATIONS: %w", err)
	}

	s.CancelMode = strings.ToLower(getEnv("CANCEL_MODE", CancelModeRetain))
	if s.CancelMode != CancelModeRetain && s.CancelMode != CancelModeDelete {
		return s, fmt.Errorf("invalid CANCEL_MODE %q", s.CancelMode)
	}

	return s, nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into an offset from midnight.
// "24:00" is accepted as end of day.
func ParseClock(v string) (time.Duration, error) {
	if strings.TrimSpace(v) == "24:00" {
		return 24 * time.Hour, nil
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, strings.TrimSpace(v))
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("%q is not a clock time (HH:MM)", v)
}

// ParseMinutesList parses a comma-separated list of positive minute counts.
func ParseMinutesList(v string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number of minutes: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("duration must be positive, got %d", n)
		}
		out = append(out, time.Duration(n)*time.Minute)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one duration is required")
	}
	return out, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}
