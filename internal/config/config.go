package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	LogLevel  string
	LogFormat string

	// AutoApproveDays is the maximum request length that bypasses mentor
	// review.
	AutoApproveDays int
	// StudentQuota / FacultyQuota are initial leave balances per role.
	StudentQuota int
	FacultyQuota int
	// LeaveTypes restricts accepted categories; empty accepts anything.
	LeaveTypes []string
	// StudentEmailPattern classifies matching emails as students.
	StudentEmailPattern *regexp.Regexp
	// AdminTokenHash is the bcrypt hash of the token guarding admin routes.
	AdminTokenHash string
	// StoreTimeout bounds every persistence call.
	StoreTimeout time.Duration
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:           fallback(os.Getenv("PORT"), "8080"),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:      fallback(os.Getenv("JWT_ISSUER"), "acadhub-identity"),
		CORSOrigins:    parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
		LogLevel:       fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:      fallback(os.Getenv("LOG_FORMAT"), "json"),
		LeaveTypes:     parseCSV(fallback(os.Getenv("LEAVE_TYPES"), "sick,casual,vacation")),
		AdminTokenHash: strings.TrimSpace(os.Getenv("ADMIN_TOKEN_HASH")),
	}

	cfg.JWTTTL = minutes(os.Getenv("JWT_TTL_MINUTES"), 60)
	cfg.AutoApproveDays = positiveInt(os.Getenv("AUTO_APPROVE_DAYS"), 5)
	cfg.StudentQuota = positiveInt(os.Getenv("STUDENT_LEAVE_QUOTA"), 20)
	cfg.FacultyQuota = positiveInt(os.Getenv("FACULTY_LEAVE_QUOTA"), 30)
	cfg.StoreTimeout = time.Duration(positiveInt(os.Getenv("STORE_TIMEOUT_MS"), 3000)) * time.Millisecond

	pattern := fallback(os.Getenv("STUDENT_EMAIL_PATTERN"), `^[0-9]+@`)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Config{}, fmt.Errorf("invalid STUDENT_EMAIL_PATTERN %q: %w", pattern, err)
	}
	cfg.StudentEmailPattern = re

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func minutes(value string, def int) time.Duration {
	return time.Duration(positiveInt(value, def)) * time.Minute
}

func positiveInt(value string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n > 0 {
		return n
	}
	return def
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
