package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	BcryptCost     int           // bcrypt cost for password hashing
	LockWait       time.Duration // row lock wait bound for booking transactions
	LogLevel       string        // zap level name
	RabbitURL      string        // empty disables booking events
	RunConsumer    bool          // run the booking audit consumer in-process
	AuditLogPath   string        // file the audit consumer appends to
}

// Load reads configuration values from environment variables.  Every
// missing or malformed variable is reported in the returned error.
func Load() (Config, error) {
	var p parser
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           p.must("APP_PORT"),
		DBUser:         p.must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         p.must("DB_HOST"),
		DBPort:         p.must("DB_PORT"),
		DBName:         p.must("DB_NAME"),
		JWTSecret:      p.must("JWT_SECRET"),
		AccessTTLMin:   p.intOr("ACCESS_TOKEN_TTL_MIN", 60),
		RefreshTTLDays: p.intOr("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     p.intOr("BCRYPT_COST", 10),
		LockWait:       p.durOr("LOCK_WAIT_TIMEOUT", 5*time.Second),
		LogLevel:       strings.ToLower(envStr("LOG_LEVEL", "info")),
		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		RunConsumer:    envBool("RABBITMQ_CONSUMER", false),
		AuditLogPath:   envStr("AUDIT_LOG_PATH", "logs/booking.log"),
	}
	if cfg.AccessTTLMin < 1 || cfg.RefreshTTLDays < 1 {
		p.errs = append(p.errs, errors.New("token TTLs must be positive"))
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		p.errs = append(p.errs, fmt.Errorf("BCRYPT_COST out of range: %d", cfg.BcryptCost))
	}
	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	return cfg, nil
}

// IsDev reports whether the development environment is selected.
func (c Config) IsDev() bool { return c.Env == "dev" }

// parser collects errors so that Load reports all of them at once.
type parser struct{ errs []error }

func (p *parser) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		p.errs = append(p.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

func (p *parser) intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}

func (p *parser) durOr(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid duration for %s: %q", key, s))
	}
	return d
}
