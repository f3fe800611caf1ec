package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/finance/internal/domain"
)

// Oracle providers accepted by ORACLE_PROVIDER.
const (
	ProviderStatic = "static"
	ProviderAlpaca = "alpaca"
)

// Config holds all runtime configuration for the trading service.
type Config struct {
	Port     int
	LogLevel string

	// DatabasePath is the SQLite file holding users and the ledger. Empty
	// keeps everything in memory.
	DatabasePath string

	OracleProvider string
	StaticQuotes   string
	AlpacaKeyID    string
	AlpacaSecret   string
	AlpacaBaseURL  string
	OracleTimeout  time.Duration
	OracleAttempts int
	OracleBackoff  time.Duration
	QuoteCacheTTL  time.Duration

	InitialCash     decimal.Decimal
	AllowShortSales bool

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadEnvFile preloads variables from .env-style files into the process
// environment. Variables already set are not overridden, and missing files
// are ignored.
func LoadEnvFile(paths ...string) error {
	err := godotenv.Load(paths...)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	provider := getStr("ORACLE_PROVIDER", ProviderStatic)
	keyID := os.Getenv("APCA_API_KEY_ID")
	secret := os.Getenv("APCA_API_SECRET_KEY")
	switch provider {
	case ProviderStatic:
	case ProviderAlpaca:
		if keyID == "" || secret == "" {
			return nil, fmt.Errorf("ORACLE_PROVIDER=alpaca requires APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
	default:
		return nil, fmt.Errorf("invalid ORACLE_PROVIDER: %q, must be one of: static, alpaca", provider)
	}

	oracleTimeout, err := getDuration("ORACLE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid ORACLE_TIMEOUT: %w", err)
	}

	oracleAttempts, err := getInt("ORACLE_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid ORACLE_ATTEMPTS: %w", err)
	}
	if oracleAttempts < 1 {
		return nil, fmt.Errorf("invalid ORACLE_ATTEMPTS: %d, must be >= 1", oracleAttempts)
	}

	oracleBackoff, err := getDuration("ORACLE_BACKOFF", 200*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid ORACLE_BACKOFF: %w", err)
	}

	quoteCacheTTL, err := getDuration("QUOTE_CACHE_TTL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_CACHE_TTL: %w", err)
	}

	initialCash, err := domain.ParseCash(getStr("INITIAL_CASH", "10000.00"))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_CASH: %w", err)
	}
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("invalid INITIAL_CASH: %s, must be >= 0", initialCash)
	}

	allowShortSales, err := getBool("ALLOW_SHORT_SALES", false)
	if err != nil {
		return nil, fmt.Errorf("invalid ALLOW_SHORT_SALES: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		DatabasePath:    os.Getenv("DATABASE_PATH"),
		OracleProvider:  provider,
		StaticQuotes:    os.Getenv("STATIC_QUOTES"),
		AlpacaKeyID:     keyID,
		AlpacaSecret:    secret,
		AlpacaBaseURL:   os.Getenv("APCA_API_BASE_URL"),
		OracleTimeout:   oracleTimeout,
		OracleAttempts:  oracleAttempts,
		OracleBackoff:   oracleBackoff,
		QuoteCacheTTL:   quoteCacheTTL,
		InitialCash:     initialCash,
		AllowShortSales: allowShortSales,
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
