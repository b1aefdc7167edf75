package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Archive backends.
const (
	ArchiveMemory = "memory"
	ArchiveSheets = "sheets"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	LogLevel string

	// AMQP, optional. Month-closed events are only published when set.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Archive
	ArchiveBackend         string
	GoogleSpreadsheetID    string
	GoogleArchiveSheetName string
	GoogleCredentialsFile  string
	GoogleCredentialsJSON  string

	// HTTP behaviour
	RateLimitPerMinute int
	CacheTTL           time.Duration
	ClosedMonthsLimit  int

	// DevMode enables the reset and delete endpoints.
	DevMode bool

	// Profile seed names
	MeName      string
	PartnerName string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/splitkasse.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "splitkasse"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "archive_months"),

		ArchiveBackend:         getEnv("ARCHIVE_BACKEND", ArchiveMemory),
		GoogleSpreadsheetID:    getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleArchiveSheetName: getEnv("GOOGLE_ARCHIVE_SHEET_NAME", "Archive"),
		GoogleCredentialsFile:  getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON:  getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		ClosedMonthsLimit:  getEnvInt("CLOSED_MONTHS_LIMIT", 12),

		DevMode: getEnvBool("DEV_MODE", false),

		MeName:      getEnv("ME_NAME", "Me"),
		PartnerName: getEnv("PARTNER_NAME", "Partner"),
	}
}

// AMQPEnabled reports whether month-closed events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	validLevels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	validBackends := []string{ArchiveMemory, ArchiveSheets}
	if !slices.Contains(validBackends, c.ArchiveBackend) {
		errors = append(errors, fmt.Sprintf("invalid archive backend '%s': must be one of %v", c.ArchiveBackend, validBackends))
	}
	if c.ArchiveBackend == ArchiveSheets {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets archive")
		}
		if c.GoogleArchiveSheetName == "" {
			errors = append(errors, "Google archive sheet name is required when using sheets archive")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets archive")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.ClosedMonthsLimit < 1 || c.ClosedMonthsLimit > 120 {
		errors = append(errors, fmt.Sprintf("invalid closed months limit %d: must be between 1 and 120", c.ClosedMonthsLimit))
	}

	if strings.TrimSpace(c.MeName) == "" || strings.TrimSpace(c.PartnerName) == "" {
		errors = append(errors, "ME_NAME and PARTNER_NAME cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
