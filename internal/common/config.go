package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Scan     ScanConfig
	Lookup   LookupConfig
	OCR      OCRConfig
	Log      LogConfig
	Inbox    InboxConfig
}

// DatabaseConfig holds database-related configuration. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds daemon listener addresses.
type ServerConfig struct {
	GRPCAddr string
	HTTPAddr string
}

// ScanConfig holds the scan session timing budget.
type ScanConfig struct {
	AutoAdvanceConfidence float64
	AutoAdvanceDelay      time.Duration
	ConfirmIdleTimeout    time.Duration
	BarcodeCooldown       time.Duration
	LookupTimeout         time.Duration
	RecognizeTimeout      time.Duration
	AnalysisPollInterval  time.Duration
	AnalysisMaxAttempts   int
}

// LookupConfig holds the remote product database settings.
type LookupConfig struct {
	BaseURL   string
	UserAgent string
	RetryMax  int
	Timeout   time.Duration
	Disabled  bool
}

// OCRConfig holds text recognition settings. Engine is "tesseract" or "vision".
type OCRConfig struct {
	Engine              string
	Tesseract           string
	TesseractLang       string
	TessdataDir         string
	EnableTSVConfidence bool
	CredentialsFile     string
	HeicConverter       string
	CacheDir            string
}

// LogConfig holds logger settings consumed by internal/logger.
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// InboxConfig holds the label inbox watched by the daemon.
type InboxConfig struct {
	Dir      string
	Workers  int
	Debounce time.Duration
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is applied first when present; real environment
// variables win over it.
func LoadConfig() *Config {
	_ = godotenv.Load() // optional
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			DSN:              expandPath(getEnv("DB_URL", "~/.petscan/petscan.db")),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":9090"),
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Scan: ScanConfig{
			AutoAdvanceConfidence: getEnvAsFloat64("SCAN_AUTO_ADVANCE_CONFIDENCE", 0.8),
			AutoAdvanceDelay:      getEnvAsDuration("SCAN_AUTO_ADVANCE_DELAY", 500*time.Millisecond),
			ConfirmIdleTimeout:    getEnvAsDuration("SCAN_CONFIRM_IDLE_TIMEOUT", 10*time.Second),
			BarcodeCooldown:       getEnvAsDuration("SCAN_BARCODE_COOLDOWN", time.Second),
			LookupTimeout:         getEnvAsDuration("SCAN_LOOKUP_TIMEOUT", 5*time.Second),
			RecognizeTimeout:      getEnvAsDuration("SCAN_RECOGNIZE_TIMEOUT", 30*time.Second),
			AnalysisPollInterval:  getEnvAsDuration("SCAN_ANALYSIS_POLL_INTERVAL", time.Second),
			AnalysisMaxAttempts:   getEnvAsInt("SCAN_ANALYSIS_MAX_ATTEMPTS", 30),
		},
		Lookup: LookupConfig{
			BaseURL:   getEnv("LOOKUP_BASE_URL", "https://world.openpetfoodfacts.org"),
			UserAgent: getEnv("LOOKUP_USER_AGENT", "petscan/1.0"),
			RetryMax:  getEnvAsInt("LOOKUP_RETRY_MAX", 2),
			Timeout:   getEnvAsDuration("LOOKUP_HTTP_TIMEOUT", 4*time.Second),
			Disabled:  getEnvAsBool("LOOKUP_DISABLED", false),
		},
		OCR: OCRConfig{
			Engine:              getEnv("OCR_ENGINE", "tesseract"),
			Tesseract:           getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:       getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:         getEnv("TESSDATA_PREFIX", ""),
			EnableTSVConfidence: getEnvAsBool("OCR_TSV_CONFIDENCE", true),
			CredentialsFile:     expandPath(getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
			HeicConverter:       getEnv("HEIC_CONVERTER", ""),
			CacheDir:            expandPath(getEnv("OCR_CACHE_DIR", "~/.petscan/cache")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			Output: getEnv("LOG_OUTPUT", "stderr"),
		},
		Inbox: InboxConfig{
			Dir:      expandPath(getEnv("INBOX_DIR", "")),
			Workers:  getEnvAsInt("INBOX_WORKERS", 2),
			Debounce: getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	out, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be sqlite or postgres", ErrInvalidInput)
	}
	if c.Scan.AutoAdvanceConfidence < 0 || c.Scan.AutoAdvanceConfidence > 1 {
		return NewAppError("CONFIG_ERROR", "SCAN_AUTO_ADVANCE_CONFIDENCE must be within [0,1]", ErrInvalidInput)
	}
	if c.Scan.AnalysisMaxAttempts <= 0 {
		return NewAppError("CONFIG_ERROR", "SCAN_ANALYSIS_MAX_ATTEMPTS must be positive", ErrInvalidInput)
	}
	if c.OCR.Engine != "tesseract" && c.OCR.Engine != "vision" {
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be tesseract or vision", ErrInvalidInput)
	}
	if !c.Lookup.Disabled && c.Lookup.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "LOOKUP_BASE_URL is required unless LOOKUP_DISABLED", ErrInvalidInput)
	}
	return nil
}
