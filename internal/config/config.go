package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath     string
	OutputDir  string
	IntakeDir  string
	RawMailDir string

	LogLevel  string
	LogFormat string

	NumberLocale      string
	CSVEncoding       string
	HeaderSearchDepth int
	JoinMode          string
	RulesPath         string
	HolidaysPath      string

	MatchHighThreshold float64
	MatchLowThreshold  float64

	CacheBackend string
	CacheTTLSec  int
	CacheSize    int

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string
	GoogleRefreshToken string
	GoogleAPIKey       string
	SheetsRateLimitRPS int
	SheetsTimeoutMs    int

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	MailSinceDays int

	WatchSchedule     string
	WatchSources      []string
	WatchCommerces    string
	WatchSellers      string
	WatchMailProvider string
	WatchMailLabel    string
	WatchMailFetchMax int
	WatchPeriod       string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:     getEnv("DB_PATH", filepath.Join(cwd, "data", "recon.db")),
		OutputDir:  getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		IntakeDir:  getEnv("INTAKE_DIR", filepath.Join(cwd, "data", "intake")),
		RawMailDir: getEnv("RAW_MAIL_DIR", filepath.Join(cwd, "data", "raw-mail")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		NumberLocale:      getEnv("NUMBER_LOCALE", "latam"),
		CSVEncoding:       getEnv("CSV_ENCODING", "utf-8"),
		HeaderSearchDepth: getEnvInt("HEADER_SEARCH_DEPTH", 10),
		JoinMode:          getEnv("JOIN_MODE", "left"),
		RulesPath:         getEnv("RULES_PATH", ""),
		HolidaysPath:      getEnv("HOLIDAYS_PATH", ""),

		MatchHighThreshold: getEnvFloat("MATCH_HIGH_THRESHOLD", 0.8),
		MatchLowThreshold:  getEnvFloat("MATCH_LOW_THRESHOLD", 0.4),

		CacheBackend: getEnv("CACHE_BACKEND", "memory"),
		CacheTTLSec:  getEnvInt("CACHE_TTL_SEC", 300),
		CacheSize:    getEnvInt("CACHE_SIZE", 64),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GoogleAPIKey:       getEnv("GOOGLE_API_KEY", ""),
		SheetsRateLimitRPS: getEnvInt("SHEETS_RATE_LIMIT_RPS", 2),
		SheetsTimeoutMs:    getEnvInt("SHEETS_TIMEOUT_MS", 30000),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", false),

		MailSinceDays: getEnvInt("MAIL_SINCE_DAYS", 0),

		WatchSchedule:     getEnv("WATCH_SCHEDULE", "@every 5m"),
		WatchSources:      getEnvList("WATCH_SOURCES"),
		WatchCommerces:    getEnv("WATCH_COMMERCES", ""),
		WatchSellers:      getEnv("WATCH_SELLERS", ""),
		WatchMailProvider: getEnv("WATCH_MAIL_PROVIDER", ""),
		WatchMailLabel:    getEnv("WATCH_MAIL_LABEL", "INBOX"),
		WatchMailFetchMax: getEnvInt("WATCH_MAIL_FETCH_MAX", 20),
		WatchPeriod:       getEnv("WATCH_PERIOD", ""),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}

// getEnvList splits a comma or semicolon separated value.
func getEnvList(key string) []string {
	value := getEnv(key, "")
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
