package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// MongoConfig holds the document store connection settings.
type MongoConfig struct {
	URI    string
	DBName string
}

// GoogleConfig holds Google Sign-In verification settings.
type GoogleConfig struct {
	ClientID     string
	TokenInfoURL string
}

// EmailConfig holds SMTP settings for invitation mail.
type EmailConfig struct {
	SMTPHost string
	SMTPPort string
	User     string
	Password string
}

// Enabled reports whether enough settings are present to send mail.
func (e EmailConfig) Enabled() bool {
	return e.User != "" && e.Password != ""
}

// CassandraConfig holds the optional notification feed settings.
type CassandraConfig struct {
	Hosts    []string
	Keyspace string
}

// Enabled reports whether the notification feed should be started.
func (c CassandraConfig) Enabled() bool {
	return len(c.Hosts) > 0
}

// LogConfig holds log output settings.
type LogConfig struct {
	File       string
	Level      string
	Stdout     bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type Config struct {
	Port                      string
	Environment               string
	ClientURL                 string
	CORSOrigins               []string
	JWTSecret                 string
	SessionTTLHours           int
	EnforceRealtimeMembership bool
	Mongo                     MongoConfig
	Google                    GoogleConfig
	Email                     EmailConfig
	Cassandra                 CassandraConfig
	Log                       LogConfig
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load reads configuration from the environment, after merging an optional
// .env file. Every missing required key is reported in a single error.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load(".env")

	var missing []string

	env := getEnv("ENV", "development")
	if env != "development" && env != "staging" && env != "production" {
		return nil, fmt.Errorf("invalid ENV value %q: must be development, staging, or production", env)
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		missing = append(missing, "MONGO_URI")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	if googleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if err := validateMongoURI(mongoURI); err != nil {
		return nil, fmt.Errorf("invalid MONGO_URI: %w", err)
	}

	if len(jwtSecret) < 16 {
		return nil, fmt.Errorf("invalid JWT_SECRET: must be at least 16 characters")
	}

	clientURL := getEnv("CLIENT_URL", "http://localhost:5173")

	return &Config{
		Port:                      getEnv("SERVER_PORT", "5000"),
		Environment:               env,
		ClientURL:                 clientURL,
		CORSOrigins:               corsOrigins(clientURL, os.Getenv("CORS_ORIGINS")),
		JWTSecret:                 jwtSecret,
		SessionTTLHours:           getEnvInt("SESSION_TTL_HOURS", 30*24),
		EnforceRealtimeMembership: getEnvBool("REALTIME_ENFORCE_MEMBERSHIP", false),
		Mongo: MongoConfig{
			URI:    mongoURI,
			DBName: getEnv("MONGO_DB_NAME", "project_management"),
		},
		Google: GoogleConfig{
			ClientID:     googleClientID,
			TokenInfoURL: getEnv("GOOGLE_TOKENINFO_URL", defaultTokenInfoURL),
		},
		Email: EmailConfig{
			SMTPHost: getEnv("EMAIL_SMTP_HOST", "smtp.gmail.com"),
			SMTPPort: getEnv("EMAIL_SMTP_PORT", "587"),
			User:     os.Getenv("EMAIL_USER"),
			// App passwords are often pasted with the grouping spaces Google shows.
			Password: strings.ReplaceAll(os.Getenv("EMAIL_APP_PASSWORD"), " ", ""),
		},
		Cassandra: CassandraConfig{
			Hosts:    splitList(os.Getenv("CASS_DB")),
			Keyspace: getEnv("CASS_KEYSPACE", "notifications"),
		},
		Log: LogConfig{
			File:       getEnv("LOG_FILE", "logs/workspaces.log"),
			Level:      getEnv("LOG_LEVEL", "info"),
			Stdout:     getEnvBool("LOG_STDOUT", env == "development"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		},
	}, nil
}

// validateMongoURI ensures the URI uses one of the MongoDB schemes.
func validateMongoURI(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "mongodb" && parsed.Scheme != "mongodb+srv" {
		return fmt.Errorf("URL must use mongodb:// or mongodb+srv:// scheme, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

func corsOrigins(clientURL, extra string) []string {
	origins := []string{clientURL}
	for _, o := range splitList(extra) {
		if o != clientURL {
			origins = append(origins, o)
		}
	}
	return origins
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
