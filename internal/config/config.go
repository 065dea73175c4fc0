package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	AppEnv      string
	Port        string
	AppBaseURL  string
	CORSOrigins []string

	JWTSecret string
	JWTTTL    time.Duration

	DatabaseURL    string
	DatabaseConfig DatabaseConfig

	CloudinaryConfig CloudinaryConfig
	LogConfig        LogConfig
	SMTPConfig       SMTPConfig

	InitialSwapCredits    int
	NotificationRetention time.Duration
}

// DatabaseConfig holds the database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// CloudinaryConfig holds the Cloudinary settings
type CloudinaryConfig struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	UploadFolder string
}

// LogConfig controls the zap logger
type LogConfig struct {
	Mode     string // development or production
	Level    string
	Filename string // empty disables file output
}

// SMTPConfig holds the outgoing mail settings. An empty Host disables SMTP delivery.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Workers  int
}

// IsDevelopment reports whether the app runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// LoadConfig reads variables from .env and the environment
func LoadConfig() (*Config, error) {
	// A missing .env file is fine, the environment is used as is
	_ = godotenv.Load()

	dbConfig := DatabaseConfig{
		Host:     getEnv("PGHOST", "localhost"),
		Port:     getEnv("PGPORT", "5432"),
		User:     getEnv("PGUSER", "swapify_user"),
		Password: getEnv("PGPASSWORD", "swapify_pass"),
		Name:     getEnv("PGDATABASE", "swapify"),
		SSLMode:  getEnv("PGSSLMODE", "disable"),
	}

	// DATABASE_URL wins over the separate PG* variables
	dbURL := getEnv("DATABASE_URL", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name, dbConfig.SSLMode))

	cloudinaryConfig := CloudinaryConfig{
		CloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:       getEnv("CLOUDINARY_API_KEY", ""),
		APISecret:    getEnv("CLOUDINARY_API_SECRET", ""),
		UploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", "swapify_products"),
		UploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "swapify/products"),
	}

	appEnv := getEnv("APP_ENV", "production")
	logMode := "production"
	if appEnv == "development" {
		logMode = "development"
	}

	cfg := &Config{
		AppEnv:      appEnv,
		Port:        getEnv("PORT", "8080"),
		AppBaseURL:  strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTTTL:    time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,

		DatabaseURL:      dbURL,
		DatabaseConfig:   dbConfig,
		CloudinaryConfig: cloudinaryConfig,
		LogConfig: LogConfig{
			Mode:     getEnv("LOG_MODE", logMode),
			Level:    getEnv("LOG_LEVEL", "info"),
			Filename: getEnv("LOG_FILE", ""),
		},
		SMTPConfig: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "Swapify <no-reply@swapify.local>"),
			Workers:  getEnvInt("MAIL_WORKERS", 4),
		},

		InitialSwapCredits:    getEnvInt("INITIAL_SWAP_CREDITS", 3),
		NotificationRetention: time.Duration(getEnvInt("NOTIFICATION_RETENTION_DAYS", 30)) * 24 * time.Hour,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the required settings
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL_HOURS must be positive"))
	}
	if c.InitialSwapCredits < 0 {
		errs = append(errs, errors.New("INITIAL_SWAP_CREDITS must not be negative"))
	}
	if c.SMTPConfig.Workers <= 0 {
		errs = append(errs, errors.New("MAIL_WORKERS must be positive"))
	}
	return errors.Join(errs...)
}

// getEnv returns an environment variable or the default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable; unparsable values fall back to the default
func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvList returns a comma-separated environment variable as a slice
func getEnvList(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
