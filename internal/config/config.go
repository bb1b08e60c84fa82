package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// Database Configuration
	Database DatabaseConfig `json:"database"`

	// MongoDB Configuration (delivery audit log, optional)
	MongoDB MongoDBConfig `json:"mongodb"`

	// Redis Configuration (realtime notification channel, optional)
	Redis RedisConfig `json:"redis"`

	// Firebase Configuration
	Firebase FirebaseConfig `json:"firebase"`

	Push PushConfig `json:"push"`

	// Notification Configuration
	Notification NotificationConfig `json:"notification"`

	// Email Configuration (optional)
	Email EmailConfig `json:"email"`

	SMS SMSConfig `json:"sms"`

	Maintenance MaintenanceConfig `json:"maintenance"`

	Auth AuthConfig `json:"auth"`

	// Logging Configuration
	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `json:"port"`
	GRPCPort     string `json:"grpc_port"`
	Host         string `json:"host"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	Environment  string `json:"environment"` // development, staging, production
	AutoMigrate  bool   `json:"auto_migrate"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver       string `json:"driver"` // mysql, postgres, sqlite
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
	SSLMode      string `json:"ssl_mode"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

type MongoDBConfig struct {
	Host       string `json:"host"`
	Port       string `json:"port"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
	Enabled    bool   `json:"enabled"`
}

type RedisConfig struct {
	Addr          string `json:"addr"`
	Password      string `json:"password"`
	DB            int    `json:"db"`
	ChannelPrefix string `json:"channel_prefix"`
	Enabled       bool   `json:"enabled"`
}

// FirebaseConfig contains Firebase Cloud Messaging configuration
type FirebaseConfig struct {
	ProjectID           string `json:"project_id"`
	CredentialsFilePath string `json:"credentials_file_path"`
	Enabled             bool   `json:"enabled"`
}

// PushConfig selects the push provider used for device tokens
type PushConfig struct {
	Provider        string `json:"provider"` // expo, fcm
	ExpoURL         string `json:"expo_url"`
	ExpoAccessToken string `json:"expo_access_token"`
	BatchSize       int    `json:"batch_size"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
}

// NotificationConfig contains notification system configuration
type NotificationConfig struct {
	BulkConcurrency int  `json:"bulk_concurrency"` // Max concurrent sends in SendBulk
	Enabled         bool `json:"enabled"`
}

// EmailConfig contains email service configuration (optional)
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	Enabled   bool   `json:"enabled"`
}

type SMSConfig struct {
	From    string `json:"from"`
	Enabled bool   `json:"enabled"`
}

// MaintenanceConfig holds workflow policy knobs
type MaintenanceConfig struct {
	PriorityPolicy string `json:"priority_policy"` // open, assignee
}

type AuthConfig struct {
	JWTSecret string `json:"-"`
	Issuer    string `json:"issuer"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // json, text
	OutputPath string `json:"output_path"` // stdout, stderr, or file path
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			GRPCPort:     getEnv("GRPC_PORT", "7004"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			Environment:  getEnv("ENVIRONMENT", "development"),
			AutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "mysql"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "3306"),
			Username:     getEnv("DB_USER", "tenantlink"),
			Password:     getEnv("DB_PASSWORD", "tenantlink"),
			DatabaseName: getEnv("DB_NAME", "tenantlink"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		MongoDB: MongoDBConfig{
			Host:       getEnv("MONGO_HOST", "localhost"),
			Port:       getEnv("MONGO_PORT", "27017"),
			Username:   getEnv("MONGO_USERNAME", ""),
			Password:   getEnv("MONGO_PASSWORD", ""),
			Database:   getEnv("MONGO_DATABASE", "tenantlink"),
			Collection: getEnv("MONGO_DELIVERY_COLLECTION", "delivery_attempts"),
			Enabled:    getEnvAsBool("MONGO_ENABLED", false),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", "localhost:6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "notifications"),
			Enabled:       getEnvAsBool("REDIS_ENABLED", false),
		},
		Firebase: FirebaseConfig{
			ProjectID:           getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFilePath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			Enabled:             getEnvAsBool("FIREBASE_ENABLED", false),
		},
		Push: PushConfig{
			Provider:        strings.ToLower(getEnv("PUSH_PROVIDER", "expo")),
			ExpoURL:         getEnv("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
			ExpoAccessToken: getEnv("EXPO_ACCESS_TOKEN", ""),
			BatchSize:       getEnvAsInt("PUSH_BATCH_SIZE", 100),
			TimeoutSeconds:  getEnvAsInt("PUSH_TIMEOUT_SECONDS", 10),
		},
		Notification: NotificationConfig{
			BulkConcurrency: getEnvAsInt("NOTIFICATION_BULK_CONCURRENCY", 10),
			Enabled:         getEnvAsBool("NOTIFICATION_ENABLED", true),
		},
		Email: EmailConfig{
			SMTPHost:  getEnv("SMTP_HOST", ""),
			SMTPPort:  getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("FROM_EMAIL", "no-reply@tenantlink.local"),
			FromName:  getEnv("FROM_NAME", "TenantLink"),
			Enabled:   getEnvAsBool("EMAIL_ENABLED", false),
		},
		SMS: SMSConfig{
			From:    getEnv("SMS_FROM", "TenantLink"),
			Enabled: getEnvAsBool("SMS_ENABLED", true),
		},
		Maintenance: MaintenanceConfig{
			PriorityPolicy: strings.ToLower(getEnv("MAINTENANCE_PRIORITY_POLICY", "open")),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "tenantlink"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
	}
}

// DSN builds the connection string for the configured driver.
func (cfg *Config) DSN() string {
	db := cfg.Database
	switch strings.ToLower(db.Driver) {
	case "postgres", "postgresql":
		if db.Host == "" {
			db.Host = "localhost"
		}
		if db.Port == "" {
			db.Port = "5432"
		}
		if db.SSLMode == "" {
			db.SSLMode = "disable"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			db.Host, db.Username, db.Password, db.DatabaseName, db.Port, db.SSLMode)
	case "sqlite":
		if db.DatabaseName == "" {
			return "file::memory:?cache=shared"
		}
		return db.DatabaseName
	default:
		if db.Host == "" {
			db.Host = "localhost"
		}
		if db.Port == "" {
			db.Port = "3306"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			db.Username,
			db.Password,
			db.Host,
			db.Port,
			db.DatabaseName,
		)
	}
}

func (cfg *Config) GetMongoURI() string {
	m := cfg.MongoDB
	if m.Username != "" && m.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin", m.Username, m.Password, m.Host, m.Port, m.Database)
	}
	return fmt.Sprintf("mongodb://%s:%s/%s", m.Host, m.Port, m.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
