package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// LogLevelEnv is the environment variable for the minimum log level (debug, info, warn, error).
	LogLevelEnv = "LOG_LEVEL"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// MigrationsPathEnv is the environment variable for the migrations directory.
	MigrationsPathEnv = "MIGRATIONS_PATH"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// HTTPBatchTimeoutMinutesEnv is the environment variable for the read and write timeout, in minutes,
	// of the import and margin application routes.
	HTTPBatchTimeoutMinutesEnv = "HTTP_BATCH_TIMEOUT_MINUTES"

	// Env is the environment variable for environment name.
	Env = "ENV"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// LocalhostEnv is the constant for localhost.
	LocalhostEnv = "localhost"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// ImportBucketEnv is the environment variable for the S3 bucket holding import files.
	// Object imports are disabled when it is empty.
	ImportBucketEnv = "IMPORT_BUCKET"

	// ImportConcurrencyEnv is the environment variable for the number of import rows written in parallel.
	ImportConcurrencyEnv = "IMPORT_CONCURRENCY"

	// JWTSecretEnv is the environment variable for the session token signing secret.
	JWTSecretEnv = "JWT_SECRET"

	// TokenTTLHoursEnv is the environment variable for the session token lifetime in hours.
	TokenTTLHoursEnv = "TOKEN_TTL_HOURS"

	// SuperAdminEmailEnv is the environment variable for the bootstrap super-admin email.
	SuperAdminEmailEnv = "SUPERADMIN_EMAIL"

	// SuperAdminPasswordEnv is the environment variable for the bootstrap super-admin password.
	SuperAdminPasswordEnv = "SUPERADMIN_PASSWORD"

	// AccessDenyWithoutProfileEnv switches principals without a profile from "admin" to no access.
	AccessDenyWithoutProfileEnv = "ACCESS_DENY_WITHOUT_PROFILE"

	defaultImportConcurrency   = 1
	defaultBatchTimeoutMinutes = 15
	defaultTokenTTLHours       = 24
	defaultMigrationsPath      = "migrations"
	defaultLogLevel            = "info"
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")
)

// Config represents the application configuration.
type Config struct {
	DebugMode     bool
	LogLevel      string
	Database      DB
	HTTPServer    Server
	MetricsServer Server
	AWS           AWSConfig
	Auth          AuthConfig
	Import        ImportConfig
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region       string
	Endpoint     string
	SQSQueueURL  string
	ImportBucket string
}

// DB represents database configuration settings.
type DB struct {
	Host           string
	User           string
	Password       string
	Name           string
	Port           string
	MigrationsPath string
}

// Server represents server configuration settings.
type Server struct {
	Port string
	// BatchTimeout replaces the server timeouts on routes that process a whole batch.
	BatchTimeout time.Duration
}

// AuthConfig holds session token and bootstrap account settings.
type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	SuperAdminEmail    string
	SuperAdminPassword string
	DenyWithoutProfile bool
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	Concurrency int
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	// Validate database configuration
	if err := allNonEmpty(map[string]string{
		DBHostEnv: c.Database.Host,
		DBUserEnv: c.Database.User,
		DBNameEnv: c.Database.Name,
	}); err != nil {
		return fmt.Errorf("database configuration incomplete: %w", err)
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}

	// Validate port numbers
	if err := allNumbers(map[string]string{
		DBPortEnv:            c.Database.Port,
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	// Validate AWS configuration
	if err := allNonEmpty(map[string]string{
		SQSQueueURLEnv: c.AWS.SQSQueueURL,
	}); err != nil {
		return fmt.Errorf("AWS configuration incomplete: %w", err)
	}

	if err := allNonEmpty(map[string]string{
		JWTSecretEnv: c.Auth.JWTSecret,
	}); err != nil {
		return fmt.Errorf("auth configuration incomplete: %w", err)
	}

	// both or neither
	if (c.Auth.SuperAdminEmail == "") != (c.Auth.SuperAdminPassword == "") {
		return fmt.Errorf("%w: %s and %s must be set together", ErrMissingConfig, SuperAdminEmailEnv, SuperAdminPasswordEnv)
	}

	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if val, err := strconv.Atoi(os.Getenv(name)); err == nil && val > 0 {
		return val
	}
	return defaultValue
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	conf, err := loadFromEnv()
	if err != nil {
		return nil, err
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

// LoadConsumerFromEnv loads the subset of the configuration needed by queue consumers.
func LoadConsumerFromEnv() (*Config, error) {
	conf, err := loadFromEnv()
	if err != nil {
		return nil, err
	}
	if err := allNonEmpty(map[string]string{SQSQueueURLEnv: conf.AWS.SQSQueueURL}); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

func loadFromEnv() (*Config, error) {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	err := ApplyEnvFile(envPath)
	if err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		LogLevel:  getEnv(LogLevelEnv, defaultLogLevel),
		Database: DB{
			Host:           os.Getenv(DBHostEnv),
			User:           os.Getenv(DBUserEnv),
			Password:       os.Getenv(DBPassEnv),
			Name:           os.Getenv(DBNameEnv),
			Port:           os.Getenv(DBPortEnv),
			MigrationsPath: getEnv(MigrationsPathEnv, defaultMigrationsPath),
		},
		HTTPServer: Server{
			Port:         os.Getenv(HTTPServerPortEnv),
			BatchTimeout: time.Duration(getEnvAsInt(HTTPBatchTimeoutMinutesEnv, defaultBatchTimeoutMinutes)) * time.Minute,
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		AWS: AWSConfig{
			Region:       os.Getenv(AWSRegionEnv),
			Endpoint:     os.Getenv(AWSEndpointEnv),
			SQSQueueURL:  os.Getenv(SQSQueueURLEnv),
			ImportBucket: os.Getenv(ImportBucketEnv),
		},
		Auth: AuthConfig{
			JWTSecret:          os.Getenv(JWTSecretEnv),
			TokenTTL:           time.Duration(getEnvAsInt(TokenTTLHoursEnv, defaultTokenTTLHours)) * time.Hour,
			SuperAdminEmail:    os.Getenv(SuperAdminEmailEnv),
			SuperAdminPassword: os.Getenv(SuperAdminPasswordEnv),
			DenyWithoutProfile: getEnvAsBool(AccessDenyWithoutProfileEnv, false),
		},
		Import: ImportConfig{
			Concurrency: getEnvAsInt(ImportConcurrencyEnv, defaultImportConcurrency),
		},
	}
	return conf, nil
}
