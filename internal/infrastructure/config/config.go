package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	OTLP     OTLPConfig
	Broker   BrokerConfig
	Database DatabaseConfig
	Cache    CacheConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// OTLPConfig holds OpenTelemetry configuration
type OTLPConfig struct {
	Endpoint    string
	ServiceName string
	Environment string
	Enabled     bool
	LogLevel    string
}

// BrokerConfig holds the RabbitMQ connection settings
type BrokerConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	ProductExchange string
	DialTimeout     time.Duration
}

// URL builds the AMQP URI with escaped credentials
func (b BrokerConfig) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(b.Username, b.Password),
		Host:   net.JoinHostPort(b.Host, strconv.Itoa(b.Port)),
		Path:   "/",
	}
	return u.String()
}

// DatabaseConfig selects and configures the storage adapter
type DatabaseConfig struct {
	Driver        string
	URL           string
	MigrationsDir string
}

// CacheConfig enables the Redis product cache when RedisURL is set
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Supported values of DatabaseConfig.Driver
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present; real environment
// variables take precedence over it.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OTLP: OTLPConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "products-api"),
			Environment: getEnv("OTEL_ENVIRONMENT", "development"),
			Enabled:     getEnvBool("OTEL_EXPORTER_OTLP_ENABLED", true),
			LogLevel:    getEnv("LOG_LEVEL", "INFO"),
		},
		Broker: BrokerConfig{
			Host:            getEnv("RABBITMQ_HOST", "localhost"),
			Port:            getEnvInt("RABBITMQ_PORT", 5672),
			Username:        getEnv("RABBITMQ_USER", "guest"),
			Password:        getEnv("RABBITMQ_PASSWORD", "guest"),
			ProductExchange: getEnv("RABBITMQ_PRODUCTS_EXCHANGE", "products.exchange"),
			DialTimeout:     getEnvDuration("RABBITMQ_DIAL_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			Driver:        strings.ToLower(getEnv("STORAGE_DRIVER", DriverMemory)),
			URL:           getEnv("DATABASE_URL", ""),
			MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		Cache: CacheConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      getEnvDuration("REDIS_CACHE_TTL", 10*time.Minute),
		},
	}
}

// Validate reports settings that cannot work together
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Database.Driver)
	}
	if c.Broker.ProductExchange == "" {
		return fmt.Errorf("RABBITMQ_PRODUCTS_EXCHANGE must not be empty")
	}
	if c.Broker.Port <= 0 || c.Broker.Port > 65535 {
		return fmt.Errorf("RABBITMQ_PORT %d is out of range", c.Broker.Port)
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
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}
