package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	MySQL    MySQLConfig
	Log      LogConfig
	Gateway  GatewayConfig
	Payments PaymentsConfig
	Booking  EndpointConfig
	Notify   EndpointConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type GatewayConfig struct {
	Mode            string
	BaseURL         string
	Secret          string
	KeyIndex        string
	WebhookBaseURL  string
	WebhookPath     string
	HTTPTimeout     time.Duration
	StatusAttempts  int
	StatusBaseDelay time.Duration
	StatusMaxDelay  time.Duration
}

// CallbackURL is the absolute webhook address handed to the gateway at
// payment creation.
func (c GatewayConfig) CallbackURL() string {
	if c.WebhookBaseURL == "" {
		return c.WebhookPath
	}
	return c.WebhookBaseURL + c.WebhookPath
}

type PaymentsConfig struct {
	MinAmountCents      int64
	MaxAmountCents      int64
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
	BookingSyncAttempts int
}

type EndpointConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
}

type JobsConfig struct {
	ReconcileInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "booking-payments-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Gateway: GatewayConfig{
			Mode:            getEnv("GATEWAY_MODE", "http"),
			BaseURL:         getEnv("GATEWAY_BASE_URL", ""),
			Secret:          getEnv("GATEWAY_SECRET", ""),
			KeyIndex:        getEnv("GATEWAY_KEY_INDEX", "1"),
			WebhookBaseURL:  getEnv("GATEWAY_WEBHOOK_BASE_URL", ""),
			WebhookPath:     getEnv("GATEWAY_WEBHOOK_PATH", "/webhooks/gateway"),
			HTTPTimeout:     getSecondsEnv("GATEWAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
			StatusAttempts:  getIntEnv("GATEWAY_STATUS_RETRY_ATTEMPTS", 3),
			StatusBaseDelay: getSecondsEnv("GATEWAY_STATUS_RETRY_BASE_SECONDS", time.Second),
			StatusMaxDelay:  getSecondsEnv("GATEWAY_STATUS_RETRY_MAX_SECONDS", 5*time.Second),
		},
		Payments: PaymentsConfig{
			MinAmountCents:      getInt64Env("PAYMENTS_MIN_AMOUNT_CENTS", 100),
			MaxAmountCents:      getInt64Env("PAYMENTS_MAX_AMOUNT_CENTS", 10_000_000),
			ReconcileStaleAfter: getMinutesEnv("PAYMENTS_RECONCILE_STALE_AFTER_MINUTES", 15*time.Minute),
			JobBatchSize:        int32(getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100)),
			BookingSyncAttempts: getIntEnv("PAYMENTS_BOOKING_SYNC_ATTEMPTS", 3),
		},
		Booking: EndpointConfig{
			BaseURL:     getEnv("BOOKING_SERVICE_BASE_URL", "http://localhost:8081"),
			APIKey:      getEnv("BOOKING_SERVICE_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("BOOKING_SERVICE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Notify: EndpointConfig{
			BaseURL:     getEnv("NOTIFY_SERVICE_BASE_URL", "http://localhost:8082"),
			APIKey:      getEnv("NOTIFY_SERVICE_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("NOTIFY_SERVICE_HTTP_TIMEOUT_SECONDS", 5*time.Second),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getMinutesEnv("PAYMENTS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
