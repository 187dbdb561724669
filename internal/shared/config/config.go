package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "your-super-secret-jwt-key"

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	PublicBaseURL  string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig

	// Logging
	LogLevel string

	Kafka   KafkaConfig
	Payment PaymentConfig
	VNPay   VNPayConfig
	Voucher VoucherConfig
	Jobs    JobsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	CatalogTTL time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled                 bool          `json:"enabled"`
	WindowDuration          time.Duration `json:"window_duration"`
	DefaultRequests         int           `json:"default_requests"`
	PublicRequests          int           `json:"public_requests"`
	BookingRequests         int           `json:"booking_requests"`
	BookingCriticalRequests int           `json:"booking_critical_requests"`
	PaymentRequests         int           `json:"payment_requests"`
	CallbackRequests        int           `json:"callback_requests"`
	AdminRequests           int           `json:"admin_requests"`
	HealthRequests          int           `json:"health_requests"`
	WhitelistedIPs          []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds the lifecycle notification broker settings
type KafkaConfig struct {
	Enabled  bool
	Brokers  []string
	Topic    string
	ClientID string
	RetryMax int
	Timeout  time.Duration
}

// PaymentConfig holds gateway-independent payment settings
type PaymentConfig struct {
	// Timeout is how long a payment may stay Processing before it is failed
	// and a new attempt is allowed.
	Timeout         time.Duration
	Currency        string
	EnabledMethods  []string
	SandboxSecret   string
	SandboxEndpoint string
}

// VNPayConfig holds VNPay merchant credentials
type VNPayConfig struct {
	TmnCode     string
	HashSecret  string
	PayURL      string
	RefundURL   string
	ReturnURL   string
	Version     string
	Locale      string
	HTTPTimeout time.Duration
}

// VoucherConfig holds voucher usage policy
type VoucherConfig struct {
	// ReleaseOnCancel gives a cancelled booking's voucher usage back.
	ReleaseOnCancel bool
}

// JobsConfig holds scheduled maintenance settings
type JobsConfig struct {
	Enabled               bool
	VoucherExpiryInterval time.Duration
	StalePaymentInterval  time.Duration
	StayCompleteInterval  time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "tripenjoy_db"),
			User:     getEnv("DB_USER", "tripenjoy_user"),
			Password: getEnv("DB_PASSWORD", "tripenjoy_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Enabled:    getBoolEnv("REDIS_ENABLED", true),
			Host:       getEnv("REDIS_HOST", "localhost"),
			Port:       getEnv("REDIS_PORT", "6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getIntEnv("REDIS_DB", 0),
			CatalogTTL: getDurationEnv("REDIS_CATALOG_TTL", 1*time.Hour),
		},

		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", defaultJWTSecret),
		},

		RateLimit: RateLimitConfig{
			Enabled:                 getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:          getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:         getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:          getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			BookingRequests:         getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 30),
			BookingCriticalRequests: getIntEnv("RATE_LIMIT_BOOKING_CRITICAL_REQUESTS", 10),
			PaymentRequests:         getIntEnv("RATE_LIMIT_PAYMENT_REQUESTS", 10),
			CallbackRequests:        getIntEnv("RATE_LIMIT_CALLBACK_REQUESTS", 300),
			AdminRequests:           getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			HealthRequests:          getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 120),
			WhitelistedIPs:          getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Kafka: KafkaConfig{
			Enabled:  getBoolEnv("KAFKA_ENABLED", false),
			Brokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:    getEnv("KAFKA_LIFECYCLE_TOPIC", "booking-lifecycle"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "tripenjoy-backend"),
			RetryMax: getIntEnv("KAFKA_RETRY_MAX", 3),
			Timeout:  getDurationEnv("KAFKA_TIMEOUT", 10*time.Second),
		},

		Payment: PaymentConfig{
			Timeout:         getDurationEnv("PAYMENT_TIMEOUT", 15*time.Minute),
			Currency:        getEnv("PAYMENT_CURRENCY", "VND"),
			EnabledMethods:  getStringSliceEnv("PAYMENT_METHODS", []string{"SANDBOX"}),
			SandboxSecret:   getEnv("PAYMENT_SANDBOX_SECRET", "sandbox-secret"),
			SandboxEndpoint: getEnv("PAYMENT_SANDBOX_ENDPOINT", ""),
		},

		VNPay: VNPayConfig{
			TmnCode:     getEnv("VNP_TMNCODE", ""),
			HashSecret:  getEnv("VNP_HASHSECRET", ""),
			PayURL:      getEnv("VNP_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			RefundURL:   getEnv("VNP_REFUND_URL", "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"),
			ReturnURL:   getEnv("VNP_RETURN_URL", ""),
			Version:     getEnv("VNP_VERSION", "2.1.0"),
			Locale:      getEnv("VNP_LOCALE", "vn"),
			HTTPTimeout: getDurationEnv("VNP_HTTP_TIMEOUT", 15*time.Second),
		},

		Voucher: VoucherConfig{
			ReleaseOnCancel: getBoolEnv("VOUCHER_RELEASE_ON_CANCEL", false),
		},

		Jobs: JobsConfig{
			Enabled:               getBoolEnv("JOBS_ENABLED", true),
			VoucherExpiryInterval: getDurationEnv("JOBS_VOUCHER_EXPIRY_INTERVAL", 10*time.Minute),
			StalePaymentInterval:  getDurationEnv("JOBS_STALE_PAYMENT_INTERVAL", 1*time.Minute),
			StayCompleteInterval:  getDurationEnv("JOBS_STAY_COMPLETE_INTERVAL", 1*time.Hour),
		},
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port
	if cfg.Payment.SandboxEndpoint == "" {
		cfg.Payment.SandboxEndpoint = cfg.PublicBaseURL + cfg.GetAPIBasePath() + "/payments/sandbox/checkout"
	}
	if cfg.VNPay.ReturnURL == "" {
		cfg.VNPay.ReturnURL = cfg.PublicBaseURL + cfg.GetAPIBasePath() + "/payments/callback/VNPAY"
	}

	return cfg
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be > 0")
	}
	if len(c.Payment.EnabledMethods) == 0 {
		return fmt.Errorf("PAYMENT_METHODS must list at least one gateway")
	}
	for _, method := range c.Payment.EnabledMethods {
		switch strings.ToUpper(method) {
		case "VNPAY":
			if c.VNPay.TmnCode == "" || c.VNPay.HashSecret == "" {
				return fmt.Errorf("VNP_TMNCODE and VNP_HASHSECRET are required when VNPAY is enabled")
			}
		case "SANDBOX":
			if c.IsProduction() {
				return fmt.Errorf("SANDBOX payment method must not be enabled in release mode")
			}
		default:
			return fmt.Errorf("unknown payment method %q in PAYMENT_METHODS", method)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must be set when KAFKA_ENABLED=true")
	}
	if c.Jobs.Enabled {
		if c.Jobs.VoucherExpiryInterval <= 0 || c.Jobs.StalePaymentInterval <= 0 || c.Jobs.StayCompleteInterval <= 0 {
			return fmt.Errorf("job intervals must be > 0")
		}
	}
	if c.IsProduction() && (c.JWT.Secret == "" || c.JWT.Secret == defaultJWTSecret) {
		return fmt.Errorf("in release mode JWT_SECRET must be set and not default")
	}
	return nil
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
