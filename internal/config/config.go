package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Backend  ServiceConfig
	Payment  PaymentConfig
	Pricing  PricingConfig
	Auth     AuthConfig
	Features FeatureFlags
	LogLevel string
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit    float64
	RateBurst    int
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Enabled    bool
	Host       string
	Port       int
	Password   string
	DB         int
	CatalogTTL time.Duration
	SessionTTL time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	CheckoutTopic string
	PaymentsTopic string
	ConsumerGroup string
}

// ServiceConfig describes an upstream HTTP dependency.
type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
	APIKey  string
}

// PaymentConfig describes the hosted checkout provider.
type PaymentConfig struct {
	Mode        string
	CheckoutURL string
	Enabled     bool
}

// PricingConfig holds the checkout arithmetic constants.
type PricingConfig struct {
	TaxRate           float64
	DeliveryThreshold float64
	DeliveryFee       float64
	CartPlatformFee   float64
}

type AuthConfig struct {
	AdminJWTSecret string
}

type FeatureFlags struct {
	EnableCheckoutEvents bool
	EnableCatalogCaching bool
	EnablePaymentEvents  bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8090),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
			RateLimit:    getEnvFloat("SERVER_RATE_LIMIT", 20),
			RateBurst:    getEnvInt("SERVER_RATE_BURST", 40),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvBool("DB_ENABLED", true),
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "acme"),
			Password:     getEnvString("DB_PASSWORD", "acme"),
			Name:         getEnvString("DB_NAME", "acme_storefront"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Enabled:    getEnvBool("REDIS_ENABLED", true),
			Host:       getEnvString("REDIS_HOST", "localhost"),
			Port:       getEnvInt("REDIS_PORT", 6379),
			Password:   getEnvString("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			CatalogTTL: time.Duration(getEnvInt("CATALOG_CACHE_TTL", 300)) * time.Second,
			SessionTTL: time.Duration(getEnvInt("SESSION_TTL", 86400)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			CheckoutTopic: getEnvString("KAFKA_CHECKOUT_TOPIC", "storefront.checkout"),
			PaymentsTopic: getEnvString("KAFKA_PAYMENTS_TOPIC", "payments"),
			ConsumerGroup: getEnvString("KAFKA_CONSUMER_GROUP", "storefront-service"),
		},
		Backend: ServiceConfig{
			BaseURL: strings.TrimRight(getEnvString("BACKEND_URL", "http://localhost:5000"), "/"),
			Timeout: time.Duration(getEnvInt("BACKEND_TIMEOUT", 30)) * time.Second,
			APIKey:  getEnvString("BACKEND_API_KEY", ""),
		},
		Payment: PaymentConfig{
			Mode:        getEnvString("PAYMENT_MODE", "sandbox"),
			CheckoutURL: getEnvString("PAYMENT_CHECKOUT_URL", "https://sandbox.cashfree.com/pg/view/sessions/checkout"),
			Enabled:     getEnvBool("PAYMENT_ENABLED", true),
		},
		Pricing: PricingConfig{
			TaxRate:           getEnvFloat("PRICING_TAX_RATE", 0.18),
			DeliveryThreshold: getEnvFloat("PRICING_DELIVERY_THRESHOLD", 500),
			DeliveryFee:       getEnvFloat("PRICING_DELIVERY_FEE", 40),
			CartPlatformFee:   getEnvFloat("PRICING_CART_PLATFORM_FEE", 9),
		},
		Auth: AuthConfig{
			AdminJWTSecret: getEnvString("ADMIN_JWT_SECRET", ""),
		},
		Features: FeatureFlags{
			EnableCheckoutEvents: getEnvBool("FEATURE_CHECKOUT_EVENTS", true),
			EnableCatalogCaching: getEnvBool("FEATURE_CATALOG_CACHING", true),
			EnablePaymentEvents:  getEnvBool("FEATURE_PAYMENT_EVENTS", true),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		default:
			return false
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
