package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm/logger"
)

// DBConfig holds database configuration
type DBConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the PostgreSQL connection string
func (c *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port               string
	Env                string
	AllowedOrigins     []string
	AdminSignupEnabled bool
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
	CookieName      string
	CookieSecure    bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// RedisConfig holds cache configuration. An empty Addr selects the in-process cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SecurityConfig holds CSRF and login throttling settings
type SecurityConfig struct {
	CSRFEnabled     bool
	CSRFKey         string
	LoginRatePerMin int
	LoginBurst      int
}

// ShippingConfig holds the shipping carrier API settings
type ShippingConfig struct {
	BaseURL       string `yaml:"base_url"`
	Token         string `yaml:"token"`
	RatePerMinute int    `yaml:"rate_per_minute"`
	PickupName    string `yaml:"pickup_name"`
}

// PaymentConfig holds the payment gateway settings
type PaymentConfig struct {
	BaseURL   string `yaml:"base_url"`
	KeyID     string `yaml:"key_id"`
	KeySecret string `yaml:"key_secret"`
	Currency  string `yaml:"currency"`
}

// StorageConfig holds the object storage settings
type StorageConfig struct {
	Endpoint        string        `yaml:"endpoint"`
	AccessKey       string        `yaml:"access_key"`
	SecretKey       string        `yaml:"secret_key"`
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	UseSSL          bool          `yaml:"use_ssl"`
	UploadURLExpiry time.Duration `yaml:"upload_url_expiry"`
}

// IntegrationsConfig groups the external collaborators
type IntegrationsConfig struct {
	Shipping ShippingConfig `yaml:"shipping"`
	Payment  PaymentConfig  `yaml:"payment"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Config holds all configuration
type Config struct {
	ServiceName  string
	DB           DBConfig
	Server       ServerConfig
	JWT          JWTConfig
	Log          LogConfig
	Redis        RedisConfig
	Security     SecurityConfig
	Integrations IntegrationsConfig
}

// Load loads configuration from environment variables, then applies the
// optional YAML integrations file named by CONFIG_FILE.
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Not returning error as .env file is optional
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		ServiceName: "locarto",
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "locarto"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		Server: ServerConfig{
			Port:               getEnv("SERVER_PORT", "8080"),
			Env:                getEnv("APP_ENV", "development"),
			AllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			AdminSignupEnabled: getEnvAsBool("ADMIN_SIGNUP_ENABLED", false),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "locartosecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
			CookieName:      getEnv("SESSION_COOKIE_NAME", "locarto_session"),
			CookieSecure:    getEnvAsBool("SESSION_COOKIE_SECURE", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Security: SecurityConfig{
			CSRFEnabled:     getEnvAsBool("CSRF_ENABLED", false),
			CSRFKey:         getEnv("CSRF_KEY", "0123456789abcdef0123456789abcdef"),
			LoginRatePerMin: getEnvAsInt("LOGIN_RATE_PER_MINUTE", 10),
			LoginBurst:      getEnvAsInt("LOGIN_BURST", 5),
		},
		Integrations: IntegrationsConfig{
			Shipping: ShippingConfig{
				BaseURL:       getEnv("SHIPPING_BASE_URL", "https://staging-express.delhivery.com"),
				Token:         getEnv("SHIPPING_TOKEN", ""),
				RatePerMinute: getEnvAsInt("SHIPPING_RATE_PER_MINUTE", 60),
				PickupName:    getEnv("SHIPPING_PICKUP_NAME", "locarto-warehouse"),
			},
			Payment: PaymentConfig{
				BaseURL:   getEnv("PAYMENT_BASE_URL", "https://api.razorpay.com"),
				KeyID:     getEnv("PAYMENT_KEY_ID", ""),
				KeySecret: getEnv("PAYMENT_KEY_SECRET", ""),
				Currency:  getEnv("PAYMENT_CURRENCY", "INR"),
			},
			Storage: StorageConfig{
				Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
				AccessKey:       getEnv("STORAGE_ACCESS_KEY", ""),
				SecretKey:       getEnv("STORAGE_SECRET_KEY", ""),
				Bucket:          getEnv("STORAGE_BUCKET", "locarto-uploads"),
				Region:          getEnv("STORAGE_REGION", "us-east-1"),
				UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
				UploadURLExpiry: getEnvAsDuration("STORAGE_UPLOAD_URL_EXPIRY", 15*time.Minute),
			},
		},
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := config.applyIntegrationsFile(path); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// applyIntegrationsFile overlays the integrations block of a YAML file.
// Keys absent from the file keep their environment values.
func (c *Config) applyIntegrationsFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	doc := struct {
		Integrations *IntegrationsConfig `yaml:"integrations"`
	}{Integrations: &c.Integrations}

	if err := yaml.NewDecoder(file).Decode(&doc); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("service", c.ServiceName),
		zap.String("environment", c.Server.Env),
		zap.String("db_host", c.DB.Host),
		zap.String("db_port", c.DB.Port),
		zap.String("db_user", c.DB.User),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.Bool("redis_cache", c.Redis.Addr != ""),
		zap.Bool("csrf_enabled", c.Security.CSRFEnabled),
		zap.String("shipping_base_url", c.Integrations.Shipping.BaseURL),
		zap.String("payment_base_url", c.Integrations.Payment.BaseURL),
		zap.String("storage_endpoint", c.Integrations.Storage.Endpoint),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Comma separated, blanks dropped
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}
