package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database         DatabaseConfig
	Server           ServerConfig
	Auth             AuthConfig
	Lockout          LockoutConfig
	IdentityProvider IdentityProviderConfig
	Redis            RedisConfig
	Email            EmailConfig
	Background       BackgroundConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	MigrateOnStart    bool
}

type ServerConfig struct {
	Port              string
	Env               string
	LogLevel          string
	AllowedOrigins    []string
	TrustedProxies    []string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestsPerMinute int
}

type AuthConfig struct {
	JWTSecret                     string
	OtpExpirationMinutes          int
	MaxOtpIncorrectCount          int
	ResetPasswordTokenExpiryHours int
	LoginTokenExpiryHours         int
	// Catalog code a caller's roles must grant to manage roles; empty disables the check
	RoleAdminPermission string
}

type LockoutConfig struct {
	MaxFailedAttempts int
	Window            time.Duration
}

type IdentityProviderConfig struct {
	TokenURL              string
	DirectoryTokenURL     string
	GraphBaseURL          string
	ClientAppID           string
	AdminAppID            string
	DirectoryClientID     string
	DirectoryClientSecret string
	ClientIssuer          string
	AdminIssuer           string
	Timeout               time.Duration
}

type RedisConfig struct {
	Addr                 string
	Password             string
	DB                   int
	OtpRequestsPerWindow int
	OtpRequestWindow     time.Duration
}

// Enabled reports whether a Redis server is configured
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

type BackgroundConfig struct {
	CatalogRefreshInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "warden"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			MigrateOnStart:    getEnvAsBool("DB_MIGRATE_ON_START", true),
		},
		Server: ServerConfig{
			Port:              getEnv("PORT", "8080"),
			Env:               env,
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:    parseAllowedOrigins(env),
			TrustedProxies:    splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestsPerMinute: getEnvAsInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		},
		Auth: AuthConfig{
			JWTSecret:                     jwtSecret,
			OtpExpirationMinutes:          getEnvAsInt("OTP_EXPIRATION_MINUTES", 5),
			MaxOtpIncorrectCount:          getEnvAsInt("MAX_OTP_INCORRECT_COUNT", 3),
			ResetPasswordTokenExpiryHours: getEnvAsInt("RESET_PASSWORD_TOKEN_EXPIRY_HOURS", 24),
			LoginTokenExpiryHours:         getEnvAsInt("LOGIN_TOKEN_EXPIRY_HOURS", 8),
			RoleAdminPermission:           getEnv("ROLE_ADMIN_PERMISSION", ""),
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: getEnvAsInt("LOCKOUT_MAX_FAILED_ATTEMPTS", 5),
			Window:            getEnvAsDuration("LOCKOUT_WINDOW", 2*time.Hour),
		},
		IdentityProvider: IdentityProviderConfig{
			TokenURL:              getEnv("IDP_TOKEN_URL", ""),
			DirectoryTokenURL:     getEnv("IDP_DIRECTORY_TOKEN_URL", ""),
			GraphBaseURL:          strings.TrimRight(getEnv("IDP_GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"), "/"),
			ClientAppID:           getEnv("IDP_CLIENT_APP_ID", ""),
			AdminAppID:            getEnv("IDP_ADMIN_APP_ID", ""),
			DirectoryClientID:     getEnv("IDP_DIRECTORY_CLIENT_ID", ""),
			DirectoryClientSecret: getEnv("IDP_DIRECTORY_CLIENT_SECRET", ""),
			ClientIssuer:          getEnv("IDP_CLIENT_ISSUER", ""),
			AdminIssuer:           getEnv("IDP_ADMIN_ISSUER", ""),
			Timeout:               getEnvAsDuration("IDP_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:                 getEnv("REDIS_ADDR", ""),
			Password:             getEnv("REDIS_PASSWORD", ""),
			DB:                   getEnvAsInt("REDIS_DB", 0),
			OtpRequestsPerWindow: getEnvAsInt("OTP_REQUESTS_PER_WINDOW", 5),
			OtpRequestWindow:     getEnvAsDuration("OTP_REQUEST_WINDOW", 15*time.Minute),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
		Background: BackgroundConfig{
			CatalogRefreshInterval: getEnvAsDuration("CATALOG_REFRESH_INTERVAL", 5*time.Minute),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.OtpExpirationMinutes <= 0 {
		return fmt.Errorf("OTP_EXPIRATION_MINUTES must be positive")
	}
	if c.Auth.MaxOtpIncorrectCount <= 0 {
		return fmt.Errorf("MAX_OTP_INCORRECT_COUNT must be positive")
	}
	if c.Auth.LoginTokenExpiryHours <= 0 || c.Auth.ResetPasswordTokenExpiryHours <= 0 {
		return fmt.Errorf("token expiry hours must be positive")
	}
	if c.Lockout.MaxFailedAttempts <= 0 {
		return fmt.Errorf("LOCKOUT_MAX_FAILED_ATTEMPTS must be positive")
	}
	if c.Email.Enabled && c.Email.FromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_ENABLED is true")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// OtpExpiry returns the OTP lifetime as a duration
func (c *AuthConfig) OtpExpiry() time.Duration {
	return time.Duration(c.OtpExpirationMinutes) * time.Minute
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:4200", // Angular default
		"http://localhost:5173", // Vite default
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:4200",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	}
}
