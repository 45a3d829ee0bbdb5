package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode   string
	Port      string
	LogLevel  string
	Seed      bool
	Database  DatabaseConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Loan      LoanConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret          string
	AccessTokenMins int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// LoanConfig holds the lending policy
type LoanConfig struct {
	MaxActive             int
	FinePerDay            int64
	DefaultDays           int
	ExtensionDays         int
	MaxExtensions         int // 0 = unlimited
	BlockDuplicatePending bool
	Timezone              string
	Location              *time.Location
}

// RedisConfig holds redis configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Channel  string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	MetricInterval time.Duration
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	OverdueSweepCron string // empty disables the sweep
}

// RateLimitConfig holds the per-borrower loan request limiter
type RateLimitConfig struct {
	LoanRequestRPS   float64
	LoanRequestBurst int
	TTL              time.Duration
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	loanCfg, err := loadLoanConfig()
	if err != nil {
		return nil, err
	}

	dbCfg := loadDatabaseConfig(appMode)
	if dbCfg.Driver != "mysql" && dbCfg.Driver != "postgres" {
		return nil, fmt.Errorf("invalid DB_DRIVER: '%s' (must be 'mysql' or 'postgres')", dbCfg.Driver)
	}

	sweepCron, ok := os.LookupEnv("OVERDUE_SWEEP_CRON")
	if !ok {
		sweepCron = "0 1 * * *"
	}

	config := &Config{
		AppMode:   appMode,
		Port:      getEnv("PORT", "3000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Seed:      getEnvBool("SEED_ON_START", appMode == "dev"),
		Database:  dbCfg,
		JWT:       loadJWTConfig(appMode),
		Cookie:    loadCookieConfig(appMode),
		Loan:      loanCfg,
		Redis:     loadRedisConfig(),
		Telemetry: loadTelemetryConfig(),
		Scheduler: SchedulerConfig{OverdueSweepCron: strings.TrimSpace(sweepCron)},
		RateLimit: loadRateLimitConfig(),
	}

	if config.IsProd() && config.JWT.Secret == "default_secret" {
		return nil, fmt.Errorf("PROD_JWT_SECRET must be set in prod mode")
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)
	driver := strings.ToLower(getEnv("DB_DRIVER", "mysql"))

	defaultPort := "3306"
	if driver == "postgres" {
		defaultPort = "5432"
	}

	return DatabaseConfig{
		Driver:   driver,
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", defaultPort),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "perpustakaan"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "120"))

	return JWTConfig{
		Secret:          getEnv(modePrefix(mode)+"JWT_SECRET", "default_secret"),
		AccessTokenMins: accessMins,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	secure, _ := strconv.ParseBool(getEnv(modePrefix(mode)+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadLoanConfig loads the lending policy
func loadLoanConfig() (LoanConfig, error) {
	cfg := LoanConfig{
		MaxActive:             getEnvInt("LOAN_MAX_ACTIVE", 3),
		FinePerDay:            int64(getEnvInt("LOAN_FINE_PER_DAY", 1000)),
		DefaultDays:           getEnvInt("LOAN_DEFAULT_DAYS", 7),
		ExtensionDays:         getEnvInt("LOAN_EXTENSION_DAYS", 7),
		MaxExtensions:         getEnvInt("LOAN_MAX_EXTENSIONS", 0),
		BlockDuplicatePending: getEnvBool("LOAN_BLOCK_DUPLICATE_PENDING", false),
		Timezone:              getEnv("LOAN_TIMEZONE", "Asia/Jakarta"),
	}

	if cfg.MaxActive < 1 {
		return cfg, fmt.Errorf("LOAN_MAX_ACTIVE must be at least 1, got %d", cfg.MaxActive)
	}
	if cfg.FinePerDay < 0 || cfg.DefaultDays < 1 || cfg.ExtensionDays < 1 || cfg.MaxExtensions < 0 {
		return cfg, fmt.Errorf("invalid loan policy: fine=%d default_days=%d extension_days=%d max_extensions=%d",
			cfg.FinePerDay, cfg.DefaultDays, cfg.ExtensionDays, cfg.MaxExtensions)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("invalid LOAN_TIMEZONE '%s': %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// loadRedisConfig loads redis config
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  getEnvBool("REDIS_ENABLED", false),
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
		Channel:  getEnv("REDIS_LOAN_CHANNEL", "perpus:loan-events"),
	}
}

// loadTelemetryConfig loads OpenTelemetry config
func loadTelemetryConfig() TelemetryConfig {
	interval, err := time.ParseDuration(getEnv("OTEL_METRIC_INTERVAL", "30s"))
	if err != nil {
		interval = 30 * time.Second
	}

	return TelemetryConfig{
		Enabled:        getEnvBool("OTEL_ENABLED", false),
		Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:    getEnv("OTEL_SERVICE_NAME", "perpus-loan"),
		ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
		MetricInterval: interval,
	}
}

// loadRateLimitConfig loads limiter config
func loadRateLimitConfig() RateLimitConfig {
	rps, err := strconv.ParseFloat(getEnv("LOAN_REQUEST_RPS", "0.2"), 64)
	if err != nil || rps <= 0 {
		rps = 0.2
	}
	ttl, err := time.ParseDuration(getEnv("LOAN_REQUEST_LIMIT_TTL", "10m"))
	if err != nil {
		ttl = 10 * time.Minute
	}

	return RateLimitConfig{
		LoanRequestRPS:   rps,
		LoanRequestBurst: getEnvInt("LOAN_REQUEST_BURST", 3),
		TTL:              ttl,
	}
}

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(strings.TrimSpace(getEnv(key, strconv.Itoa(defaultValue))))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, strconv.FormatBool(defaultValue))))
	if err != nil {
		return defaultValue
	}
	return v
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return "https://perpustakaan.sekolah.sch.id"
	}
	return origins
}
