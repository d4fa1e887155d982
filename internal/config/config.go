package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Strategy and cache backend names accepted by Validate.
var (
	validStrategies    = map[string]bool{"local": true, "external": true, "backup": true, "all": true}
	validCacheBackends = map[string]bool{"memory": true, "redis": true}
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig
	Server     ServerConfig
	Log        LogConfig
	Throttling ThrottlingConfig
	OCR        OCRConfig
	Tesseract  TesseractConfig
	EasyOCR    EasyOCRConfig
	OCRSpace   OCRSpaceConfig
	LLM        LLMConfig
	Extraction ExtractionConfig
	Cache      CacheConfig
	Postgres   PostgresConfig
	S3         S3Config
}

// AppConfig holds service identity settings.
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	IsProd  bool   `mapstructure:"is_prod"`
	Workers int    `mapstructure:"workers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxUploadBytes caps image uploads.
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ThrottlingConfig holds per-client request limits.
type ThrottlingConfig struct {
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// OCRConfig holds chain-wide OCR settings.
type OCRConfig struct {
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// TesseractConfig holds settings for the tesseract CLI backend.
type TesseractConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Binary  string        `mapstructure:"binary"`
	Lang    string        `mapstructure:"lang"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EasyOCRConfig holds settings for the EasyOCR backend.
type EasyOCRConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Command   string        `mapstructure:"command"`
	Languages []string      `mapstructure:"languages"`
	GPU       bool          `mapstructure:"gpu"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// OCRSpaceConfig holds settings for the OCR.space API backend.
type OCRSpaceConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	APIKey       string        `mapstructure:"api_key"`
	URL          string        `mapstructure:"url"`
	Language     string        `mapstructure:"language"`
	MaxSizeBytes int           `mapstructure:"max_size_bytes"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds language model client settings.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ExtractionConfig selects the extraction strategy.
type ExtractionConfig struct {
	Strategy   string `mapstructure:"strategy"`
	MaxWorkers int    `mapstructure:"max_workers"`
}

// CacheConfig holds field cache settings.
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
	Prefix        string        `mapstructure:"prefix"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// DSN returns the PostgreSQL connection string.
func (d *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds settings for reading receipt images from S3.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// DefaultWorkers mirrors the usual 2*CPU+1 worker sizing.
func DefaultWorkers() int {
	return 2*runtime.NumCPU() + 1
}

// Load reads an optional .env file and then environment variables with the ML_ prefix.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("ML")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// App defaults
	v.SetDefault("app.name", "autocare-ml-service")
	v.SetDefault("app.version", "0.0.1")
	v.SetDefault("app.is_prod", false)
	v.SetDefault("app.workers", 0)

	// Server defaults
	v.SetDefault("server.port", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.max_upload_bytes", 10<<20)
	v.SetDefault("server.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("throttling.rate_limit_per_minute", 60)

	// OCR defaults
	v.SetDefault("ocr.default_timeout", "10s")
	v.SetDefault("tesseract.enabled", true)
	v.SetDefault("tesseract.binary", "tesseract")
	v.SetDefault("tesseract.lang", "rus+eng")
	v.SetDefault("tesseract.timeout", "10s")
	v.SetDefault("easyocr.enabled", false)
	v.SetDefault("easyocr.command", "easyocr-json")
	v.SetDefault("easyocr.languages", "ru,en")
	v.SetDefault("easyocr.gpu", false)
	v.SetDefault("easyocr.timeout", "20s")
	v.SetDefault("ocrspace.enabled", false)
	v.SetDefault("ocrspace.api_key", "")
	v.SetDefault("ocrspace.url", "https://api.ocr.space/parse/image")
	v.SetDefault("ocrspace.language", "rus")
	v.SetDefault("ocrspace.max_size_bytes", 1<<20)
	v.SetDefault("ocrspace.timeout", "30s")

	// LLM defaults
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.deepseek.com")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("extraction.strategy", "backup")
	v.SetDefault("extraction.max_workers", 4)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.prefix", "mlsvc:fields")

	// Postgres defaults
	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.name", "postgres")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.pool_size", 16)

	// S3 defaults
	v.SetDefault("s3.region", "eu-central-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"app.name":                         "ML_APP_NAME",
		"app.version":                      "ML_APP_VERSION",
		"app.is_prod":                      "ML_APP_IS_PROD",
		"app.workers":                      "ML_APP_WORKERS",
		"server.port":                      "ML_SERVER_PORT",
		"server.read_timeout":              "ML_SERVER_READ_TIMEOUT",
		"server.write_timeout":             "ML_SERVER_WRITE_TIMEOUT",
		"server.max_upload_bytes":          "ML_SERVER_MAX_UPLOAD_BYTES",
		"server.allowed_origins":           "ML_SERVER_ALLOWED_ORIGINS",
		"log.level":                        "ML_LOG_LEVEL",
		"log.format":                       "ML_LOG_FORMAT",
		"log.file":                         "ML_LOG_FILE",
		"throttling.rate_limit_per_minute": "ML_THROTTLING_RATE_LIMIT_PER_MINUTE",
		"ocr.default_timeout":              "ML_OCR_DEFAULT_TIMEOUT",
		"tesseract.enabled":                "ML_TESSERACT_ENABLED",
		"tesseract.binary":                 "ML_TESSERACT_BINARY",
		"tesseract.lang":                   "ML_TESSERACT_LANG",
		"tesseract.timeout":                "ML_TESSERACT_TIMEOUT",
		"easyocr.enabled":                  "ML_EASYOCR_ENABLED",
		"easyocr.command":                  "ML_EASYOCR_COMMAND",
		"easyocr.languages":                "ML_EASYOCR_LANGUAGES",
		"easyocr.gpu":                      "ML_EASYOCR_GPU",
		"easyocr.timeout":                  "ML_EASYOCR_TIMEOUT",
		"ocrspace.enabled":                 "ML_OCRSPACE_ENABLED",
		"ocrspace.api_key":                 "ML_OCRSPACE_API_KEY",
		"ocrspace.url":                     "ML_OCRSPACE_URL",
		"ocrspace.language":                "ML_OCRSPACE_LANGUAGE",
		"ocrspace.max_size_bytes":          "ML_OCRSPACE_MAX_SIZE_BYTES",
		"ocrspace.timeout":                 "ML_OCRSPACE_TIMEOUT",
		"llm.api_key":                      "ML_LLM_API_KEY",
		"llm.base_url":                     "ML_LLM_BASE_URL",
		"llm.model":                        "ML_LLM_MODEL",
		"llm.temperature":                  "ML_LLM_TEMPERATURE",
		"llm.timeout":                      "ML_LLM_TIMEOUT",
		"extraction.strategy":              "ML_EXTRACTION_STRATEGY",
		"extraction.max_workers":           "ML_EXTRACTION_MAX_WORKERS",
		"cache.backend":                    "ML_CACHE_BACKEND",
		"cache.redis_addr":                 "ML_CACHE_REDIS_ADDR",
		"cache.redis_password":             "ML_CACHE_REDIS_PASSWORD",
		"cache.redis_db":                   "ML_CACHE_REDIS_DB",
		"cache.ttl":                        "ML_CACHE_TTL",
		"cache.prefix":                     "ML_CACHE_PREFIX",
		"postgres.enabled":                 "ML_POSTGRES_ENABLED",
		"postgres.host":                    "ML_POSTGRES_HOST",
		"postgres.port":                    "ML_POSTGRES_PORT",
		"postgres.user":                    "ML_POSTGRES_USER",
		"postgres.password":                "ML_POSTGRES_PASSWORD",
		"postgres.name":                    "ML_POSTGRES_DB",
		"postgres.sslmode":                 "ML_POSTGRES_SSLMODE",
		"postgres.pool_size":               "ML_POSTGRES_POOL_SIZE",
		"s3.region":                        "ML_S3_REGION",
		"s3.bucket":                        "ML_S3_BUCKET",
		"s3.endpoint":                      "ML_S3_ENDPOINT",
		"s3.access_key":                    "ML_S3_ACCESS_KEY",
		"s3.secret_key":                    "ML_S3_SECRET_KEY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set PORT. Use it if ML_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ML_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	workers := v.GetInt("app.workers")
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	cfg.App = AppConfig{
		Name:    v.GetString("app.name"),
		Version: v.GetString("app.version"),
		IsProd:  v.GetBool("app.is_prod"),
		Workers: workers,
	}
	cfg.Server = ServerConfig{
		Port:           serverPort,
		ReadTimeout:    v.GetDuration("server.read_timeout"),
		WriteTimeout:   v.GetDuration("server.write_timeout"),
		MaxUploadBytes: v.GetInt64("server.max_upload_bytes"),
		// Comma-separated in the environment.
		AllowedOrigins: splitList(v.GetString("server.allowed_origins")),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		File:   v.GetString("log.file"),
	}
	cfg.Throttling = ThrottlingConfig{
		RateLimitPerMinute: v.GetInt("throttling.rate_limit_per_minute"),
	}
	cfg.OCR = OCRConfig{
		DefaultTimeout: v.GetDuration("ocr.default_timeout"),
	}
	cfg.Tesseract = TesseractConfig{
		Enabled: v.GetBool("tesseract.enabled"),
		Binary:  v.GetString("tesseract.binary"),
		Lang:    v.GetString("tesseract.lang"),
		Timeout: v.GetDuration("tesseract.timeout"),
	}
	cfg.EasyOCR = EasyOCRConfig{
		Enabled:   v.GetBool("easyocr.enabled"),
		Command:   v.GetString("easyocr.command"),
		Languages: splitList(v.GetString("easyocr.languages")),
		GPU:       v.GetBool("easyocr.gpu"),
		Timeout:   v.GetDuration("easyocr.timeout"),
	}
	cfg.OCRSpace = OCRSpaceConfig{
		Enabled:      v.GetBool("ocrspace.enabled"),
		APIKey:       v.GetString("ocrspace.api_key"),
		URL:          v.GetString("ocrspace.url"),
		Language:     v.GetString("ocrspace.language"),
		MaxSizeBytes: v.GetInt("ocrspace.max_size_bytes"),
		Timeout:      v.GetDuration("ocrspace.timeout"),
	}
	cfg.LLM = LLMConfig{
		APIKey:      v.GetString("llm.api_key"),
		BaseURL:     v.GetString("llm.base_url"),
		Model:       v.GetString("llm.model"),
		Temperature: float32(v.GetFloat64("llm.temperature")),
		Timeout:     v.GetDuration("llm.timeout"),
	}
	cfg.Extraction = ExtractionConfig{
		Strategy:   strings.ToLower(v.GetString("extraction.strategy")),
		MaxWorkers: v.GetInt("extraction.max_workers"),
	}
	cfg.Cache = CacheConfig{
		Backend:       strings.ToLower(v.GetString("cache.backend")),
		RedisAddr:     v.GetString("cache.redis_addr"),
		RedisPassword: v.GetString("cache.redis_password"),
		RedisDB:       v.GetInt("cache.redis_db"),
		TTL:           v.GetDuration("cache.ttl"),
		Prefix:        v.GetString("cache.prefix"),
	}
	cfg.Postgres = PostgresConfig{
		Enabled:  v.GetBool("postgres.enabled"),
		Host:     v.GetString("postgres.host"),
		Port:     v.GetInt("postgres.port"),
		User:     v.GetString("postgres.user"),
		Password: v.GetString("postgres.password"),
		Name:     v.GetString("postgres.name"),
		SSLMode:  v.GetString("postgres.sslmode"),
		PoolSize: v.GetInt("postgres.pool_size"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if !validStrategies[c.Extraction.Strategy] {
		return fmt.Errorf("unknown extraction strategy %q", c.Extraction.Strategy)
	}
	if !validCacheBackends[c.Cache.Backend] {
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.OCRSpace.Enabled && c.OCRSpace.APIKey == "" {
		return errors.New("ocrspace is enabled but ML_OCRSPACE_API_KEY is empty")
	}
	if c.App.IsProd && c.Extraction.Strategy != "local" && c.LLM.APIKey == "" {
		return fmt.Errorf("strategy %q needs ML_LLM_API_KEY in production", c.Extraction.Strategy)
	}
	if c.Throttling.RateLimitPerMinute <= 0 {
		return errors.New("throttling.rate_limit_per_minute must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
