package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from environment variables (optionally via .env).
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Auth       AuthConfig       `mapstructure:"auth"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Extractor  ExtractorConfig  `mapstructure:"extractor"`
	Summarizer SummarizerConfig `mapstructure:"summarizer"`
	Resume     ResumeConfig     `mapstructure:"resume"`
	Clamd      ClamdConfig      `mapstructure:"clamd"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// ParseRateLimit 为每个客户端 IP 每小时允许的 parse-url 次数，<=0 表示不限制。
	ParseRateLimit int `mapstructure:"parse_rate_limit"`
	// TrustedProxies 为逗号分隔的代理 IP/CIDR；为空时忽略 X-Forwarded-For，直接使用连接地址。
	TrustedProxies string `mapstructure:"trusted_proxies"`
}

// Proxies splits TrustedProxies into a trimmed slice; nil when unset.
func (a APIConfig) Proxies() []string {
	return splitList(a.TrustedProxies)
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port 形式的地址。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// StorageConfig 选择对象存储后端（minio / s3）并携带各自的连接参数。
type StorageConfig struct {
	Driver string      `mapstructure:"driver"`
	Bucket string      `mapstructure:"bucket"`
	MinIO  MinIOConfig `mapstructure:"minio"`
	S3     S3Config    `mapstructure:"s3"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// S3Config contains options for AWS S3. Endpoint is optional (S3-compatible gateways).
type S3Config struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// AuthConfig 控制 Google ID Token 校验与会话令牌签发。
type AuthConfig struct {
	GoogleClientID string        `mapstructure:"google_client_id"`
	SessionSecret  string        `mapstructure:"session_secret"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

// LLMConfig 描述生成式模型的接入方式。
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExtractorConfig 选择职位解析策略与页面抓取方式。
type ExtractorConfig struct {
	Strategy     string        `mapstructure:"strategy"`
	FetcherMode  string        `mapstructure:"fetcher_mode"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	// AllowPrivateHosts 允许抓取内网地址，仅用于本地开发。
	AllowPrivateHosts bool `mapstructure:"allow_private_hosts"`
}

// SummarizerConfig 描述托管摘要服务。
type SummarizerConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ResumeConfig 控制简历上传限制。
type ResumeConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// ClamdConfig 为空地址时跳过病毒扫描。
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// WorkerConfig 控制 asynq worker 并发与指标端口（0 表示不暴露）。
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MetricsPort int `mapstructure:"metrics_port"`
}

// CORSConfig lists allowed browser origins (comma separated in env).
type CORSConfig struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins splits AllowedOrigins into a trimmed slice.
func (c CORSConfig) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration from environment variables. A .env file in the
// working directory, when present, is loaded first without overriding
// variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 5000)
	v.SetDefault("api.parse_rate_limit", 30)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "career_vault")
	v.SetDefault("database.user", "career_vault")
	v.SetDefault("database.password", "career_vault")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("storage.driver", "minio")
	v.SetDefault("storage.bucket", "career-vault")
	v.SetDefault("storage.minio.endpoint", "localhost:9000")
	v.SetDefault("storage.minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.minio.region", "us-east-1")
	v.SetDefault("storage.minio.bucket_lookup", "auto")
	v.SetDefault("storage.minio.auto_create_bucket", true)
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("llm.provider", "googleai")
	v.SetDefault("llm.model", "gemini-1.5-flash")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("extractor.strategy", "generative")
	v.SetDefault("extractor.fetcher_mode", "http")
	v.SetDefault("extractor.fetch_timeout", 10*time.Second)
	v.SetDefault("extractor.allow_private_hosts", false)
	v.SetDefault("summarizer.url", "https://api-inference.huggingface.co/models/facebook/bart-large-cnn")
	v.SetDefault("summarizer.timeout", 30*time.Second)
	v.SetDefault("resume.max_bytes", 10*1024*1024)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000")
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.metrics_port", 9091)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                         "API_PORT",
		"api.parse_rate_limit":             "PARSE_RATE_LIMIT_PER_HOUR",
		"api.trusted_proxies":              "API_TRUSTED_PROXIES",
		"database.host":                    "DATABASE_HOST",
		"database.port":                    "DATABASE_PORT",
		"database.name":                    "POSTGRES_DB",
		"database.user":                    "POSTGRES_USER",
		"database.password":                "POSTGRES_PASSWORD",
		"database.sslmode":                 "DATABASE_SSLMODE",
		"redis.host":                       "REDIS_HOST",
		"redis.port":                       "REDIS_PORT",
		"storage.driver":                   "STORAGE_DRIVER",
		"storage.bucket":                   "STORAGE_BUCKET",
		"storage.minio.endpoint":           "MINIO_ENDPOINT",
		"storage.minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"storage.minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"storage.minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"storage.minio.use_ssl":            "MINIO_USE_SSL",
		"storage.minio.region":             "MINIO_REGION",
		"storage.minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
		"storage.minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"storage.s3.region":                "AWS_REGION",
		"storage.s3.access_key_id":         "AWS_ACCESS_KEY_ID",
		"storage.s3.secret_access_key":     "AWS_SECRET_ACCESS_KEY",
		"storage.s3.endpoint":              "S3_ENDPOINT",
		"storage.s3.use_path_style":        "S3_USE_PATH_STYLE",
		"auth.google_client_id":            "GOOGLE_CLIENT_ID",
		"auth.session_secret":              "AUTH_SESSION_SECRET",
		"auth.session_ttl":                 "AUTH_SESSION_TTL",
		"llm.provider":                     "LLM_PROVIDER",
		"llm.api_key":                      "GEMINI_API_KEY",
		"llm.model":                        "LLM_MODEL",
		"llm.timeout":                      "LLM_TIMEOUT",
		"extractor.strategy":               "EXTRACTOR_STRATEGY",
		"extractor.fetcher_mode":           "FETCHER_MODE",
		"extractor.fetch_timeout":          "FETCH_TIMEOUT",
		"extractor.allow_private_hosts":    "FETCH_ALLOW_PRIVATE_HOSTS",
		"summarizer.url":                   "SUMMARIZER_URL",
		"summarizer.token":                 "HF_API_TOKEN",
		"summarizer.timeout":               "SUMMARIZER_TIMEOUT",
		"resume.max_bytes":                 "RESUME_MAX_BYTES",
		"clamd.addr":                       "CLAMD_ADDR",
		"cors.allowed_origins":             "CORS_ALLOWED_ORIGINS",
		"worker.concurrency":               "WORKER_CONCURRENCY",
		"worker.metrics_port":              "WORKER_METRICS_PORT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	for _, proxy := range cfg.API.Proxies() {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid trusted proxy %q", proxy)
			}
		}
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.Storage.Bucket == "" {
		return errors.New("storage bucket is required")
	}
	switch cfg.Storage.Driver {
	case "minio":
		if cfg.Storage.MinIO.Endpoint == "" {
			return errors.New("minio endpoint is required")
		}
		if cfg.Storage.MinIO.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if cfg.Storage.MinIO.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
	case "s3":
		if cfg.Storage.S3.Region == "" {
			return errors.New("s3 region is required")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	switch cfg.LLM.Provider {
	case "googleai", "genai":
	default:
		return fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}
	switch cfg.Extractor.Strategy {
	case "generative", "summarize":
	default:
		return fmt.Errorf("unknown extractor strategy %q", cfg.Extractor.Strategy)
	}
	switch cfg.Extractor.FetcherMode {
	case "http", "browser":
	default:
		return fmt.Errorf("unknown fetcher mode %q", cfg.Extractor.FetcherMode)
	}
	if cfg.Extractor.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	if cfg.Resume.MaxBytes <= 0 {
		return errors.New("resume max bytes must be positive")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	if cfg.Auth.SessionSecret != "" && cfg.Auth.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	return nil
}
