package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env      string `yaml:"env"`
	HTTPAddr string `yaml:"http_addr"`
	LogLevel string `yaml:"log_level"`

	DBDSN       string        `yaml:"db_dsn"`
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
	AdminEmails []string      `yaml:"admin_emails"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
	SMTPFrom string `yaml:"smtp_from"`

	// Gemini
	GeminiAPIKey           string        `yaml:"gemini_api_key"`
	GeminiModel            string        `yaml:"gemini_model"`
	GeminiBaseURL          string        `yaml:"gemini_base_url"`
	FallbackModels         []string      `yaml:"fallback_models"`
	PreferredModels        []string      `yaml:"preferred_models"`
	ProviderAttemptTimeout time.Duration `yaml:"provider_attempt_timeout"`
	ProviderTotalTimeout   time.Duration `yaml:"provider_total_timeout"`
	ModelCacheResetCron    string        `yaml:"model_cache_reset_cron"`

	// rabbitMQ
	RabbitURL         string `yaml:"rabbit_url"`
	RabbitQueue       string `yaml:"rabbit_queue"`
	WorkerConcurrency int    `yaml:"worker_concurrency"`
}

var (
	defaultFallbackModels = []string{
		"gemini-1.5-flash-8b",
		"gemini-1.5-flash-latest",
		"gemini-1.5-flash-002",
		"gemini-1.5-flash",
	}
	defaultPreferredExtra = []string{
		"gemini-1.5-pro-latest",
		"gemini-1.5-pro",
	}
)

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load builds the config from CONFIG_FILE (optional YAML) overlaid by
// environment variables, then fills defaults.
func Load() (Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = splitList(v)
		}
	}

	str("APP_ENV", &c.Env)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("LOG_LEVEL", &c.LogLevel)
	str("DB_DSN", &c.DBDSN)
	str("JWT_SECRET", &c.JWTSecret)
	list("ADMIN_EMAILS", &c.AdminEmails)

	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)

	str("SMTP_HOST", &c.SMTPHost)
	str("SMTP_USER", &c.SMTPUser)
	str("SMTP_PASS", &c.SMTPPass)
	str("SMTP_FROM", &c.SMTPFrom)

	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)
	str("GEMINI_BASE_URL", &c.GeminiBaseURL)
	list("GEMINI_FALLBACK_MODELS", &c.FallbackModels)
	list("GEMINI_PREFERRED_MODELS", &c.PreferredModels)
	str("MODEL_CACHE_RESET_CRON", &c.ModelCacheResetCron)

	str("RABBIT_URL", &c.RabbitURL)
	str("RABBIT_QUEUE", &c.RabbitQueue)

	ints := []struct {
		key string
		dst *int
	}{
		{"REDIS_DB", &c.RedisDB},
		{"SMTP_PORT", &c.SMTPPort},
		{"WORKER_CONCURRENCY", &c.WorkerConcurrency},
	}
	for _, it := range ints {
		if v := os.Getenv(it.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", it.key, err)
			}
			*it.dst = n
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TOKEN_TTL", &c.TokenTTL},
		{"PROVIDER_ATTEMPT_TIMEOUT", &c.ProviderAttemptTimeout},
		{"PROVIDER_TOTAL_TIMEOUT", &c.ProviderTotalTimeout},
	}
	for _, it := range durations {
		if v := os.Getenv(it.key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", it.key, err)
			}
			*it.dst = d
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":4001"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	// DSN demo：
	// app:apppass@tcp(127.0.0.1:3306)/gemini_chat?charset=utf8mb4&parseTime=true&loc=Local
	if c.DBDSN == "" {
		c.DBDSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=Local",
			"app", "apppass", "127.0.0.1", "3306", "gemini_chat",
		)
	}
	if c.JWTSecret == "" {
		c.JWTSecret = "dev-secret-change-me"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 7 * 24 * time.Hour
	}
	for i, e := range c.AdminEmails {
		c.AdminEmails[i] = strings.ToLower(strings.TrimSpace(e))
	}

	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.SMTPFrom == "" {
		c.SMTPFrom = c.SMTPUser
	}

	if len(c.FallbackModels) == 0 {
		c.FallbackModels = append([]string(nil), defaultFallbackModels...)
	}
	if len(c.PreferredModels) == 0 {
		c.PreferredModels = append(append([]string(nil), c.FallbackModels...), defaultPreferredExtra...)
	}
	if c.ProviderAttemptTimeout <= 0 {
		c.ProviderAttemptTimeout = 60 * time.Second
	}
	if c.ProviderTotalTimeout <= 0 {
		c.ProviderTotalTimeout = 3 * time.Minute
	}

	if c.RabbitQueue == "" {
		c.RabbitQueue = "chat_jobs"
	}
	if c.WorkerConcurrency <= 0 {
		c.WorkerConcurrency = 2
	}
	if c.WorkerConcurrency > 50 {
		c.WorkerConcurrency = 50
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
