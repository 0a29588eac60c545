package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig همه تنظیمات برنامه که از env خوانده می‌شوند
type AppConfig struct {
	Port string
	Env  string

	DBDSN      string
	DBLogLevel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	IngestKeys []string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	OpenAITimeout time.Duration

	AutoPublishInterval   time.Duration
	AutoPublishDelayHours int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	NotifyEmail  string

	FeedTitle       string
	FeedLink        string
	FeedDescription string
	FeedCacheTTL    time.Duration

	CORSAllowOrigins []string
}

func (c *AppConfig) IsProduction() bool { return c.Env == "production" }

// LoadEnvFiles بارگذاری .env.local و .env در env پروسه و برگرداندن نام فایل‌های خوانده شده.
// مقادیر env سیستم بر فایل‌ها اولویت دارند. باید قبل از InitLogger صدا زده شود
// تا APP_ENV داخل فایل‌ها هم روی لاگر اثر بگذارد.
func LoadEnvFiles() []string {
	var loaded []string
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err == nil {
			loaded = append(loaded, f)
		}
	}
	return loaded
}

// Init بارگذاری فایل‌های env و خواندن تنظیمات.
func Init() (*AppConfig, error) {
	for _, f := range LoadEnvFiles() {
		if Logger != nil {
			Logger.Info("Loaded env file: " + f)
		}
	}
	return Load()
}

// Load reads the configuration from the process environment.
func Load() (*AppConfig, error) {
	var errs []error
	cfg := &AppConfig{
		Port:       getEnv("APP_PORT", "8080"),
		Env:        getEnv("APP_ENV", "development"),
		DBDSN:      os.Getenv("DB_DSN"),
		DBLogLevel: getEnv("DB_LOG_LEVEL", "warn"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		IngestKeys: splitList(os.Getenv("INGEST_API_KEYS")),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     os.Getenv("SMTP_FROM"),
		NotifyEmail:  os.Getenv("NOTIFY_EMAIL"),

		FeedTitle:       getEnv("FEED_TITLE", "Newsdesk"),
		FeedLink:        getEnv("FEED_LINK", "http://localhost:8080"),
		FeedDescription: getEnv("FEED_DESCRIPTION", "Latest published articles"),

		CORSAllowOrigins: splitList(os.Getenv("CORS_ALLOW_ORIGINS")),
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		errs = append(errs, err)
	}
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		errs = append(errs, err)
	}
	if cfg.AutoPublishDelayHours, err = getInt("AUTOPUBLISH_DELAY_HOURS", 6); err != nil {
		errs = append(errs, err)
	}
	if cfg.AutoPublishInterval, err = getDuration("AUTOPUBLISH_INTERVAL", 60*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.OpenAITimeout, err = getDuration("OPENAI_TIMEOUT", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.FeedCacheTTL, err = getDuration("FEED_CACHE_TTL", 10*time.Minute); err != nil {
		errs = append(errs, err)
	}

	for name, v := range map[string]string{
		"DB_DSN":     cfg.DBDSN,
		"REDIS_ADDR": cfg.RedisAddr,
		"JWT_SECRET": cfg.JWTSecret,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is not set", name))
		}
	}

	// "*" یعنی همه origin ها
	if len(cfg.CORSAllowOrigins) == 1 && cfg.CORSAllowOrigins[0] == "*" {
		cfg.CORSAllowOrigins = nil
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

// getDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
