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

type Config struct {
	HTTPAddr    string
	DatabaseURL string
	DBMaxConns  int32
	RabbitMQURL string
	RedisAddr   string
	RedisDB     int

	SecretKey          string
	TokenIssuer        string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	EmailOTPTTL        time.Duration
	LockTimeout        time.Duration
	SlugMaxAttempts    int
	CORSAllowedOrigins []string

	OutboxBatchSize   int
	OutboxInterval    time.Duration
	OutboxMaxAttempts int

	Cloudinary CloudinaryConfig
	SMTP       SMTPConfig

	FrontendURL string
}

type CloudinaryConfig struct {
	CloudName  string
	APIKey     string
	APISecret  string
	BaseFolder string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads .env.local then .env (neither is required) and builds Config
// from the environment. Every missing required key is reported at once.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	r := &reader{}
	cfg := &Config{
		HTTPAddr:    r.str("HTTP_ADDR", ":8000"),
		DatabaseURL: r.required("DATABASE_URL"),
		DBMaxConns:  int32(r.int("DB_MAX_CONNS", 10)),
		RabbitMQURL: r.required("RABBITMQ_URL"),
		RedisAddr:   r.str("REDIS_ADDR", "localhost:6379"),
		RedisDB:     r.int("REDIS_DB", 0),

		SecretKey:          r.required("SECRET_KEY"),
		TokenIssuer:        r.str("TOKEN_ISSUER", "bidout"),
		AccessTokenTTL:     r.minutes("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
		RefreshTokenTTL:    r.minutes("REFRESH_TOKEN_EXPIRE_MINUTES", 1440),
		EmailOTPTTL:        r.seconds("EMAIL_OTP_EXPIRE_SECONDS", 900),
		LockTimeout:        r.duration("DB_LOCK_TIMEOUT", 3*time.Second),
		SlugMaxAttempts:    r.int("SLUG_MAX_ATTEMPTS", 5),
		CORSAllowedOrigins: r.list("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		OutboxBatchSize:   r.int("OUTBOX_BATCH_SIZE", 10),
		OutboxInterval:    r.duration("OUTBOX_INTERVAL", time.Second),
		OutboxMaxAttempts: r.int("OUTBOX_MAX_ATTEMPTS", 5),

		Cloudinary: CloudinaryConfig{
			CloudName:  r.str("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:     r.str("CLOUDINARY_API_KEY", ""),
			APISecret:  r.str("CLOUDINARY_API_SECRET", ""),
			BaseFolder: r.str("CLOUDINARY_BASE_FOLDER", "bidout-auction-v8/"),
		},
		SMTP: SMTPConfig{
			Host:     r.str("MAIL_SENDER_HOST", "localhost"),
			Port:     r.int("MAIL_SENDER_PORT", 1025),
			Username: r.str("MAIL_SENDER_EMAIL", ""),
			Password: r.str("MAIL_SENDER_PASSWORD", ""),
			From:     r.str("MAIL_FROM", "Bidout <no-reply@bidout.local>"),
		},

		FrontendURL: r.str("FRONTEND_URL", "http://localhost:3000"),
	}

	if len(cfg.SecretKey) > 0 && len(cfg.SecretKey) < 16 {
		r.errs = append(r.errs, errors.New("SECRET_KEY must be at least 16 characters"))
	}

	if err := errors.Join(r.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (r *reader) required(key string) string {
	v := os.Getenv(key)
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("%s is not set", key))
	}
	return v
}

func (r *reader) int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) minutes(key string, def int) time.Duration {
	return time.Duration(r.int(key, def)) * time.Minute
}

func (r *reader) seconds(key string, def int) time.Duration {
	return time.Duration(r.int(key, def)) * time.Second
}

func (r *reader) list(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
