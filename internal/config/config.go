package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// 测验相关兜底常量，正式取值以 config.QuizConfig 为准
const (
	DefaultQuizMaxQuestions  = 10
	DefaultQuizPassThreshold = 60.0
	DefaultQuizMaxAttempts   = 3
	DefaultQuizLockoutHours  = 24
	DefaultQuizTimeMinutes   = 30
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Quiz      QuizConfig      `mapstructure:"quiz"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Email     EmailConfig     `mapstructure:"email"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// QuizConfig 测验相关的业务参数，零值时取默认值
type QuizConfig struct {
	MaxQuestions     int     `mapstructure:"max_questions"`      // 每次测验抽取的题目上限
	PassThreshold    float64 `mapstructure:"pass_threshold"`     // 及格百分比
	MaxAttempts      int     `mapstructure:"max_attempts"`       // 连续失败多少次后锁定
	LockoutHours     int     `mapstructure:"lockout_hours"`      // 锁定时长（小时）
	TimeLimitMinutes int     `mapstructure:"time_limit_minutes"` // 答题时长（分钟）
}

type PaymentConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	AccessToken   string `mapstructure:"access_token"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	SuccessURL    string `mapstructure:"success_url"`
	FailureURL    string `mapstructure:"failure_url"`
}

type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	SendGridKey string `mapstructure:"sendgrid_key"`
	FromName    string `mapstructure:"from_name"`
	FromEmail   string `mapstructure:"from_email"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("MAINTECH")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Payment
	viper.BindEnv("payment.base_url", "PAYMENT_BASE_URL")
	viper.BindEnv("payment.access_token", "PAYMENT_ACCESS_TOKEN")
	viper.BindEnv("payment.webhook_secret", "PAYMENT_WEBHOOK_SECRET")

	// Email
	viper.BindEnv("email.sendgrid_key", "SENDGRID_API_KEY")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour
	cfg.Quiz.ApplyDefaults()

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func (q *QuizConfig) ApplyDefaults() {
	if q.MaxQuestions <= 0 {
		q.MaxQuestions = DefaultQuizMaxQuestions
	}
	if q.PassThreshold <= 0 {
		q.PassThreshold = DefaultQuizPassThreshold
	}
	if q.MaxAttempts <= 0 {
		q.MaxAttempts = DefaultQuizMaxAttempts
	}
	if q.LockoutHours <= 0 {
		q.LockoutHours = DefaultQuizLockoutHours
	}
	if q.TimeLimitMinutes <= 0 {
		q.TimeLimitMinutes = DefaultQuizTimeMinutes
	}
}
