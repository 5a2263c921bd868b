package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"` // mysql | postgres | sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// CatalogConfig 课程内容来源
type CatalogConfig struct {
	Source        string `mapstructure:"source"` // local | minio | oss
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioPrefix   string `mapstructure:"minio_prefix"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
	OSSPrefix     string `mapstructure:"oss_prefix"`
	RefreshCron   string `mapstructure:"refresh_cron"`
}

// ProgressConfig 进度与奖励策略，支持热更新
type ProgressConfig struct {
	LevelPolicy                 string `mapstructure:"level_policy"` // linear | sqrt | sqrt_floor
	FreeDailyQuizzes            int    `mapstructure:"free_daily_quizzes"`
	PaidDailyQuizzes            int    `mapstructure:"paid_daily_quizzes"`
	ConsumeQuotaOnFailedAttempt bool   `mapstructure:"consume_quota_on_failed_attempt"`
	PassingScore                int    `mapstructure:"passing_score"` // 测验未设置及格线时使用
	Timezone                    string `mapstructure:"timezone"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	Host           string
	Port           int
	Password       string
	DB             int
	TierTTLSeconds int `mapstructure:"tier_ttl_seconds"`
}

// Location 解析配置的时区，空值使用服务器本地时区
func (p ProgressConfig) Location() *time.Location {
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("database.driver", "mysql")
	viper.SetDefault("database.charset", "utf8mb4")
	viper.SetDefault("database.parsetime", true)
	viper.SetDefault("catalog.source", "local")
	viper.SetDefault("catalog.local_path", "catalog")
	viper.SetDefault("catalog.refresh_cron", "@every 10m")
	viper.SetDefault("progress.level_policy", "linear")
	viper.SetDefault("progress.free_daily_quizzes", 1)
	viper.SetDefault("progress.paid_daily_quizzes", 5)
	viper.SetDefault("progress.consume_quota_on_failed_attempt", false)
	viper.SetDefault("progress.passing_score", 70)
	viper.SetDefault("redis.tier_ttl_seconds", 300)
	viper.SetDefault("rate_limit.max_requests", 600)
	viper.SetDefault("rate_limit.window_minutes", 1)
}

func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("PROGRESS")
	viper.AutomaticEnv()
	setDefaults()

	// Database
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Catalog / MinIO / OSS
	viper.BindEnv("catalog.source", "CATALOG_SOURCE")
	viper.BindEnv("catalog.local_path", "CATALOG_LOCAL_PATH")
	viper.BindEnv("catalog.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("catalog.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("catalog.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("catalog.minio_bucket", "MINIO_BUCKET")
	viper.BindEnv("catalog.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("catalog.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("catalog.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("catalog.oss_bucket", "OSS_BUCKET")

	// Progress policy
	viper.BindEnv("progress.level_policy", "LEVEL_POLICY")
	viper.BindEnv("progress.timezone", "PROGRESS_TIMEZONE")

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

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}

	switch c.Progress.LevelPolicy {
	case "linear", "sqrt", "sqrt_floor":
	default:
		return fmt.Errorf("unknown progress.level_policy %q", c.Progress.LevelPolicy)
	}

	if c.Progress.FreeDailyQuizzes < 0 || c.Progress.PaidDailyQuizzes < 0 {
		return fmt.Errorf("daily quiz limits must not be negative")
	}

	if c.Progress.PassingScore < 0 || c.Progress.PassingScore > 100 {
		return fmt.Errorf("progress.passing_score must be within 0-100")
	}

	if c.Catalog.Source == "minio" && c.Catalog.MinioBucket == "" {
		return fmt.Errorf("catalog.minio_bucket is required when catalog.source is minio")
	}
	if c.Catalog.Source == "oss" && (c.Catalog.OSSEndpoint == "" || c.Catalog.OSSBucket == "") {
		return fmt.Errorf("catalog.oss_endpoint and catalog.oss_bucket are required when catalog.source is oss")
	}

	return nil
}
