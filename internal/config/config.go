// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/paike/paike/pkg/model"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Generator GeneratorConfig `yaml:"generator"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int           `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// GeneratorConfig 排课引擎默认配置
// 请求中未提供的字段回落到此处的取值
type GeneratorConfig struct {
	WorkingDays   int           `yaml:"working_days"`
	PeriodsPerDay int           `yaml:"periods_per_day"`
	PeriodMinutes int           `yaml:"period_minutes"`
	DayStartTime  string        `yaml:"day_start_time"`
	TimeBudget    time.Duration `yaml:"time_budget"`
	Workers       int           `yaml:"workers"`
	OnConflict    string        `yaml:"on_conflict"`
}

// Engine 转换为引擎的生成配置
func (c *GeneratorConfig) Engine() *model.GenerationConfig {
	cfg := model.DefaultGenerationConfig()
	cfg.WorkingDays = c.WorkingDays
	cfg.PeriodsPerDay = c.PeriodsPerDay
	cfg.PeriodDurationMinutes = c.PeriodMinutes
	cfg.DayStartTime = c.DayStartTime
	cfg.TimeBudget = c.TimeBudget
	cfg.Workers = c.Workers
	cfg.OnConflict = model.ConcurrencyPolicy(c.OnConflict)
	return cfg
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "paike"),
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnvInt("APP_PORT", 7021),
			LogLevel: getEnv("APP_LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "paike"),
			User:            getEnv("DB_USER", "paike"),
			Password:        getEnv("DB_PASSWORD", "paike123"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			RateLimit: getEnvInt("API_RATE_LIMIT", 100),
			Timeout:   getEnvDuration("API_TIMEOUT", 60*time.Second),
			CORS: CORSConfig{
				Enabled: getEnvBool("API_CORS_ENABLED", true),
				Origins: []string{"*"},
			},
		},
		Generator: GeneratorConfig{
			WorkingDays:   getEnvInt("GENERATOR_WORKING_DAYS", 5),
			PeriodsPerDay: getEnvInt("GENERATOR_PERIODS_PER_DAY", 8),
			PeriodMinutes: getEnvInt("GENERATOR_PERIOD_MINUTES", 45),
			DayStartTime:  getEnv("GENERATOR_DAY_START", "08:00"),
			TimeBudget:    getEnvDuration("GENERATOR_TIME_BUDGET", 30*time.Second),
			Workers:       getEnvInt("GENERATOR_WORKERS", 4),
			OnConflict:    getEnv("GENERATOR_ON_CONFLICT", string(model.PolicyReject)),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
