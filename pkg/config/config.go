package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"app"`

	Provider ProviderConfig `yaml:"provider"`

	Database struct {
		Postgres PostgresConfig `yaml:"postgres"`
	} `yaml:"database"`

	Redis RedisConfig `yaml:"redis"`

	NATS struct {
		URL      string `yaml:"url"`
		ClientID string `yaml:"client_id"`
		Enabled  bool   `yaml:"enabled"`
	} `yaml:"nats"`

	API APIConfig `yaml:"api"`

	Scheduler SchedulerConfig `yaml:"scheduler"`

	Log LogConfig `yaml:"log"`
}

// APIConfig HTTP 服务
type APIConfig struct {
	Port              string        `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	AutocompleteLimit int           `yaml:"autocomplete_limit"`
}

// SchedulerConfig cron 表达式
type SchedulerConfig struct {
	ReindexSpec     string `yaml:"reindex_spec"`
	HealthCheckSpec string `yaml:"health_check_spec"`
}

// ProviderConfig 外部行情数据源
type ProviderConfig struct {
	ProfileURL string        `yaml:"profile_url"` // 含一个 %s 占位符
	HistoryURL string        `yaml:"history_url"` // 含一个 %s 占位符
	UserAgent  string        `yaml:"user_agent"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PostgresConfig 关系库连接参数
type PostgresConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"dbname"`
	SSLMode      string `yaml:"sslmode"`
	LogQueries   bool   `yaml:"log_queries"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// DSN 构建连接字符串
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// RedisConfig 缓存配置
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"` // 单次请求超时
	TTL      time.Duration `yaml:"ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	Console    bool   `yaml:"console"`
	File       bool   `yaml:"file"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // 天
}

// Default 返回带默认值的配置
func Default() *Config {
	cfg := &Config{}
	cfg.App.Name = "dividend-radar"
	cfg.App.Env = "dev"

	cfg.Provider = ProviderConfig{
		ProfileURL: "https://finance.yahoo.com/quote/%s",
		HistoryURL: "https://query2.finance.yahoo.com/v8/finance/chart/%s?period1=0&period2=9999999999&interval=1mo&events=div",
		UserAgent:  "Mozilla/5.0 (compatible; DividendRadar/1.0)",
		Timeout:    10 * time.Second,
	}

	cfg.Database.Postgres = PostgresConfig{
		Host:         "localhost",
		Port:         5432,
		User:         "postgres",
		DBName:       "dividend",
		SSLMode:      "disable",
		MaxOpenConns: 25,
		MaxIdleConns: 5,
	}

	cfg.Redis = RedisConfig{
		Addr:    "localhost:6379",
		Timeout: 500 * time.Millisecond,
		TTL:     3 * time.Minute,
	}

	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.ClientID = "dividend-radar"

	cfg.API.Port = "8080"
	cfg.API.ReadTimeout = 10 * time.Second
	cfg.API.WriteTimeout = 30 * time.Second
	cfg.API.AutocompleteLimit = 10

	cfg.Scheduler.ReindexSpec = "@every 10m"
	cfg.Scheduler.HealthCheckSpec = "@every 30s"

	cfg.Log = LogConfig{
		Level:      "info",
		Console:    true,
		FilePath:   "logs/dividend-radar.log",
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}

	return cfg
}

// LoadConfig 从文件加载配置，未出现的字段保留默认值
func LoadConfig(path string) (*Config, error) {
	// 读取配置文件
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析YAML
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 环境变量覆盖
	overrideFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate 检查关键配置
func (c *Config) Validate() error {
	if c.Redis.TTL <= 0 {
		return fmt.Errorf("redis.ttl 必须大于0")
	}
	if c.Redis.Timeout <= 0 {
		return fmt.Errorf("redis.timeout 必须大于0")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout 必须大于0")
	}
	if c.API.AutocompleteLimit <= 0 {
		return fmt.Errorf("api.autocomplete_limit 必须大于0")
	}
	return nil
}

// overrideFromEnv 使用环境变量覆盖配置
func overrideFromEnv(config *Config) {
	// 应用
	if env := os.Getenv("APP_NAME"); env != "" {
		config.App.Name = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.App.Env = env
	}

	// 数据源
	if env := os.Getenv("PROVIDER_PROFILE_URL"); env != "" {
		config.Provider.ProfileURL = env
	}
	if env := os.Getenv("PROVIDER_HISTORY_URL"); env != "" {
		config.Provider.HistoryURL = env
	}

	// 数据库配置
	pg := &config.Database.Postgres
	if env := os.Getenv("DB_HOST"); env != "" {
		pg.Host = env
	}
	if port, ok := intFromEnv("DB_PORT"); ok {
		pg.Port = port
	}
	if env := os.Getenv("DB_USER"); env != "" {
		pg.User = env
	}
	if env := os.Getenv("DB_PASSWORD"); env != "" {
		pg.Password = env
	}
	if env := os.Getenv("DB_NAME"); env != "" {
		pg.DBName = env
	}

	// Redis配置
	if env := os.Getenv("REDIS_ADDR"); env != "" {
		config.Redis.Addr = env
	}
	if env := os.Getenv("REDIS_PASSWORD"); env != "" {
		config.Redis.Password = env
	}
	if db, ok := intFromEnv("REDIS_DB"); ok {
		config.Redis.DB = db
	}

	// NATS配置
	if env := os.Getenv("NATS_URL"); env != "" {
		config.NATS.URL = env
		config.NATS.Enabled = true
	}

	// API配置
	if env := os.Getenv("API_PORT"); env != "" {
		config.API.Port = env
	}

	// 日志
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		config.Log.Level = env
	}
}

func intFromEnv(key string) (int, bool) {
	env := os.Getenv(key)
	if env == "" {
		return 0, false
	}
	v, err := strconv.Atoi(env)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// GetDefaultConfigPath 获取默认配置文件路径
func GetDefaultConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev" // 默认开发环境
	}

	return fmt.Sprintf("configs/%s/app.yaml", env)
}
