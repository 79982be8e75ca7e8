package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "CATALOG_CONFIG_FILE"
	envPrefix         = "CATALOG"
)

// Config содержит все настройки Catalog Service.
// Источники по возрастанию приоритета: значения по умолчанию, файл, окружение.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Search   SearchConfig   `mapstructure:"search"`
	Rating   RatingConfig   `mapstructure:"rating"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig - подключение к PostgreSQL и пул соединений
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

// RedisConfig - кеш категорий и очередь устаревших рейтингов
type RedisConfig struct {
	Host          string        `mapstructure:"host"`
	Port          string        `mapstructure:"port"`
	Password      string        `mapstructure:"password"`
	DB            int           `mapstructure:"db"`
	CategoriesTTL time.Duration `mapstructure:"categories_ttl"`
}

// KafkaConfig - события товаров, отзывов и рейтингов
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// JWTConfig - секрет должен совпадать с сервисом авторизации
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// SearchConfig - режим ранжирования фиксируется при старте
type SearchConfig struct {
	FullText   bool   `mapstructure:"full_text"`
	TextConfig string `mapstructure:"text_config"`
}

type RatingConfig struct {
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	ReconcileSchedule string        `mapstructure:"reconcile_schedule"`
	ReconcileBatch    int64         `mapstructure:"reconcile_batch"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`
	LogstashAddr string `mapstructure:"logstash_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "catalog_service")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.connect_attempts", 10)
	v.SetDefault("database.slow_query", 200*time.Millisecond)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.categories_ttl", time.Hour)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "catalog_events")
	v.SetDefault("kafka.batch_timeout", 10*time.Millisecond)

	v.SetDefault("jwt.secret", "your-secret-key-change-this-in-production")

	v.SetDefault("search.full_text", true)
	v.SetDefault("search.text_config", "english")

	v.SetDefault("rating.retry_backoff", 50*time.Millisecond)
	v.SetDefault("rating.reconcile_schedule", "@every 1m")
	v.SetDefault("rating.reconcile_batch", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.logstash_addr", "")
}

// Load собирает конфигурацию из аргументов командной строки (без имени программы),
// файла и окружения. Переменные окружения: CATALOG_DATABASE_HOST и т.п.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("catalog-service", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to config file (yaml, json, toml)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if f := fs.Lookup("log-level"); f.Changed {
		v.Set("log.level", f.Value.String())
	}

	path := *configFile
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		path = env
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет значения, которые иначе всплыли бы только при старте компонентов
func (c *Config) Validate() error {
	var errs []error

	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers: at least one broker required"))
	}
	if c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic: required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret: required"))
	}
	if c.Search.FullText && c.Search.TextConfig == "" {
		errs = append(errs, errors.New("search.text_config: required when full_text is enabled"))
	}
	if c.Rating.ReconcileBatch <= 0 {
		errs = append(errs, errors.New("rating.reconcile_batch: must be positive"))
	}
	if _, err := cron.ParseStandard(c.Rating.ReconcileSchedule); err != nil {
		errs = append(errs, fmt.Errorf("rating.reconcile_schedule: %w", err))
	}
	if c.Database.ConnectAttempts < 1 {
		errs = append(errs, errors.New("database.connect_attempts: must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// DSN возвращает строку подключения к PostgreSQL в формате URL
func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Address возвращает адрес сервера в формате host:port для HTTP сервера
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Address возвращает адрес Redis в формате host:port для подключения
func (c *RedisConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}
