// Package config загружает конфигурацию сервисов из переменных окружения.
// Структура Config создаётся один раз в main и передаётся компонентам явно.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config - полная конфигурация сервиса.
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	MySQL     MySQLConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Outbox    OutboxConfig
	Consumer  ConsumerConfig
	RateLimit RateLimitConfig
	Jaeger    JaegerConfig
	Metrics   MetricsConfig
}

// AppConfig - общие настройки.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"credit-saga"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
	// AutoMigrate создаёт таблицы через GORM при старте (только для локального запуска).
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" envDefault:"false"`
}

// HTTPConfig - REST API сервиса.
type HTTPConfig struct {
	Host         string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"HTTP_PORT" envDefault:"8000"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Addr возвращает адрес HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MySQLConfig - подключение к MySQL (у каждого сервиса своя база).
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"credit_saga"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig - подключение к Redis (read-модель истории заказов, rate limit).
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Addr возвращает адрес Redis.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig - подключение к шине сообщений.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	// EnsureTopics создаёт exchange-топики и DLQ при старте.
	EnsureTopics bool `env:"KAFKA_ENSURE_TOPICS" envDefault:"true"`
}

// OutboxConfig - периодическая публикация outbox.
type OutboxConfig struct {
	SweepInterval time.Duration `env:"OUTBOX_SWEEP_INTERVAL" envDefault:"5s"`
	// BatchSize ограничивает число строк за один проход (0 - без ограничения).
	BatchSize int `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
}

// ConsumerConfig - обработка входящих событий.
type ConsumerConfig struct {
	MaxRetries      int           `env:"CONSUMER_MAX_RETRIES" envDefault:"3"`
	RetryBackoff    time.Duration `env:"CONSUMER_RETRY_BACKOFF" envDefault:"100ms"`
	RedeliveryDelay time.Duration `env:"CONSUMER_REDELIVERY_DELAY" envDefault:"1s"`

	// Проекция истории ждёт событие другого сервиса, поэтому повторяет дольше
	ProjectionRetryBackoff time.Duration `env:"CONSUMER_PROJECTION_RETRY_BACKOFF" envDefault:"2s"`
}

// RateLimitConfig - ограничение запросов к REST API.
type RateLimitConfig struct {
	Enabled       bool          `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	RequestsLimit int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	Window        time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// JaegerConfig - трассировка.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"false"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"`
}

// OTLPEndpoint возвращает OTLP gRPC endpoint.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig - Prometheus.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`
}

// Addr возвращает адрес metrics сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Load читает .env (если есть) и переменные окружения.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return parse()
}

// LoadFromFile загружает конфигурацию из указанного .env файла.
func LoadFromFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("ошибка загрузки .env файла %s: %w", path, err)
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}
	if cfg.Outbox.SweepInterval <= 0 {
		return nil, fmt.Errorf("OUTBOX_SWEEP_INTERVAL должен быть больше нуля")
	}
	return cfg, nil
}

// IsDevelopment возвращает true для APP_ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true для APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
