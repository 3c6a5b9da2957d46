package infra

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config: корневая структура конфигурации консоли.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Poll     PollConfig     `mapstructure:"poll"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера консоли.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr собирает адрес для net.Listen.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BackendConfig описывает REST/WebSocket бэкенд детектора аномалий.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	WSURL   string        `mapstructure:"ws_url"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Защита исходящих вызовов. Ретраев нет: каждая ошибка терминальна для попытки.
	RateLimit     float64       `mapstructure:"rate_limit"`
	RateBurst     int           `mapstructure:"rate_burst"`
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
	CBFailures    uint32        `mapstructure:"cb_failures"`
}

// FeedConfig настраивает источник живых событий.
type FeedConfig struct {
	Transport    string `mapstructure:"transport"` // websocket, redis
	Capacity     int    `mapstructure:"capacity"`
	RedisChannel string `mapstructure:"redis_channel"`
	// Republish: пересылать кадры сокета в redis_channel для реплик.
	Republish bool `mapstructure:"republish"`
}

// PollConfig: периодический опрос аналитики бэкенда.
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// RedisConfig описывает подключение к Redis (сессия и relay событий).
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DatabaseConfig описывает подключение к PostgreSQL для журнала действий.
// Пустой URL: журнал пишется только в лог.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// SessionConfig определяет, где хранится bearer-токен оператора.
type SessionConfig struct {
	Store string `mapstructure:"store"` // memory, redis
}

// AuthConfig содержит публичный ключ бэкенда для проверки RS256 токенов.
// Если ключа нет, токен только разбирается (exp, sub) без проверки подписи.
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	PublicKey     []byte
}

// MetricsConfig: адрес экспорта Prometheus.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// GRPCConfig: адрес gRPC health-сервиса.
type GRPCConfig struct {
	HealthAddr string `mapstructure:"health_addr"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// BACKEND_BASE_URL=http://... перекроет backend.base_url
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Файла нет: работаем на ENV и дефолтах
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// PEM может прийти прямо в ENV (Docker/K8s), иначе читаем файл
	cfg.Auth.PublicKey = loadKeyResource(cfg.Auth.PublicKeyPath, "AUTH_PUBLIC_KEY_DATA")

	return &cfg, nil
}

// Validate отсекает конфигурации, с которыми консоль не сможет стартовать.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("config: backend.base_url is required")
	}
	switch c.Feed.Transport {
	case "websocket":
		if c.Backend.WSURL == "" {
			return errors.New("config: backend.ws_url is required for websocket feed")
		}
	case "redis":
		if c.Feed.RedisChannel == "" {
			return errors.New("config: feed.redis_channel is required for redis feed")
		}
	default:
		return fmt.Errorf("config: unknown feed.transport %q", c.Feed.Transport)
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown session.store %q", c.Session.Store)
	}
	if c.Feed.Capacity <= 0 {
		return errors.New("config: feed.capacity must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Пустые значения тоже регистрируем: без ключа AutomaticEnv не попадёт в Unmarshal
	v.SetDefault("server.host", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.url", "")
	v.SetDefault("auth.public_key_path", "")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.ws_url", "ws://localhost:8000/ws/updates")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.rate_limit", 50)
	v.SetDefault("backend.rate_burst", 10)
	v.SetDefault("backend.cb_max_requests", 3)
	v.SetDefault("backend.cb_interval", 5*time.Second)
	v.SetDefault("backend.cb_timeout", 30*time.Second)
	v.SetDefault("backend.cb_failures", 5)

	v.SetDefault("feed.transport", "websocket")
	v.SetDefault("feed.capacity", 20)
	v.SetDefault("feed.redis_channel", RedisChanFeedRelay)
	v.SetDefault("feed.republish", false)

	v.SetDefault("poll.interval", 30*time.Second)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("session.store", "memory")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("grpc.health_addr", ":50060")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
}

func loadKeyResource(path string, envDataKey string) []byte {
	if data := os.Getenv(envDataKey); data != "" {
		return []byte(data)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data
		}
	}
	return nil
}
