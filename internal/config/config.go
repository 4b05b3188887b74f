package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Game     GameConfig     `mapstructure:"game"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	NodeID   string `mapstructure:"node_id"` // 为空时启动时随机生成
	LogLevel string `mapstructure:"log_level"`
}

type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type NATSConfig struct {
	URL              string        `mapstructure:"url"`
	Name             string        `mapstructure:"name"`
	MaxReconnects    int           `mapstructure:"max_reconnects"`
	ReconnectWait    time.Duration `mapstructure:"reconnect_wait"`
	SubscribeWorkers int           `mapstructure:"subscribe_workers"`
	SubscribeBuffer  int           `mapstructure:"subscribe_buffer"`
}

type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type JWTConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	Expire    time.Duration `mapstructure:"expire"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type GameConfig struct {
	AIDelay          time.Duration `mapstructure:"ai_delay"`
	UndoWindow       time.Duration `mapstructure:"undo_window"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	SchedulerWorkers int           `mapstructure:"scheduler_workers"`
	EvictTimeout     time.Duration `mapstructure:"evict_timeout"`
	EvictInterval    time.Duration `mapstructure:"evict_interval"`
}

// Load 从指定路径加载配置
// 同目录或工作目录下的 .env 会先载入环境变量（不覆盖已有的）
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 从环境变量覆盖配置
	cfg.applyEnv()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "racko")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.mode", "release")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "racko")
	v.SetDefault("nats.max_reconnects", -1)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.subscribe_workers", 16)
	v.SetDefault("nats.subscribe_buffer", 256)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.snapshot_ttl", 48*time.Hour)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("jwt.expire", 24*time.Hour)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("game.ai_delay", time.Second)
	v.SetDefault("game.undo_window", 3*time.Second)
	v.SetDefault("game.poll_interval", 2*time.Second)
	v.SetDefault("game.tick_interval", 250*time.Millisecond)
	v.SetDefault("game.scheduler_workers", 8)
	v.SetDefault("game.evict_timeout", 2*time.Hour)
	v.SetDefault("game.evict_interval", time.Minute)
}

// applyEnv 从环境变量覆盖配置
func (c *Config) applyEnv() {
	// App
	c.App.NodeID = GetEnv("RACKO_NODE_ID", c.App.NodeID)
	c.App.LogLevel = GetEnv("RACKO_LOG_LEVEL", c.App.LogLevel)

	// HTTP
	c.HTTP.Port = GetEnvInt("RACKO_HTTP_PORT", c.HTTP.Port)
	c.HTTP.Mode = GetEnv("RACKO_HTTP_MODE", c.HTTP.Mode)

	// NATS
	c.NATS.URL = GetEnv("RACKO_NATS_URL", c.NATS.URL)

	// Redis
	c.Redis.Host = GetEnv("RACKO_REDIS_HOST", c.Redis.Host)
	c.Redis.Port = GetEnvInt("RACKO_REDIS_PORT", c.Redis.Port)
	c.Redis.Password = GetEnv("RACKO_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = GetEnvInt("RACKO_REDIS_DB", c.Redis.DB)

	// Database
	c.Database.Enabled = GetEnvBool("RACKO_POSTGRES_ENABLED", c.Database.Enabled)
	c.Database.Host = GetEnv("RACKO_POSTGRES_HOST", c.Database.Host)
	c.Database.Port = GetEnvInt("RACKO_POSTGRES_PORT", c.Database.Port)
	c.Database.User = GetEnv("RACKO_POSTGRES_USER", c.Database.User)
	c.Database.Password = GetEnv("RACKO_POSTGRES_PASSWORD", c.Database.Password)
	c.Database.Name = GetEnv("RACKO_POSTGRES_DB", c.Database.Name)

	// JWT
	c.JWT.SecretKey = GetEnv("RACKO_JWT_SECRET", c.JWT.SecretKey)
	c.JWT.Expire = GetEnvDuration("RACKO_JWT_EXPIRE", c.JWT.Expire)

	// Game
	c.Game.AIDelay = GetEnvDuration("RACKO_AI_DELAY", c.Game.AIDelay)
	c.Game.UndoWindow = GetEnvDuration("RACKO_UNDO_WINDOW", c.Game.UndoWindow)
	c.Game.PollInterval = GetEnvDuration("RACKO_POLL_INTERVAL", c.Game.PollInterval)
}
