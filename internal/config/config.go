package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	DB         DBConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Dify       DifyConfig
	Storage    StorageConfig
	Generation GenerationConfig
	Proxy      ProxyConfig
	Auth       AuthConfig
	Snapshot   SnapshotConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggerConfig struct {
	Env   string
	Level string
}

type DBConfig struct {
	Driver   string // postgres or sqlite
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // sqlite file path
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// CacheConfig configures the in-process cache used when Redis is not configured.
type CacheConfig struct {
	Size      int
	ResultTTL time.Duration
}

type DifyConfig struct {
	APIKey             string
	BaseURL            string
	User               string
	StreamReadAttempts int
	Timeout            time.Duration
}

// Mocked reports whether generation should run without calling Dify.
func (c DifyConfig) Mocked() bool {
	return c.APIKey == "" || c.APIKey == "mock"
}

type StorageConfig struct {
	Enabled       bool
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	Prefix        string
	FetchTimeout  time.Duration
	Concurrency   int
}

type GenerationConfig struct {
	Mode             string // polling or streaming
	PollInitialDelay time.Duration
	PollInterval     time.Duration
	PollMaxAttempts  int
	PanelDelay       time.Duration
	PlaceholderImage string
}

type ProxyConfig struct {
	AllowedPrefix string
	Timeout       time.Duration
}

type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

type SnapshotConfig struct {
	TTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "20s")
	v.SetDefault("server.write_timeout", "0s")

	v.SetDefault("logger.env", "development")
	v.SetDefault("logger.level", "info")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.name", "manga")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.path", "manga.db")

	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.result_ttl", "24h")

	v.SetDefault("dify.base_url", "https://api.dify.ai/v1")
	v.SetDefault("dify.user", "dify-manga-server")
	v.SetDefault("dify.stream_read_attempts", 5)
	v.SetDefault("dify.timeout", "10m")

	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "manga-images")
	v.SetDefault("storage.prefix", "mangas")
	v.SetDefault("storage.fetch_timeout", "30s")
	v.SetDefault("storage.concurrency", 4)

	v.SetDefault("generation.mode", "streaming")
	v.SetDefault("generation.poll_initial_delay", "5s")
	v.SetDefault("generation.poll_interval", "10s")
	v.SetDefault("generation.poll_max_attempts", 60)
	v.SetDefault("generation.panel_delay", "500ms")
	v.SetDefault("generation.placeholder_image", "/placeholder-manga.png")

	v.SetDefault("proxy.allowed_prefix", "https://upload.dify.ai/")
	v.SetDefault("proxy.timeout", "15s")

	v.SetDefault("auth.enabled", false)
	v.SetDefault("snapshot.ttl", "24h")
}

// LoadConfig reads config.yaml (optional), .env (optional) and APP_* environment variables.
func LoadConfig() (*Config, error) {
	// .env is a convenience for local runs; a missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../config")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	cfg := fromViper(v)

	// Bare names used by the hosting platform take precedence.
	if key := os.Getenv("DIFY_API_KEY"); key != "" {
		cfg.Dify.APIKey = key
	}
	if secret := os.Getenv("SUPABASE_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.port", port)
		cfg.Server.Port = v.GetInt("server.port")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Logger: LoggerConfig{
			Env:   v.GetString("logger.env"),
			Level: v.GetString("logger.level"),
		},
		DB: DBConfig{
			Driver:   v.GetString("db.driver"),
			Host:     v.GetString("db.host"),
			Port:     v.GetInt("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			DBName:   v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
			Path:     v.GetString("db.path"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cache: CacheConfig{
			Size:      v.GetInt("cache.size"),
			ResultTTL: v.GetDuration("cache.result_ttl"),
		},
		Dify: DifyConfig{
			APIKey:             v.GetString("dify.api_key"),
			BaseURL:            strings.TrimRight(v.GetString("dify.base_url"), "/"),
			User:               v.GetString("dify.user"),
			StreamReadAttempts: v.GetInt("dify.stream_read_attempts"),
			Timeout:            v.GetDuration("dify.timeout"),
		},
		Storage: StorageConfig{
			Enabled:       v.GetBool("storage.enabled"),
			Endpoint:      v.GetString("storage.endpoint"),
			Region:        v.GetString("storage.region"),
			Bucket:        v.GetString("storage.bucket"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			PublicBaseURL: strings.TrimRight(v.GetString("storage.public_base_url"), "/"),
			Prefix:        strings.Trim(v.GetString("storage.prefix"), "/"),
			FetchTimeout:  v.GetDuration("storage.fetch_timeout"),
			Concurrency:   v.GetInt("storage.concurrency"),
		},
		Generation: GenerationConfig{
			Mode:             v.GetString("generation.mode"),
			PollInitialDelay: v.GetDuration("generation.poll_initial_delay"),
			PollInterval:     v.GetDuration("generation.poll_interval"),
			PollMaxAttempts:  v.GetInt("generation.poll_max_attempts"),
			PanelDelay:       v.GetDuration("generation.panel_delay"),
			PlaceholderImage: v.GetString("generation.placeholder_image"),
		},
		Proxy: ProxyConfig{
			AllowedPrefix: v.GetString("proxy.allowed_prefix"),
			Timeout:       v.GetDuration("proxy.timeout"),
		},
		Auth: AuthConfig{
			Enabled:   v.GetBool("auth.enabled"),
			JWTSecret: v.GetString("auth.jwt_secret"),
		},
		Snapshot: SnapshotConfig{
			TTL: v.GetDuration("snapshot.ttl"),
		},
	}
}

// Validate checks combinations that would only fail later at runtime.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db.driver %q (want postgres or sqlite)", c.DB.Driver)
	}
	switch c.Generation.Mode {
	case "polling", "streaming":
	default:
		return fmt.Errorf("unsupported generation.mode %q (want polling or streaming)", c.Generation.Mode)
	}
	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.enabled requires auth.jwt_secret")
	}
	if c.Storage.Enabled && (c.Storage.Bucket == "" || c.Storage.PublicBaseURL == "") {
		return fmt.Errorf("storage.enabled requires storage.bucket and storage.public_base_url")
	}
	if c.Dify.StreamReadAttempts <= 0 {
		c.Dify.StreamReadAttempts = 5
	}
	if c.Storage.Concurrency <= 0 {
		c.Storage.Concurrency = 1
	}
	return nil
}

// GetDSN returns the driver-specific data source name.
func (c *Config) GetDSN() string {
	if c.DB.Driver == "sqlite" {
		return c.DB.Path
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     fmt.Sprintf("%s:%d", c.DB.Host, c.DB.Port),
		Path:     "/" + c.DB.DBName,
		RawQuery: url.Values{"sslmode": {c.DB.SSLMode}}.Encode(),
	}
	return dsn.String()
}
