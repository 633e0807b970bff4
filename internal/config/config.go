package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment override, e.g. CARETEAM_SERVER_PORT.
const EnvPrefix = "careteam"

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Storage  StorageConfig  `toml:"storage"`
	Realtime RealtimeConfig `toml:"realtime"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
}

type ServerConfig struct {
	Port          string `toml:"port"`
	PublicBaseURL string `toml:"public_base_url" split_words:"true"`
	AllowedOrigin string `toml:"allowed_origin" split_words:"true"`
	ReadTimeout   int    `toml:"read_timeout" split_words:"true"`  // seconds
	WriteTimeout  int    `toml:"write_timeout" split_words:"true"` // seconds
}

// DatabaseConfig uses a tagged union: Type selects "postgres" or "memory".
type DatabaseConfig struct {
	Type     string `toml:"type"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"ssl_mode" split_words:"true"`
	MaxConns int32  `toml:"max_conns" split_words:"true"`
}

// StorageConfig uses a tagged union: Type selects "s3", "gridfs" or "memory".
type StorageConfig struct {
	Type          string `toml:"type"`
	SignedURLTTL  int    `toml:"signed_url_ttl" envconfig:"signed_url_ttl"` // seconds
	SigningSecret string `toml:"signing_secret" split_words:"true"`
	MaxFileSize   int64  `toml:"max_file_size" split_words:"true"`

	// s3 only
	Bucket          string `toml:"bucket,omitempty"`
	Region          string `toml:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty" split_words:"true"`
	SecretAccessKey string `toml:"secret_access_key,omitempty" split_words:"true"`

	// gridfs only
	MongoURI      string `toml:"mongo_uri,omitempty" split_words:"true"`
	MongoDatabase string `toml:"mongo_database,omitempty" split_words:"true"`
}

// RealtimeConfig uses a tagged union: Type selects "memory" or "redis".
type RealtimeConfig struct {
	Type     string `toml:"type"`
	RedisURL string `toml:"redis_url,omitempty" split_words:"true"`
	Mode     string `toml:"mode"` // "reconcile" (default) or "refetch"
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret" split_words:"true"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json, text
}

// Default returns a config that runs entirely in memory.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "8080",
			PublicBaseURL: "http://localhost:8080",
			AllowedOrigin: "*",
			ReadTimeout:   15,
			WriteTimeout:  60,
		},
		Database: DatabaseConfig{
			Type:     "memory",
			Host:     "localhost",
			Port:     "5432",
			User:     "careteam",
			Password: "careteam_dev_password",
			Name:     "careteam",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Storage: StorageConfig{
			Type:          "memory",
			SignedURLTTL:  3600,
			SigningSecret: "dev-signing-secret-change-me",
			MaxFileSize:   50 << 20,
			Bucket:        "message-attachments",
			MongoDatabase: "careteam",
		},
		Realtime: RealtimeConfig{
			Type:     "memory",
			RedisURL: "redis://localhost:6379/0",
			Mode:     "reconcile",
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-change-me",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the config from defaults, an optional TOML file, a .env file in
// the working directory and finally CARETEAM_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Type {
	case "memory":
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("postgres database requires host and name")
		}
	default:
		return fmt.Errorf("unknown database type: %s", c.Database.Type)
	}

	switch c.Storage.Type {
	case "memory":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("s3 storage requires bucket to be set")
		}
	case "gridfs":
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("gridfs storage requires mongo_uri to be set")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}
	if c.Storage.SignedURLTTL <= 0 {
		return fmt.Errorf("storage signed_url_ttl must be positive")
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("storage max_file_size must be positive")
	}

	switch c.Realtime.Type {
	case "memory":
	case "redis":
		if c.Realtime.RedisURL == "" {
			return fmt.Errorf("redis realtime requires redis_url to be set")
		}
	default:
		return fmt.Errorf("unknown realtime type: %s", c.Realtime.Type)
	}
	if c.Realtime.Mode != "reconcile" && c.Realtime.Mode != "refetch" {
		return fmt.Errorf("unknown realtime mode: %s", c.Realtime.Mode)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt_secret is required")
	}
	return nil
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name, c.Database.SSLMode)
}

// MigrateURL is the DSN in the form golang-migrate's pgx/v5 driver expects.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Name, c.Database.SSLMode)
}

func (c *Config) SignedURLTTL() time.Duration {
	return time.Duration(c.Storage.SignedURLTTL) * time.Second
}

func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
