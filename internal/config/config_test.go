package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Type)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "memory", cfg.Realtime.Type)
	assert.Equal(t, "reconcile", cfg.Realtime.Mode)
	assert.Equal(t, time.Hour, cfg.SignedURLTTL())
	assert.Equal(t, int64(50<<20), cfg.Storage.MaxFileSize)
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "careteam.toml")
	content := `
[server]
port = "9090"

[database]
type = "postgres"
host = "db.internal"
name = "care"

[storage]
type = "s3"
bucket = "attachments"
region = "eu-central-1"
signed_url_ttl = 600

[realtime]
type = "redis"
redis_url = "redis://cache:6379/1"
mode = "refetch"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "care", cfg.Database.Name)
	assert.Equal(t, "5432", cfg.Database.Port, "unset keys keep their defaults")
	assert.Equal(t, "attachments", cfg.Storage.Bucket)
	assert.Equal(t, 10*time.Minute, cfg.SignedURLTTL())
	assert.Equal(t, "redis://cache:6379/1", cfg.Realtime.RedisURL)
	assert.Equal(t, "refetch", cfg.Realtime.Mode)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "careteam.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = \"9090\"\n"), 0644))

	t.Setenv("CARETEAM_SERVER_PORT", "7000")
	t.Setenv("CARETEAM_AUTH_JWT_SECRET", "from-env")
	t.Setenv("CARETEAM_STORAGE_SIGNED_URL_TTL", "120")
	t.Setenv("CARETEAM_DATABASE_MAX_CONNS", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Minute, cfg.SignedURLTTL())
	assert.Equal(t, int32(42), cfg.Database.MaxConns)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CARETEAM_LOG_LEVEL=debug\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("CARETEAM_LOG_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "unknown database", mutate: func(c *Config) { c.Database.Type = "oracle" }, wantErr: "unknown database type"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Storage.Type = "s3"; c.Storage.Bucket = "" }, wantErr: "bucket"},
		{name: "gridfs without uri", mutate: func(c *Config) { c.Storage.Type = "gridfs" }, wantErr: "mongo_uri"},
		{name: "unknown storage", mutate: func(c *Config) { c.Storage.Type = "ftp" }, wantErr: "unknown storage type"},
		{name: "zero ttl", mutate: func(c *Config) { c.Storage.SignedURLTTL = 0 }, wantErr: "signed_url_ttl"},
		{name: "unknown realtime", mutate: func(c *Config) { c.Realtime.Type = "kafka" }, wantErr: "unknown realtime type"},
		{name: "unknown mode", mutate: func(c *Config) { c.Realtime.Mode = "poll" }, wantErr: "unknown realtime mode"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "jwt_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := Default()
	cfg.Database.Host = "db"
	cfg.Database.User = "u"
	cfg.Database.Password = "p"
	cfg.Database.Name = "care"

	assert.Equal(t, "postgres://u:p@db:5432/care?sslmode=disable", cfg.DSN())
	assert.Equal(t, "pgx5://u:p@db:5432/care?sslmode=disable", cfg.MigrateURL())
}
