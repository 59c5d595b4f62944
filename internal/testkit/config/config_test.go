package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mongo-testkit/internal/shared/errors"
)

func TestLoadConfig_RejectsInvalidURI(t *testing.T) {
	t.Setenv("MONGODB_URI", "http://localhost:27017")
	cfg, err := LoadConfig()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://db.internal:27017")
	t.Setenv("TESTKIT_DATABASE_PREFIX", "CiRun-")
	t.Setenv("TESTKIT_CONNECT_TIMEOUT", "3s")
	t.Setenv("TESTKIT_IGNORED_DIAGNOSTICS", "Command started,Command succeeded")
	t.Setenv("TESTKIT_SEQUENCE_BACKEND", "redis")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("LOG_BACKEND", "zap")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db.internal:27017", cfg.MongoDBURI)
	assert.Equal(t, "CiRun-", cfg.DatabasePrefix)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, []string{"Command started", "Command succeeded"}, cfg.IgnoredDiagnostics)
	assert.Equal(t, SequenceBackendRedis, cfg.SequenceBackend)
	assert.Equal(t, "cache:6379", cfg.Redis.GetAddr())
	assert.Equal(t, "zap", cfg.Log.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "srv scheme", mutate: func(c *Config) { c.MongoDBURI = "mongodb+srv://cluster.example.net" }},
		{name: "empty uri", mutate: func(c *Config) { c.MongoDBURI = "" }, wantErr: true},
		{name: "http uri", mutate: func(c *Config) { c.MongoDBURI = "http://localhost" }, wantErr: true},
		{name: "empty prefix", mutate: func(c *Config) { c.DatabasePrefix = "" }, wantErr: true},
		{name: "dotted prefix", mutate: func(c *Config) { c.DatabasePrefix = "a.b-" }, wantErr: true},
		{name: "unknown sequence backend", mutate: func(c *Config) { c.SequenceBackend = "etcd" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MongoDBURI = "http://localhost"
	cfg.DatabasePrefix = "a.b-"
	cfg.SequenceBackend = "etcd"

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	fields := appErr.Details["validation_errors"].([]apperrors.ValidationError)
	require.Len(t, fields, 3)
	assert.Equal(t, "MONGODB_URI", fields[0].Field)
	assert.Equal(t, "TESTKIT_DATABASE_PREFIX", fields[1].Field)
	assert.Equal(t, "TESTKIT_SEQUENCE_BACKEND", fields[2].Field)
	assert.Contains(t, err.Error(), "scheme")
}

func TestNewRedisClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AppName = "orders-suite"
	cfg.Redis.ConnMaxIdleTime = "not-a-duration"
	client := cfg.NewRedisClient()
	defer client.Close()

	opts := client.Options()
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, "orders-suite", opts.ClientName)
	assert.Equal(t, 30*time.Minute, opts.ConnMaxIdleTime)
	assert.Equal(t, time.Hour, opts.ConnMaxLifetime)
	assert.Nil(t, opts.TLSConfig)
}

func TestRedisConfig_OptionsTLS(t *testing.T) {
	cfg := DefaultConfig().Redis
	cfg.Host = "cache.internal"
	cfg.EnableTLS = true
	cfg.ConnMaxLifetime = "5m"

	opts := cfg.Options("ci")
	require.NotNil(t, opts.TLSConfig)
	assert.Equal(t, "cache.internal", opts.TLSConfig.ServerName)
	assert.Equal(t, 5*time.Minute, opts.ConnMaxLifetime)
}
