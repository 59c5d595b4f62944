package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
	"mongo-testkit/internal/testkit/config"
	"mongo-testkit/internal/testkit/usecase"
)

func unreachableConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.MongoDBURI = "mongodb://127.0.0.1:1"
	cfg.ConnectTimeout = 200 * time.Millisecond
	cfg.ServerSelectionTimeout = 200 * time.Millisecond
	return cfg
}

func TestNewTestkitModule_MemoryCounters(t *testing.T) {
	module, err := NewTestkitModule(unreachableConfig(), logger.NopLogger{})
	require.NoError(t, err)
	defer module.Close(context.Background())

	assert.Same(t, usecase.DefaultRun(), module.Run)
	assert.Nil(t, module.RedisClient)
	assert.True(t, module.Capabilities.StrictEquality())
	assert.Equal(t, 53, module.Capabilities.IntegerPrecision())
	assert.NotEmpty(t, module.KnownFailures.Tests())
	assert.True(t, module.Backend.Sink().Ignores("Server selection started"))
}

func TestNewTestkitModule_RedisCounters(t *testing.T) {
	cfg := unreachableConfig()
	cfg.SequenceBackend = config.SequenceBackendRedis

	module, err := NewTestkitModule(cfg, logger.NopLogger{})
	require.NoError(t, err)
	defer module.Close(context.Background())

	require.NotNil(t, module.RedisClient)
	assert.NotSame(t, usecase.DefaultRun(), module.Run)
	assert.Len(t, module.Run.Timestamp(), len("2006-01-02T15-04-05"))
}

func TestNewTestkitModule_InvalidConfig(t *testing.T) {
	cfg := unreachableConfig()
	cfg.DatabasePrefix = "bad.prefix"

	_, err := NewTestkitModule(cfg, logger.NopLogger{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTestkitModule_NewFixture_Unreachable(t *testing.T) {
	module, err := NewTestkitModule(unreachableConfig(), logger.NopLogger{})
	require.NoError(t, err)
	defer module.Close(context.Background())

	_, err = module.NewFixture(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInfrastructure))

	assert.Error(t, module.HealthCheck(context.Background()))
}

type recordingT struct {
	failures int
}

func (r *recordingT) Errorf(format string, args ...interface{}) { r.failures++ }

func TestFixture_RunShared(t *testing.T) {
	module, err := NewTestkitModule(unreachableConfig(), logger.NopLogger{})
	require.NoError(t, err)
	defer module.Close(context.Background())

	fixture := &Fixture{
		Capabilities:  module.Capabilities,
		KnownFailures: module.KnownFailures,
	}

	rt := &recordingT{}
	ok := fixture.RunShared(rt, "can_read_back_bool_mapped_as_int_through_navigation", func() error {
		return usecase.NewTranslationError("orders.Where(o => o.Navigation.Flag == 1)")
	})
	assert.True(t, ok)
	assert.Zero(t, rt.failures)

	ok = fixture.RunShared(rt, "can_read_back_bool_mapped_as_int_through_navigation", func() error { return nil })
	assert.False(t, ok)
	assert.Equal(t, 1, rt.failures)
}
