package testkit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"mongo-testkit/internal/shared/database"
	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
	redispersistence "mongo-testkit/internal/testkit/adapter/persistence"
	mongodbpersistence "mongo-testkit/internal/testkit/adapter/persistence/mongodb"
	"mongo-testkit/internal/testkit/config"
	"mongo-testkit/internal/testkit/domain/model"
	"mongo-testkit/internal/testkit/usecase"
)

// TestkitModule wires the shared client, run counters and failure registry a
// test process uses to provision isolated databases.
type TestkitModule struct {
	Config        *config.Config
	Logger        logger.Logger
	Capabilities  model.CapabilitySet
	Backend       *mongodbpersistence.ClientProvider
	Run           *usecase.Run
	KnownFailures *usecase.KnownFailures

	// Set only with the redis sequence backend.
	RedisClient *redis.Client
}

// NewTestkitModule builds the module. A nil cfg is loaded from the
// environment, falling back to defaults; a nil log follows cfg.Log.
func NewTestkitModule(cfg *config.Config, log logger.Logger) (*TestkitModule, error) {
	if cfg == nil {
		loaded, err := config.LoadConfig()
		if err != nil {
			logger.WithComponent("testkit").Warn("Failed to load testkit config from environment, using defaults: ", err)
			loaded = config.DefaultConfig()
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewValidationError("invalid testkit configuration").WithCause(err)
	}
	if log == nil {
		log = logger.New(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format)
	}
	log = log.WithComponent("testkit")

	caps := model.MongoCapabilities()
	module := &TestkitModule{
		Config:        cfg,
		Logger:        log,
		Capabilities:  caps,
		Backend:       mongodbpersistence.NewClientProvider(cfg, log, caps.IgnoredDiagnostics()...),
		KnownFailures: usecase.DefaultKnownFailures(),
	}

	switch cfg.SequenceBackend {
	case config.SequenceBackendRedis:
		module.RedisClient = cfg.NewRedisClient()
		module.Run = newSharedRun(module.RedisClient, cfg.Redis.KeyPrefix, log)
		log.WithFields(map[string]interface{}{
			"redis_addr": cfg.Redis.GetAddr(),
			"run":        module.Run.Timestamp(),
		}).Info("Using Redis run counters")
	default:
		module.Run = usecase.DefaultRun()
	}

	log.Info("Testkit module initialized")
	return module, nil
}

// newSharedRun fixes the run timestamp now so the Redis keys and the database
// names agree. Processes starting in the same second share the counters.
func newSharedRun(client *redis.Client, keyPrefix string, log logger.Logger) *usecase.Run {
	started := time.Now()
	ts := model.FormatRunTimestamp(started)
	return usecase.NewRun(
		usecase.WithClock(func() time.Time { return started }),
		usecase.WithDatabaseSequence(redispersistence.NewRedisSequence(client, keyPrefix, ts, redispersistence.DatabaseSequence, log)),
		usecase.WithFallbackSequence(redispersistence.NewRedisSequence(client, keyPrefix, ts, redispersistence.FallbackSequence, log)),
	)
}

// Fixture is what a test class holds: its own database plus the capability
// set and known failures shared suites consult.
type Fixture struct {
	*usecase.Provisioner

	Capabilities  model.CapabilitySet
	KnownFailures *usecase.KnownFailures
	Suite         map[string]interface{}
}

// NewFixture provisions a fresh database for one test class.
func (m *TestkitModule) NewFixture(ctx context.Context) (*Fixture, error) {
	p, err := usecase.NewProvisioner(ctx, m.Backend, m.Run,
		usecase.WithDatabasePrefix(m.Config.DatabasePrefix),
		usecase.WithProvisionerLogger(m.Logger),
	)
	if err != nil {
		return nil, err
	}
	return &Fixture{
		Provisioner:   p,
		Capabilities:  m.Capabilities,
		KnownFailures: m.KnownFailures,
		Suite:         map[string]interface{}{},
	}, nil
}

// FailureEnv returns the data known failure conditions are evaluated against.
func (f *Fixture) FailureEnv() usecase.FailureEnv {
	return usecase.FailureEnv{Capabilities: f.Capabilities, Suite: f.Suite}
}

// RunShared runs a shared test body, expecting its known failure if one applies.
func (f *Fixture) RunShared(t assert.TestingT, test string, body func() error) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	return f.KnownFailures.Run(t, f.FailureEnv(), test, body)
}

// RunManager returns a janitor for the databases this module's prefix owns.
func (m *TestkitModule) RunManager(ctx context.Context) (*database.RunManager, error) {
	client, err := m.Backend.MongoClient(ctx)
	if err != nil {
		return nil, err
	}
	return database.NewRunManager(database.NewMongoDatabaseAdmin(client), m.Config.DatabasePrefix, m.Logger), nil
}

// HealthCheck pings MongoDB and, when configured, Redis.
func (m *TestkitModule) HealthCheck(ctx context.Context) error {
	if err := m.Backend.HealthCheck(ctx); err != nil {
		return err
	}
	if m.RedisClient != nil {
		if err := m.RedisClient.Ping(ctx).Err(); err != nil {
			return apperrors.NewInfrastructureError("redis health check failed").WithCause(err)
		}
	}
	return nil
}

// Close releases the shared client and the Redis connection.
func (m *TestkitModule) Close(ctx context.Context) error {
	err := m.Backend.Close(ctx)
	if m.RedisClient != nil {
		if rerr := m.RedisClient.Close(); rerr != nil && err == nil {
			err = rerr
		}
	}
	m.Logger.Info("Testkit module closed")
	return err
}
