package mongodb

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
	"mongo-testkit/internal/testkit/config"
	"mongo-testkit/internal/testkit/domain/repository"
)

var _ repository.Backend = (*ClientProvider)(nil)

// ClientProvider connects one pooled client on first use and shares it with
// every provisioner of the process.
type ClientProvider struct {
	cfg  *config.Config
	log  logger.Logger
	sink *DiagnosticSink

	mu     sync.Mutex
	client *mongo.Client
}

// NewClientProvider creates a provider. Driver log messages listed in ignored
// are dropped.
func NewClientProvider(cfg *config.Config, log logger.Logger, ignored ...string) *ClientProvider {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewLogger()
	}
	all := append(append([]string(nil), ignored...), cfg.IgnoredDiagnostics...)
	return &ClientProvider{
		cfg:  cfg,
		log:  log.WithComponent("mongo_client_provider"),
		sink: NewDiagnosticSink(log, all...),
	}
}

// Client returns the shared client, connecting it if needed.
func (p *ClientProvider) Client(ctx context.Context) (repository.Client, error) {
	client, err := p.MongoClient(ctx)
	if err != nil {
		return nil, err
	}
	return NewClientAdapter(client), nil
}

// MongoClient returns the shared driver client, connecting it if needed.
func (p *ClientProvider) MongoClient(ctx context.Context) (*mongo.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	client, err := mongo.Connect(ctx, p.ClientOptions())
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to connect to MongoDB").
			WithCause(err).
			WithComponent("mongo_client_provider")
	}

	pingCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, apperrors.NewInfrastructureError("failed to ping MongoDB").
			WithCause(err).
			WithComponent("mongo_client_provider")
	}

	p.log.WithFields(map[string]interface{}{
		"app_name":      p.cfg.AppName,
		"max_pool_size": p.cfg.MaxPoolSize,
	}).Info("Connected to MongoDB")

	p.client = client
	return client, nil
}

// ClientOptions builds the driver options from configuration.
func (p *ClientProvider) ClientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(p.cfg.MongoDBURI).
		SetAppName(p.cfg.AppName).
		SetConnectTimeout(p.cfg.ConnectTimeout).
		SetServerSelectionTimeout(p.cfg.ServerSelectionTimeout)
	if p.cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(p.cfg.MaxPoolSize)
	}

	// The driver only reports server selection at debug. Enabling it surfaces
	// "Server selection failed" when a test hangs on an unreachable server; the
	// per-operation started and succeeded messages are in the sink's drop list.
	opts.SetLoggerOptions(options.Logger().
		SetSink(p.sink).
		SetComponentLevel(options.LogComponentServerSelection, options.LogLevelDebug).
		SetComponentLevel(options.LogComponentConnection, options.LogLevelInfo))
	return opts
}

// Sink returns the driver log sink.
func (p *ClientProvider) Sink() *DiagnosticSink { return p.sink }

// HealthCheck pings the primary.
func (p *ClientProvider) HealthCheck(ctx context.Context) error {
	client, err := p.MongoClient(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, readpref.Primary())
}

// Close disconnects the shared client if it was connected.
func (p *ClientProvider) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Disconnect(ctx)
	p.client = nil
	if err != nil {
		return apperrors.NewInfrastructureError("failed to disconnect from MongoDB").WithCause(err)
	}
	p.log.Info("Disconnected from MongoDB")
	return nil
}
