package usecase

import (
	"context"
	"fmt"

	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
	"mongo-testkit/internal/shared/utils"
	"mongo-testkit/internal/testkit/domain/model"
	"mongo-testkit/internal/testkit/domain/repository"
)

// Provisioner owns one uniquely named database and hands out collections in it.
// A provisioner may be used from several goroutines.
type Provisioner struct {
	db       repository.Database
	identity model.RunIdentity
	namer    *CollectionNamer
	log      logger.Logger
}

type provisionerOptions struct {
	prefix   string
	renderer model.NameRenderer
	log      logger.Logger
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*provisionerOptions)

// WithDatabasePrefix overrides the database name prefix.
func WithDatabasePrefix(prefix string) ProvisionerOption {
	return func(o *provisionerOptions) { o.prefix = prefix }
}

// WithNameRenderer overrides how discriminating values render.
func WithNameRenderer(r model.NameRenderer) ProvisionerOption {
	return func(o *provisionerOptions) { o.renderer = r }
}

// WithProvisionerLogger sets the logger.
func WithProvisionerLogger(log logger.Logger) ProvisionerOption {
	return func(o *provisionerOptions) { o.log = log }
}

// NewProvisioner reserves the next database identity of run and opens the
// database reference on the shared client. Nothing is created server-side.
func NewProvisioner(ctx context.Context, backend repository.Backend, run *Run, opts ...ProvisionerOption) (*Provisioner, error) {
	o := provisionerOptions{
		prefix:   model.DefaultDatabasePrefix,
		renderer: model.DefaultNameRenderer(),
		log:      logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if backend == nil {
		return nil, apperrors.NewInternalError("backend is required").WithCause(apperrors.ErrNotInitialized)
	}
	if run == nil {
		run = DefaultRun()
	}

	client, err := backend.Client(ctx)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to obtain database client").
			WithCause(err).
			WithComponent("provisioner")
	}

	identity, err := run.NextIdentity(ctx)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to reserve database name").
			WithCause(err).
			WithComponent("provisioner")
	}

	db := client.Database(identity.DatabaseName(o.prefix))
	log := o.log.WithComponent("provisioner").WithFields(map[string]interface{}{
		"database": db.Name(),
	})
	log.Debug("Opened test database")

	return &Provisioner{
		db:       db,
		identity: identity,
		namer:    NewCollectionNamer(run, o.renderer),
		log:      log,
	}, nil
}

// Database returns the provisioner's database.
func (p *Provisioner) Database() repository.Database { return p.db }

// DatabaseName returns the provisioner's database name.
func (p *Provisioner) DatabaseName() string { return p.db.Name() }

// Identity returns the run identity encoded in the database name.
func (p *Provisioner) Identity() model.RunIdentity { return p.identity }

// WithContext tags ctx with the database name so log lines can be correlated.
func (p *Provisioner) WithContext(ctx context.Context) context.Context {
	return utils.WithRunID(ctx, p.db.Name())
}

// CreateCollectionName builds a collection name without creating anything.
// An empty prefix is inferred from the test name in ctx, then from the
// calling function.
func (p *Provisioner) CreateCollectionName(ctx context.Context, prefix string, values ...model.Discriminator) (string, error) {
	site := captureCallSite()
	return p.collectionName(ctx, site, prefix, values)
}

func (p *Provisioner) collectionName(ctx context.Context, site CallSite, prefix string, values []model.Discriminator) (string, error) {
	if prefix == "" {
		prefix = inferPrefix(ctx, site)
	}
	return p.namer.Name(ctx, site, prefix, values...)
}

func (p *Provisioner) exactName(ctx context.Context, site CallSite, name string) (string, error) {
	if name == "" {
		name = inferPrefix(ctx, site)
	}
	return p.namer.ResolvePrefix(ctx, site, name)
}

// createCollection creates name server-side. Backend errors, including an
// already existing collection, are returned as is.
func (p *Provisioner) createCollection(ctx context.Context, name string) error {
	if err := p.db.CreateCollection(ctx, name); err != nil {
		p.log.WithContext(ctx).WithFields(map[string]interface{}{
			"collection": name,
			"error":      err.Error(),
		}).Warn("Failed to create collection")
		return err
	}
	p.log.WithContext(ctx).WithFields(map[string]interface{}{
		"collection": name,
	}).Debug("Created collection")
	return nil
}

func (p *Provisioner) String() string {
	return fmt.Sprintf("Provisioner(%s)", p.db.Name())
}
