package database

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/shared/logger"
	"mongo-testkit/internal/testkit/domain/model"
)

// DatabaseAdmin is the server-level surface the run manager needs.
type DatabaseAdmin interface {
	ListDatabaseNames(ctx context.Context, prefix string) ([]string, error)
	DropDatabase(ctx context.Context, name string) error
}

// MongoDatabaseAdmin implements DatabaseAdmin on a driver client.
type MongoDatabaseAdmin struct {
	client *mongo.Client
}

// NewMongoDatabaseAdmin wraps client.
func NewMongoDatabaseAdmin(client *mongo.Client) *MongoDatabaseAdmin {
	return &MongoDatabaseAdmin{client: client}
}

// ListDatabaseNames lists databases whose name starts with prefix.
func (a *MongoDatabaseAdmin) ListDatabaseNames(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"name": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	return a.client.ListDatabaseNames(ctx, filter)
}

// DropDatabase drops name.
func (a *MongoDatabaseAdmin) DropDatabase(ctx context.Context, name string) error {
	return a.client.Database(name).Drop(ctx)
}

// RunInfo groups the databases one test run left behind.
type RunInfo struct {
	Timestamp string    `json:"timestamp"`
	StartedAt time.Time `json:"startedAt"`
	Databases []string  `json:"databases"`
}

// RunManager finds and drops databases created by test runs. It only ever
// touches databases whose names parse as run databases for its prefix.
type RunManager struct {
	admin  DatabaseAdmin
	prefix string
	now    func() time.Time
	logger logger.Logger

	// serializes drops so concurrent prunes do not race each other
	mu sync.Mutex
}

// NewRunManager creates a run manager for databases named with prefix.
func NewRunManager(admin DatabaseAdmin, prefix string, log logger.Logger) *RunManager {
	if prefix == "" {
		prefix = model.DefaultDatabasePrefix
	}
	if log == nil {
		log = logger.NewLogger()
	}
	return &RunManager{
		admin:  admin,
		prefix: prefix,
		now:    time.Now,
		logger: log.WithComponent("run_manager"),
	}
}

// Prefix returns the database prefix this manager owns.
func (rm *RunManager) Prefix() string { return rm.prefix }

// ListRuns returns the runs present on the server, oldest first.
func (rm *RunManager) ListRuns(ctx context.Context) ([]RunInfo, error) {
	names, err := rm.admin.ListDatabaseNames(ctx, rm.prefix)
	if err != nil {
		return nil, apperrors.NewInfrastructureError("failed to list databases").
			WithCause(err).
			WithComponent("run_manager")
	}

	type runDatabase struct {
		id   model.RunIdentity
		name string
	}
	identities := make(map[string][]runDatabase)
	for _, name := range names {
		id, ok := model.ParseDatabaseName(rm.prefix, name)
		if !ok {
			continue
		}
		identities[id.Timestamp] = append(identities[id.Timestamp], runDatabase{id: id, name: name})
	}

	runs := make([]RunInfo, 0, len(identities))
	for ts, dbs := range identities {
		sort.Slice(dbs, func(i, j int) bool { return dbs[i].id.Less(dbs[j].id) })
		run := RunInfo{Timestamp: ts, Databases: make([]string, len(dbs))}
		for i, db := range dbs {
			run.Databases[i] = db.name
		}
		if started, err := dbs[0].id.Time(); err == nil {
			run.StartedAt = started
		}
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp < runs[j].Timestamp })
	return runs, nil
}

// DropDatabase drops a single run database.
func (rm *RunManager) DropDatabase(ctx context.Context, name string) error {
	if _, ok := model.ParseDatabaseName(rm.prefix, name); !ok {
		return apperrors.NewValidationError(fmt.Sprintf("database %q is not a %s run database", name, rm.prefix)).
			WithCause(apperrors.ErrInvalidDatabaseName)
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.drop(ctx, name)
}

// DropRun drops every database of the run with the given timestamp.
func (rm *RunManager) DropRun(ctx context.Context, timestamp string) ([]string, error) {
	if _, err := time.Parse(model.RunTimestampLayout, timestamp); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("run timestamp %q does not match %s", timestamp, model.RunTimestampLayout)).
			WithCause(apperrors.ErrInvalidRunTimestamp)
	}

	runs, err := rm.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	for _, run := range runs {
		if run.Timestamp == timestamp {
			return rm.dropAll(ctx, run.Databases)
		}
	}
	return nil, apperrors.NewNotFoundError("run " + timestamp)
}

// PruneOlderThan drops every run that started more than age ago.
func (rm *RunManager) PruneOlderThan(ctx context.Context, age time.Duration) ([]string, error) {
	runs, err := rm.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := rm.now().Add(-age)
	var stale []string
	for _, run := range runs {
		if run.StartedAt.IsZero() || !run.StartedAt.Before(cutoff) {
			continue
		}
		stale = append(stale, run.Databases...)
	}

	dropped, err := rm.dropAll(ctx, stale)
	rm.logger.WithFields(map[string]interface{}{
		"older_than": age.String(),
		"dropped":    len(dropped),
	}).Info("Pruned test run databases")
	return dropped, err
}

func (rm *RunManager) dropAll(ctx context.Context, names []string) ([]string, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	dropped := make([]string, 0, len(names))
	for _, name := range names {
		if err := rm.drop(ctx, name); err != nil {
			return dropped, err
		}
		dropped = append(dropped, name)
	}
	return dropped, nil
}

func (rm *RunManager) drop(ctx context.Context, name string) error {
	if err := rm.admin.DropDatabase(ctx, name); err != nil {
		return apperrors.NewInfrastructureError("failed to drop database " + name).
			WithCause(err).
			WithComponent("run_manager")
	}
	rm.logger.WithFields(map[string]interface{}{
		"database_name": name,
	}).Info("Dropped test run database")
	return nil
}
