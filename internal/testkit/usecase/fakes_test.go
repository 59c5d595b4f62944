package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mongo-testkit/internal/testkit/domain/repository"
)

// fakeBackend hands out a client whose databases record created collections
// in memory. Handles come from a real driver client that is never used for I/O.
type fakeBackend struct {
	client *fakeClient
	err    error
}

func (b *fakeBackend) Client(ctx context.Context) (repository.Client, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.client, nil
}

type fakeClient struct {
	driver *mongo.Client

	mu  sync.Mutex
	dbs map[string]*fakeDatabase
}

func (c *fakeClient) Database(name string) repository.Database {
	c.mu.Lock()
	defer c.mu.Unlock()
	if db, ok := c.dbs[name]; ok {
		return db
	}
	db := &fakeDatabase{name: name, handle: c.driver.Database(name), created: map[string]bool{}}
	c.dbs[name] = db
	return db
}

type fakeDatabase struct {
	name   string
	handle *mongo.Database

	mu      sync.Mutex
	created map[string]bool
}

func (d *fakeDatabase) Name() string { return d.name }

func (d *fakeDatabase) CreateCollection(ctx context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.created[name] {
		return mongo.CommandError{
			Code:    48,
			Name:    "NamespaceExists",
			Message: fmt.Sprintf("Collection %s.%s already exists.", d.name, name),
		}
	}
	d.created[name] = true
	return nil
}

func (d *fakeDatabase) Collection(name string) *mongo.Collection {
	return d.handle.Collection(name)
}

func (d *fakeDatabase) has(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[name]
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Connect returns without a reachable server; handles are only used for their names.
	driver, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Disconnect(context.Background()) })

	return &fakeBackend{client: &fakeClient{driver: driver, dbs: map[string]*fakeDatabase{}}}
}

func fixedClock() time.Time {
	return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
}

// recordingT captures assertion failures instead of failing the test.
type recordingT struct {
	failures []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func (r *recordingT) failed() bool { return len(r.failures) > 0 }
