package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"mongo-testkit/internal/testkit/domain/repository"
)

// ClientAdapter makes *mongo.Client satisfy repository.Client.
type ClientAdapter struct {
	client *mongo.Client
}

// NewClientAdapter wraps client.
func NewClientAdapter(client *mongo.Client) *ClientAdapter {
	return &ClientAdapter{client: client}
}

// Database opens a database reference.
func (c *ClientAdapter) Database(name string) repository.Database {
	return NewDatabaseAdapter(c.client.Database(name))
}

// DatabaseAdapter makes *mongo.Database satisfy repository.Database.
type DatabaseAdapter struct {
	db *mongo.Database
}

// NewDatabaseAdapter wraps db.
func NewDatabaseAdapter(db *mongo.Database) *DatabaseAdapter {
	return &DatabaseAdapter{db: db}
}

func (d *DatabaseAdapter) Name() string { return d.db.Name() }

// CreateCollection issues the create command. The server rejects an existing
// collection with NamespaceExists.
func (d *DatabaseAdapter) CreateCollection(ctx context.Context, name string) error {
	return d.db.CreateCollection(ctx, name)
}

func (d *DatabaseAdapter) Collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

// Mongo returns the wrapped database.
func (d *DatabaseAdapter) Mongo() *mongo.Database { return d.db }
