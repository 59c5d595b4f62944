package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Backend hands out the shared, pooled client for the test deployment.
type Backend interface {
	Client(ctx context.Context) (Client, error)
}

// Client opens database references. Opening is cheap and never creates anything server-side.
type Client interface {
	Database(name string) Database
}

// Database is the slice of database operations the provisioner consumes.
type Database interface {
	Name() string

	// CreateCollection creates the collection server-side. It fails when the
	// collection already exists or the name is invalid.
	CreateCollection(ctx context.Context, name string) error

	// Collection returns a handle without contacting the server.
	Collection(name string) *mongo.Collection
}

// Sequence hands out strictly increasing integers starting at 1. Next must be
// a single indivisible increment-and-read.
type Sequence interface {
	Next(ctx context.Context) (int64, error)
}
