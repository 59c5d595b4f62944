package usecase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mongo-testkit/internal/testkit/domain/model"
	"mongo-testkit/internal/testkit/domain/repository"
)

// Collection is a typed handle on a provisioned collection.
type Collection[T any] struct {
	coll *mongo.Collection
	ns   model.CollectionNamespace
}

func newCollection[T any](db repository.Database, name string) *Collection[T] {
	return &Collection[T]{
		coll: db.Collection(name),
		ns:   model.NewCollectionNamespace(db.Name(), name),
	}
}

// CreateCollection creates a new collection named "{prefix}_{values}" and
// returns a handle on it. It fails if that collection already exists.
func CreateCollection[T any](ctx context.Context, p *Provisioner, prefix string, values ...model.Discriminator) (*Collection[T], error) {
	site := captureCallSite()
	name, err := p.collectionName(ctx, site, prefix, values)
	if err != nil {
		return nil, err
	}
	if err := p.createCollection(ctx, name); err != nil {
		return nil, err
	}
	return newCollection[T](p.db, name), nil
}

// CreateNamedCollection creates a collection with exactly name, no suffix.
func CreateNamedCollection[T any](ctx context.Context, p *Provisioner, name string) (*Collection[T], error) {
	site := captureCallSite()
	resolved, err := p.exactName(ctx, site, name)
	if err != nil {
		return nil, err
	}
	if err := p.createCollection(ctx, resolved); err != nil {
		return nil, err
	}
	return newCollection[T](p.db, resolved), nil
}

// GetCollection returns a handle on "{prefix}_{values}" without creating it.
func GetCollection[T any](ctx context.Context, p *Provisioner, prefix string, values ...model.Discriminator) (*Collection[T], error) {
	site := captureCallSite()
	name, err := p.collectionName(ctx, site, prefix, values)
	if err != nil {
		return nil, err
	}
	return newCollection[T](p.db, name), nil
}

// GetNamedCollection returns a handle on exactly name without creating it.
func GetNamedCollection[T any](ctx context.Context, p *Provisioner, name string) (*Collection[T], error) {
	site := captureCallSite()
	resolved, err := p.exactName(ctx, site, name)
	if err != nil {
		return nil, err
	}
	return newCollection[T](p.db, resolved), nil
}

// GetCollectionByNamespace returns a handle on the collection part of ns in
// the provisioner's own database. The database part of ns is ignored.
func GetCollectionByNamespace[T any](p *Provisioner, ns model.CollectionNamespace) *Collection[T] {
	return newCollection[T](p.db, ns.Collection)
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.ns.Collection }

// Namespace returns the database and collection name.
func (c *Collection[T]) Namespace() model.CollectionNamespace { return c.ns }

// Raw returns the driver collection.
func (c *Collection[T]) Raw() *mongo.Collection { return c.coll }

// InsertOne inserts doc and returns its _id.
func (c *Collection[T]) InsertOne(ctx context.Context, doc T) (interface{}, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

// InsertMany inserts docs in order and returns their _ids.
func (c *Collection[T]) InsertMany(ctx context.Context, docs []T) ([]interface{}, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}
	res, err := c.coll.InsertMany(ctx, batch)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

// FindOne decodes the first document matching filter. A nil filter matches everything.
func (c *Collection[T]) FindOne(ctx context.Context, filter interface{}) (T, error) {
	var out T
	err := c.coll.FindOne(ctx, orAll(filter)).Decode(&out)
	return out, err
}

// Find decodes every document matching filter.
func (c *Collection[T]) Find(ctx context.Context, filter interface{}) ([]T, error) {
	cursor, err := c.coll.Find(ctx, orAll(filter))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountDocuments counts documents matching filter.
func (c *Collection[T]) CountDocuments(ctx context.Context, filter interface{}) (int64, error) {
	return c.coll.CountDocuments(ctx, orAll(filter))
}

func orAll(filter interface{}) interface{} {
	if filter == nil {
		return bson.D{}
	}
	return filter
}
