package model

import "strings"

// CollectionNamespace identifies a collection within a MongoDB deployment.
type CollectionNamespace struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// NewCollectionNamespace returns the namespace db.collection.
func NewCollectionNamespace(db, collection string) CollectionNamespace {
	return CollectionNamespace{Database: db, Collection: collection}
}

// ParseNamespace splits "db.collection" at the first dot. Collection names
// may contain dots, database names may not.
func ParseNamespace(fullName string) (CollectionNamespace, bool) {
	db, coll, ok := strings.Cut(fullName, ".")
	if !ok || db == "" || coll == "" {
		return CollectionNamespace{}, false
	}
	return CollectionNamespace{Database: db, Collection: coll}, true
}

// FullName joins database and collection with a dot.
func (n CollectionNamespace) FullName() string {
	return n.Database + "." + n.Collection
}

func (n CollectionNamespace) String() string {
	return n.FullName()
}
