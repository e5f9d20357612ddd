// Package mongodb provides MongoDB infrastructure components including index management.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionKV is the default key/value collection holding persisted values.
const CollectionKV = "kv"

// IndexDefinition describes a MongoDB index to be created.
type IndexDefinition struct {
	Collection string
	Keys       bson.D
	Options    *options.IndexOptionsBuilder
}

// CreateAllIndexes creates the indexes of the key/value collection.
// Calling it multiple times is safe.
func CreateAllIndexes(ctx context.Context, db *mongo.Database, collection string) error {
	if collection == "" {
		collection = CollectionKV
	}

	for _, idx := range GetKVIndexes(collection) {
		coll := db.Collection(idx.Collection)
		model := mongo.IndexModel{
			Keys:    idx.Keys,
			Options: idx.Options,
		}

		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to create index %s on collection %s: %w",
				getIndexName(idx.Options), idx.Collection, err)
		}
	}

	return nil
}

// getIndexName extracts the index name from options for error messages.
func getIndexName(opts *options.IndexOptionsBuilder) string {
	if opts == nil {
		return "<unnamed>"
	}

	var o options.IndexOptions
	for _, apply := range opts.List() {
		_ = apply(&o)
	}
	if o.Name == nil {
		return "<unnamed>"
	}
	return *o.Name
}

// GetKVIndexes returns the index definitions of a key/value collection.
// Documents are looked up by _id; updated_at serves operators listing recent writes.
func GetKVIndexes(collection string) []IndexDefinition {
	return []IndexDefinition{
		{
			Collection: collection,
			Keys:       bson.D{{Key: "updated_at", Value: -1}},
			Options:    options.Index().SetName("idx_kv_updated_at"),
		},
	}
}
