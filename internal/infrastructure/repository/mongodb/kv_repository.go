package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/lllypuk/collabfront/internal/domain/errs"
	"github.com/lllypuk/collabfront/internal/domain/record"
	"github.com/lllypuk/collabfront/internal/infrastructure/repository"
)

// kvDocument holds one serialized value under its key.
// The value is kept as the JSON text so opaque record fields survive untouched.
type kvDocument struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`

	BaseDocument `bson:",inline"`
}

// MongoDomainRepository implements domainstore.Repository on a key/value collection.
type MongoDomainRepository struct {
	collection *mongo.Collection
	key        string
}

// NewMongoDomainRepository creates a repository storing the collection under key.
func NewMongoDomainRepository(collection *mongo.Collection, key string) *MongoDomainRepository {
	if key == "" {
		key = repository.DefaultKey
	}
	return &MongoDomainRepository{
		collection: collection,
		key:        key,
	}
}

// Load reads the collection. A missing document is not an error.
func (r *MongoDomainRepository) Load(ctx context.Context) ([]record.Domain, error) {
	var doc kvDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": r.key}).Decode(&doc)
	if err != nil {
		err = HandleMongoError(err, "domains")
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return repository.Decode([]byte(doc.Value))
}

// Save upserts the whole collection.
func (r *MongoDomainRepository) Save(ctx context.Context, domains []record.Domain) error {
	data, err := repository.Encode(domains)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"value":      string(data),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	if _, err = r.collection.UpdateOne(ctx, bson.M{"_id": r.key}, update, UpsertOptions()); err != nil {
		return fmt.Errorf("failed to save domains: %w", HandleMongoError(err, "domains"))
	}
	return nil
}
