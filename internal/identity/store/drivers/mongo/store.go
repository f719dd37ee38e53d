// Package mongo is the MongoDB credential store driver. Identities live in a
// single "users" collection with unique indexes on username and email.
package mongo

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/vidtube/internal/identity/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const usersCollection = "users"

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// NewStore connects to uri and uses database db.
func NewStore(ctx context.Context, uri, db string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &Store{client: client, db: client.Database(db)}, nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// ApplyMigrations creates the indexes the store relies on: unique username and
// email, and the refresh expiry index used by housekeeping. It is idempotent.
func (s *Store) ApplyMigrations() error {
	ctx := context.Background()
	_, err := s.users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_username"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_email"),
		},
		{
			Keys:    bson.D{{Key: "refreshTokenExpiresAt", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("refresh_expiry"),
		},
	})
	return err
}

func (s *Store) Identities() store.Identities { return &identitiesRepo{coll: s.users()} }

func (s *Store) users() *mongo.Collection { return s.db.Collection(usersCollection) }
