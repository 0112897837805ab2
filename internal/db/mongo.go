package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	projectsCollection   = "projects"
	adminUsersCollection = "admin_users"

	mongoConnectTimeout = 10 * time.Second
	mongoIndexTimeout   = 10 * time.Second
)

// Collections mirrors the two SQL tables.
type Collections struct {
	Projects   *mongo.Collection
	AdminUsers *mongo.Collection
}

// ConnectMongo dials uri and verifies the primary answers before returning.
func ConnectMongo(ctx context.Context, uri, dbName string) (*mongo.Client, *Collections, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetAppName("archfolio-api").
		SetServerSelectionTimeout(mongoConnectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	database := client.Database(dbName)
	return client, &Collections{
		Projects:   database.Collection(projectsCollection),
		AdminUsers: database.Collection(adminUsersCollection),
	}, nil
}

func unique(keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
}

// EnsureIndexes creates the slug/username uniqueness constraints and the
// listing indexes. Existing indexes are left alone.
func EnsureIndexes(ctx context.Context, cols *Collections) error {
	ctx, cancel := context.WithTimeout(ctx, mongoIndexTimeout)
	defer cancel()

	plan := []struct {
		col     *mongo.Collection
		indexes []mongo.IndexModel
	}{
		{cols.Projects, []mongo.IndexModel{
			unique(bson.D{{Key: "slug", Value: 1}}),
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		}},
		{cols.AdminUsers, []mongo.IndexModel{
			unique(bson.D{{Key: "username", Value: 1}}),
		}},
	}
	for _, p := range plan {
		if _, err := p.col.Indexes().CreateMany(ctx, p.indexes); err != nil {
			return fmt.Errorf("indexes on %s: %w", p.col.Name(), err)
		}
	}
	return nil
}
