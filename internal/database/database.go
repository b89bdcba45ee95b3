package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	UsersCollection       = "users"
	PostsCollection       = "posts"
	CollectionsCollection = "collections"

	connectTimeout = 15 * time.Second
)

// DB wraps the mongo client and the FlexBase database handle
type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect opens a client against uri, pings it, and selects database name
func Connect(ctx context.Context, uri, name string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(10 * time.Minute).
		SetMonitor(commandMonitor())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Log.Info("Connected to MongoDB", zap.String("database", name))

	return &DB{Client: client, Database: client.Database(name)}, nil
}

// commandMonitor feeds command latency into prometheus
func commandMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			metrics.RecordDatabaseOperation(e.CommandName, e.DatabaseName, e.Duration, nil)
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			metrics.RecordDatabaseOperation(e.CommandName, e.DatabaseName, e.Duration, errors.New(e.Failure))
		},
	}
}

// Users returns the users collection
func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection(UsersCollection)
}

// Posts returns the posts collection
func (db *DB) Posts() *mongo.Collection {
	return db.Database.Collection(PostsCollection)
}

// Collections returns the user collections collection
func (db *DB) Collections() *mongo.Collection {
	return db.Database.Collection(CollectionsCollection)
}

// EnsureIndexes creates the indexes FlexBase queries rely on.
// Username and email uniqueness is enforced here.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[*mongo.Collection][]mongo.IndexModel{
		db.Users(): {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		},
		db.Posts(): {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "visibility", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "tags.name", Value: 1}}},
			{Keys: bson.D{{Key: "collection", Value: 1}}},
		},
		db.Collections(): {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}

	logger.Log.Info("MongoDB indexes ensured")
	return nil
}

// Drop removes every FlexBase collection
func (db *DB) Drop(ctx context.Context) error {
	for _, coll := range []*mongo.Collection{db.Users(), db.Posts(), db.Collections()} {
		if err := coll.Drop(ctx); err != nil {
			return fmt.Errorf("failed to drop %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Ping checks connectivity for health checks
func (db *DB) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, nil)
}

// Close disconnects the client
func (db *DB) Close(ctx context.Context) error {
	if db == nil || db.Client == nil {
		return nil
	}
	return db.Client.Disconnect(ctx)
}
