package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/flexbase/flexbase/internal/database"
	"github.com/flexbase/flexbase/internal/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const opTimeout = 10 * time.Second

// MongoStore is the MongoDB backed Store
type MongoStore struct {
	db           *database.DB
	transactions bool
}

// NewMongoStore creates a store over db. When transactions is false, paired
// writes run sequentially; use that only against standalone servers.
func NewMongoStore(db *database.DB, transactions bool) *MongoStore {
	if !transactions {
		logger.Log.Warn("MongoDB transactions disabled; paired writes are not atomic")
	}
	return &MongoStore{db: db, transactions: transactions}
}

var _ Store = (*MongoStore)(nil)

func (s *MongoStore) Users() UserRepository             { return &mongoUsers{s} }
func (s *MongoStore) Posts() PostRepository             { return &mongoPosts{s} }
func (s *MongoStore) Collections() CollectionRepository { return &mongoCollections{s} }

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.db.Ping(ctx)
}

// withTx runs fn inside a multi-document transaction. The context handed to
// fn must be used for every operation that belongs to the unit.
func (s *MongoStore) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.transactions {
		return fn(ctx)
	}

	session, err := s.db.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// translate maps driver errors onto repository sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		field := "value"
		msg := err.Error()
		switch {
		case strings.Contains(msg, "username"):
			field = "username"
		case strings.Contains(msg, "email"):
			field = "email"
		}
		return &DuplicateError{Field: field}
	}
	return err
}

func logSlowQuery(op string, start time.Time) {
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		logger.Log.Warn("Slow MongoDB operation",
			zap.String("op", op),
			zap.Duration("elapsed", elapsed),
		)
	}
}

func findOptions(limit, offset int) *options.FindOptions {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(ClampLimit(limit)))
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	return opts
}
