package database

import (
	"context"
	"time"

	"go-viz/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	SessionsCollection = "sessions"
	DatasetsCollection = "datasets"
	LogsCollection     = "engine_logs"
)

type MongodbDB struct {
	DB     *mongo.Database
	Client *mongo.Client
}

// Connect opens and pings a MongoDB connection.
func Connect(ctx context.Context, cfg *config.Config) (*MongodbDB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &MongodbDB{DB: client.Database(cfg.DBName), Client: client}, nil
}

// NewDatabase creates a new MongoDB database connection with lifecycle management
func NewDatabase(lc fx.Lifecycle, cfg *config.Config) (*MongodbDB, error) {
	db, err := Connect(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return db.EnsureIndexes(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return db.Client.Disconnect(ctx)
		},
	})

	return db, nil
}

// EnsureIndexes creates the indexes the repositories rely on.
func (m *MongodbDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.DB.Collection(SessionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: 1}},
	})
	if err != nil {
		zap.L().Warn("failed to create sessions index", zap.Error(err))
		return err
	}
	_, err = m.DB.Collection(DatasetsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (m *MongodbDB) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}
