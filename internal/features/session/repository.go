package session

import (
	"context"
	"errors"
	"time"

	"go-viz/internal/database"
	"go-viz/internal/features/chart"
	"go-viz/internal/features/transform"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]Session, error)
	SaveState(ctx context.Context, id string, store *transform.Store, chartType chart.ChartType) error
	SaveBinding(ctx context.Context, id string, binding chart.Binding) error
	Delete(ctx context.Context, id string) error
	// DeleteIdle removes sessions untouched since before and returns their ids.
	DeleteIdle(ctx context.Context, before time.Time) ([]string, error)
}

type SessionRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewSessionRepository(mongodb *database.MongodbDB) SessionRepository {
	return &SessionRepositoryImpl{
		Collection: mongodb.DB.Collection(database.SessionsCollection),
	}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, s *Session) error {
	s.ID = primitive.NewObjectID()
	_, err := r.Collection.InsertOne(ctx, s)
	return err
}

func (r *SessionRepositoryImpl) Get(ctx context.Context, id string) (*Session, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	var s Session
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SessionRepositoryImpl) List(ctx context.Context) ([]Session, error) {
	opts := options.Find().
		SetProjection(bson.M{"store": 0}).
		SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	sessions := []Session{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepositoryImpl) SaveState(ctx context.Context, id string, store *transform.Store, chartType chart.ChartType) error {
	return r.set(ctx, id, bson.M{"store": store, "chart_type": chartType})
}

func (r *SessionRepositoryImpl) SaveBinding(ctx context.Context, id string, binding chart.Binding) error {
	return r.set(ctx, id, bson.M{"binding": binding})
}

func (r *SessionRepositoryImpl) set(ctx context.Context, id string, fields bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrSessionNotFound
	}
	fields["updated_at"] = time.Now().UTC()

	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrSessionNotFound
	}

	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepositoryImpl) DeleteIdle(ctx context.Context, before time.Time) ([]string, error) {
	filter := bson.M{"updated_at": bson.M{"$lt": before}}
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(docs))
	oids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
		oids = append(oids, d.ID)
	}
	if _, err := r.Collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}}); err != nil {
		return nil, err
	}
	return ids, nil
}
