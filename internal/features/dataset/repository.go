package dataset

import (
	"context"
	"errors"

	"go-viz/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDatasetNotFound = errors.New("dataset not found")

type DatasetRepository interface {
	Create(ctx context.Context, ds *Dataset) error
	Get(ctx context.Context, id string) (*Dataset, error)
	List(ctx context.Context) ([]Dataset, error)
	Delete(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type DatasetRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewDatasetRepository(mongodb *database.MongodbDB) DatasetRepository {
	return &DatasetRepositoryImpl{
		Collection: mongodb.DB.Collection(database.DatasetsCollection),
	}
}

func (r *DatasetRepositoryImpl) Create(ctx context.Context, ds *Dataset) error {
	ds.ID = primitive.NewObjectID()
	_, err := r.Collection.InsertOne(ctx, ds)
	return err
}

func (r *DatasetRepositoryImpl) Get(ctx context.Context, id string) (*Dataset, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrDatasetNotFound
	}

	var ds Dataset
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&ds)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrDatasetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ds, nil
}

// List omits distinct values, which can be large.
func (r *DatasetRepositoryImpl) List(ctx context.Context) ([]Dataset, error) {
	opts := options.Find().
		SetProjection(bson.M{"distinct_values": 0}).
		SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	datasets := []Dataset{}
	if err := cursor.All(ctx, &datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

func (r *DatasetRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrDatasetNotFound
	}

	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrDatasetNotFound
	}
	return nil
}

func (r *DatasetRepositoryImpl) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := r.Collection.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	return n > 0, err
}
