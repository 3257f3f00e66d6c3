package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindParams holds sort and limit configuration for a query
type FindParams struct {
	SortBy   []string `json:"sortBy"`   // Fields to sort by, in priority order
	SortDesc bool     `json:"sortDesc"` // Sort descending if true
	Limit    int64    `json:"limit"`    // Max documents, 0 means no limit
}

// Repository provides generic CRUD operations for MongoDB
type Repository[T any] struct {
	collection *mongo.Collection
}

// NewRepository creates a new generic repository
func NewRepository[T any](db *mongo.Database, collectionName string) *Repository[T] {
	return &Repository[T]{
		collection: db.Collection(collectionName),
	}
}

func OpenConnection(ctx context.Context, uri string, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client.Database(database), nil
}

// Collection exposes the underlying collection for pipelines
func (r *Repository[T]) Collection() *mongo.Collection {
	return r.collection
}

// Create inserts a new document
func (r *Repository[T]) Create(ctx context.Context, document T) (*mongo.InsertOneResult, error) {
	return r.collection.InsertOne(ctx, document)
}

// FindByID finds a document by its string _id
func (r *Repository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

// FindOne finds a single document matching the filter
func (r *Repository[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	var result T
	err := r.collection.FindOne(ctx, filter).Decode(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Find finds documents matching the filter, sorted and limited by params
func (r *Repository[T]) Find(ctx context.Context, filter bson.M, params FindParams) ([]T, error) {
	findOptions := options.Find()
	if params.Limit > 0 {
		findOptions.SetLimit(params.Limit)
	}
	if sort := sortDoc(params); len(sort) > 0 {
		findOptions.SetSort(sort)
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Aggregate runs a pipeline and decodes every result into T
func (r *Repository[T]) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]T, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateByID applies $set to the document with the given _id and returns it
// after the update
func (r *Repository[T]) UpdateByID(ctx context.Context, id string, update bson.M) (*T, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var result T
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update}, opts).Decode(&result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateMany updates multiple documents matching the filter
func (r *Repository[T]) UpdateMany(ctx context.Context, filter bson.M, update bson.M) (*mongo.UpdateResult, error) {
	return r.collection.UpdateMany(ctx, filter, bson.M{"$set": update})
}

// Exists checks if a document matching the filter exists
func (r *Repository[T]) Exists(ctx context.Context, filter bson.M) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EnsureIndex creates an index on keys if it does not exist yet
func (r *Repository[T]) EnsureIndex(ctx context.Context, keys bson.D, unique bool) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(unique),
	})
	return err
}

func sortDoc(params FindParams) bson.D {
	order := 1
	if params.SortDesc {
		order = -1
	}
	sort := make(bson.D, 0, len(params.SortBy))
	for _, field := range params.SortBy {
		sort = append(sort, bson.E{Key: field, Value: order})
	}
	return sort
}
