// Package mongosrc loads a catalog from MongoDB.
//
// The database holds one collection per record kind (services, feeds,
// flows) whose documents use the same field names as the file formats.
// Documents are read in insertion order (ascending _id), which becomes the
// catalog's declaration order.
package mongosrc

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/errors"
)

// Collection names.
const (
	ServicesCollection = "services"
	FeedsCollection    = "feeds"
	FlowsCollection    = "flows"
)

const connectTimeout = 10 * time.Second

// finder is the part of *mongo.Collection the source needs.
type finder interface {
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// Source reads catalog records from a MongoDB database.
type Source struct {
	client   *mongo.Client
	services finder
	feeds    finder
	flows    finder
}

// Connect opens a client for uri and selects database.
func Connect(ctx context.Context, uri, database string) (*Source, error) {
	if err := errors.ValidateURL(uri, "mongodb", "mongodb+srv"); err != nil {
		return nil, err
	}
	if database == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo database name cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBackend, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeBackend, err, "ping mongo")
	}

	s := New(client.Database(database))
	s.client = client
	return s, nil
}

// New reads from an already connected database. Close is then a no-op.
func New(db *mongo.Database) *Source {
	return &Source{
		services: db.Collection(ServicesCollection),
		feeds:    db.Collection(FeedsCollection),
		flows:    db.Collection(FlowsCollection),
	}
}

// Load reads all three collections and indexes them.
func (s *Source) Load(ctx context.Context) (*catalog.Catalog, error) {
	var doc catalog.Document
	if err := findAll(ctx, s.services, ServicesCollection, &doc.Services); err != nil {
		return nil, err
	}
	if err := findAll(ctx, s.feeds, FeedsCollection, &doc.Feeds); err != nil {
		return nil, err
	}
	if err := findAll(ctx, s.flows, FlowsCollection, &doc.Flows); err != nil {
		return nil, err
	}
	return catalog.New(doc)
}

// Close disconnects the client opened by Connect.
func (s *Source) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func findAll[T any](ctx context.Context, coll finder, name string, out *[]T) error {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBackend, err, "find %s", name)
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, out); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "decode %s", name)
	}
	if *out == nil {
		*out = []T{}
	}
	return nil
}

// String describes the source for logs.
func (s *Source) String() string {
	return fmt.Sprintf("mongo(%s,%s,%s)", ServicesCollection, FeedsCollection, FlowsCollection)
}
