package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var logger = diag.CreateLogger()

// CollectionName is where events are stored
const CollectionName = "events"

// Connect creates a client and pings the primary
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create mongo client")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "Failed to ping mongo")
	}
	return client, nil
}

type eventDoc struct {
	EventTime int64 `bson:"event_time"`
}

// Store keeps events as documents. Record fields are kept as a nested document.
// Events of a window are inserted together on Flush and tagged with a batch id,
// a partially inserted batch is removed
type Store struct {
	coll    *mongo.Collection
	now     func() time.Time
	pending []bson.D
}

// NewStore creates a store for a given collection
func NewStore(coll *mongo.Collection) *Store {
	return &Store{coll: coll, now: time.Now}
}

// Setup creates the feed index
func (s *Store) Setup(ctx context.Context) error {
	logger.Info(ctx, "Setup mongo storage")
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "idx", Value: 1},
			{Key: "sourcetype", Value: 1},
			{Key: "source", Value: 1},
			{Key: "event_time", Value: -1},
		},
	})
	return errors.Wrap(err, "Failed to setup storage")
}

// Watermark returns a max event time of a feed
func (s *Store) Watermark(ctx context.Context, filter checkpoint.Filter, earliest time.Time) (time.Time, bool, error) {
	query := bson.D{
		{Key: "idx", Value: filter.Index},
		{Key: "sourcetype", Value: filter.SourceType},
		{Key: "source", Value: filter.Source},
		{Key: "event_time", Value: bson.D{{Key: "$gte", Value: earliest.Unix()}}},
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "event_time", Value: -1}}).
		SetProjection(bson.D{{Key: "event_time", Value: 1}})

	var doc eventDoc
	err := s.coll.FindOne(ctx, query, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, checkpoint.NewWatermarkQueryError(filter, err)
	}
	watermark, ok := checkpoint.WatermarkFromUnix(float64(doc.EventTime))
	return watermark, ok, nil
}

// WriteEvent converts the event and buffers it until Flush
func (s *Store) WriteEvent(ctx context.Context, event *destination.Event) error {
	var data bson.D
	if err := bson.UnmarshalExtJSON(event.Data, false, &data); err != nil {
		return errors.Wrap(err, "Failed to convert event data")
	}
	s.pending = append(s.pending, bson.D{
		{Key: "idx", Value: event.Index},
		{Key: "sourcetype", Value: event.SourceType},
		{Key: "source", Value: event.Source},
		{Key: "event_time", Value: event.Time.Unix()},
		{Key: "data", Value: data},
		{Key: "created_at", Value: s.now()},
	})
	return nil
}

// Flush inserts buffered events
func (s *Store) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	defer s.Discard()
	batchID := uuid.NewV4().String()
	docs := make([]interface{}, len(s.pending))
	for i, doc := range s.pending {
		docs[i] = append(doc, bson.E{Key: "batch", Value: batchID})
	}
	_, err := s.coll.InsertMany(ctx, docs)
	if err == nil {
		logger.Debug(ctx, "Inserted %v events, batch: %v", len(docs), batchID)
		return nil
	}
	err = errors.Wrap(err, "Failed to insert events")
	if _, delErr := s.coll.DeleteMany(ctx, bson.D{{Key: "batch", Value: batchID}}); delErr != nil {
		logger.WithError(delErr).Error(ctx, "Failed to remove partially inserted batch %v", batchID)
		return errors.Wrapf(err, "batch %v may be partially inserted", batchID)
	}
	return err
}

// Discard drops buffered events
func (s *Store) Discard() {
	s.pending = nil
}

// Close disconnects the client of the collection
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.coll.Database().Client().Disconnect(ctx)
}

var (
	_ destination.Store   = (*Store)(nil)
	_ destination.Flusher = (*Store)(nil)
)
