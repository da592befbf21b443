package bigquery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var logger = diag.CreateLogger()

// TableName is where events are stored
const TableName = "events"

type eventRow struct {
	Index      string    `bigquery:"idx"`
	SourceType string    `bigquery:"sourcetype"`
	Source     string    `bigquery:"source"`
	EventTime  int64     `bigquery:"event_time"`
	Data       string    `bigquery:"data"`
	CreatedAt  time.Time `bigquery:"created_at"`
}

type watermarkRow struct {
	Watermark int64 `bigquery:"watermark"`
}

// Store keeps events in a BigQuery table. Rows are buffered
// and streamed with a single insert on Flush
type Store struct {
	client  *bigquery.Client
	dataset string
	now     func() time.Time
	pending []*eventRow
}

// NewStore creates a client for a given project
func NewStore(ctx context.Context, project, dataset string, opts ...option.ClientOption) (*Store, error) {
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create bigquery client")
	}
	return &Store{client: client, dataset: dataset, now: time.Now}, nil
}

func (s *Store) table() *bigquery.Table {
	return s.client.Dataset(s.dataset).Table(TableName)
}

func eventSchema() (bigquery.Schema, error) {
	return bigquery.InferSchema(eventRow{})
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}

// Setup creates the dataset and the events table
func (s *Store) Setup(ctx context.Context) error {
	logger.Info(ctx, "Setup bigquery storage")
	if err := s.client.Dataset(s.dataset).Create(ctx, &bigquery.DatasetMetadata{}); err != nil && !isAlreadyExists(err) {
		return errors.Wrap(err, "Failed to create dataset")
	}
	schema, err := eventSchema()
	if err != nil {
		return errors.Wrap(err, "Failed to infer schema")
	}
	if err := s.table().Create(ctx, &bigquery.TableMetadata{
		Schema:     schema,
		Clustering: &bigquery.Clustering{Fields: []string{"idx", "sourcetype", "source"}},
	}); err != nil && !isAlreadyExists(err) {
		return errors.Wrap(err, "Failed to create table")
	}
	return nil
}

// Watermark returns a max event time of a feed
func (s *Store) Watermark(ctx context.Context, filter checkpoint.Filter, earliest time.Time) (time.Time, bool, error) {
	tableRef := "`" + s.dataset + "." + TableName + "`"
	q := s.client.Query(fmt.Sprintf(`
		SELECT COALESCE(MAX(event_time), 0) AS watermark
		FROM %s
		WHERE idx = @idx
		  AND sourcetype = @sourcetype
		  AND source = @source
		  AND event_time >= @earliest
	`, tableRef))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "idx", Value: filter.Index},
		{Name: "sourcetype", Value: filter.SourceType},
		{Name: "source", Value: filter.Source},
		{Name: "earliest", Value: earliest.Unix()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return time.Time{}, false, checkpoint.NewWatermarkQueryError(filter, err)
	}
	var row watermarkRow
	err = it.Next(&row)
	if err == iterator.Done {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, checkpoint.NewWatermarkQueryError(filter, err)
	}
	watermark, ok := checkpoint.WatermarkFromUnix(float64(row.Watermark))
	return watermark, ok, nil
}

// WriteEvent buffers the event until Flush
func (s *Store) WriteEvent(ctx context.Context, event *destination.Event) error {
	s.pending = append(s.pending, &eventRow{
		Index:      event.Index,
		SourceType: event.SourceType,
		Source:     event.Source,
		EventTime:  event.Time.Unix(),
		Data:       string(event.Data),
		CreatedAt:  s.now(),
	})
	return nil
}

// Flush streams buffered rows into the table with a single insertAll request.
// Invalid rows are not skipped so the request is accepted or rejected as a whole
func (s *Store) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	defer s.Discard()
	if err := s.table().Inserter().Put(ctx, s.pending); err != nil {
		return errors.Wrap(err, "Failed to insert rows")
	}
	logger.Debug(ctx, "Inserted %v rows", len(s.pending))
	return nil
}

// Discard drops buffered rows
func (s *Store) Discard() {
	s.pending = nil
}

// Close closes the client
func (s *Store) Close() error {
	return s.client.Close()
}

var (
	_ destination.Store   = (*Store)(nil)
	_ destination.Flusher = (*Store)(nil)
)
