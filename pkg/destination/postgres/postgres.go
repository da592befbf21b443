package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var logger = diag.CreateLogger()

// Pool wraps pgxpool.Pool
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new connection pool and verifies the connection
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse postgres dsn")
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to connect to postgres")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "Failed to ping postgres")
	}

	return &Pool{Pool: pool}, nil
}

type pendingEvent struct {
	event     destination.Event
	createdAt time.Time
}

// Store keeps events in postgres. Events of a window are buffered
// and inserted with a single transaction on Flush
type Store struct {
	pool    *Pool
	now     func() time.Time
	pending []pendingEvent
}

// NewStore creates a store on top of a given pool
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Setup creates the events table
func (s *Store) Setup(ctx context.Context) error {
	logger.Info(ctx, "Setup postgres storage")
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS events(
	id         BIGSERIAL PRIMARY KEY,
	idx        TEXT NOT NULL,
	sourcetype TEXT NOT NULL,
	source     TEXT NOT NULL,
	event_time BIGINT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS events_feed_time ON events(idx, sourcetype, source, event_time);
`)
	return errors.Wrap(err, "Failed to setup storage")
}

// Watermark returns a max event time of a feed
func (s *Store) Watermark(ctx context.Context, filter checkpoint.Filter, earliest time.Time) (time.Time, bool, error) {
	var ts int64
	if err := s.pool.QueryRow(ctx, `
	SELECT COALESCE(MAX(event_time), 0)
	FROM events
	WHERE idx = $1 AND sourcetype = $2 AND source = $3 AND event_time >= $4
	`, filter.Index, filter.SourceType, filter.Source, earliest.Unix()).Scan(&ts); err != nil {
		return time.Time{}, false, checkpoint.NewWatermarkQueryError(filter, err)
	}
	watermark, ok := checkpoint.WatermarkFromUnix(float64(ts))
	return watermark, ok, nil
}

// WriteEvent buffers the event until Flush
func (s *Store) WriteEvent(ctx context.Context, event *destination.Event) error {
	s.pending = append(s.pending, pendingEvent{event: *event, createdAt: s.now()})
	return nil
}

// Flush inserts all buffered events within a transaction
func (s *Store) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	defer s.Discard()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "Failed to begin transaction")
	}
	defer tx.Rollback(ctx) // nolint:errcheck
	for _, p := range s.pending {
		if _, err := tx.Exec(ctx, `
		INSERT INTO events(idx, sourcetype, source, event_time, data, created_at)
		VALUES($1, $2, $3, $4, $5, $6)
		`, p.event.Index, p.event.SourceType, p.event.Source, p.event.Time.Unix(), string(p.event.Data), p.createdAt); err != nil {
			return errors.Wrap(err, "Failed to insert event")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "Failed to commit events")
	}
	logger.Debug(ctx, "Inserted %v events", len(s.pending))
	return nil
}

// Discard drops buffered events
func (s *Store) Discard() {
	s.pending = nil
}

// Close closes the pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

var (
	_ destination.Store   = (*Store)(nil)
	_ destination.Flusher = (*Store)(nil)
)
