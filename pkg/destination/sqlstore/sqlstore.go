package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	// This has to be here to let go mods work work
	_ "github.com/mattn/go-sqlite3"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var logger = diag.CreateLogger()

type pendingEvent struct {
	event     destination.Event
	createdAt time.Time
}

// sqlStorage buffers events of a window and inserts them with a single transaction on Flush
type sqlStorage struct {
	db      *sql.DB
	now     func() time.Time
	pending []pendingEvent
}

func (s *sqlStorage) Setup(ctx context.Context) error {
	logger.Info(ctx, "Setup SQL storage")
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS events(
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	idx        nvarchar(255) NOT NULL,
	sourcetype nvarchar(255) NOT NULL,
	source     nvarchar(255) NOT NULL,
	event_time BIGINT NOT NULL,
	data       NTEXT NOT NULL,
	created_at timestamp NOT NULL
);
CREATE INDEX IF NOT EXISTS events_feed_time ON events(idx, sourcetype, source, event_time);
`)
	return errors.Wrap(err, "Failed to setup storage")
}

func (s *sqlStorage) Watermark(ctx context.Context, filter checkpoint.Filter, earliest time.Time) (time.Time, bool, error) {
	var ts int64
	if err := s.db.QueryRowContext(ctx, `
	SELECT COALESCE(MAX(event_time), 0)
	FROM events
	WHERE idx = $1 AND sourcetype = $2 AND source = $3 AND event_time >= $4
	`, filter.Index, filter.SourceType, filter.Source, earliest.Unix()).Scan(&ts); err != nil {
		return time.Time{}, false, checkpoint.NewWatermarkQueryError(filter, err)
	}
	watermark, ok := checkpoint.WatermarkFromUnix(float64(ts))
	return watermark, ok, nil
}

func (s *sqlStorage) WriteEvent(ctx context.Context, event *destination.Event) error {
	s.pending = append(s.pending, pendingEvent{event: *event, createdAt: s.now()})
	return nil
}

func (s *sqlStorage) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	defer s.Discard()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "Failed to begin transaction")
	}
	defer tx.Rollback() // nolint:errcheck
	for _, p := range s.pending {
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO events(
			idx,
			sourcetype,
			source,
			event_time,
			data,
			created_at
		)
		VALUES($1, $2, $3, $4, $5, $6)
		`, p.event.Index, p.event.SourceType, p.event.Source, p.event.Time.Unix(), string(p.event.Data), p.createdAt); err != nil {
			return errors.Wrap(err, "Failed to insert event")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "Failed to commit events")
	}
	logger.Debug(ctx, "Inserted %v events", len(s.pending))
	return nil
}

func (s *sqlStorage) Discard() {
	s.pending = nil
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}

// SQLStorageOpt is an option of SQL storage
type SQLStorageOpt func(s *sqlStorage)

// WithSQLDb will set an explicit db instance for a storage
func WithSQLDb(db *sql.DB) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.db = db
	}
}

// WithNow sets a clock used to stamp created_at
func WithNow(now func() time.Time) SQLStorageOpt {
	return func(s *sqlStorage) {
		s.now = now
	}
}

// NewSQLStorage returns an instance of a SQL storage.
// Opens a sqlite db with a given dsn unless WithSQLDb is used
func NewSQLStorage(dsn string, opts ...SQLStorageOpt) (destination.Store, error) {
	storage := &sqlStorage{now: time.Now}
	for _, opt := range opts {
		opt(storage)
	}
	if storage.db == nil {
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to open sqlite db")
		}
		storage.db = db
	}
	return storage, nil
}
