package checkpoint

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var errBlobNotFound = errors.New("Checkpoint not found")

// blobBucket stores a single small value per name
type blobBucket interface {
	read(ctx context.Context, name string) ([]byte, error)
	write(ctx context.Context, name string, data []byte) error
}

// checkpointName is a file (or object) name of a feed checkpoint.
// Distinct sources always get distinct names
func checkpointName(filter Filter) string {
	return url.QueryEscape(filter.Source) + ".checkpoint"
}

// blobStore keeps unix seconds of a last ingested window per feed
type blobStore struct {
	bucket blobBucket
}

func (s *blobStore) current(ctx context.Context, filter Filter) (int64, bool, error) {
	data, err := s.bucket.read(ctx, checkpointName(filter))
	if err == errBlobNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	value := strings.TrimSpace(string(data))
	ts, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "Unexpected checkpoint value: %v", value)
	}
	return ts, true, nil
}

func (s *blobStore) Watermark(ctx context.Context, filter Filter, earliest time.Time) (time.Time, bool, error) {
	ts, ok, err := s.current(ctx, filter)
	if err != nil {
		return time.Time{}, false, NewWatermarkQueryError(filter, err)
	}
	if !ok || ts < earliest.Unix() {
		return time.Time{}, false, nil
	}
	watermark, ok := WatermarkFromUnix(float64(ts))
	return watermark, ok, nil
}

func (s *blobStore) Commit(ctx context.Context, filter Filter, watermark time.Time) error {
	ts, ok, err := s.current(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "Failed to read current checkpoint")
	}
	next := watermark.Unix()
	if ok && next <= ts {
		logger.
			WithData(diag.MsgData{"current": ts, "next": next}).
			Debug(ctx, "Checkpoint is not moved backwards")
		return nil
	}
	if err := s.bucket.write(ctx, checkpointName(filter), []byte(strconv.FormatInt(next, 10))); err != nil {
		return errors.Wrap(err, "Failed to write checkpoint")
	}
	logger.Debug(ctx, "Checkpoint of %v committed: %v", filter.Source, watermark)
	return nil
}
