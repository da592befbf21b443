package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var logger = diag.CreateLogger()

// Filter identifies events of a single feed in a destination
type Filter struct {
	Index      string
	SourceType string
	Source     string
}

// NormalizeIndex maps the "default" index to "main"
func NormalizeIndex(index string) string {
	if index == "" || index == "default" {
		return "main"
	}
	return index
}

// WatermarkProvider returns a latest ingested timestamp of a feed.
// The bool result is false if nothing was ingested yet
type WatermarkProvider interface {
	Watermark(ctx context.Context, filter Filter, earliest time.Time) (time.Time, bool, error)
}

// Committer is implemented by providers that have to be told explicitly
// what was ingested (checkpoint files). Destination stores derive it from data
type Committer interface {
	Commit(ctx context.Context, filter Filter, watermark time.Time) error
}

// WatermarkFromUnix converts a unix timestamp (possibly fractional) into a watermark.
// Non positive values mean no watermark
func WatermarkFromUnix(ts float64) (time.Time, bool) {
	if ts <= 0 {
		return time.Time{}, false
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC(), true
}

// WatermarkQueryError is returned when the destination can not be queried
type WatermarkQueryError struct {
	Filter Filter
	cause  error
}

// NewWatermarkQueryError wraps a cause of a failed watermark query
func NewWatermarkQueryError(filter Filter, cause error) *WatermarkQueryError {
	return &WatermarkQueryError{Filter: filter, cause: cause}
}

func (e *WatermarkQueryError) Error() string {
	return fmt.Sprintf(
		"Failed to query watermark (index=%v, sourcetype=%v, source=%v): %v",
		e.Filter.Index, e.Filter.SourceType, e.Filter.Source, e.cause,
	)
}

// Cause returns underlying error
func (e *WatermarkQueryError) Cause() error {
	return e.cause
}

func (e *WatermarkQueryError) Unwrap() error {
	return e.cause
}
