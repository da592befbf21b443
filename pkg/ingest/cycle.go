package ingest

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/banks"
	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	"github.com/evgeny-myasishchev/statements-connector/pkg/feeds"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var logger = diag.CreateLogger()

// Cycle runs a single ingestion pass of feeds
type Cycle struct {
	provider checkpoint.WatermarkProvider
	resolver *checkpoint.Resolver
	fetcher  banks.Fetcher
	sink     destination.Sink
	metrics  *Metrics
}

// FeedResult is an outcome of a single feed
type FeedResult struct {
	Feed    string
	Window  checkpoint.Window
	Emitted int
	Err     error
}

// Summary is an outcome of all feeds of a cycle
type Summary struct {
	RunID   string
	Results []FeedResult
}

// Emitted returns total number of emitted events
func (s Summary) Emitted() int {
	total := 0
	for _, r := range s.Results {
		total += r.Emitted
	}
	return total
}

// Failed returns results of failed feeds
func (s Summary) Failed() []FeedResult {
	var failed []FeedResult
	for _, r := range s.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err returns an error if any feed failed
func (s Summary) Err() error {
	failed := s.Failed()
	if len(failed) == 0 {
		return nil
	}
	return errors.Errorf("%v of %v feeds failed, first: %v: %v", len(failed), len(s.Results), failed[0].Feed, failed[0].Err)
}

func (c *Cycle) feedLogger(ctx context.Context, feed feeds.Feed) diag.Logger {
	log := logger.WithInput(feed.Name)
	if feed.LogLevel == "" {
		return log
	}
	leveled, err := log.WithLevel(feed.LogLevel)
	if err != nil {
		log.WithError(err).Warn(ctx, "Unexpected log level, using default")
		return log
	}
	return leveled
}

// Window returns a window of a feed that the next Run will ingest
func (c *Cycle) Window(ctx context.Context, feed feeds.Feed) (checkpoint.Window, error) {
	window, _, _, err := c.window(ctx, feed)
	return window, err
}

func (c *Cycle) window(ctx context.Context, feed feeds.Feed) (checkpoint.Window, time.Time, bool, error) {
	watermark, hasWatermark, err := c.provider.Watermark(ctx, feed.Filter(), feed.InitDate)
	if err != nil {
		return checkpoint.Window{}, time.Time{}, false, err
	}
	return c.resolver.Resolve(watermark, hasWatermark, feed.InitDate), watermark, hasWatermark, nil
}

// Run ingests events of a single feed and returns number of emitted events
func (c *Cycle) Run(ctx context.Context, feed feeds.Feed) (int, error) {
	_, emitted, err := c.run(ctx, feed)
	return emitted, err
}

func (c *Cycle) run(ctx context.Context, feed feeds.Feed) (checkpoint.Window, int, error) {
	log := c.feedLogger(ctx, feed)
	window, watermark, hasWatermark, err := c.window(ctx, feed)
	if err != nil {
		c.metrics.Cycles.WithLabelValues(feed.Name, OutcomeFailed).Inc()
		return window, 0, err
	}
	if hasWatermark {
		c.metrics.Watermark.WithLabelValues(feed.Name).Set(float64(watermark.Unix()))
	}

	if window.Empty() {
		log.Info(ctx, "Not grabbing events, window %v - %v is empty", window.From, window.To)
		c.metrics.Cycles.WithLabelValues(feed.Name, OutcomeSkipped).Inc()
		return window, 0, nil
	}

	log.Debug(ctx, "Grabbing events %v - %v", window.From, window.To)
	started := time.Now()
	records, err := c.fetcher.Fetch(ctx, &banks.FetchParams{
		AccountID: feed.AccountID,
		Token:     feed.Token,
		From:      window.From,
		To:        window.To,
		Logger:    log,
	})
	c.metrics.FetchDuration.WithLabelValues(feed.Name).Observe(time.Since(started).Seconds())
	if err != nil {
		c.metrics.Cycles.WithLabelValues(feed.Name, OutcomeFailed).Inc()
		return window, 0, err
	}

	emitted, err := c.emit(ctx, feed, window, records)
	c.metrics.EventsEmitted.WithLabelValues(feed.Name).Add(float64(emitted))
	if err != nil {
		c.metrics.Cycles.WithLabelValues(feed.Name, OutcomeFailed).Inc()
		return window, emitted, err
	}

	if committer, ok := c.provider.(checkpoint.Committer); ok {
		if err := committer.Commit(ctx, feed.Filter(), window.To); err != nil {
			c.metrics.Cycles.WithLabelValues(feed.Name, OutcomeFailed).Inc()
			return window, emitted, errors.Wrap(err, "Failed to commit checkpoint")
		}
	}

	log.Info(ctx, "Total events ingested: %v", emitted)
	c.metrics.Cycles.WithLabelValues(feed.Name, OutcomeOK).Inc()
	return window, emitted, nil
}

// emit writes records of a window to the sink and returns number of delivered events.
// Buffered events of a failed window are discarded so they never reach another feed
func (c *Cycle) emit(ctx context.Context, feed feeds.Feed, window checkpoint.Window, records *banks.Records) (int, error) {
	written := 0
	fail := func(err error) (int, error) {
		destination.Discard(c.sink)
		if destination.IsBuffered(c.sink) {
			return 0, err
		}
		return written, err
	}
	for records.Next() {
		record := records.Record()
		eventTime, ok := record.Time()
		if !ok {
			eventTime = window.To
		}
		if err := c.sink.WriteEvent(ctx, &destination.Event{
			Data:       record.JSON(),
			Time:       eventTime,
			Index:      feed.Index,
			SourceType: feed.SourceType,
			Source:     feed.Name,
		}); err != nil {
			return fail(errors.Wrapf(err, "Failed to write event %v", written))
		}
		written++
	}
	if err := destination.Flush(ctx, c.sink); err != nil {
		return fail(errors.Wrap(err, "Failed to flush events"))
	}
	return written, nil
}

// RunAll runs all feeds one by one. Failure of a feed does not stop others
func (c *Cycle) RunAll(ctx context.Context, all []feeds.Feed) Summary {
	ctx = diag.ContextWithNewRequestID(ctx)
	summary := Summary{
		RunID:   diag.RequestIDValue(ctx),
		Results: make([]FeedResult, 0, len(all)),
	}
	logger.Info(ctx, "Starting cycle of %v feeds", len(all))
	for _, feed := range all {
		window, emitted, err := c.run(ctx, feed)
		if err != nil {
			logger.
				WithError(err).
				WithData(diag.MsgData{
					"feed": feed.Name,
					"from": window.From,
					"to":   window.To,
				}).
				Error(ctx, "Failed to ingest feed %v", feed.Name)
		}
		summary.Results = append(summary.Results, FeedResult{
			Feed:    feed.Name,
			Window:  window,
			Emitted: emitted,
			Err:     err,
		})
	}
	logger.Info(ctx, "Cycle completed. Emitted: %v, failed feeds: %v", summary.Emitted(), len(summary.Failed()))
	return summary
}

// CycleOpt is an option of a cycle
type CycleOpt func(c *Cycle)

// WithWatermarkProvider sets where watermarks are taken from
func WithWatermarkProvider(provider checkpoint.WatermarkProvider) CycleOpt {
	return func(c *Cycle) {
		c.provider = provider
	}
}

// WithResolver sets window resolver
func WithResolver(resolver *checkpoint.Resolver) CycleOpt {
	return func(c *Cycle) {
		c.resolver = resolver
	}
}

// WithFetcher sets statements fetcher
func WithFetcher(fetcher banks.Fetcher) CycleOpt {
	return func(c *Cycle) {
		c.fetcher = fetcher
	}
}

// WithSink sets where events are written to
func WithSink(sink destination.Sink) CycleOpt {
	return func(c *Cycle) {
		c.sink = sink
	}
}

// WithMetrics sets metrics to record to
func WithMetrics(metrics *Metrics) CycleOpt {
	return func(c *Cycle) {
		c.metrics = metrics
	}
}

// NewCycle creates a new cycle. Provider, resolver, fetcher and sink are required
func NewCycle(opts ...CycleOpt) (*Cycle, error) {
	c := &Cycle{}
	for _, opt := range opts {
		opt(c)
	}
	if c.provider == nil || c.resolver == nil || c.fetcher == nil || c.sink == nil {
		return nil, errors.New("Watermark provider, resolver, fetcher and sink must be provided")
	}
	if c.metrics == nil {
		c.metrics = NewMetrics("")
	}
	return c, nil
}
