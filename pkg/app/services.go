package app

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	"github.com/evgeny-myasishchev/statements-connector/config"
	"github.com/evgeny-myasishchev/statements-connector/pkg/banks"
	"github.com/evgeny-myasishchev/statements-connector/pkg/banks/monoua"
	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination/bigquery"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination/clickhouse"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination/mongo"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination/postgres"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination/splunk"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination/sqlstore"
	"github.com/evgeny-myasishchev/statements-connector/pkg/feeds"
	"github.com/evgeny-myasishchev/statements-connector/pkg/ingest"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/request"
	"github.com/evgeny-myasishchev/statements-connector/pkg/sink"
)

var logger = diag.CreateLogger()

// Destination kinds
const (
	DestinationSplunk     = "splunk"
	DestinationSQLite     = "sqlite"
	DestinationPostgres   = "postgres"
	DestinationClickHouse = "clickhouse"
	DestinationMongo      = "mongo"
	DestinationBigQuery   = "bigquery"
)

// Checkpoint kinds
const (
	CheckpointDestination = "destination"
	CheckpointFile        = "file"
	CheckpointGCS         = "gcs"
)

// Injector is a function that will inject desired services
// to a target function
type Injector func(function interface{}) error

// Closer collects resources opened by services. Closed in reverse order
type Closer struct {
	mu      sync.Mutex
	closers []func() error
}

func (c *Closer) add(closeFn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, closeFn)
}

// Close closes all collected resources
func (c *Closer) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.WithError(err).Warn(ctx, "Failed to close resource")
		}
	}
	c.closers = nil
}

// StoreOpener opens the configured destination store once.
// The store is not opened unless something actually needs it
type StoreOpener func() (destination.Store, error)

func httpTimeout(appCfg *config.AppConfig) time.Duration {
	return time.Duration(appCfg.HTTP.TimeoutSeconds.Value()) * time.Second
}

func openStore(ctx context.Context, appCfg *config.AppConfig) (destination.Store, error) {
	dest := appCfg.Destination
	kind := dest.Kind.Value()
	logger.Info(ctx, "Opening %v destination", kind)
	switch kind {
	case DestinationSplunk:
		client, err := splunk.Connect(ctx, splunk.ConnectParams{
			MgmtURL:    dest.Splunk.MgmtURL.Value(),
			Host:       dest.Splunk.Host.Value(),
			Port:       dest.Splunk.Port.Value(),
			SessionKey: dest.Splunk.SessionKey.Value(),
			Username:   dest.Splunk.Username.Value(),
			Password:   dest.Splunk.Password.Value(),
			Insecure:   dest.Splunk.Insecure.Value(),
			Timeout:    httpTimeout(appCfg),
		})
		if err != nil {
			return nil, err
		}
		return splunk.NewStore(client, newHECSink(appCfg)), nil
	case DestinationSQLite:
		return sqlstore.NewSQLStorage(dest.SQLite.DSN.Value())
	case DestinationPostgres:
		pool, err := postgres.NewPool(ctx, dest.Postgres.DSN.Value())
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	case DestinationClickHouse:
		conn, err := clickhouse.NewConn(ctx, dest.ClickHouse.DSN.Value())
		if err != nil {
			return nil, err
		}
		return clickhouse.NewStore(conn), nil
	case DestinationMongo:
		client, err := mongo.Connect(ctx, dest.Mongo.URI.Value())
		if err != nil {
			return nil, err
		}
		return mongo.NewStore(client.Database(dest.Mongo.Database.Value()).Collection(mongo.CollectionName)), nil
	case DestinationBigQuery:
		return bigquery.NewStore(ctx, dest.BigQuery.Project.Value(), dest.BigQuery.Dataset.Value())
	default:
		return nil, errors.Errorf("Unexpected destination kind: %q", kind)
	}
}

func newHECSink(appCfg *config.AppConfig) *splunk.HECSink {
	return splunk.NewHECSink(
		appCfg.Destination.Splunk.HECURL.Value(),
		appCfg.Destination.Splunk.HECToken.Value(),
		splunk.WithHECSendOpts(
			request.WithTimeout(httpTimeout(appCfg)),
			request.WithInsecureTLS(appCfg.Destination.Splunk.Insecure.Value()),
		),
	)
}

// BootstrapServices setup di container with all app services
func BootstrapServices(ctx context.Context, appCfg *config.AppConfig) Injector {
	c := dig.New()

	c.Provide(func() *config.AppConfig {
		return appCfg
	})

	c.Provide(func() *Closer {
		return &Closer{}
	})

	c.Provide(func(closer *Closer) StoreOpener {
		var once sync.Once
		var store destination.Store
		var err error
		return func() (destination.Store, error) {
			once.Do(func() {
				store, err = openStore(ctx, appCfg)
				if err == nil {
					closer.add(store.Close)
				}
			})
			return store, err
		}
	})

	c.Provide(func(open StoreOpener) (destination.Store, error) {
		return open()
	})

	c.Provide(func(open StoreOpener, closer *Closer) (checkpoint.WatermarkProvider, error) {
		kind := appCfg.Checkpoint.Kind.Value()
		switch kind {
		case CheckpointDestination, "":
			return open()
		case CheckpointFile:
			return checkpoint.NewFileStore(appCfg.Checkpoint.Dir.Value()), nil
		case CheckpointGCS:
			store, err := checkpoint.NewGCSStore(ctx, appCfg.Checkpoint.GCSBucket.Value(), appCfg.Checkpoint.GCSPrefix.Value())
			if err != nil {
				return nil, errors.Wrap(err, "Failed to create GCS checkpoint store")
			}
			closer.add(store.Close)
			return store, nil
		default:
			return nil, errors.Errorf("Unexpected checkpoint kind: %q", kind)
		}
	})

	c.Provide(func(open StoreOpener, closer *Closer) (destination.Sink, error) {
		kind := appCfg.Sink.Kind.Value()
		switch kind {
		case sink.KindStdout, "":
			return sink.NewStdoutSink(os.Stdout), nil
		case sink.KindModInput:
			modInput := sink.NewModInputSink(os.Stdout)
			closer.add(modInput.Close)
			return modInput, nil
		case sink.KindHEC:
			return newHECSink(appCfg), nil
		case sink.KindStore:
			return open()
		default:
			return nil, errors.Errorf("Unexpected sink kind: %q", kind)
		}
	})

	c.Provide(func() (*checkpoint.Resolver, error) {
		opts := []checkpoint.ResolverOpt{
			checkpoint.WithInitDateInBankTimezone(appCfg.Window.InitDateInBankTimezone.Value()),
		}
		if tz := appCfg.Window.BankTimezone.Value(); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to load bank timezone %q", tz)
			}
			opts = append(opts, checkpoint.WithBankTimezone(loc))
		}
		return checkpoint.NewResolver(opts...)
	})

	c.Provide(func() banks.Fetcher {
		opts := []monoua.FetcherOpt{monoua.WithTimeout(httpTimeout(appCfg))}
		if api := appCfg.Monobank.API.Value(); api != "" {
			opts = append(opts, monoua.WithAPIBaseURL(api))
		}
		return monoua.NewFetcher(opts...)
	})

	c.Provide(func() *ingest.Metrics {
		return ingest.NewMetrics("")
	})

	c.Provide(func(
		provider checkpoint.WatermarkProvider,
		resolver *checkpoint.Resolver,
		fetcher banks.Fetcher,
		eventsSink destination.Sink,
		metrics *ingest.Metrics,
	) (*ingest.Cycle, error) {
		return ingest.NewCycle(
			ingest.WithWatermarkProvider(provider),
			ingest.WithResolver(resolver),
			ingest.WithFetcher(fetcher),
			ingest.WithSink(eventsSink),
			ingest.WithMetrics(metrics),
		)
	})

	c.Provide(func() feeds.Store {
		return feeds.NewFSStore(appCfg.Feeds.Dir.Value())
	})

	return func(function interface{}) error {
		return c.Invoke(function)
	}
}
