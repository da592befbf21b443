package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evgeny-myasishchev/statements-connector/config"
	"github.com/evgeny-myasishchev/statements-connector/pkg/banks"
	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination/splunk"
	coreCfg "github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/config"
	"github.com/evgeny-myasishchev/statements-connector/pkg/ingest"
	"github.com/evgeny-myasishchev/statements-connector/pkg/sink"
)

func newTestAppConfig(t *testing.T) *config.AppConfig {
	dir := t.TempDir()
	return &config.AppConfig{
		Log: config.Log{
			Level: coreCfg.NewStringVal("debug"),
			Mode:  coreCfg.NewStringVal("test"),
			File:  coreCfg.NewStringVal(""),
		},
		Monobank: config.Monobank{API: coreCfg.NewStringVal("")},
		HTTP:     config.HTTP{TimeoutSeconds: coreCfg.NewIntVal(10)},
		Feeds:    config.Feeds{Dir: coreCfg.NewStringVal(filepath.Join(dir, "feeds"))},
		Window: config.Window{
			BankTimezone:           coreCfg.NewStringVal("Europe/Kiev"),
			InitDateInBankTimezone: coreCfg.NewBoolVal(false),
		},
		Sink: config.Sink{Kind: coreCfg.NewStringVal(sink.KindStdout)},
		Destination: config.Destination{
			Kind: coreCfg.NewStringVal(DestinationSQLite),
			Splunk: config.Splunk{
				MgmtURL:    coreCfg.NewStringVal(""),
				SessionKey: coreCfg.NewStringVal(""),
				Host:       coreCfg.NewStringVal(""),
				Port:       coreCfg.NewIntVal(0),
				Username:   coreCfg.NewStringVal(""),
				Password:   coreCfg.NewStringVal(""),
				Insecure:   coreCfg.NewBoolVal(false),
				HECURL:     coreCfg.NewStringVal("https://splunk.local:8088"),
				HECToken:   coreCfg.NewStringVal("hec-token"),
			},
			SQLite: config.SQLite{DSN: coreCfg.NewStringVal(filepath.Join(dir, "events.db"))},
		},
		Checkpoint: config.Checkpoint{
			Kind:      coreCfg.NewStringVal(CheckpointDestination),
			Dir:       coreCfg.NewStringVal(filepath.Join(dir, "checkpoints")),
			GCSBucket: coreCfg.NewStringVal(""),
			GCSPrefix: coreCfg.NewStringVal(""),
		},
	}
}

func TestBootstrapServices(t *testing.T) {
	type testCase struct {
		name string
		cfg  func(appCfg *config.AppConfig)
		run  func(t *testing.T, injector Injector)
	}
	tests := []func() testCase{
		func() testCase {
			return testCase{
				name: "sqlite destination as watermark provider",
				run: func(t *testing.T, injector Injector) {
					err := injector(func(provider checkpoint.WatermarkProvider, store destination.Store) error {
						assert.Same(t, store, provider)
						return store.Setup(context.Background())
					})
					assert.NoError(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "file checkpoint",
				cfg: func(appCfg *config.AppConfig) {
					appCfg.Checkpoint.Kind = coreCfg.NewStringVal(CheckpointFile)
				},
				run: func(t *testing.T, injector Injector) {
					err := injector(func(provider checkpoint.WatermarkProvider) {
						assert.IsType(t, &checkpoint.FileStore{}, provider)
					})
					assert.NoError(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "unexpected checkpoint kind",
				cfg: func(appCfg *config.AppConfig) {
					appCfg.Checkpoint.Kind = coreCfg.NewStringVal("s3")
				},
				run: func(t *testing.T, injector Injector) {
					err := injector(func(provider checkpoint.WatermarkProvider) {})
					assert.Error(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "modinput sink",
				cfg: func(appCfg *config.AppConfig) {
					appCfg.Sink.Kind = coreCfg.NewStringVal(sink.KindModInput)
				},
				run: func(t *testing.T, injector Injector) {
					err := injector(func(eventsSink destination.Sink, closer *Closer) {
						assert.IsType(t, &sink.ModInputSink{}, eventsSink)
						assert.Len(t, closer.closers, 1)
					})
					assert.NoError(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "hec sink",
				cfg: func(appCfg *config.AppConfig) {
					appCfg.Sink.Kind = coreCfg.NewStringVal(sink.KindHEC)
				},
				run: func(t *testing.T, injector Injector) {
					err := injector(func(eventsSink destination.Sink) {
						assert.IsType(t, &splunk.HECSink{}, eventsSink)
					})
					assert.NoError(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "store sink shares the store",
				cfg: func(appCfg *config.AppConfig) {
					appCfg.Sink.Kind = coreCfg.NewStringVal(sink.KindStore)
				},
				run: func(t *testing.T, injector Injector) {
					err := injector(func(eventsSink destination.Sink, store destination.Store, closer *Closer) {
						assert.Same(t, store, eventsSink)
						assert.Len(t, closer.closers, 1)
					})
					assert.NoError(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "unexpected destination kind",
				cfg: func(appCfg *config.AppConfig) {
					appCfg.Destination.Kind = coreCfg.NewStringVal("elastic")
				},
				run: func(t *testing.T, injector Injector) {
					err := injector(func(store destination.Store) {})
					assert.Error(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "unknown bank timezone",
				cfg: func(appCfg *config.AppConfig) {
					appCfg.Window.BankTimezone = coreCfg.NewStringVal("Mars/Olympus")
				},
				run: func(t *testing.T, injector Injector) {
					err := injector(func(resolver *checkpoint.Resolver) {})
					assert.Error(t, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "cycle with all deps",
				run: func(t *testing.T, injector Injector) {
					err := injector(func(cycle *ingest.Cycle, fetcher banks.Fetcher, metrics *ingest.Metrics) {
						assert.NotNil(t, cycle)
						assert.NotNil(t, fetcher)
						assert.NotNil(t, metrics.Handler())
					})
					assert.NoError(t, err)
				},
			}
		},
	}
	for _, ttFn := range tests {
		tt := ttFn()
		t.Run(tt.name, func(t *testing.T) {
			appCfg := newTestAppConfig(t)
			if tt.cfg != nil {
				tt.cfg(appCfg)
			}
			injector := BootstrapServices(context.Background(), appCfg)
			tt.run(t, injector)
			require.NoError(t, injector(func(closer *Closer) {
				closer.Close(context.Background())
			}))
		})
	}
}
