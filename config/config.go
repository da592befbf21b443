package config

import (
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/config"
	"github.com/evgeny-myasishchev/statements-connector/pkg/version"
)

var appEnv = config.NewAppEnv(version.AppName)
var configBuilder = config.NewBuilder(appEnv)

var localParams = configBuilder.NewParamsBuilder(configBuilder.WithLocalSource())

// Secrets. Resolved from AWS SSM outside of dev and test
var remoteParams = configBuilder.NewParamsBuilder(configBuilder.WithRemoteSource())

// Do not change vars below at runtime
var (
	LogLevel = localParams.NewParam("log/level").String()
	LogMode  = localParams.NewParam("log/mode").String()
	LogFile  = localParams.NewParam("log/file").String()

	MonobankAPI = localParams.NewParam("monobank/api").String()

	HTTPTimeoutSeconds = localParams.NewParam("http/timeout-seconds").Int()

	FeedsDir = localParams.NewParam("feeds/dir").String()

	BankTimezone           = localParams.NewParam("window/bank-timezone").String()
	InitDateInBankTimezone = localParams.NewParam("window/init-date-in-bank-timezone").Bool()

	SinkKind = localParams.NewParam("sink/kind").String()

	DestinationKind = localParams.NewParam("destination/kind").String()

	SplunkMgmtURL  = localParams.NewParam("splunk/mgmt-url").String()
	SplunkHost     = localParams.NewParam("splunk/host").String()
	SplunkPort     = localParams.NewParam("splunk/port").Int()
	SplunkUsername = localParams.NewParam("splunk/username").String()
	SplunkInsecure = localParams.NewParam("splunk/insecure").Bool()
	SplunkHECURL   = localParams.NewParam("splunk/hec-url").String()

	SplunkSessionKey = remoteParams.NewParam("splunk/session-key").String()
	SplunkPassword   = remoteParams.NewParam("splunk/password").String()
	SplunkHECToken   = remoteParams.NewParam("splunk/hec-token").String()

	SQLiteDSN = localParams.NewParam("sqlite/dsn").String()

	PostgresDSN = remoteParams.NewParam("postgres/dsn").String()

	ClickHouseDSN = remoteParams.NewParam("clickhouse/dsn").String()

	MongoURI      = remoteParams.NewParam("mongo/uri").String()
	MongoDatabase = localParams.NewParam("mongo/database").String()

	BigQueryProject = localParams.NewParam("bigquery/project").String()
	BigQueryDataset = localParams.NewParam("bigquery/dataset").String()

	CheckpointKind      = localParams.NewParam("checkpoint/kind").String()
	CheckpointDir       = localParams.NewParam("checkpoint/dir").String()
	CheckpointGCSBucket = localParams.NewParam("checkpoint/gcs-bucket").String()
	CheckpointGCSPrefix = localParams.NewParam("checkpoint/gcs-prefix").String()
)

// Log represents logger specific options
type Log struct {
	Level config.StringVal
	Mode  config.StringVal
	File  config.StringVal
}

// Monobank represents settings of the statements API
type Monobank struct {
	API config.StringVal
}

// HTTP represents outbound http client settings
type HTTP struct {
	TimeoutSeconds config.IntVal
}

// Feeds represents where feed definitions are stored
type Feeds struct {
	Dir config.StringVal
}

// Window represents fetch window settings
type Window struct {
	BankTimezone           config.StringVal
	InitDateInBankTimezone config.BoolVal
}

// Sink represents where fetched records are written to
type Sink struct {
	Kind config.StringVal
}

// Splunk represents splunk connection settings
type Splunk struct {
	MgmtURL    config.StringVal
	SessionKey config.StringVal
	Host       config.StringVal
	Port       config.IntVal
	Username   config.StringVal
	Password   config.StringVal
	Insecure   config.BoolVal
	HECURL     config.StringVal
	HECToken   config.StringVal
}

// SQLite represents sqlite store settings
type SQLite struct {
	DSN config.StringVal
}

// Postgres represents postgres store settings
type Postgres struct {
	DSN config.StringVal
}

// ClickHouse represents clickhouse store settings
type ClickHouse struct {
	DSN config.StringVal
}

// Mongo represents mongo store settings
type Mongo struct {
	URI      config.StringVal
	Database config.StringVal
}

// BigQuery represents bigquery store settings
type BigQuery struct {
	Project config.StringVal
	Dataset config.StringVal
}

// Destination represents the store that holds ingested events
type Destination struct {
	Kind       config.StringVal
	Splunk     Splunk
	SQLite     SQLite
	Postgres   Postgres
	ClickHouse ClickHouse
	Mongo      Mongo
	BigQuery   BigQuery
}

// Checkpoint represents where watermarks are taken from
type Checkpoint struct {
	Kind      config.StringVal
	Dir       config.StringVal
	GCSBucket config.StringVal
	GCSPrefix config.StringVal
}

// AppConfig is a toplevel config structure
type AppConfig struct {
	Log         Log
	Monobank    Monobank
	HTTP        HTTP
	Feeds       Feeds
	Window      Window
	Sink        Sink
	Destination Destination
	Checkpoint  Checkpoint
}

// LoadAppConfig will load and initialize app config structure
func LoadAppConfig() (*AppConfig, error) {
	cfg, err := configBuilder.LoadConfig()
	if err != nil {
		return nil, err
	}

	appCfg := AppConfig{
		Log: Log{
			Level: cfg.StringParam(LogLevel),
			Mode:  cfg.StringParam(LogMode),
			File:  cfg.StringParam(LogFile),
		},
		Monobank: Monobank{
			API: cfg.StringParam(MonobankAPI),
		},
		HTTP: HTTP{
			TimeoutSeconds: cfg.IntParam(HTTPTimeoutSeconds),
		},
		Feeds: Feeds{
			Dir: cfg.StringParam(FeedsDir),
		},
		Window: Window{
			BankTimezone:           cfg.StringParam(BankTimezone),
			InitDateInBankTimezone: cfg.BoolParam(InitDateInBankTimezone),
		},
		Sink: Sink{
			Kind: cfg.StringParam(SinkKind),
		},
		Destination: Destination{
			Kind: cfg.StringParam(DestinationKind),
			Splunk: Splunk{
				MgmtURL:    cfg.StringParam(SplunkMgmtURL),
				SessionKey: cfg.StringParam(SplunkSessionKey),
				Host:       cfg.StringParam(SplunkHost),
				Port:       cfg.IntParam(SplunkPort),
				Username:   cfg.StringParam(SplunkUsername),
				Password:   cfg.StringParam(SplunkPassword),
				Insecure:   cfg.BoolParam(SplunkInsecure),
				HECURL:     cfg.StringParam(SplunkHECURL),
				HECToken:   cfg.StringParam(SplunkHECToken),
			},
			SQLite: SQLite{
				DSN: cfg.StringParam(SQLiteDSN),
			},
			Postgres: Postgres{
				DSN: cfg.StringParam(PostgresDSN),
			},
			ClickHouse: ClickHouse{
				DSN: cfg.StringParam(ClickHouseDSN),
			},
			Mongo: Mongo{
				URI:      cfg.StringParam(MongoURI),
				Database: cfg.StringParam(MongoDatabase),
			},
			BigQuery: BigQuery{
				Project: cfg.StringParam(BigQueryProject),
				Dataset: cfg.StringParam(BigQueryDataset),
			},
		},
		Checkpoint: Checkpoint{
			Kind:      cfg.StringParam(CheckpointKind),
			Dir:       cfg.StringParam(CheckpointDir),
			GCSBucket: cfg.StringParam(CheckpointGCSBucket),
			GCSPrefix: cfg.StringParam(CheckpointGCSPrefix),
		},
	}

	return &appCfg, nil
}
