package config

import (
	"context"
	"flag"
	"os"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

const (
	appEnvVar = "APP_ENV"

	facetVar = "APP_ENV_FACET"

	clusterNameVar = "CLUSTER_NAME"

	configDirVar = "APP_CONFIG_DIR"

	awsSSMEndpointURLVar          = "AWS_SSM_ENDPOINT_URL"
	awsSSMEndpointTokenVar        = "AWS_SSM_ENDPOINT_TOKEN"
	awsSSMEndpointTokenHeaderName = "x-access-token"
)

var logger = diag.CreateLogger()

// AppEnv represents app env
type AppEnv struct {
	// ServiceName is a name of a current service
	ServiceName string

	// Name is a env name. By default taken from APP_ENV. Corresponds to NODE_ENV
	Name string

	// Facet is a env facet like preprod (for production). By default taken from APP_ENV_FACET
	Facet string

	// Name of a cluster where service is running
	ClusterName string
}

type appEnvCfg struct {
	lookupFlag func(name string) *flag.Flag
}

type appEnvOpt func(*appEnvCfg)

func withLookupFlag(lookupFlag func(name string) *flag.Flag) appEnvOpt {
	return func(cfg *appEnvCfg) {
		cfg.lookupFlag = lookupFlag
	}
}

// NewAppEnv creates a new instance of the app env from os env
// Will use "dev" by default
func NewAppEnv(serviceName string, opts ...appEnvOpt) AppEnv {
	cfg := appEnvCfg{
		lookupFlag: flag.Lookup,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	appEnv := os.Getenv(appEnvVar)
	if appEnv == "" {
		if v := cfg.lookupFlag("test.v"); v == nil {
			appEnv = "dev"
		} else {
			appEnv = "test"
		}
	}
	return AppEnv{
		Name:        appEnv,
		Facet:       os.Getenv(facetVar),
		ClusterName: os.Getenv(clusterNameVar),
		ServiceName: serviceName,
	}
}

// Source is an abstraction to read params
type Source interface {
	GetParameters(ctx context.Context, params []param) (map[param]interface{}, error)
}

type sourceBinding struct {
	params []param
	source Source
}

// ServiceConfig gives access to loaded param values.
// Accessing a param that was not registered with a builder will panic
type ServiceConfig interface {
	StringParam(p StringParam) StringVal
	IntParam(p IntParam) IntVal
	BoolParam(p BoolParam) BoolVal
}

// ServiceConfigOpt is an option of a service config
type ServiceConfigOpt func(cfg *serviceConfig)

// WithSource binds a set of params to a given source
func WithSource(binding sourceBinding) ServiceConfigOpt {
	return func(cfg *serviceConfig) {
		cfg.sources = append(cfg.sources, binding)
	}
}

type serviceConfig struct {
	sources []sourceBinding
	values  map[param]paramValue
}

func (cfg *serviceConfig) lookup(p param) paramValue {
	val, ok := cfg.values[p]
	if !ok {
		panic("Unknown parameter: " + p.String())
	}
	return val
}

func (cfg *serviceConfig) StringParam(p StringParam) StringVal {
	return cfg.lookup(p).(StringVal)
}

func (cfg *serviceConfig) IntParam(p IntParam) IntVal {
	return cfg.lookup(p).(IntVal)
}

func (cfg *serviceConfig) BoolParam(p BoolParam) BoolVal {
	return cfg.lookup(p).(BoolVal)
}

func newServiceConfig(opts ...ServiceConfigOpt) *serviceConfig {
	cfg := &serviceConfig{values: map[param]paramValue{}}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func loadInitialValues(cfg *serviceConfig) error {
	ctx := diag.ContextWithNewRequestID(context.Background())
	logger.Debug(ctx, "Loading initial config values")
	for _, binding := range cfg.sources {
		values, err := binding.source.GetParameters(ctx, binding.params)
		if err != nil {
			return err
		}
		logger.Debug(ctx, "Fetched %v (of %v requested) values", len(values), len(binding.params))
		for _, p := range binding.params {
			value, ok := values[p]
			if !ok {
				return errors.Errorf("Parameter %v not found", p)
			}
			paramVal := p.emptyValue()
			if err := paramVal.setValue(value); err != nil {
				return errors.Wrapf(err, "Failed to set value for parameter %v", p)
			}
			cfg.values[p] = paramVal
		}
	}
	return nil
}

// Load creates the config and loads values of all params from bound sources
func Load(opts ...ServiceConfigOpt) (ServiceConfig, error) {
	cfg := newServiceConfig(opts...)
	if err := loadInitialValues(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
