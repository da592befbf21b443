package config

import (
	"context"
	"errors"
	"flag"
	"testing"

	"github.com/bxcodec/faker/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource map[param]interface{}

func (s mockSource) GetParameters(ctx context.Context, params []param) (map[param]interface{}, error) {
	return s, nil
}

type failingSource struct {
	err error
}

func (s failingSource) GetParameters(ctx context.Context, params []param) (map[param]interface{}, error) {
	return nil, s.err
}

func TestNewAppEnv(t *testing.T) {
	t.Run("default to test under go test", func(t *testing.T) {
		t.Setenv(appEnvVar, "")
		appEnv := NewAppEnv("svc")
		assert.Equal(t, "test", appEnv.Name)
		assert.Equal(t, "svc", appEnv.ServiceName)
	})
	t.Run("default to dev", func(t *testing.T) {
		t.Setenv(appEnvVar, "")
		appEnv := NewAppEnv("svc", withLookupFlag(func(string) *flag.Flag { return nil }))
		assert.Equal(t, "dev", appEnv.Name)
	})
	t.Run("take from env", func(t *testing.T) {
		t.Setenv(appEnvVar, "production")
		t.Setenv(facetVar, "preprod")
		t.Setenv(clusterNameVar, "cluster-1")
		appEnv := NewAppEnv("svc")
		assert.Equal(t, AppEnv{
			ServiceName: "svc",
			Name:        "production",
			Facet:       "preprod",
			ClusterName: "cluster-1",
		}, appEnv)
	})
}

func TestLoad(t *testing.T) {
	type testCase struct {
		name string
		run  func(t *testing.T)
	}
	tests := []func() testCase{
		func() testCase {
			strParam := newStringParam("str-"+faker.Word(), "svc")
			intParam := newIntParam("int-"+faker.Word(), "svc")
			boolParam := newBoolParam("bool-"+faker.Word(), "svc")
			strVal := faker.Word()
			return testCase{
				name: "load values of all params",
				run: func(t *testing.T) {
					cfg, err := Load(WithSource(sourceBinding{
						params: []param{strParam, intParam, boolParam},
						source: mockSource{
							strParam:  strVal,
							intParam:  float64(42),
							boolParam: "true",
						},
					}))
					require.NoError(t, err)
					assert.Equal(t, strVal, cfg.StringParam(strParam).Value())
					assert.Equal(t, 42, cfg.IntParam(intParam).Value())
					assert.True(t, cfg.BoolParam(boolParam).Value())
				},
			}
		},
		func() testCase {
			strParam := newStringParam("str-"+faker.Word(), "svc")
			return testCase{
				name: "fail if param is missing",
				run: func(t *testing.T) {
					_, err := Load(WithSource(sourceBinding{
						params: []param{strParam},
						source: mockSource{},
					}))
					assert.EqualError(t, err, "Parameter "+strParam.String()+" not found")
				},
			}
		},
		func() testCase {
			intParam := newIntParam("int-"+faker.Word(), "svc")
			return testCase{
				name: "fail if value has wrong type",
				run: func(t *testing.T) {
					_, err := Load(WithSource(sourceBinding{
						params: []param{intParam},
						source: mockSource{intParam: "not-a-number"},
					}))
					assert.Error(t, err)
				},
			}
		},
		func() testCase {
			wantErr := errors.New(faker.Sentence())
			return testCase{
				name: "fail if source fails",
				run: func(t *testing.T) {
					_, err := Load(WithSource(sourceBinding{
						params: []param{newStringParam("p", "svc")},
						source: failingSource{err: wantErr},
					}))
					assert.Equal(t, wantErr, err)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "panic on unknown param",
				run: func(t *testing.T) {
					cfg, err := Load()
					require.NoError(t, err)
					assert.Panics(t, func() {
						cfg.StringParam(newStringParam("unknown", "svc"))
					})
				},
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, tt.run)
	}
}

func TestBuilder_LoadConfig(t *testing.T) {
	configDir := t.TempDir()
	strVal := "value-" + faker.Word()
	writeJSONConfig(t, configDir, "default.json", map[string]interface{}{
		"str":    strVal,
		"int":    10,
		"nested": map[string]interface{}{"bool": true},
	})

	builder := NewBuilder(AppEnv{Name: "test", ServiceName: "svc"})
	params := builder.NewParamsBuilder(func() (Source, error) {
		return NewLocalSource(LocalOpts.WithDir(configDir))
	})
	strParam := params.NewParam("str").WithService("").String()
	intParam := params.NewParam("int").WithService("").Int()
	boolParam := params.NewParam("bool").WithService("nested").Bool()

	cfg, err := builder.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, strVal, cfg.StringParam(strParam).Value())
	assert.Equal(t, 10, cfg.IntParam(intParam).Value())
	assert.True(t, cfg.BoolParam(boolParam).Value())
}

func TestBuilder_LoadConfig_SourceError(t *testing.T) {
	wantErr := errors.New(faker.Sentence())
	builder := NewBuilder(AppEnv{Name: "test", ServiceName: "svc"})
	builder.NewParamsBuilder(func() (Source, error) {
		return nil, wantErr
	}).NewParam("any").String()

	_, err := builder.LoadConfig()
	assert.Equal(t, wantErr, err)
}
