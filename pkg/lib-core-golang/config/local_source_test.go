package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bxcodec/faker/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSONConfig(t *testing.T, dir string, name string, value interface{}) {
	buffer, err := json.Marshal(value)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), buffer, 0644))
}

func TestLocalSource_NewLocalSource(t *testing.T) {
	type testCase struct {
		name  string
		setup func(t *testing.T)
		run   func(t *testing.T, src *localSource, err error)
	}

	tests := []func() testCase{
		func() testCase {
			return testCase{
				name: "default dir",
				run: func(t *testing.T, src *localSource, err error) {
					if !assert.NoError(t, err) {
						return
					}
					_, file, _, _ := runtime.Caller(0)
					assert.Equal(t, filepath.Join(file, "..", "..", "..", "..", "config"), src.dir)
				},
			}
		},
		func() testCase {
			dir := "/etc/cfg-" + faker.Word()
			return testCase{
				name: "dir from env",
				setup: func(t *testing.T) {
					t.Setenv(configDirVar, dir)
				},
				run: func(t *testing.T, src *localSource, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, dir, src.dir)
				},
			}
		},
	}

	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup(t)
			}
			src, err := NewLocalSource()
			tt.run(t, src.(*localSource), err)
		})
	}
}

func TestLocalSource_GetParameters(t *testing.T) {
	type testCase struct {
		name   string
		opts   []LocalOpt
		params []param
		setup  func(t *testing.T)
		want   func(t *testing.T, got map[param]interface{}, err error)
	}

	configDir := t.TempDir()
	defaultCfg := map[string]interface{}{
		"key1": fmt.Sprint("default-key1-", faker.Word()),
		"key2": fmt.Sprint("default-key2-", faker.Word()),
		"deeply": map[string]interface{}{
			"nested": map[string]interface{}{
				"key3": fmt.Sprint("default-key3-", faker.Word()),
			},
		},
	}
	productionCfg := map[string]interface{}{
		"prod-key1": fmt.Sprint("production-key1-", faker.Word()),
		"key2":      fmt.Sprint("production-key2-", faker.Word()),
	}
	productionPreprodCfg := map[string]interface{}{
		"key1": fmt.Sprint("prod-preprod-key1-", faker.Word()),
	}
	writeJSONConfig(t, configDir, "default.json", defaultCfg)
	writeJSONConfig(t, configDir, "production.json", productionCfg)
	writeJSONConfig(t, configDir, "production-preprod.json", productionPreprodCfg)

	nested := defaultCfg["deeply"].(map[string]interface{})["nested"].(map[string]interface{})

	tests := []func() testCase{
		func() testCase {
			return testCase{
				name: "default config",
				opts: []LocalOpt{LocalOpts.WithDir(configDir)},
				params: []param{
					paramImpl{paramKey: "key1"},
					paramImpl{paramKey: "key2"},
					paramImpl{paramSvc: "deeply", paramKey: "nested/key3"},
					paramImpl{paramKey: "key1/not-a-map"},
				},
				want: func(t *testing.T, got map[param]interface{}, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, map[param]interface{}{
						paramImpl{paramKey: "key1"}:                            defaultCfg["key1"],
						paramImpl{paramKey: "key2"}:                            defaultCfg["key2"],
						paramImpl{paramSvc: "deeply", paramKey: "nested/key3"}: nested["key3"],
					}, got)
				},
			}
		},
		func() testCase {
			serviceName := "default-svc-" + faker.Word()
			return testCase{
				name: "ignore default service",
				opts: []LocalOpt{
					LocalOpts.WithDir(configDir),
					LocalOpts.WithAppEnv(AppEnv{ServiceName: serviceName}),
					LocalOpts.WithIgnoreDefaultService(),
				},
				params: []param{
					paramImpl{paramSvc: serviceName, paramKey: "deeply/nested/key3"},
				},
				want: func(t *testing.T, got map[param]interface{}, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, map[param]interface{}{
						paramImpl{paramSvc: serviceName, paramKey: "deeply/nested/key3"}: nested["key3"],
					}, got)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "env and facet specific config",
				opts: []LocalOpt{
					LocalOpts.WithDir(configDir),
					LocalOpts.WithAppEnv(AppEnv{Name: "production", Facet: "preprod"}),
				},
				params: []param{
					paramImpl{paramKey: "prod-key1"},
					paramImpl{paramKey: "key1"},
					paramImpl{paramKey: "key2"},
				},
				want: func(t *testing.T, got map[param]interface{}, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, map[param]interface{}{
						paramImpl{paramKey: "prod-key1"}: productionCfg["prod-key1"],
						paramImpl{paramKey: "key1"}:      productionPreprodCfg["key1"],
						paramImpl{paramKey: "key2"}:      productionCfg["key2"],
					}, got)
				},
			}
		},
		func() testCase {
			envVar := "LOCAL_SOURCE_TEST_" + faker.Word()
			envValue := "env-value-" + faker.Word()
			overridesDir := t.TempDir()
			writeJSONConfig(t, overridesDir, "default.json", defaultCfg)
			writeJSONConfig(t, overridesDir, "custom-environment-variables.json", map[string]interface{}{
				"key2": envVar,
				"key1": "LOCAL_SOURCE_TEST_UNSET_" + faker.Word(),
			})
			return testCase{
				name: "env overrides",
				setup: func(t *testing.T) {
					t.Setenv(configDirVar, overridesDir)
					t.Setenv(envVar, envValue)
				},
				params: []param{
					paramImpl{paramKey: "key1"},
					paramImpl{paramKey: "key2"},
				},
				want: func(t *testing.T, got map[param]interface{}, err error) {
					if !assert.NoError(t, err) {
						return
					}
					assert.Equal(t, map[param]interface{}{
						paramImpl{paramKey: "key1"}: defaultCfg["key1"],
						paramImpl{paramKey: "key2"}: envValue,
					}, got)
				},
			}
		},
		func() testCase {
			return testCase{
				name:   "fail if no default config",
				opts:   []LocalOpt{LocalOpts.WithDir(t.TempDir())},
				params: []param{paramImpl{paramKey: "key1"}},
				want: func(t *testing.T, got map[param]interface{}, err error) {
					assert.Error(t, err)
				},
			}
		},
	}

	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup(t)
			}
			src, err := NewLocalSource(tt.opts...)
			if !assert.NoError(t, err) {
				return
			}
			got, err := src.GetParameters(context.Background(), tt.params)
			tt.want(t, got, err)
		})
	}
}
