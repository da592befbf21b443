package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/bxcodec/faker/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	tst "github.com/evgeny-myasishchev/statements-connector/pkg/internal/testing"
)

func Test_parseDSN(t *testing.T) {
	type testCase struct {
		name    string
		dsn     string
		want    func(t *testing.T, addr []string, user, password, database string)
		wantErr bool
	}
	tests := []func() testCase{
		func() testCase {
			user := faker.Username()
			password := faker.Password()
			return testCase{
				name: "full dsn",
				dsn:  fmt.Sprintf("clickhouse://%s:%s@ch.local:19000/statements", user, password),
				want: func(t *testing.T, addr []string, gotUser, gotPassword, database string) {
					assert.Equal(t, []string{"ch.local:19000"}, addr)
					assert.Equal(t, user, gotUser)
					assert.Equal(t, password, gotPassword)
					assert.Equal(t, "statements", database)
				},
			}
		},
		func() testCase {
			return testCase{
				name: "default port",
				dsn:  "clickhouse://ch.local",
				want: func(t *testing.T, addr []string, user, password, database string) {
					assert.Equal(t, []string{"ch.local:9000"}, addr)
					assert.Empty(t, user)
					assert.Empty(t, database)
				},
			}
		},
		func() testCase {
			return testCase{
				name:    "no host",
				dsn:     "clickhouse:///statements",
				wantErr: true,
			}
		},
	}
	for _, ttFn := range tests {
		tt := ttFn()
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want(t, got.Addr, got.Auth.Username, got.Auth.Password, got.Auth.Database)
		})
	}
}

func TestStore(t *testing.T) {
	dsn := os.Getenv("CLICKHOUSE_TEST_DSN")
	if testing.Short() || dsn == "" {
		t.Skip("CLICKHOUSE_TEST_DSN is not set")
	}
	ctx := context.Background()
	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)
	store := NewStore(conn)
	defer store.Close()
	require.NoError(t, store.Setup(ctx))

	filter := checkpoint.Filter{
		Index:      "idx-" + faker.Word(),
		SourceType: "st-" + faker.Word(),
		Source:     "feed-" + faker.UUIDDigit(),
	}
	earliest := tst.MustParseTime("2023-01-01T00:00:00Z")
	latest := tst.MustParseTime("2023-01-04T23:59:59Z")

	_, ok, err := store.Watermark(ctx, filter, earliest)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, eventTime := range []time.Time{latest.Add(-time.Hour), latest} {
		require.NoError(t, store.WriteEvent(ctx, &destination.Event{
			Data:       []byte(`{"id":"` + faker.UUIDDigit() + `"}`),
			Time:       eventTime,
			Index:      filter.Index,
			SourceType: filter.SourceType,
			Source:     filter.Source,
		}))
	}

	_, ok, err = store.Watermark(ctx, filter, earliest)
	require.NoError(t, err)
	assert.False(t, ok, "events are not visible before flush")

	require.NoError(t, destination.Flush(ctx, store))
	assert.Empty(t, store.pending)

	got, ok, err := store.Watermark(ctx, filter, earliest)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, latest, got)
}

type failingConn struct {
	driver.Conn
	err error
}

func (c *failingConn) PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error) {
	return nil, c.err
}

func TestStore_Flush_Failure(t *testing.T) {
	ctx := context.Background()
	conn := &failingConn{err: errors.New(faker.Sentence())}
	store := NewStore(&Conn{Conn: conn})

	require.NoError(t, store.WriteEvent(ctx, &destination.Event{
		Data:   []byte(`{"id":"` + faker.UUIDDigit() + `"}`),
		Time:   tst.MustParseTime("2023-01-04T23:59:59Z"),
		Source: "feed-" + faker.Word(),
	}))
	assert.ErrorIs(t, store.Flush(ctx), conn.err)
	assert.Empty(t, store.pending, "Failed batch should be dropped")

	require.NoError(t, store.WriteEvent(ctx, &destination.Event{Data: []byte(`{}`)}))
	store.Discard()
	assert.Empty(t, store.pending)
	assert.NoError(t, store.Flush(ctx))
}
