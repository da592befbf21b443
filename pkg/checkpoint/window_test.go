package checkpoint

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tst "github.com/evgeny-myasishchev/statements-connector/pkg/internal/testing"
)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func TestResolveWindow(t *testing.T) {
	kiev := mustLoadLocation(DefaultBankTimezone)
	initDate := tst.MustParseTime("2023-01-01T00:00:00Z")

	type testCase struct {
		name string
		req  WindowRequest
		want Window
	}
	tests := []func() testCase{
		func() testCase {
			return testCase{
				name: "no watermark in utc bank timezone",
				req: WindowRequest{
					InitDate: initDate,
					BankTZ:   time.UTC,
					Now:      tst.MustParseTime("2023-01-05T10:00:00Z"),
				},
				want: Window{
					From: tst.MustParseTime("2023-01-01T00:00:00Z"),
					To:   tst.MustParseTime("2023-01-04T23:59:59Z"),
				},
			}
		},
		func() testCase {
			return testCase{
				name: "no watermark uses naive init date and kiev end of yesterday",
				req: WindowRequest{
					InitDate: initDate,
					BankTZ:   kiev,
					Now:      tst.MustParseTime("2023-01-05T10:00:00Z"),
				},
				want: Window{
					From: tst.MustParseTime("2023-01-01T00:00:00Z"),
					To:   tst.MustParseTime("2023-01-04T21:59:59Z"),
				},
			}
		},
		func() testCase {
			return testCase{
				name: "init date in bank timezone",
				req: WindowRequest{
					InitDate:         initDate,
					BankTZ:           kiev,
					Now:              tst.MustParseTime("2023-01-05T10:00:00Z"),
					InitDateInBankTZ: true,
				},
				want: Window{
					From: tst.MustParseTime("2022-12-31T22:00:00Z"),
					To:   tst.MustParseTime("2023-01-04T21:59:59Z"),
				},
			}
		},
		func() testCase {
			return testCase{
				name: "bank day already started while still yesterday in utc",
				req: WindowRequest{
					InitDate: initDate,
					BankTZ:   kiev,
					Now:      tst.MustParseTime("2023-01-04T23:30:00Z"),
				},
				want: Window{
					From: tst.MustParseTime("2023-01-01T00:00:00Z"),
					To:   tst.MustParseTime("2023-01-04T21:59:59Z"),
				},
			}
		},
		func() testCase {
			return testCase{
				name: "summer time offset",
				req: WindowRequest{
					InitDate: initDate,
					BankTZ:   kiev,
					Now:      tst.MustParseTime("2023-07-10T12:00:00Z"),
				},
				want: Window{
					From: tst.MustParseTime("2023-01-01T00:00:00Z"),
					To:   tst.MustParseTime("2023-07-09T20:59:59Z"),
				},
			}
		},
		func() testCase {
			return testCase{
				name: "watermark far in the past",
				req: WindowRequest{
					Watermark:    tst.MustParseTime("2020-03-15T08:30:00Z"),
					HasWatermark: true,
					InitDate:     initDate,
					BankTZ:       time.UTC,
					Now:          tst.MustParseTime("2023-01-05T10:00:00Z"),
				},
				want: Window{
					From: tst.MustParseTime("2020-03-15T08:30:01Z"),
					To:   tst.MustParseTime("2023-01-04T23:59:59Z"),
				},
			}
		},
		func() testCase {
			return testCase{
				name: "watermark at the end of yesterday",
				req: WindowRequest{
					Watermark:    tst.MustParseTime("2023-01-04T23:59:59Z"),
					HasWatermark: true,
					InitDate:     initDate,
					BankTZ:       time.UTC,
					Now:          tst.MustParseTime("2023-01-05T10:00:00Z"),
				},
				want: Window{
					From: tst.MustParseTime("2023-01-05T00:00:00Z"),
					To:   tst.MustParseTime("2023-01-04T23:59:59Z"),
				},
			}
		},
		func() testCase {
			return testCase{
				name: "no bank timezone means utc",
				req: WindowRequest{
					InitDate: initDate,
					Now:      tst.MustParseTime("2023-01-05T10:00:00Z"),
				},
				want: Window{
					From: tst.MustParseTime("2023-01-01T00:00:00Z"),
					To:   tst.MustParseTime("2023-01-04T23:59:59Z"),
				},
			}
		},
	}
	for _, tt := range tests {
		tt := tt()
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveWindow(tt.req)
			assert.True(t, tt.want.From.Equal(got.From), "From: want %v, got %v", tt.want.From, got.From)
			assert.True(t, tt.want.To.Equal(got.To), "To: want %v, got %v", tt.want.To, got.To)
		})
	}
}

func TestWindow_Empty(t *testing.T) {
	now := tst.MustParseTime("2023-01-05T10:00:00Z")
	to := tst.MustParseTime("2023-01-04T23:59:59Z")
	req := func(watermark time.Time) WindowRequest {
		return WindowRequest{Watermark: watermark, HasWatermark: true, BankTZ: time.UTC, Now: now}
	}

	assert.True(t, ResolveWindow(req(to)).Empty(), "watermark equal to the end of yesterday")
	assert.True(t, ResolveWindow(req(now)).Empty(), "watermark in the current day")
	assert.False(t, ResolveWindow(req(to.Add(-time.Second))).Empty(), "one second left")
	assert.False(t, Window{From: to, To: to}.Empty(), "single second window")
}

func TestResolveWindow_Properties(t *testing.T) {
	now := tst.MustParseTime("2023-01-05T10:00:00Z")
	kiev := mustLoadLocation(DefaultBankTimezone)

	t.Run("idempotent", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			req := WindowRequest{
				Watermark:    gofakeit.DateRange(tst.MustParseTime("2020-01-01T00:00:00Z"), now),
				HasWatermark: true,
				BankTZ:       kiev,
				Now:          now,
			}
			assert.Equal(t, ResolveWindow(req), ResolveWindow(req))
		}
	})

	t.Run("from is monotonic in watermark", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			w1 := gofakeit.DateRange(tst.MustParseTime("2020-01-01T00:00:00Z"), now)
			w2 := w1.Add(time.Duration(gofakeit.Number(1, 100000)) * time.Second)
			win1 := ResolveWindow(WindowRequest{Watermark: w1, HasWatermark: true, BankTZ: kiev, Now: now})
			win2 := ResolveWindow(WindowRequest{Watermark: w2, HasWatermark: true, BankTZ: kiev, Now: now})
			assert.True(t, win2.From.After(win1.From))
		}
	})

	t.Run("window ending at to is empty on the next run", func(t *testing.T) {
		first := ResolveWindow(WindowRequest{
			InitDate: tst.MustParseTime("2022-12-01T00:00:00Z"),
			BankTZ:   kiev,
			Now:      now,
		})
		require.False(t, first.Empty())
		next := ResolveWindow(WindowRequest{Watermark: first.To, HasWatermark: true, BankTZ: kiev, Now: now})
		assert.True(t, next.Empty())
	})
}

func TestResolver_Resolve(t *testing.T) {
	nowSvc := tst.NewMockNowService(tst.MustParseTime("2023-01-05T10:00:00Z"))
	resolver, err := NewResolver(WithBankTimezone(time.UTC), WithNow(nowSvc.Now))
	require.NoError(t, err)

	initDate := tst.MustParseTime("2023-01-01T00:00:00Z")
	got := resolver.Resolve(time.Time{}, false, initDate)
	assert.Equal(t, tst.MustParseTime("2023-01-04T23:59:59Z"), got.To)

	nowSvc.Advance(24 * time.Hour)
	got = resolver.Resolve(got.To, true, initDate)
	assert.Equal(t, Window{
		From: tst.MustParseTime("2023-01-05T00:00:00Z"),
		To:   tst.MustParseTime("2023-01-05T23:59:59Z"),
	}, got)
}

func TestNewResolver_DefaultTimezone(t *testing.T) {
	resolver, err := NewResolver()
	require.NoError(t, err)
	assert.Equal(t, DefaultBankTimezone, resolver.bankTZ.String())
}
