package monoua

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/banks"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/request"
)

var logger = diag.CreateLogger()

// DefaultAPIBaseURL is a public monobank api
const DefaultAPIBaseURL = "https://api.monobank.ua"

type monoFetcher struct {
	apiBaseURL string
	timeout    time.Duration
}

func (f *monoFetcher) Fetch(ctx context.Context, params *banks.FetchParams) (*banks.Records, error) {
	log := params.Logger
	if log == nil {
		log = logger
	}
	reqPath := fmt.Sprintf(
		"/personal/statement/%v/%v/%v",
		url.PathEscape(params.AccountID), params.From.Unix(), params.To.Unix(),
	)
	req := request.Get(f.apiBaseURL + reqPath).WithHeader("X-Token", params.Token)
	log.Debug(ctx, "Fetching statements %v - %v", params.From, params.To)
	res := request.Do(ctx, req, request.WithTimeout(f.timeout), request.WithLogger(log))
	body, err := res.ReadAll()
	if err != nil {
		return nil, remoteFetchErrorFromResponse(err)
	}

	if log.IsDebug() {
		log.WithData(diag.MsgData{"body": string(body)}).Debug(ctx, "Got statements response")
	}

	records, err := banks.ParseRecords(body)
	if err != nil {
		log.WithError(err).Error(ctx, "Failed to unmarshal response")
		return nil, newRemoteFetchError(200, body, errors.Wrap(err, "Malformed statements response"))
	}

	log.Info(ctx, "Fetched %v statements", records.Len())
	return records, nil
}

// FetcherOpt is an option of a fetcher
type FetcherOpt func(f *monoFetcher)

// WithAPIBaseURL sets base url of the api
func WithAPIBaseURL(apiBaseURL string) FetcherOpt {
	return func(f *monoFetcher) {
		f.apiBaseURL = apiBaseURL
	}
}

// WithTimeout bounds time of a single fetch. No timeout by default
func WithTimeout(timeout time.Duration) FetcherOpt {
	return func(f *monoFetcher) {
		f.timeout = timeout
	}
}

// NewFetcher creates an instance of a monobank statements fetcher
func NewFetcher(opts ...FetcherOpt) banks.Fetcher {
	f := &monoFetcher{apiBaseURL: DefaultAPIBaseURL}
	for _, opt := range opts {
		opt(f)
	}
	return f
}
