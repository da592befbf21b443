package banks

import (
	"context"
	"time"

	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

// FetchParams represents what to fetch from bank
type FetchParams struct {
	AccountID string
	Token     string

	// From and To are inclusive
	From time.Time
	To   time.Time

	// Logger is optional. Used to follow log level of a feed
	Logger diag.Logger
}

// Fetcher fetches statement records of a bank account
type Fetcher interface {
	Fetch(ctx context.Context, params *FetchParams) (*Records, error)
}
