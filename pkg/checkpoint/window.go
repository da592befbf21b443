package checkpoint

import (
	"time"

	// bank timezone has to be resolvable on hosts without zoneinfo
	_ "time/tzdata"
)

// DefaultBankTimezone is a timezone where bank days start and end
const DefaultBankTimezone = "Europe/Kiev"

// Window is a range of data that was not yet ingested. Both bounds are inclusive
type Window struct {
	From time.Time
	To   time.Time
}

// Empty reports if there is nothing to fetch
func (w Window) Empty() bool {
	return w.From.After(w.To)
}

// WindowRequest holds everything that is required to resolve a window
type WindowRequest struct {
	Watermark    time.Time
	HasWatermark bool

	// InitDate is a calendar date. Only year, month and day are used
	InitDate time.Time

	BankTZ *time.Location
	Now    time.Time

	// InitDateInBankTZ makes InitDate a midnight in BankTZ instead of UTC.
	// Off by default so the lower bound stays naive like it always was
	InitDateInBankTZ bool
}

// ResolveWindow returns a window of data to fetch.
// The upper bound is the end of yesterday in the bank timezone so a current
// (possibly incomplete) day is never fetched
func ResolveWindow(req WindowRequest) Window {
	bankTZ := req.BankTZ
	if bankTZ == nil {
		bankTZ = time.UTC
	}

	var from time.Time
	if req.HasWatermark {
		from = req.Watermark.Add(time.Second)
	} else {
		initLoc := time.UTC
		if req.InitDateInBankTZ {
			initLoc = bankTZ
		}
		year, month, day := req.InitDate.Date()
		from = time.Date(year, month, day, 0, 0, 0, 0, initLoc)
	}

	year, month, day := req.Now.In(bankTZ).Date()
	to := time.Date(year, month, day, 0, 0, 0, 0, bankTZ).Add(-time.Second)

	return Window{From: from.UTC(), To: to.UTC()}
}

// Resolver resolves windows using a clock and timezone settings
type Resolver struct {
	bankTZ           *time.Location
	initDateInBankTZ bool
	now              func() time.Time
}

// ResolverOpt is an option of a resolver
type ResolverOpt func(r *Resolver)

// WithBankTimezone sets a timezone of the bank
func WithBankTimezone(loc *time.Location) ResolverOpt {
	return func(r *Resolver) {
		r.bankTZ = loc
	}
}

// WithInitDateInBankTimezone makes both window bounds timezone aware
func WithInitDateInBankTimezone(enabled bool) ResolverOpt {
	return func(r *Resolver) {
		r.initDateInBankTZ = enabled
	}
}

// WithNow sets a clock. Mostly for tests
func WithNow(now func() time.Time) ResolverOpt {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a resolver. Uses DefaultBankTimezone unless overridden
func NewResolver(opts ...ResolverOpt) (*Resolver, error) {
	r := &Resolver{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.bankTZ == nil {
		loc, err := time.LoadLocation(DefaultBankTimezone)
		if err != nil {
			return nil, err
		}
		r.bankTZ = loc
	}
	return r, nil
}

// Resolve returns a window for a given watermark
func (r *Resolver) Resolve(watermark time.Time, hasWatermark bool, initDate time.Time) Window {
	return ResolveWindow(WindowRequest{
		Watermark:        watermark,
		HasWatermark:     hasWatermark,
		InitDate:         initDate,
		BankTZ:           r.bankTZ,
		Now:              r.now(),
		InitDateInBankTZ: r.initDateInBankTZ,
	})
}
