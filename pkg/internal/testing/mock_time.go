package testing

import "time"

// MockNowService should be used for tests
type MockNowService struct {
	now time.Time
}

// Now returns now value
func (svc *MockNowService) Now() time.Time {
	return svc.now
}

// SetNow set current now value
func (svc *MockNowService) SetNow(val time.Time) {
	svc.now = val
}

// Advance moves current now value forward
func (svc *MockNowService) Advance(d time.Duration) {
	svc.now = svc.now.Add(d)
}

// NewMockNowService returns an instance of a now service
func NewMockNowService(now time.Time) *MockNowService {
	return &MockNowService{now: now}
}

// MustParseTime parses RFC3339 time or panics
func MustParseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}
