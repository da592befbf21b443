package monoua

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/request"
)

// RemoteFetchError is returned when statements can not be fetched or parsed
type RemoteFetchError struct {
	// StatusCode is zero if no response was received
	StatusCode int

	// Body is truncated to request.MaxErrorBodySize
	Body string

	cause error
}

func newRemoteFetchError(statusCode int, body []byte, cause error) *RemoteFetchError {
	if len(body) > request.MaxErrorBodySize {
		body = body[:request.MaxErrorBodySize]
	}
	return &RemoteFetchError{StatusCode: statusCode, Body: string(body), cause: cause}
}

func remoteFetchErrorFromResponse(err error) *RemoteFetchError {
	var httpErr *request.HTTPError
	if errors.As(err, &httpErr) {
		return newRemoteFetchError(httpErr.StatusCode, []byte(httpErr.Body), err)
	}
	return newRemoteFetchError(0, nil, err)
}

func (e *RemoteFetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("Failed to fetch statements: %v", e.cause)
	}
	return fmt.Sprintf("Failed to fetch statements [%v]: %v", e.StatusCode, e.cause)
}

// Cause returns underlying error
func (e *RemoteFetchError) Cause() error {
	return e.cause
}

func (e *RemoteFetchError) Unwrap() error {
	return e.cause
}
