package request

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
)

var defaultLogger = diag.CreateLogger()

// MaxErrorBodySize is how much of a failed response body is kept in HTTPError
const MaxErrorBodySize = 512

type sendCfg struct {
	logger   diag.Logger
	timeout  time.Duration
	insecure bool
}

// SendOpt is a send specific option
type SendOpt func(cfg *sendCfg)

// WithTimeout sets the overall request timeout. Zero means no timeout
func WithTimeout(timeout time.Duration) SendOpt {
	return func(cfg *sendCfg) {
		cfg.timeout = timeout
	}
}

// WithInsecureTLS disables server certificate verification.
// Splunk management port is often served with a self signed cert
func WithInsecureTLS(insecure bool) SendOpt {
	return func(cfg *sendCfg) {
		cfg.insecure = insecure
	}
}

// WithLogger sets a logger that will be used to trace requests
func WithLogger(logger diag.Logger) SendOpt {
	return func(cfg *sendCfg) {
		cfg.logger = logger
	}
}

// HTTPError is returned when the response has status other than 2xx
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Non 2xx HTTP response [%v](%v): %v", e.StatusCode, e.Status, e.Body)
}

// NewHTTPErrorFromResponse reads (and closes) the response body
// and creates an error with a truncated copy of it
func NewHTTPErrorFromResponse(res *http.Response) *HTTPError {
	defer res.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(res.Body, MaxErrorBodySize))
	return &HTTPError{
		StatusCode: res.StatusCode,
		Status:     http.StatusText(res.StatusCode),
		Body:       string(body),
	}
}

// ReqFactory is a function that creates an instance of a request
type ReqFactory func() (*http.Request, error)

// WithHeader returns a factory that will add a header to a created request
func (f ReqFactory) WithHeader(name string, value string) ReqFactory {
	return func() (*http.Request, error) {
		req, err := f()
		if err != nil {
			return nil, err
		}
		req.Header.Add(name, value)
		return req, nil
	}
}

// Get creates a new req factory that creates a get request for given url
func Get(url string) ReqFactory {
	return func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	}
}

// Post creates a new req factory that creates a post request with a given body
func Post(url string, contentType string, body io.Reader) ReqFactory {
	return func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}
}

// PostForm creates a new req factory that creates url encoded form post request
func PostForm(url string, form url.Values) ReqFactory {
	return Post(url, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
}

// ResFactory is a function that holds a request result with a response or error
type ResFactory func() (*http.Response, error)

// ReadAll will read entire body as a byte array
func (f ResFactory) ReadAll() ([]byte, error) {
	res, err := f()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

// DecodeJSON will decode the body into a given receiver
func (f ResFactory) DecodeJSON(receiver interface{}) error {
	res, err := f()
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return json.NewDecoder(res.Body).Decode(receiver)
}

func newResFactory(res *http.Response, err error) ResFactory {
	if err == nil && res.StatusCode >= 300 {
		err = NewHTTPErrorFromResponse(res)
		res = nil
	}
	return func() (*http.Response, error) {
		return res, err
	}
}

// Do will send the request. Will fail if response status is other than 2xx
func Do(ctx context.Context, factory ReqFactory, opts ...SendOpt) ResFactory {
	cfg := sendCfg{logger: defaultLogger}
	for _, opt := range opts {
		opt(&cfg)
	}
	transport := http.DefaultTransport
	if cfg.insecure {
		if defaultTransport, ok := http.DefaultTransport.(*http.Transport); ok {
			insecureTransport := defaultTransport.Clone()
			insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // nolint:gosec
			transport = insecureTransport
		}
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.timeout,
	}
	req, err := factory()
	if err != nil {
		return newResFactory(nil, err)
	}
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	cfg.logger.Debug(ctx, "Sending %v %v", req.Method, req.URL.Path)
	return newResFactory(httpClient.Do(req))
}
