package splunk

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/diag"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/request"
)

var logger = diag.CreateLogger()

// ConnectParams are parameters of the management api connection.
// Either SessionKey or Username/Password has to be provided
type ConnectParams struct {
	// MgmtURL is like https://localhost:8089. Built from Host and Port if empty
	MgmtURL string
	Host    string
	Port    int

	SessionKey string
	Username   string
	Password   string

	Insecure bool
	Timeout  time.Duration
}

func (p ConnectParams) mgmtURL() string {
	if p.MgmtURL != "" {
		return p.MgmtURL
	}
	port := p.Port
	if port == 0 {
		port = 8089
	}
	return "https://" + p.Host + ":" + strconv.Itoa(port)
}

// Client is an authenticated client of the splunk management api
type Client struct {
	baseURL    string
	sessionKey string
	sendOpts   []request.SendOpt
}

type loginResponse struct {
	SessionKey string `json:"sessionKey"`
}

type createJobResponse struct {
	SID string `json:"sid"`
}

type jobResultsResponse struct {
	Results []map[string]interface{} `json:"results"`
}

// Connect returns an authenticated client. Will login if no session key provided
func Connect(ctx context.Context, params ConnectParams) (*Client, error) {
	client := &Client{
		baseURL:    params.mgmtURL(),
		sessionKey: params.SessionKey,
		sendOpts: []request.SendOpt{
			request.WithTimeout(params.Timeout),
			request.WithInsecureTLS(params.Insecure),
		},
	}
	if client.sessionKey != "" {
		logger.Info(ctx, "Using session key to access %v", client.baseURL)
		return client, nil
	}
	if params.Username == "" {
		return nil, errors.New("Either session key or username and password are required")
	}
	logger.Info(ctx, "Logging in to %v as %v", client.baseURL, params.Username)
	var res loginResponse
	if err := request.Do(ctx, request.PostForm(client.baseURL+"/services/auth/login", url.Values{
		"username":    {params.Username},
		"password":    {params.Password},
		"output_mode": {"json"},
	}), client.sendOpts...).DecodeJSON(&res); err != nil {
		return nil, errors.Wrap(err, "Failed to login")
	}
	if res.SessionKey == "" {
		return nil, errors.New("Login response has no session key")
	}
	client.sessionKey = res.SessionKey
	return client, nil
}

func (c *Client) authorize(req request.ReqFactory) request.ReqFactory {
	return req.WithHeader("Authorization", "Splunk "+c.sessionKey)
}

// Search runs a blocking search job and returns all result rows
func (c *Client) Search(ctx context.Context, query string, earliest time.Time, latest string) ([]map[string]interface{}, error) {
	var job createJobResponse
	if err := request.Do(ctx, c.authorize(request.PostForm(c.baseURL+"/services/search/jobs", url.Values{
		"search":        {query},
		"exec_mode":     {"blocking"},
		"earliest_time": {strconv.FormatInt(earliest.Unix(), 10)},
		"latest_time":   {latest},
		"output_mode":   {"json"},
	})), c.sendOpts...).DecodeJSON(&job); err != nil {
		return nil, errors.Wrap(err, "Failed to create search job")
	}
	if job.SID == "" {
		return nil, errors.New("Search job has no sid")
	}

	var results jobResultsResponse
	resultsURL := c.baseURL + "/services/search/jobs/" + url.PathEscape(job.SID) + "/results?output_mode=json&count=0"
	if err := request.Do(ctx, c.authorize(request.Get(resultsURL)), c.sendOpts...).DecodeJSON(&results); err != nil {
		return nil, errors.Wrapf(err, "Failed to get results of job %v", job.SID)
	}
	return results.Results, nil
}

func parseTimestamp(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case string:
		if v == "" {
			return 0, nil
		}
		return strconv.ParseFloat(v, 64)
	}
	return 0, errors.Errorf("Unexpected timestamp value: %v(%[1]T)", value)
}

// Watermark returns a latest indexed time of events that match a given filter
func (c *Client) Watermark(ctx context.Context, filter checkpoint.Filter, earliest time.Time) (time.Time, bool, error) {
	query := WatermarkQuery(filter)
	logger.Debug(ctx, "Running watermark query: %v", query)
	rows, err := c.Search(ctx, query, earliest, "now")
	if err != nil {
		return time.Time{}, false, checkpoint.NewWatermarkQueryError(filter, err)
	}
	var timestamp float64
	for _, row := range rows {
		if timestamp, err = parseTimestamp(row["timestamp"]); err != nil {
			return time.Time{}, false, checkpoint.NewWatermarkQueryError(filter, err)
		}
	}
	watermark, ok := checkpoint.WatermarkFromUnix(timestamp)
	return watermark, ok, nil
}
