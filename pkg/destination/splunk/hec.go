package splunk

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
	"github.com/evgeny-myasishchev/statements-connector/pkg/lib-core-golang/request"
)

type hecEvent struct {
	Time       int64           `json:"time"`
	Index      string          `json:"index,omitempty"`
	SourceType string          `json:"sourcetype,omitempty"`
	Source     string          `json:"source,omitempty"`
	Event      json.RawMessage `json:"event"`
}

type hecResponse struct {
	Text string `json:"text"`
	Code int    `json:"code"`
}

// HECSink sends events to the HTTP event collector.
// All events of a window go with a single request on Flush
type HECSink struct {
	url      string
	token    string
	sendOpts []request.SendOpt

	pending []hecEvent
}

// HECOpt is an option of the HEC sink
type HECOpt func(s *HECSink)

// WithHECSendOpts sets options of outgoing requests
func WithHECSendOpts(opts ...request.SendOpt) HECOpt {
	return func(s *HECSink) {
		s.sendOpts = opts
	}
}

// NewHECSink creates a sink that posts events to a collector at a given base url
func NewHECSink(baseURL string, token string, opts ...HECOpt) *HECSink {
	s := &HECSink{
		url:   strings.TrimSuffix(baseURL, "/") + "/services/collector/event",
		token: token,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WriteEvent buffers the event until Flush
func (s *HECSink) WriteEvent(ctx context.Context, event *destination.Event) error {
	if !json.Valid(event.Data) {
		return errors.New("Event data is not a valid json")
	}
	s.pending = append(s.pending, hecEvent{
		Time:       event.Time.Unix(),
		Index:      event.Index,
		SourceType: event.SourceType,
		Source:     event.Source,
		Event:      event.Data,
	})
	return nil
}

// Flush sends all buffered events
func (s *HECSink) Flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	defer s.Discard()
	var body bytes.Buffer
	encoder := json.NewEncoder(&body)
	for _, event := range s.pending {
		if err := encoder.Encode(event); err != nil {
			return err
		}
	}
	var res hecResponse
	req := request.Post(s.url, "application/json", &body).WithHeader("Authorization", "Splunk "+s.token)
	if err := request.Do(ctx, req, s.sendOpts...).DecodeJSON(&res); err != nil {
		return errors.Wrapf(err, "Failed to send %v events to HEC", len(s.pending))
	}
	if res.Code != 0 {
		return errors.Errorf("HEC rejected events: %v (%v)", res.Text, res.Code)
	}
	logger.Debug(ctx, "Sent %v events to HEC", len(s.pending))
	return nil
}

// Discard drops buffered events
func (s *HECSink) Discard() {
	s.pending = nil
}

// Store is a splunk destination: watermarks are searched, events go to HEC
type Store struct {
	*Client
	*HECSink
}

// NewStore creates a splunk store
func NewStore(client *Client, sink *HECSink) *Store {
	return &Store{Client: client, HECSink: sink}
}

// Setup does nothing, indexes are managed by splunk
func (s *Store) Setup(ctx context.Context) error {
	return nil
}

// Close does nothing
func (s *Store) Close() error {
	return nil
}

var _ destination.Store = (*Store)(nil)
var _ destination.Flusher = (*Store)(nil)
