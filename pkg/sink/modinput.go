package sink

import (
	"context"
	"encoding/xml"
	"io"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
)

type modInputEvent struct {
	XMLName    xml.Name `xml:"event"`
	Time       string   `xml:"time"`
	Data       string   `xml:"data"`
	Index      string   `xml:"index,omitempty"`
	SourceType string   `xml:"sourcetype,omitempty"`
	Source     string   `xml:"source,omitempty"`
}

// ModInputSink writes events as a modular input xml stream.
// Stream is opened with the first event and closed with Close
type ModInputSink struct {
	mu      sync.Mutex
	out     io.Writer
	encoder *xml.Encoder
	opened  bool
}

// NewModInputSink creates a sink that writes to a given output (stdout normally)
func NewModInputSink(out io.Writer) *ModInputSink {
	return &ModInputSink{out: out, encoder: xml.NewEncoder(out)}
}

// WriteEvent writes a single event element
func (s *ModInputSink) WriteEvent(ctx context.Context, event *destination.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		if _, err := io.WriteString(s.out, "<stream>"); err != nil {
			return errors.Wrap(err, "Failed to open stream")
		}
		s.opened = true
	}
	if err := s.encoder.Encode(modInputEvent{
		Time:       strconv.FormatInt(event.Time.Unix(), 10),
		Data:       string(event.Data),
		Index:      event.Index,
		SourceType: event.SourceType,
		Source:     event.Source,
	}); err != nil {
		return errors.Wrap(err, "Failed to write event")
	}
	return nil
}

// Close closes the stream if it was opened
func (s *ModInputSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return nil
	}
	s.opened = false
	_, err := io.WriteString(s.out, "</stream>")
	return errors.Wrap(err, "Failed to close stream")
}

var _ destination.Sink = (*ModInputSink)(nil)
