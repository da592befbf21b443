package sink

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/evgeny-myasishchev/statements-connector/pkg/destination"
)

// Kinds of sinks that can be configured with sink/kind
const (
	KindStdout   = "stdout"
	KindModInput = "modinput"
	KindHEC      = "hec"
	KindStore    = "store"
)

type stdoutSink struct {
	out io.Writer
}

func (s *stdoutSink) WriteEvent(ctx context.Context, event *destination.Event) error {
	line := make([]byte, 0, len(event.Data)+1)
	line = append(line, event.Data...)
	line = append(line, '\n')
	if _, err := s.out.Write(line); err != nil {
		return errors.Wrap(err, "Failed to write event")
	}
	return nil
}

// NewStdoutSink creates a sink that writes each event data as a single line
func NewStdoutSink(out io.Writer) destination.Sink {
	return &stdoutSink{out: out}
}
