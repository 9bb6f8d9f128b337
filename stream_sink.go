package streamdown

import (
	"fmt"
	"io"
)

// Sink receives HTML fragments from a Converter, in order, at most once per
// Write and once more on Close. Done is called after the last fragment.
type Sink interface {
	WriteFragment(html string) error
	Done() error
}

// SinkFunc adapts a function to a Sink whose Done does nothing.
type SinkFunc func(html string) error

func (f SinkFunc) WriteFragment(html string) error { return f(html) }
func (f SinkFunc) Done() error                     { return nil }

type flusher interface {
	Flush() error
}

type httpFlusher interface {
	Flush()
}

type writerSink struct {
	w          io.Writer
	eagerFlush bool
}

// NewWriterSink writes fragments to w. Done flushes w when it is buffered
// (bufio.Writer, http.ResponseWriter).
func NewWriterSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

// newFlushingSink flushes w after every fragment, for clients reading the
// output while it is produced.
func newFlushingSink(w io.Writer) Sink {
	return &writerSink{w: w, eagerFlush: true}
}

func (s *writerSink) WriteFragment(html string) error {
	if _, err := io.WriteString(s.w, html); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	if s.eagerFlush {
		return s.flush()
	}
	return nil
}

func (s *writerSink) Done() error {
	return s.flush()
}

func (s *writerSink) flush() error {
	switch f := s.w.(type) {
	case flusher:
		if err := f.Flush(); err != nil {
			return fmt.Errorf("sink: flush: %w", err)
		}
	case httpFlusher:
		f.Flush()
	}
	return nil
}
