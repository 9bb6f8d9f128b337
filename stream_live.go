package streamdown

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

var parserPool = sync.Pool{
	New: func() any {
		return newLiveParser(defaultConfig())
	},
}

var readerPool = sync.Pool{
	New: func() any {
		return bufio.NewReaderSize(nil, 4096)
	},
}

var configPool = sync.Pool{
	New: func() any {
		return &config{}
	},
}

// RenderRequest configures Render.
type RenderRequest struct {
	Reader  io.Reader
	Writer  io.Writer
	Options []Option
}

// ParseRequest configures Parse.
type ParseRequest struct {
	Reader  io.Reader
	Sink    Sink
	Options []Option
}

// Render converts Markdown from Reader and writes HTML to Writer as it
// becomes available.
func Render(req RenderRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("render: reader is nil")
	}
	if req.Writer == nil {
		return fmt.Errorf("render: writer is nil")
	}
	return Parse(ParseRequest{
		Reader:  req.Reader,
		Sink:    NewWriterSink(req.Writer),
		Options: req.Options,
	})
}

// Parse converts Markdown from Reader and delivers one fragment to Sink per
// chunk read.
func Parse(req ParseRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("parse: reader is nil")
	}
	if req.Sink == nil {
		return fmt.Errorf("parse: sink is nil")
	}
	conv := New(req.Sink, req.Options...)
	reader := readerPool.Get().(*bufio.Reader)
	reader.Reset(req.Reader)
	defer func() {
		reader.Reset(nil)
		readerPool.Put(reader)
	}()
	var buf [4096]byte
	for {
		n, err := reader.Read(buf[:])
		if n > 0 {
			if _, werr := conv.Write(buf[:n]); werr != nil {
				conv.abort()
				return fmt.Errorf("parse: %w", werr)
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			conv.abort()
			return fmt.Errorf("parse: read: %w", err)
		}
	}
	if err := conv.Close(); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}
