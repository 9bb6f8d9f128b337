package streamdown

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"pkt.systems/streamdown/internal/logutil"
)

var logger = logutil.GetLogger("[streamdown] ")

var (
	// ErrClosed reports a Write or Close on a finalized Converter.
	ErrClosed = errors.New("converter closed")
	// ErrInvalidState reports an unreachable parser state. The Converter is
	// unusable afterwards; start over from the beginning of the input.
	ErrInvalidState = errors.New("invalid parser state")
)

// Converter turns a Markdown byte stream into HTML fragments. Each Write
// delivers at most one fragment to the sink holding every construct completed
// by that chunk; Close force-closes what is left and signals completion.
//
// A Converter is owned by a single writer and must not be used concurrently.
type Converter struct {
	sink   Sink
	parser *liveParser

	frontMatter frontMatterFilter
	filter      bool

	tail    [utf8.UTFMax]byte
	tailLen int
	scratch []byte

	closed    bool
	err       error
	bytesIn   int
	fragments int

	scratchArr [4096]byte
}

// New returns a Converter delivering fragments to sink.
func New(sink Sink, opts ...Option) *Converter {
	cfg := resolveConfig(opts)
	parser := parserPool.Get().(*liveParser)
	parser.Reset(cfg)
	c := &Converter{sink: sink, parser: parser, filter: cfg.frontMatter}
	c.frontMatter.reset(cfg.metadata)
	c.scratch = c.scratchArr[:0]
	return c
}

// Write feeds the next chunk. Chunk boundaries may fall anywhere, including
// inside a multi-byte rune.
func (c *Converter) Write(p []byte) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	if c.err != nil {
		return 0, c.err
	}
	c.bytesIn += len(p)
	if err := c.feedChunk(p); err != nil {
		c.err = err
		return 0, err
	}
	if err := c.deliver(); err != nil {
		c.err = err
		return 0, err
	}
	return len(p), nil
}

// WriteString is Write for a string chunk.
func (c *Converter) WriteString(s string) (int, error) {
	return c.Write([]byte(s))
}

// Close finalizes the stream exactly once: open constructs are closed, the
// trailing fragment is delivered and the sink is told the stream is done.
func (c *Converter) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	defer c.release()
	if c.err != nil {
		return c.err
	}
	if c.filter {
		if trailing := c.frontMatter.finish(); len(trailing) > 0 {
			if err := c.parser.feedBytes(trailing); err != nil {
				return fmt.Errorf("parse: %w", err)
			}
		}
	}
	if err := c.parser.finalize(); err != nil {
		logger.Printf("finalize: %v", err)
		return fmt.Errorf("finalize: %w", err)
	}
	if err := c.deliver(); err != nil {
		return err
	}
	logger.Printf("done: %d bytes in, %d fragments out", c.bytesIn, c.fragments)
	if err := c.sink.Done(); err != nil {
		return fmt.Errorf("sink done: %w", err)
	}
	return nil
}

// abort ends the stream without finalizing it or signalling the sink.
func (c *Converter) abort() {
	c.closed = true
	c.release()
}

func (c *Converter) release() {
	if c.parser == nil {
		return
	}
	c.parser.Reset(config{})
	parserPool.Put(c.parser)
	c.parser = nil
}

func (c *Converter) feedChunk(chunk []byte) error {
	for c.tailLen > 0 && len(chunk) > 0 {
		c.tail[c.tailLen] = chunk[0]
		c.tailLen++
		chunk = chunk[1:]
		if !utf8.FullRune(c.tail[:c.tailLen]) {
			continue
		}
		var smallOut [utf8.UTFMax]byte
		clean, rest := sanitizeBytes(smallOut[:], c.tail[:c.tailLen])
		if err := c.feed(clean); err != nil {
			return err
		}
		c.tailLen = copy(c.tail[:], rest)
	}
	if len(chunk) == 0 {
		return nil
	}
	if cap(c.scratch) < len(chunk) {
		c.scratch = make([]byte, len(chunk))
	}
	clean, rest := sanitizeBytes(c.scratch[:len(chunk)], chunk)
	if err := c.feed(clean); err != nil {
		return err
	}
	c.tailLen = copy(c.tail[:], rest)
	return nil
}

func (c *Converter) feed(clean []byte) error {
	if len(clean) == 0 {
		return nil
	}
	if c.filter {
		clean = c.frontMatter.process(clean)
		if len(clean) == 0 {
			return nil
		}
	}
	if err := c.parser.feedBytes(clean); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	return nil
}

func (c *Converter) deliver() error {
	html := c.parser.takeOutput()
	if html == "" {
		return nil
	}
	c.fragments++
	if err := c.sink.WriteFragment(html); err != nil {
		return fmt.Errorf("write fragment: %w", err)
	}
	return nil
}

func (p *liveParser) feedBytes(data []byte) error {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		if r == '\r' || isControlRune(r) {
			continue
		}
		if err := p.feedRune(r); err != nil {
			return err
		}
	}
	return nil
}

// Convert renders a complete Markdown document held in memory.
func Convert(src string, opts ...Option) (string, error) {
	var b strings.Builder
	c := New(SinkFunc(func(html string) error {
		b.WriteString(html)
		return nil
	}), opts...)
	if _, err := c.WriteString(src); err != nil {
		c.abort()
		return "", err
	}
	if err := c.Close(); err != nil {
		return "", err
	}
	return b.String(), nil
}
