package streamdown

import (
	"errors"
	"os"
	"testing"
)

// captureSink records every fragment and whether Done was called.
type captureSink struct {
	fragments []string
	done      int
	err       error
}

func (c *captureSink) WriteFragment(html string) error {
	if c.err != nil {
		return c.err
	}
	c.fragments = append(c.fragments, html)
	return nil
}

func (c *captureSink) Done() error {
	c.done++
	return nil
}

func (c *captureSink) joined() string {
	var n int
	for _, f := range c.fragments {
		n += len(f)
	}
	out := make([]byte, 0, n)
	for _, f := range c.fragments {
		out = append(out, f...)
	}
	return string(out)
}

func convert(t *testing.T, src string, opts ...Option) string {
	t.Helper()
	html, err := Convert(src, opts...)
	if err != nil {
		t.Fatalf("Convert(%q): %v", src, err)
	}
	return html
}

// convertChunks feeds chunks through one Converter and returns what the sink
// saw.
func convertChunks(t *testing.T, chunks []string, opts ...Option) *captureSink {
	t.Helper()
	sink := &captureSink{}
	c := New(sink, opts...)
	for _, chunk := range chunks {
		if _, err := c.WriteString(chunk); err != nil {
			t.Fatalf("Write(%q): %v", chunk, err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return sink
}

func readSample(t testing.TB) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/sample.md")
	if err != nil {
		t.Fatalf("read sample.md: %v", err)
	}
	return data
}

var errSinkBroken = errors.New("sink broken")

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}
