package streamdown

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// Metadata is decoded front matter. YAML (---) and JSON (;;;) blocks are
// decoded; TOML (+++) blocks are stripped without metadata.
type Metadata map[string]any

const maxFrontMatterProbeBytes = 64 * 1024

type frontMatterFilter struct {
	passthrough bool
	probe       []byte
	probeArr    [4096]byte
	onMetadata  func(Metadata)
}

func (f *frontMatterFilter) reset(onMetadata func(Metadata)) {
	f.passthrough = false
	f.probe = f.probeArr[:0]
	f.onMetadata = onMetadata
}

// process buffers the start of the stream until it is known whether it opens
// with front matter. It returns the bytes that may be parsed now.
func (f *frontMatterFilter) process(chunk []byte) []byte {
	if f.passthrough || len(chunk) == 0 {
		return chunk
	}
	f.probe = append(f.probe, chunk...)
	if out, decided := f.decide(false); decided {
		return out
	}
	if len(f.probe) > maxFrontMatterProbeBytes {
		return f.pass()
	}
	return nil
}

// finish releases whatever is still buffered at the end of the stream.
func (f *frontMatterFilter) finish() []byte {
	if f.passthrough || len(f.probe) == 0 {
		return nil
	}
	out, _ := f.decide(true)
	return out
}

func (f *frontMatterFilter) decide(eof bool) ([]byte, bool) {
	openLine, bodyStart, ok := lineAt(f.probe, 0, eof)
	if !ok {
		return nil, false
	}
	delim, isFrontMatter := openingDelimiter(openLine)
	if !isFrontMatter {
		return f.pass(), true
	}
	firstLine, afterFirst, ok := lineAt(f.probe, bodyStart, eof)
	if !ok {
		return nil, false
	}
	if !looksLikeMetadata(firstLine) {
		return f.pass(), true
	}
	closeStart, closeNext, found := closingDelimiter(f.probe, afterFirst, delim, eof)
	if !found {
		if eof {
			return f.pass(), true
		}
		return nil, false
	}
	if closeNext > maxFrontMatterProbeBytes {
		return f.pass(), true
	}
	f.decodeMetadata(delim, f.probe[bodyStart:closeStart])
	out := f.probe[closeNext:]
	f.passthrough = true
	f.probe = f.probe[:0]
	return out, true
}

// pass gives up on front matter and hands back everything probed so far.
func (f *frontMatterFilter) pass() []byte {
	out := f.probe
	f.passthrough = true
	f.probe = f.probe[:0]
	return out
}

// lineAt returns the line starting at start without its line ending, and the
// offset of the next line. Before eof an unterminated line is not a line yet.
func lineAt(src []byte, start int, eof bool) ([]byte, int, bool) {
	if start > len(src) || (start == len(src) && !eof) {
		return nil, 0, false
	}
	rest := src[start:]
	if line, _, found := bytes.Cut(rest, newline); found {
		return bytes.TrimSuffix(line, carriageReturn), start + len(line) + 1, true
	}
	if !eof {
		return nil, 0, false
	}
	return bytes.TrimSuffix(rest, carriageReturn), len(src), true
}

var (
	newline        = []byte{'\n'}
	carriageReturn = []byte{'\r'}
	byteOrderMark  = []byte("\xef\xbb\xbf")

	frontMatterDelimiters = [][]byte{[]byte("---"), []byte("+++"), []byte(";;;")}
)

func openingDelimiter(line []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(line, byteOrderMark))
	for _, delim := range frontMatterDelimiters {
		if bytes.Equal(trimmed, delim) {
			return delim, true
		}
	}
	return nil, false
}

// looksLikeMetadata guards against a thematic break or a plain "---" line
// being taken for a front matter opener.
func looksLikeMetadata(line []byte) bool {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return false
	}
	return trimmed[0] == '{' || trimmed[0] == '[' || bytes.ContainsAny(trimmed, ":=")
}

func (f *frontMatterFilter) decodeMetadata(delim []byte, body []byte) {
	if f.onMetadata == nil || delim[0] == '+' {
		return
	}
	meta := Metadata{}
	if err := yaml.Unmarshal(body, &meta); err != nil {
		logger.Printf("front matter: %v", err)
		return
	}
	f.onMetadata(meta)
}

// closingDelimiter scans whole lines from start for delim. It returns where
// the delimiter line starts and where the document body resumes.
func closingDelimiter(src []byte, start int, delim []byte, eof bool) (int, int, bool) {
	at := start
	for {
		line, next, ok := lineAt(src, at, eof)
		if !ok || next == at {
			return 0, 0, false
		}
		if bytes.Equal(bytes.TrimSpace(line), delim) {
			return at, next, true
		}
		at = next
	}
}
