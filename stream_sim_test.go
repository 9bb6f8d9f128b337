package streamdown

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

var invarianceInputs = []string{
	"# hello world\n\nSome *emphasis*, **strong** and `code`.\n",
	"- a\n- b\n\n1. one\n2. two\n",
	"```js\nconst x = `y`;\n```\n\nafter\n",
	"> quoted [link](https://example.com) and ![img](a.png)\n> more\n\ntail",
	"~~gone~~ and ~~a *b*~~\n\n[unterminated\n\n**open",
	"ünïcödé ✓ 日本語 🎉\n\n# ☃ snow\n",
	"2 * 3 = 6\n\n* not *emphasis* here\n",
	"```\nfence ``inner`` run\n````\nafter `x`\n",
}

func TestChunkBoundaryInvarianceAllSplits(t *testing.T) {
	t.Parallel()
	for _, src := range invarianceInputs {
		want := convert(t, src)
		data := []byte(src)
		for i := 0; i <= len(data); i++ {
			sink := &captureSink{}
			c := New(sink)
			if _, err := c.Write(data[:i]); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if _, err := c.Write(data[i:]); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := c.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if got := sink.joined(); got != want {
				t.Fatalf("split at byte %d of %q:\nwant %q\n got %q", i, src, want, got)
			}
			if len(sink.fragments) > 3 {
				t.Fatalf("split at byte %d delivered %d fragments for 2 writes", i, len(sink.fragments))
			}
		}
	}
}

func TestReplayChunkSizes(t *testing.T) {
	t.Parallel()
	for _, src := range invarianceInputs {
		want := convert(t, src)
		runes := utf8.RuneCountInString(src)
		for _, size := range []int{1, 2, 3, 5, 8, 64} {
			sink := &captureSink{}
			err := Replay(ReplayRequest{
				Reader:    strings.NewReader(src),
				Sink:      sink,
				ChunkSize: size,
			})
			if err != nil {
				t.Fatalf("Replay chunk %d: %v", size, err)
			}
			if diff := cmp.Diff(want, sink.joined()); diff != "" {
				t.Fatalf("chunk %d of %q (-want +got):\n%s", size, src, diff)
			}
			writes := (runes + size - 1) / size
			if len(sink.fragments) > writes+1 {
				t.Fatalf("chunk %d: %d fragments for %d writes", size, len(sink.fragments), writes)
			}
			if sink.done != 1 {
				t.Fatalf("chunk %d: Done called %d times", size, sink.done)
			}
		}
	}
}

func TestReplayRejectsBadRequests(t *testing.T) {
	t.Parallel()
	if err := Replay(ReplayRequest{Sink: &captureSink{}, ChunkSize: 1}); err == nil {
		t.Fatalf("expected error for nil reader")
	}
	if err := Replay(ReplayRequest{Reader: strings.NewReader("x"), ChunkSize: 1}); err == nil {
		t.Fatalf("expected error for nil sink")
	}
	if err := Replay(ReplayRequest{Reader: strings.NewReader("x"), Sink: &captureSink{}}); err == nil {
		t.Fatalf("expected error for zero chunk size")
	}
}

func TestReplaySkipsBinary(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	err := Replay(ReplayRequest{
		Reader:    bytes.NewReader([]byte{0x00, 0x01, 0x02, 0x03, 0x04}),
		Sink:      sink,
		ChunkSize: 1,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sink.fragments) != 0 {
		t.Fatalf("expected no output, got %q", sink.fragments)
	}
}

func TestReplaySinkError(t *testing.T) {
	t.Parallel()
	err := Replay(ReplayRequest{
		Reader:    strings.NewReader("# a\n# b\n"),
		Sink:      &captureSink{err: errSinkBroken},
		ChunkSize: 2,
	})
	if err == nil || !strings.Contains(err.Error(), "replay: write") {
		t.Fatalf("expected replay write error, got %v", err)
	}
}
