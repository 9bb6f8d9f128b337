package streamdown

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestConverterDeliversOneFragmentPerWrite(t *testing.T) {
	t.Parallel()
	sink := convertChunks(t, []string{"# a\n# b\n"})
	if diff := cmp.Diff([]string{"<h1>a</h1><h1>b</h1>"}, sink.fragments); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
	if sink.done != 1 {
		t.Fatalf("Done called %d times", sink.done)
	}
}

func TestConverterFragmentTiming(t *testing.T) {
	t.Parallel()
	sink := &captureSink{}
	c := New(sink)
	steps := []struct {
		chunk string
		want  []string
	}{
		{chunk: "# Title\n", want: []string{"<h1>Title</h1>"}},
		{chunk: "hel", want: []string{"<h1>Title</h1>"}},
		{chunk: "lo\n", want: []string{"<h1>Title</h1>"}},
		{chunk: "\nworld", want: []string{"<h1>Title</h1>", "<p>hello</p>"}},
	}
	for _, step := range steps {
		if _, err := c.WriteString(step.chunk); err != nil {
			t.Fatalf("Write(%q): %v", step.chunk, err)
		}
		if diff := cmp.Diff(step.want, sink.fragments); diff != "" {
			t.Fatalf("after %q (-want +got):\n%s", step.chunk, diff)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{"<h1>Title</h1>", "<p>hello</p>", "<p>world</p>"}
	if diff := cmp.Diff(want, sink.fragments); diff != "" {
		t.Fatalf("after Close (-want +got):\n%s", diff)
	}
}

func TestConverterNeverDeliversEmptyFragments(t *testing.T) {
	t.Parallel()
	sink := convertChunks(t, []string{"", "  ", "\n", "a", "", "\n\n", "   "})
	for i, f := range sink.fragments {
		if f == "" {
			t.Fatalf("fragment %d is empty", i)
		}
	}
	if diff := cmp.Diff([]string{"<p>a</p>"}, sink.fragments); diff != "" {
		t.Fatalf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestConverterBlankInputSignalsDone(t *testing.T) {
	t.Parallel()
	sink := convertChunks(t, []string{" \n\t\n"})
	if len(sink.fragments) != 0 {
		t.Fatalf("expected no fragments, got %q", sink.fragments)
	}
	if sink.done != 1 {
		t.Fatalf("Done called %d times", sink.done)
	}
}

func TestConverterCloseOnce(t *testing.T) {
	t.Parallel()
	c := New(&captureSink{})
	if _, err := c.WriteString("hi"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := c.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Close: expected ErrClosed, got %v", err)
	}
	if _, err := c.WriteString("more"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Write after Close: expected ErrClosed, got %v", err)
	}
}

func TestConverterSinkErrorPoisons(t *testing.T) {
	t.Parallel()
	sink := &captureSink{err: errSinkBroken}
	c := New(sink)
	_, err := c.WriteString("# a\n")
	if !errors.Is(err, errSinkBroken) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if _, again := c.WriteString("b"); !errors.Is(again, errSinkBroken) {
		t.Fatalf("expected sticky sink error, got %v", again)
	}
	if cerr := c.Close(); !errors.Is(cerr, errSinkBroken) {
		t.Fatalf("expected Close to report sink error, got %v", cerr)
	}
	if sink.done != 0 {
		t.Fatalf("Done must not be called after a failed stream")
	}
}

func TestConverterInvalidStatePoisons(t *testing.T) {
	t.Parallel()
	c := New(&captureSink{})
	c.parser.state = ParserState(99)
	_, err := c.WriteString("a")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, again := c.WriteString("b"); !errors.Is(again, ErrInvalidState) {
		t.Fatalf("expected sticky ErrInvalidState, got %v", again)
	}
	if cerr := c.Close(); !errors.Is(cerr, ErrInvalidState) {
		t.Fatalf("expected Close to report ErrInvalidState, got %v", cerr)
	}
}

func TestConverterSplitsInsideRunes(t *testing.T) {
	t.Parallel()
	src := "# héllo wörld ✓\n\n*naïve* 日本語 🎉\n"
	want := convert(t, src)
	if !strings.Contains(want, "🎉") || !strings.Contains(want, "<h1>héllo wörld ✓</h1>") {
		t.Fatalf("unexpected baseline %q", want)
	}
	data := []byte(src)
	var b strings.Builder
	c := New(SinkFunc(func(html string) error {
		b.WriteString(html)
		return nil
	}))
	for i := range data {
		if _, err := c.Write(data[i : i+1]); err != nil {
			t.Fatalf("Write byte %d: %v", i, err)
		}
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Fatalf("byte-wise mismatch (-want +got):\n%s", diff)
	}
}

func TestConverterDropsInvalidBytes(t *testing.T) {
	t.Parallel()
	got := convert(t, "a\xffb\x00c\x01")
	if got != "<p>abc</p>" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestConverterDropsIncompleteTrailingRune(t *testing.T) {
	t.Parallel()
	sink := convertChunks(t, []string{"ok", "\xe2\x9c"})
	if got := sink.joined(); got != "<p>ok</p>" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestConverterPoolReuseIsIsolated(t *testing.T) {
	t.Parallel()
	first := New(&captureSink{})
	if _, err := first.WriteString("[open *em ~~del `code"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for i := 0; i < 4; i++ {
		if got := convert(t, "plain"); got != "<p>plain</p>" {
			t.Fatalf("run %d: state leaked between converters: %q", i, got)
		}
	}
}

func TestWriterSinkFlushes(t *testing.T) {
	t.Parallel()
	w := &flushRecorder{}
	c := New(NewWriterSink(w))
	if _, err := c.WriteString("# a\n"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if w.flushes != 0 {
		t.Fatalf("writer sink flushed before Done")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if w.flushes != 1 || w.String() != "<h1>a</h1>" {
		t.Fatalf("flushes=%d out=%q", w.flushes, w.String())
	}

	eager := &flushRecorder{}
	sink := newFlushingSink(eager)
	if err := sink.WriteFragment("<p>x</p>"); err != nil {
		t.Fatalf("WriteFragment: %v", err)
	}
	if eager.flushes != 1 {
		t.Fatalf("flushing sink did not flush per fragment")
	}
}

type flushRecorder struct {
	strings.Builder
	flushes int
}

func (f *flushRecorder) Flush() error {
	f.flushes++
	return nil
}
