package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/reflow/truncate"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"pkt.systems/streamdown"
	"pkt.systems/streamdown/internal/logutil"
	"pkt.systems/version"
)

const (
	defaultChunkSize = 3
	defaultDelay     = 20 * time.Millisecond
	defaultLogWidth  = 80
)

var logger = logutil.GetLogger("[cli] ")

func init() {
	version.SetDefaultModule("pkt.systems/streamdown")
}

func main() {
	var (
		opts       options
		configPath string
	)
	flags := pflag.NewFlagSet("streamdown", pflag.ExitOnError)
	flags.BoolVar(&opts.simulate, "simulate", false, "Replay input in small delayed chunks")
	flags.IntVar(&opts.chunkSize, "simulate-chunk", defaultChunkSize, "Runes per replayed chunk")
	flags.DurationVar(&opts.delay, "simulate-delay", defaultDelay, "Delay per replayed chunk")
	flags.StringVarP(&opts.outPath, "output", "o", "", "Output file instead of stdout")
	flags.StringVar(&opts.listen, "serve", "", "Serve Markdown files from the input directory as HTML on this address")
	flags.BoolVar(&opts.headingIDs, "heading-ids", false, "Add slug id attributes to headings")
	flags.StringVar(&opts.languagePrefix, "language-prefix", streamdown.DefaultLanguagePrefix, "Class prefix for fenced code languages")
	flags.BoolVar(&opts.frontMatter, "front-matter", false, "Strip a leading front matter block")
	flags.StringVar(&configPath, "config", "", "YAML config file")
	flags.StringVar(&opts.logPath, "log", "", "Append logs to this file")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every fragment to stderr")

	flags.SetInterspersed(true)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, version.Module(), version.Current())
		fmt.Fprintf(os.Stderr, "Usage: streamdown [flags] [inputs...]\n")
		fmt.Fprintln(os.Stderr, "\nIf no input is provided, Markdown is read from stdin.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if configPath != "" {
		cfg, err := loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
		if err := cfg.apply(flags, &opts); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
	}
	if opts.chunkSize <= 0 {
		fmt.Fprintln(os.Stderr, "--simulate-chunk must be > 0")
		os.Exit(2)
	}

	switch {
	case opts.logPath != "":
		if err := logutil.SetOutputFile(normalizePath(opts.logPath)); err != nil {
			fmt.Fprintf(os.Stderr, "open log: %v\n", err)
			os.Exit(1)
		}
	case opts.verbose:
		logutil.SetOutput(os.Stderr)
	}

	if opts.listen != "" {
		if err := serve(opts, flags.Args()); err != nil {
			fmt.Fprintf(os.Stderr, "serve: %v\n", err)
			os.Exit(1)
		}
		return
	}

	args := flags.Args()
	if len(args) == 0 && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "reading Markdown from stdin, end with Ctrl-D")
	}
	reader, closer, err := openInputs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		os.Exit(1)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	writer, closeOut, err := resolveOutput(opts.outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open output: %v\n", err)
		os.Exit(1)
	}
	if closeOut != nil {
		defer func() { _ = closeOut.Close() }()
	}

	sink := streamdown.NewWriterSink(writer)
	if opts.verbose {
		sink = &loggingSink{next: sink, width: logWidth(defaultLogWidth)}
	}
	if err := run(reader, sink, opts); err != nil {
		fmt.Fprintf(os.Stderr, "render: %v\n", err)
		os.Exit(1)
	}
}

func run(r io.Reader, sink streamdown.Sink, opts options) error {
	if opts.simulate {
		return streamdown.Replay(streamdown.ReplayRequest{
			Reader:    r,
			Sink:      sink,
			ChunkSize: opts.chunkSize,
			Delay:     opts.delay,
			Options:   opts.converterOptions(),
		})
	}
	return streamdown.Parse(streamdown.ParseRequest{
		Reader:  r,
		Sink:    sink,
		Options: opts.converterOptions(),
	})
}

func (o options) converterOptions() []streamdown.Option {
	return []streamdown.Option{
		streamdown.WithLanguagePrefix(o.languagePrefix),
		streamdown.WithHeadingIDs(o.headingIDs),
		streamdown.WithFrontMatter(o.frontMatter),
	}
}

func serve(opts options, args []string) error {
	root := "."
	switch len(args) {
	case 0:
	case 1:
		root = args[0]
	default:
		return fmt.Errorf("expected at most one directory, got %d", len(args))
	}
	info, err := os.Stat(normalizePath(root))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	srv := &http.Server{
		Addr: opts.listen,
		Handler: streamdown.NewHandler(streamdown.HandlerRequest{
			Open:    markdownSource(normalizePath(root)),
			Options: opts.converterOptions(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	fmt.Fprintf(os.Stderr, "serving %s on %s\n", root, opts.listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// markdownSource maps a request path to a Markdown file under root. A path
// ending in a slash serves index.md; a missing .md suffix is added.
func markdownSource(root string) func(*http.Request) (io.ReadCloser, error) {
	dir := http.Dir(root)
	return func(r *http.Request) (io.ReadCloser, error) {
		name := path.Clean("/" + r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.md")
		} else if !strings.HasSuffix(name, ".md") {
			name += ".md"
		}
		f, err := dir.Open(name)
		if err != nil {
			return nil, err
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if info.IsDir() {
			_ = f.Close()
			return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
		}
		return f, nil
	}
}

// loggingSink logs every fragment, cut to the terminal width, before passing
// it on.
type loggingSink struct {
	next  streamdown.Sink
	width int
	count int
}

func (s *loggingSink) WriteFragment(html string) error {
	s.count++
	line := strings.ReplaceAll(html, "\n", `\n`)
	logger.Printf("fragment %d (%d bytes): %s", s.count, len(html), truncate.StringWithTail(line, uint(s.width), "…"))
	return s.next.WriteFragment(html)
}

func (s *loggingSink) Done() error {
	logger.Printf("done after %d fragments", s.count)
	return s.next.Done()
}

func logWidth(fallback int) int {
	fd := int(os.Stderr.Fd())
	if term.IsTerminal(fd) {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	if value := os.Getenv("COLUMNS"); value != "" {
		if w, err := strconv.Atoi(value); err == nil && w > 0 {
			return w
		}
	}
	return fallback
}

type inputSource struct {
	open func() (io.Reader, io.Closer, error)
}

type multiInputReader struct {
	sources   []inputSource
	idx       int
	cur       io.Reader
	curCloser io.Closer
	closed    bool
}

func (m *multiInputReader) Read(p []byte) (int, error) {
	for {
		if m.closed {
			return 0, io.EOF
		}
		if m.cur == nil {
			if m.idx >= len(m.sources) {
				m.closed = true
				return 0, io.EOF
			}
			reader, closer, err := m.sources[m.idx].open()
			if err != nil {
				return 0, err
			}
			m.cur = reader
			m.curCloser = closer
			m.idx++
		}
		n, err := m.cur.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == io.EOF {
			if m.curCloser != nil {
				_ = m.curCloser.Close()
			}
			m.cur = nil
			m.curCloser = nil
			continue
		}
		if err != nil {
			return 0, err
		}
	}
}

func (m *multiInputReader) Close() error {
	m.closed = true
	if m.curCloser != nil {
		return m.curCloser.Close()
	}
	return nil
}

func openInputs(args []string) (io.Reader, io.Closer, error) {
	if len(args) == 0 {
		return os.Stdin, nil, nil
	}
	sources := make([]inputSource, 0, len(args))
	for _, raw := range args {
		src, err := makeInputSource(raw)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}
	m := &multiInputReader{sources: sources}
	return m, m, nil
}

func makeInputSource(raw string) (inputSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return inputSource{}, fmt.Errorf("empty input argument")
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return inputSource{open: func() (io.Reader, io.Closer, error) {
				return openURL(raw)
			}}, nil
		case "file":
			p := u.Path
			if p == "" {
				p = u.Host
			}
			if unescaped, err := url.PathUnescape(p); err == nil {
				p = unescaped
			}
			return inputSource{open: func() (io.Reader, io.Closer, error) {
				return openFile(p)
			}}, nil
		}
	}
	return inputSource{open: func() (io.Reader, io.Closer, error) {
		return openFile(raw)
	}}, nil
}

func openURL(raw string) (io.Reader, io.Closer, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, raw, nil)
	if err != nil {
		return nil, nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("http %s: %s", raw, resp.Status)
	}
	return resp.Body, resp.Body, nil
}

func openFile(p string) (io.Reader, io.Closer, error) {
	f, err := os.Open(normalizePath(p))
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func resolveOutput(p string) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(p) == "" {
		return os.Stdout, nil, nil
	}
	clean := normalizePath(p)
	dir := filepath.Dir(clean)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func normalizePath(p string) string {
	if strings.HasPrefix(p, "~/") || p == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			if p == "~" {
				p = home
			} else {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	abs, err := filepath.Abs(p)
	if err == nil {
		return abs
	}
	return p
}
