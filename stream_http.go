package streamdown

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
)

// HTTPRenderRequest configures HTTPRender.
type HTTPRenderRequest struct {
	URL     string
	Client  *http.Client
	Writer  io.Writer
	Options []Option
}

// HTTPRender fetches Markdown over HTTP(S) and streams HTML to Writer.
func HTTPRender(ctx context.Context, req HTTPRenderRequest) error {
	if req.URL == "" {
		return fmt.Errorf("stream http: URL is required")
	}
	if req.Writer == nil {
		return fmt.Errorf("stream http: Writer is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client := req.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return fmt.Errorf("stream http: build request: %w", err)
	}
	if httpReq.URL.Scheme != "http" && httpReq.URL.Scheme != "https" {
		return fmt.Errorf("stream http: unsupported scheme %q", httpReq.URL.Scheme)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("stream http: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("stream http: status %s", resp.Status)
	}
	return Render(RenderRequest{
		Reader:  resp.Body,
		Writer:  req.Writer,
		Options: req.Options,
	})
}

// DefaultContentType is served by NewHandler when HandlerRequest.ContentType
// is empty.
const DefaultContentType = "text/html; charset=utf-8"

// HandlerRequest configures NewHandler.
type HandlerRequest struct {
	// Open returns the Markdown source for a request. An error wrapping
	// fs.ErrNotExist is answered with 404.
	Open        func(*http.Request) (io.ReadCloser, error)
	Options     []Option
	ContentType string
}

// NewHandler serves converted HTML, flushing every fragment to the client as
// soon as it is produced.
func NewHandler(req HandlerRequest) http.Handler {
	contentType := req.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if req.Open == nil {
			http.Error(w, "no source", http.StatusInternalServerError)
			return
		}
		src, err := req.Open(r)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			logger.Printf("serve %s: open: %v", r.URL.Path, err)
			http.Error(w, "open source", http.StatusInternalServerError)
			return
		}
		defer src.Close()
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		err = Parse(ParseRequest{
			Reader:  &contextReader{ctx: r.Context(), r: src},
			Sink:    newFlushingSink(w),
			Options: req.Options,
		})
		if err != nil {
			logger.Printf("serve %s: %v", r.URL.Path, err)
		}
	})
}

// contextReader stops reading once ctx is done so that a disconnected client
// ends the conversion.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
