package streamdown

import (
	"bufio"
	"fmt"
	"io"
	"time"
	"unicode/utf8"
)

// ReplayRequest configures Replay.
type ReplayRequest struct {
	Reader    io.Reader
	Sink      Sink
	ChunkSize int
	Delay     time.Duration
	Options   []Option
}

// Replay reads Markdown from Reader and feeds it to a Converter ChunkSize
// runes at a time, sleeping Delay between chunks. It simulates text arriving
// token by token from a generator.
func Replay(req ReplayRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("replay: Reader is nil")
	}
	if req.Sink == nil {
		return fmt.Errorf("replay: Sink is nil")
	}
	if req.ChunkSize <= 0 {
		return fmt.Errorf("replay: ChunkSize must be > 0")
	}
	conv := New(req.Sink, req.Options...)
	reader := readerPool.Get().(*bufio.Reader)
	reader.Reset(req.Reader)
	defer func() {
		reader.Reset(nil)
		readerPool.Put(reader)
	}()
	var smallBuf [256]byte
	buf := smallBuf[:0]
	runes := 0
	for {
		r, size, err := reader.ReadRune()
		if err != nil {
			if err == io.EOF {
				break
			}
			conv.abort()
			return fmt.Errorf("replay: read: %w", err)
		}
		if r == utf8.RuneError && size == 1 {
			continue
		}
		buf = utf8.AppendRune(buf, r)
		runes++
		if runes < req.ChunkSize {
			continue
		}
		if err := replayChunk(conv, buf, req.Delay); err != nil {
			conv.abort()
			return err
		}
		buf = buf[:0]
		runes = 0
	}
	if len(buf) > 0 {
		if err := replayChunk(conv, buf, req.Delay); err != nil {
			conv.abort()
			return err
		}
	}
	if err := conv.Close(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	return nil
}

func replayChunk(conv *Converter, chunk []byte, delay time.Duration) error {
	if delay > 0 {
		time.Sleep(delay)
	}
	if _, err := conv.Write(chunk); err != nil {
		return fmt.Errorf("replay: write: %w", err)
	}
	return nil
}
