// Package logutil provides logging utilities.
package logutil

import (
	"io"
	"log"
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	out     io.Writer = io.Discard
	file    *os.File
	loggers []*log.Logger
)

// GetLogger gets a logger with a prefix. Loggers start out discarding their
// output until SetOutput or SetOutputFile is called.
func GetLogger(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()
	logger := log.New(out, prefix, log.LstdFlags)
	loggers = append(loggers, logger)
	return logger
}

// SetOutput redirects the output of all loggers obtained with GetLogger.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
	setOutput(w)
}

// SetOutputFile redirects the output of all loggers to the named file, which
// is created or appended to. An empty path discards the output.
func SetOutputFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
	if path == "" {
		setOutput(io.Discard)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		setOutput(io.Discard)
		return err
	}
	file = f
	setOutput(f)
	return nil
}

func setOutput(w io.Writer) {
	out = w
	for _, logger := range loggers {
		logger.SetOutput(w)
	}
}

func closeFile() {
	if file != nil {
		file.Close()
		file = nil
	}
}
