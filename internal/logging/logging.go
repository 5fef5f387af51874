// Package logging builds the leveled logger shared by the pipeline stages.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New
type Options struct {
	Verbose    bool
	Prefix     string
	Console    io.Writer // defaults to os.Stderr
	File       string    // optional rotating log file
	MaxSizeMB  int
	MaxBackups int
}

// Logger bundles the logger with the file sink that must be closed on exit
type Logger struct {
	*log.Logger
	file io.Closer
}

// New creates a logger writing to the console and, when configured, also to
// a size-rotated file. With a file attached the console output is uncolored.
func New(opts Options) (*Logger, error) {
	var out io.Writer = opts.Console
	if out == nil {
		out = os.Stderr
	}

	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}

	var rotator *lumberjack.Logger
	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		rotator = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			LocalTime:  true,
		}
		out = io.MultiWriter(out, rotator)
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          opts.Prefix,
	})

	l := &Logger{Logger: logger}
	if rotator != nil {
		l.file = rotator
	}
	return l, nil
}

// Close closes the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Discard returns a logger that drops everything, for tests and quiet tools
func Discard() *log.Logger {
	return log.New(io.Discard)
}
