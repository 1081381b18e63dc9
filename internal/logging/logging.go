// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"speedlog/internal/config"
)

// Setup applies cfg to logger and returns a closer for any log file opened.
// Output goes to stderr unless cfg.File is set, in which case it is rotated
// by lumberjack.
func Setup(logger *log.Logger, cfg config.LogConfig) (io.Closer, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)

	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
		tty              = isTerminal(os.Stderr)
	)
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out, closer, tty = lj, lj, false
	}
	logger.SetOutput(out)
	logger.SetFormatter(formatter(cfg.Format, tty))

	return closer, nil
}

func formatter(format string, tty bool) log.Formatter {
	if format == "json" || (format == "auto" && !tty) {
		return &log.JSONFormatter{}
	}
	return &log.TextFormatter{
		FullTimestamp: true,
		DisableColors: !tty,
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
