// Package logging configures the shared logrus logger for the CLI and the
// client components. Interactive runs log to stderr; with a file path set
// the log additionally rotates through lumberjack so long-lived watch
// sessions don't grow without bound.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure the logger.
type Options struct {
	Level   string // debug, info, warn, error; default info
	File    string // rotating log file path; empty logs to stderr only
	Verbose bool   // shorthand for Level=debug
}

// New builds a configured logger. Invalid levels fall back to info.
func New(opts Options) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	level := opts.Level
	if opts.Verbose {
		level = "debug"
	}
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	var out io.Writer = os.Stderr
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, rotated)
	}
	log.SetOutput(out)
	return log
}
