// Package logger is a thin slog facade. Verbose mode writes debug and above
// to stderr; otherwise only errors are emitted.
package logger

import (
	"log/slog"
	"os"
)

var (
	log    = slog.New(slog.DiscardHandler)
	errLog = newStderrLogger(slog.LevelError)
)

func newStderrLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Init configures the package logger for the rest of the process
func Init(verbose bool) {
	if verbose {
		log = newStderrLogger(slog.LevelDebug)
		errLog = log
	} else {
		log = slog.New(slog.DiscardHandler)
		errLog = newStderrLogger(slog.LevelError)
	}
	slog.SetDefault(log)
}

func Debug(msg string, args ...any) {
	log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

// Error is emitted even when verbose mode is off
func Error(msg string, args ...any) {
	errLog.Error(msg, args...)
}
