package logger

import (
	"io"
	"log/slog"
	"os"
)

var (
	log   *slog.Logger
	level = new(slog.LevelVar)
)

func init() {
	SetDebug(os.Getenv("ROSTER_DEBUG") == "true")
	SetOutput(os.Stderr)
}

// SetDebug switches debug lines on or off for every handler. Commands call it
// once the environment, including any .env file, has been loaded.
func SetDebug(on bool) {
	if on {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// SetOutput redirects log lines, e.g. to a file so they do not interleave
// with the interactive menu.
func SetOutput(w io.Writer) {
	opts := &slog.HandlerOptions{Level: level}
	log = slog.New(slog.NewTextHandler(w, opts))
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

func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}
