package handlers

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

const (
	LOG_LEVEL_ERROR   = "ERROR"
	LOG_LEVEL_WARNING = "WARNING"
	LOG_LEVEL_INFO    = "INFO"
	LOG_LEVEL_DEBUG   = "DEBUG"

	LOG_FORMAT_AUTO = "auto"
	LOG_FORMAT_TEXT = "text"
	LOG_FORMAT_JSON = "json"
)

func parseLevel(logLevel string) slog.Level {
	switch strings.ToUpper(logLevel) {
	case LOG_LEVEL_ERROR:
		return slog.LevelError
	case LOG_LEVEL_WARNING, "WARN":
		return slog.LevelWarn
	case LOG_LEVEL_INFO:
		return slog.LevelInfo
	case LOG_LEVEL_DEBUG:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger.  The auto format is text on a
// terminal and JSON otherwise.
func newLogger(w io.Writer, logLevel, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	}

	var handler slog.Handler

	switch strings.ToLower(format) {
	case LOG_FORMAT_JSON:
		handler = slog.NewJSONHandler(w, opts)
	case LOG_FORMAT_TEXT:
		handler = slog.NewTextHandler(w, opts)
	default:
		if isTerminal(w) {
			handler = slog.NewTextHandler(w, opts)
		} else {
			handler = slog.NewJSONHandler(w, opts)
		}
	}

	return slog.New(handler)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
