package slogutil

import (
	"io"
	"log/slog"

	"gitnet/internal/config"
)

// Options selects where a command's logger writes.
type Options struct {
	// Console receives interactive output, usually stderr. Nil disables it.
	Console      io.Writer
	ConsoleLevel slog.Level
	// File overrides cfg.Logging.File when non-empty.
	File string
}

// FromConfig builds the process logger: a console handler at the CLI's
// level plus, when a log file is configured, a rotating file at the
// configured level and format. The returned closer releases the file.
func FromConfig(cfg *config.Config, opts Options) (*slog.Logger, io.Closer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	var handlers []slog.Handler
	if opts.Console != nil {
		handlers = append(handlers, NewConsoleHandler(opts.Console, opts.ConsoleLevel))
	}

	var closer io.Closer = nopCloser{}
	path := opts.File
	if path == "" {
		path = cfg.Logging.File
	}
	if path != "" {
		rf, err := OpenRotatingFile(path, int64(cfg.Logging.MaxSizeMB)*1024*1024, cfg.Logging.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		closer = rf
		fileOpts := &slog.HandlerOptions{Level: LevelFromString(cfg.Logging.Level)}
		if cfg.Logging.Format == "json" {
			handlers = append(handlers, slog.NewJSONHandler(rf, fileOpts))
		} else {
			handlers = append(handlers, NewHandler(rf, fileOpts))
		}
	}

	switch len(handlers) {
	case 0:
		return NewDiscardLogger(), closer, nil
	case 1:
		return slog.New(handlers[0]), closer, nil
	default:
		return slog.New(NewTeeHandler(handlers...)), closer, nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
