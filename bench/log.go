package bench

import (
	"io"
	"os"
	"strings"

	"github.com/arloliu/go-benchio/logger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the logger described by cfg. The returned closer releases
// the log file, if any, and must be called once logging is done.
func NewLogger(cfg LogConfig) (logger.Logger, io.Closer, error) {
	level, err := logger.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.File.Path != "" {
		f, err := logger.NewRotatingWriter(logger.FileConfig{
			Path:       cfg.File.Path,
			MaxSizeMB:  cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAgeDays: cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
		if err != nil {
			return nil, nil, err
		}
		w, closer = f, f
	}

	if strings.EqualFold(cfg.Backend, "zap") {
		return logger.NewZap(w, level, cfg.Console), closer, nil
	}
	if cfg.Console {
		return logger.NewConsoleSlog(w, level), closer, nil
	}

	return logger.NewSlogWithWriter(w, level, false), closer, nil
}
