package logs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"arena/config"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Params defines the parameters required for the logger
type Params struct {
	fx.In

	Config *config.Config
}

// New builds the process logger: text output when pretty, JSON otherwise.
func New(params Params) (*slog.Logger, error) {
	logger, err := NewWithWriter(os.Stdout, params.Config.Env.Log)
	if err != nil {
		return nil, err
	}

	return logger.With(slog.String("service", serviceName(params.Config))), nil
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := parseLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Pretty {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}

	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func serviceName(cfg *config.Config) string {
	if cfg.Env.ServiceName == "" {
		return "arena"
	}

	return cfg.Env.ServiceName
}

// parseLogLevel converts string log level to slog.Level. Empty means info.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.Errorf("unknown log level: %s", level)
	}
}
