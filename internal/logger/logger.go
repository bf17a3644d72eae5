package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aegis-sec/aegisfim/internal/config"
)

// New creates a zerolog logger from the log configuration. Console output goes
// to stderr; file output rotates via lumberjack. The standard log package is
// redirected into the returned logger.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Logger{}, err
	}

	var writers []io.Writer
	writers = append(writers, createConsoleWriter(cfg.LogFormat))

	if cfg.LogFile != "" {
		fileWriter, err := createFileWriter(cfg)
		if err != nil {
			return zerolog.Logger{}, err
		}
		writers = append(writers, fileWriter)
	}

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).Level(level).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(level)
	stdlog.SetOutput(logger)
	stdlog.SetFlags(0)

	return logger, nil
}

func parseLevel(levelStr string) (zerolog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "fatal":
		return zerolog.FatalLevel, nil
	case "panic":
		return zerolog.PanicLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level '%s'", levelStr)
	}
}
