package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"keepalive/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init builds the process logger. Production writes JSON, development a
// colored console. When log.file is set, output is duplicated to a rotating
// file.
func Init(cfg *config.Config) *zerolog.Logger {
	zerolog.SetGlobalLevel(levelFor(cfg))

	var console io.Writer
	if cfg.IsProduction() {
		console = os.Stdout
	} else {
		console = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
			PartsOrder: []string{
				"time", "level", "caller", "service", "env", "message", "err",
			},
			FormatLevel: func(i any) string {
				return strings.ToUpper(fmt.Sprintf("[%s]", i))
			},
			FormatCaller: func(caller any) string {
				return fmt.Sprintf("(%s)", caller)
			},
		}
	}

	out := console
	if cfg.Log.File != "" {
		out = zerolog.MultiLevelWriter(console, newFileSink(cfg.Log))
	}

	baseLogger := zerolog.New(out).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("env", cfg.Env).
		Logger()

	// caller info only for dev
	if !cfg.IsProduction() {
		baseLogger = baseLogger.With().Caller().Logger()
	}

	log.Logger = baseLogger

	return &baseLogger
}

func newFileSink(cfg config.LogConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
}

func levelFor(cfg *config.Config) zerolog.Level {
	if cfg.Log.Level != "" {
		if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
			return lvl
		}
	}
	if cfg.IsProduction() {
		return zerolog.InfoLevel
	}
	return zerolog.DebugLevel
}
