package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-boards/internal/config"
)

// Logs go to stderr. Stdout carries command output such as the patch
// printed by move.
var (
	globalLogger zerolog.Logger
	logOutput    io.Writer = os.Stderr
)

func InitDefaultLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	zerolog.TimestampFieldName = "timestamp"

	globalLogger = zerolog.New(logOutput).
		With().
		Timestamp().
		Caller().
		Str("app", "go-boards").
		Int("pid", os.Getpid()).
		Logger()

	globalLogger.Debug().Msg("initialized default logger")
}

func MustInitApplicationLogger() {
	cfg := config.Global()

	level, err := envLevel(cfg.Env)
	if err != nil {
		globalLogger.Error().
			Str("env", cfg.Env).
			Msg("unknown env")
		panic(err)
	}
	zerolog.SetGlobalLevel(level)

	w := logOutput
	if cfg.Env == config.EnvLocal {
		w = consoleWriter(logOutput)
	}
	globalLogger = globalLogger.Output(w)
	globalLogger.Info().
		Str("level", level.String()).
		Msg("initialized application logger")
}

// InitCLILogger switches to a human readable logger for the client
// commands, which have no server env to read.
func InitCLILogger(verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	globalLogger = globalLogger.Output(consoleWriter(logOutput))
}

// Logger returns the process logger for code outside the boot sequence.
func Logger() zerolog.Logger {
	return globalLogger
}

func envLevel(env string) (zerolog.Level, error) {
	switch env {
	case config.EnvDev:
		return zerolog.DebugLevel, nil
	case config.EnvProd:
		return zerolog.InfoLevel, nil
	case config.EnvLocal:
		return zerolog.TraceLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown env: %s", env)
	}
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	w := zerolog.NewConsoleWriter()
	w.TimeFormat = time.DateTime
	w.Out = out
	return w
}
