// Package logger - структурированное логирование на базе zerolog.
// JSON в production, читаемый вывод с цветами для локальной разработки.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// log - процессный логгер. Настраивается через Init в main каждого сервиса.
var log zerolog.Logger

// Config - параметры логгера.
type Config struct {
	Level   string    // debug | info | warn | error
	Pretty  bool      // ConsoleWriter вместо JSON
	Service string    // добавляется полем service в каждую запись
	Output  io.Writer // по умолчанию os.Stdout
}

func init() {
	// До вызова Init пишем info в JSON, чтобы ранние ошибки конфигурации не терялись.
	Init(Config{Level: "info"})
}

// Init перенастраивает процессный логгер.
func Init(cfg Config) {
	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := parseLevel(cfg.Level)

	lc := zerolog.New(out).Level(level).With().Timestamp().Caller()
	if cfg.Service != "" {
		lc = lc.Str("service", cfg.Service)
	}
	log = lc.Logger()

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// parseLevel возвращает InfoLevel для неизвестных значений.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug создаёт событие уровня debug.
func Debug() *zerolog.Event { return log.Debug() }

// Info создаёт событие уровня info.
func Info() *zerolog.Event { return log.Info() }

// Warn создаёт событие уровня warn.
func Warn() *zerolog.Event { return log.Warn() }

// Error создаёт событие уровня error.
func Error() *zerolog.Event { return log.Error() }

// Fatal пишет событие и завершает процесс с кодом 1 после Msg().
func Fatal() *zerolog.Event { return log.Fatal() }

// With возвращает контекст для построения дочернего логгера:
//
//	sweepLog := logger.With().Str("component", "outbox").Logger()
func With() zerolog.Context { return log.With() }

// Logger возвращает копию процессного логгера.
func Logger() zerolog.Logger { return log }
