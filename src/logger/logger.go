package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"market-gateway/src/models"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	baseMu sync.RWMutex
	base   = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
)

// -----------------------------------------------------------------------------

// Init configures the process-wide output (level, format, rotating file).
// Loggers created before Init keep their previous output.
func Init(cfg *models.MConfig) error {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	var console io.Writer = os.Stdout
	if !strings.EqualFold(cfg.LogFormat, "json") {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}
	writers := []io.Writer{console}

	if cfg.LogFile.Enabled {
		if err := os.MkdirAll(cfg.LogFile.Path, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogFile.Path, "gateway.log"),
			MaxSize:    cfg.LogFile.MaxSizeMB,
			MaxAge:     cfg.LogFile.MaxAgeDays,
			MaxBackups: 10,
			Compress:   true,
		})
	}

	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.Name).
		Logger()

	baseMu.Lock()
	base = l
	baseMu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

// ParseLevel accepts DEBUG/INFO/WARNING/ERROR in any case. Empty means INFO.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel, nil
	case "WARNING":
		return zerolog.WarnLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// -----------------------------------------------------------------------------

// Logger provides structured logging functionality
type Logger struct {
	name   string
	logger zerolog.Logger
}

// -----------------------------------------------------------------------------

// NewLogger returns a component logger on the output configured by Init.
func NewLogger(name string) *Logger {
	baseMu.RLock()
	parent := base
	baseMu.RUnlock()

	return &Logger{
		name:   name,
		logger: parent.With().Str("component", name).Logger(),
	}
}

// -----------------------------------------------------------------------------

// NewLoggerTo writes to w only. Used where output must be captured.
func NewLoggerTo(w io.Writer, name string) *Logger {
	return &Logger{
		name:   name,
		logger: zerolog.New(w).With().Str("component", name).Logger(),
	}
}

// -----------------------------------------------------------------------------

func (l *Logger) Name() string {
	return l.name
}

// Zerolog exposes the underlying logger for structured fields.
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.logger
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debug().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Info().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Error().Msg(fmt.Sprintf(format, args...))
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.Fatal().Msg(fmt.Sprintf(format, args...))
}
