package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// logger is a no-op until InitLogger runs, which keeps tests quiet.
var logger = zerolog.Nop()

// levelFileWriter routes each record to the daily file for its level.
type levelFileWriter struct {
	info  io.Writer
	errw  io.Writer
	debug io.Writer
}

func (w levelFileWriter) Write(p []byte) (int, error) {
	return w.info.Write(p)
}

func (w levelFileWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	switch {
	case level >= zerolog.WarnLevel:
		return w.errw.Write(p)
	case level <= zerolog.DebugLevel:
		return w.debug.Write(p)
	default:
		return w.info.Write(p)
	}
}

// InitLogger initializes the loggers
func InitLogger(env string) error {
	logsDir := "logs"
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	open := func(kind string) (*os.File, error) {
		return os.OpenFile(
			filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", kind, timestamp)),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0644,
		)
	}

	infoFile, err := open("info")
	if err != nil {
		return fmt.Errorf("failed to open info log file: %v", err)
	}
	errorFile, err := open("error")
	if err != nil {
		return fmt.Errorf("failed to open error log file: %v", err)
	}
	debugFile, err := open("debug")
	if err != nil {
		return fmt.Errorf("failed to open debug log file: %v", err)
	}

	var out zerolog.LevelWriter = levelFileWriter{info: infoFile, errw: errorFile, debug: debugFile}
	if env != "production" {
		out = zerolog.MultiLevelWriter(out, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	logger = zerolog.New(out).With().Timestamp().Caller().Logger()
	return nil
}

// Logger exposes the underlying structured logger for callers that need fields.
func Logger() *zerolog.Logger {
	return &logger
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	logger.Info().CallerSkipFrame(1).Msgf(format, v...)
}

// LogWarn logs a warning
func LogWarn(format string, v ...interface{}) {
	logger.Warn().CallerSkipFrame(1).Msgf(format, v...)
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	logger.Error().CallerSkipFrame(1).Msgf(format, v...)
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	logger.Debug().CallerSkipFrame(1).Msgf(format, v...)
}

// LogRequest logs HTTP request details
func LogRequest(method, path, ip, requestID string, status int, duration time.Duration) {
	logger.Info().
		Str("method", method).
		Str("path", path).
		Str("ip", ip).
		Str("request_id", requestID).
		Int("status", status).
		Dur("duration", duration).
		Msg("request")
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	logger.Error().Err(err).Bytes("stack", stack).Msg("panic recovered")
}
