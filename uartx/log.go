package uartx

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentDevice  Component = "device"
	ComponentConfig  Component = "config"
	ComponentIRQ     Component = "irq"
	ComponentChannel Component = "channel"
)

// LogFormat specifies the output format for logging.
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
)

var (
	// DefaultLogger is used by every Device created without WithLogger.
	DefaultLogger *slog.Logger

	logLevel = new(slog.LevelVar)
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetLogLevel sets the minimum level of the default logger.
func SetLogLevel(level slog.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logLevel.Set(level)
}

// GetLogLevel returns the minimum level of the default logger.
func GetLogLevel() slog.Level {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return logLevel.Level()
}

// SetLogger replaces the default logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// SetLogFormat rebuilds the default logger on os.Stderr in the given format.
func SetLogFormat(format LogFormat) {
	SetLogger(NewLogger(os.Stderr, format))
}

// NewLogger returns a logger writing to w that honours SetLogLevel.
func NewLogger(w io.Writer, format LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (d *Device) logger() *slog.Logger {
	if d.opts.logger != nil {
		return d.opts.logger
	}
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

func (d *Device) logDebug(c Component, msg string, args ...any) {
	d.logger().Debug(msg, d.logArgs(c, args)...)
}

func (d *Device) logInfo(c Component, msg string, args ...any) {
	d.logger().Info(msg, d.logArgs(c, args)...)
}

func (d *Device) logWarn(c Component, msg string, args ...any) {
	d.logger().Warn(msg, d.logArgs(c, args)...)
}

func (d *Device) logArgs(c Component, args []any) []any {
	return append([]any{"component", string(c), "chip", d.chip.name(), "base", d.port.Base()}, args...)
}
