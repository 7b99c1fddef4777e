package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a Level
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return DEBUG
	case "info", "INFO", "":
		return INFO
	case "warn", "WARN", "warning", "WARNING":
		return WARN
	case "error", "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger is a leveled logger tagged with a component name
type Logger struct {
	level     Level
	component string
	output    io.Writer
	mu        sync.Mutex
}

var (
	defaultLogger = New("info", "shikshasetu")
	defaultMu     sync.RWMutex
)

// New creates a logger at the given level for a component
func New(level, component string) *Logger {
	if component == "" {
		component = "shikshasetu"
	}
	return &Logger{
		level:     ParseLevel(level),
		component: component,
		output:    os.Stderr,
	}
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// SetLevel sets the minimum logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// WithComponent returns a new logger with a different component name
func (l *Logger) WithComponent(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	return &Logger{
		level:     l.level,
		component: component,
		output:    l.output,
	}
}

// WithRequestID returns a logger that prefixes every line with a request id
func (l *Logger) WithRequestID(requestID string) *RequestLogger {
	return &RequestLogger{logger: l, requestID: requestID}
}

func (l *Logger) log(level Level, requestID, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	var line string
	if requestID != "" {
		line = fmt.Sprintf("%s %s [%s] [%s] %s\n", timestamp, level.String(), l.component, requestID, msg)
	} else {
		line = fmt.Sprintf("%s %s [%s] %s\n", timestamp, level.String(), l.component, msg)
	}
	l.output.Write([]byte(line))
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) {
	l.log(DEBUG, "", format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...any) {
	l.log(INFO, "", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) {
	l.log(WARN, "", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.log(ERROR, "", format, args...)
}

// RequestLogger carries a request id through a single request's log lines
type RequestLogger struct {
	logger    *Logger
	requestID string
}

// Debug logs a debug message with the request id
func (rl *RequestLogger) Debug(format string, args ...any) {
	rl.logger.log(DEBUG, rl.requestID, format, args...)
}

// Info logs an info message with the request id
func (rl *RequestLogger) Info(format string, args ...any) {
	rl.logger.log(INFO, rl.requestID, format, args...)
}

// Warn logs a warning message with the request id
func (rl *RequestLogger) Warn(format string, args ...any) {
	rl.logger.log(WARN, rl.requestID, format, args...)
}

// Error logs an error message with the request id
func (rl *RequestLogger) Error(format string, args ...any) {
	rl.logger.log(ERROR, rl.requestID, format, args...)
}

// Package-level functions that use the default logger

// SetDefaultLogger sets the package-level default logger
func SetDefaultLogger(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

func getDefault() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetLevel sets the default logger's level
func SetLevel(level Level) {
	getDefault().SetLevel(level)
}

// Debug logs a debug message using the default logger
func Debug(format string, args ...any) {
	getDefault().Debug(format, args...)
}

// Info logs an info message using the default logger
func Info(format string, args ...any) {
	getDefault().Info(format, args...)
}

// Warn logs a warning message using the default logger
func Warn(format string, args ...any) {
	getDefault().Warn(format, args...)
}

// Error logs an error message using the default logger
func Error(format string, args ...any) {
	getDefault().Error(format, args...)
}
