// Package logger provides the bot's logging system built on logrus.
// Entries go to the console with colors, to log files and, for configured
// levels, to Discord webhooks.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m"
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	case LevelSuccess:
		return "\033[32m"
	case LevelInfo:
		return "\033[36m"
	case LevelDebug:
		return "\033[35m"
	case LevelSystem:
		return "\033[34m"
	default:
		return colorReset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000
	case LevelWarn:
		return 0xFFFF00
	case LevelSuccess:
		return 0x00FF00
	case LevelInfo:
		return 0x0000FF
	case LevelDebug:
		return 0x800080
	case LevelSystem:
		return 0x808080
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps our levels onto logrus severities. Critical uses
// FatalLevel through Entry.Log, which never exits the process.
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical:
		return logrus.FatalLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelSuccess, LevelInfo:
		return logrus.InfoLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

const colorReset = "\033[0m"

// Keys reserved in entry data for the level and prefix.
const (
	levelKey  = "warnbot_level"
	prefixKey = "prefix"
)

// Fields is structured context attached to a log line.
type Fields = logrus.Fields

// Logger is the main logging structure
type Logger struct {
	logrus *logrus.Logger
	files  *fileHook
}

var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(errorWebhook, logsWebhook string) *Logger {
	once.Do(func() {
		logger = NewLogger(errorWebhook, logsWebhook)
	})
	return logger
}

// Get returns the global logger instance
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger("", "")
	})
	return logger
}

// NewLogger creates a logger writing to the console, logs/combined.log,
// logs/error.log and the given webhooks (empty URLs disable them).
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	l := &Logger{logrus: logrus.New()}

	l.logrus.SetLevel(logrus.TraceLevel)
	l.logrus.SetOutput(os.Stdout)
	l.logrus.SetFormatter(&lineFormatter{colors: true})

	logsDir := filepath.Join(".", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Printf("Error creating logs directory: %v\n", err)
	}

	files, err := newFileHook(filepath.Join(logsDir, "combined.log"), filepath.Join(logsDir, "error.log"))
	if err != nil {
		fmt.Printf("Error opening log files: %v\n", err)
	}
	if files != nil {
		l.files = files
		l.logrus.AddHook(files)
	}

	if errorWebhook != "" || logsWebhook != "" {
		l.logrus.AddHook(newWebhookHook(errorWebhook, logsWebhook))
	}

	return l
}

// Close closes the log files
func (l *Logger) Close() {
	if l.files != nil {
		l.files.Close()
	}
}

func (l *Logger) log(level LogLevel, message, prefix string, fields Fields) {
	data := make(Fields, len(fields)+2)
	for k, v := range fields {
		data[k] = v
	}
	data[levelKey] = level
	data[prefixKey] = prefix
	l.logrus.WithFields(data).Log(level.logrusLevel(), message)
}

// With returns an entry that attaches fields to every line it logs.
func (l *Logger) With(fields Fields) *Entry {
	return &Entry{logger: l, fields: fields}
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) { l.log(LevelCritical, message, prefix, nil) }

// Error logs an error message
func (l *Logger) Error(message string, prefix string) { l.log(LevelError, message, prefix, nil) }

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) { l.log(LevelWarn, message, prefix, nil) }

// Success logs a success message
func (l *Logger) Success(message string, prefix string) { l.log(LevelSuccess, message, prefix, nil) }

// Info logs an info message
func (l *Logger) Info(message string, prefix string) { l.log(LevelInfo, message, prefix, nil) }

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) { l.log(LevelDebug, message, prefix, nil) }

// System logs a system message
func (l *Logger) System(message string, prefix string) { l.log(LevelSystem, message, prefix, nil) }

// Entry is a logger bound to a set of fields.
type Entry struct {
	logger *Logger
	fields Fields
}

// With merges more fields into a copy of the entry.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{logger: e.logger, fields: merged}
}

func (e *Entry) Critical(message, prefix string) { e.logger.log(LevelCritical, message, prefix, e.fields) }
func (e *Entry) Error(message, prefix string)    { e.logger.log(LevelError, message, prefix, e.fields) }
func (e *Entry) Warn(message, prefix string)     { e.logger.log(LevelWarn, message, prefix, e.fields) }
func (e *Entry) Success(message, prefix string)  { e.logger.log(LevelSuccess, message, prefix, e.fields) }
func (e *Entry) Info(message, prefix string)     { e.logger.log(LevelInfo, message, prefix, e.fields) }
func (e *Entry) Debug(message, prefix string)    { e.logger.log(LevelDebug, message, prefix, e.fields) }

// Package-level functions for convenience

// Critical logs a critical message using the global logger
func Critical(message string, prefix string) { Get().Critical(message, prefix) }

// Error logs an error message using the global logger
func Error(message string, prefix string) { Get().Error(message, prefix) }

// Warn logs a warning message using the global logger
func Warn(message string, prefix string) { Get().Warn(message, prefix) }

// Success logs a success message using the global logger
func Success(message string, prefix string) { Get().Success(message, prefix) }

// Info logs an info message using the global logger
func Info(message string, prefix string) { Get().Info(message, prefix) }

// Debug logs a debug message using the global logger
func Debug(message string, prefix string) { Get().Debug(message, prefix) }

// System logs a system message using the global logger
func System(message string, prefix string) { Get().System(message, prefix) }

// With returns an entry on the global logger.
func With(fields Fields) *Entry { return Get().With(fields) }
