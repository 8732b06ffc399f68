package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields is an alias so callers don't need to import logrus directly
type Fields = logrus.Fields

var log = logrus.New()

func init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// Set log level from environment
	SetLevel(os.Getenv("DBOPS_LOG_LEVEL"))
	SetFormat(os.Getenv("DBOPS_LOG_FORMAT"))
}

// SetLevel sets the logging level by name. Unknown names fall back to info.
func SetLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	case "fatal":
		log.SetLevel(logrus.FatalLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

// SetFormat switches between "text" (default) and "json" output
func SetFormat(format string) {
	if strings.ToLower(format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
}

// Logger returns the underlying logrus logger
func Logger() *logrus.Logger {
	return log
}

// WithFields returns an entry carrying structured fields
func WithFields(fields Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Fatal logs a fatal message and exits
func Fatal(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}

// Debugf logs a debug message with formatting
func Debugf(format string, args ...interface{}) {
	Debug(format, args...)
}

// Infof logs an info message with formatting
func Infof(format string, args ...interface{}) {
	Info(format, args...)
}

// Warnf logs a warning message with formatting
func Warnf(format string, args ...interface{}) {
	Warn(format, args...)
}

// Errorf logs an error message with formatting
func Errorf(format string, args ...interface{}) {
	Error(format, args...)
}

// Fatalf logs a fatal message with formatting and exits
func Fatalf(format string, args ...interface{}) {
	Fatal(format, args...)
}
