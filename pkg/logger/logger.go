package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/socialhub/socialhub-cli/pkg/config"
)

var logger *log.Logger
var logFile *os.File

// Init initializes the logger
func Init(verbose bool) {
	level, err := log.ParseLevel(config.GetString("log.level"))
	if err != nil {
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}

	// If we can't create log file, just log to stderr
	var w io.Writer = os.Stderr
	if path := config.GetString("log.file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err == nil {
			closeFile()
			logFile = f
			w = f
		}
	}

	logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
}

// InitWriter initializes the logger against an arbitrary writer
func InitWriter(w io.Writer, level log.Level) {
	closeFile()
	logger = log.NewWithOptions(w, log.Options{Level: level})
}

func closeFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	if logger != nil {
		logger.Info(msg, args...)
	}
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	if logger != nil {
		logger.Error(msg, args...)
	}
}

// Fatal logs a fatal message and exits
func Fatal(msg string, args ...interface{}) {
	if logger != nil {
		logger.Fatal(msg, args...)
	} else {
		os.Exit(1)
	}
}

// GetLogger returns the logger instance
func GetLogger() *log.Logger {
	return logger
}
