// Package logging wires the process's log output through dragonboat's
// logger.ILogger registry, adapted from the precursor project's RPC
// logger. dragonboat is otherwise unused here (there is no Raft group in
// this server), but its pluggable logging facade is a convenient way to
// hang leveled, per-component logging without reaching for the standard
// library's bare log.Logger.
package logging

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

type serverLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *serverLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *serverLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *serverLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *serverLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *serverLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *serverLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

func (l *serverLogger) log(levelStr, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-8s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

func newLogger(name string) logger.ILogger {
	return &serverLogger{
		name:   name,
		level:  logger.INFO,
		logger: log.New(os.Stderr, "", log.Ldate|log.Ltime),
	}
}

// components lists the loggers other packages pull via logger.GetLogger.
var components = []string{"engine", "store", "command", "workerpool"}

// Init registers the logger factory and sets every component's level from
// levelName ("debug", "info", "warn", or "error"). Call once at startup.
func Init(levelName string) {
	logger.SetLoggerFactory(newLogger)
	level := parseLevel(levelName)
	for _, name := range components {
		logger.GetLogger(name).SetLevel(level)
	}
}

func parseLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG
	case "warning", "warn":
		return logger.WARNING
	case "error":
		return logger.ERROR
	default:
		return logger.INFO
	}
}

// Get returns the named component logger, initializing it with Init's
// registered factory (or the dragonboat default if Init was never
// called).
func Get(name string) logger.ILogger {
	return logger.GetLogger(name)
}
