package logger

import "sync/atomic"

var defLogger atomic.Pointer[loggerBox]

type loggerBox struct{ Logger }

func init() {
	defLogger.Store(&loggerBox{NewSlog(InfoLevel, false)})
}

func current() Logger {
	return defLogger.Load().Logger
}

func Debug(msg string, keysAndValues ...any) {
	current().Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	current().Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	current().Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	current().Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	current().Fatal(msg, keysAndValues...)
}

func SetLevel(level Level) {
	current().SetLevel(level)
}

// GetLogger returns the process-wide default logger.
func GetLogger() Logger {
	return current()
}

// SetLogger replaces the process-wide default logger. A nil l is ignored.
func SetLogger(l Logger) {
	if l == nil {
		return
	}
	defLogger.Store(&loggerBox{l})
}

func With(keyValues ...any) Logger {
	return current().With(keyValues...)
}
