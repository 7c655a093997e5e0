package logger

import "os"

// LevelEnv is the environment variable holding the level of the package
// default logger, e.g. CO2MON_LOG_LEVEL=debug. Unset or unknown values
// select InfoLevel.
const LevelEnv = "CO2MON_LOG_LEVEL"

var defLogger = newDefaultLogger()

// newDefaultLogger builds the logger components fall back to before a
// command installs its own with SetLogger. Records carry the "app" key so
// device and host tool output can be told apart in a shared journal.
func newDefaultLogger() Logger {
	level, err := ParseLevel(os.Getenv(LevelEnv))
	if err != nil {
		level = InfoLevel
	}

	return NewSlog(level, false).With("app", "co2mon")
}

func Debug(msg string, keysAndValues ...any) {
	defLogger.Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	defLogger.Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	defLogger.Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	defLogger.Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	defLogger.Fatal(msg, keysAndValues...)
}

// SetLevel changes the level of the package-level logger.
func SetLevel(level Level) {
	defLogger.SetLevel(level)
}

// GetLogger returns the package-level logger. Components fall back to it when
// no logger is configured.
func GetLogger() Logger {
	return defLogger
}

// SetLogger replaces the package-level logger. A nil logger is ignored.
func SetLogger(l Logger) {
	if l != nil {
		defLogger = l
	}
}

func With(keyValues ...any) Logger {
	return defLogger.With(keyValues...)
}
