package slogx

import (
	"fmt"
	"log/slog"
)

const (
	// KeyLoggerName is the key for the component that emitted a record.
	KeyLoggerName = "logger"
	// KeyTopic is the key for a broker topic name.
	KeyTopic = "topic"
	// KeySubscription is the key for a subscription id.
	KeySubscription = "subscription"
)

// Error returns a slog.Attr with the key "error" and the error's message as the value.
// A nil error is rendered as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Stringer creates a slog.Attr with the provided key and the string representation of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName creates a slog.Attr naming the component that logs.
//
// Parameters:
//   - name: The name of the logger.
//
// Returns:
//
//	A slog.Attr keyed by KeyLoggerName.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

// Topic creates a slog.Attr for a topic name.
func Topic(name string) slog.Attr {
	return slog.String(KeyTopic, name)
}

// Subscription creates a slog.Attr for a subscription id.
func Subscription(id string) slog.Attr {
	return slog.String(KeySubscription, id)
}

// Component returns logger with a LoggerName attribute, falling back to slog.Default when logger is nil.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(LoggerName(name))
}
