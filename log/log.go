// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package log provides the small leveled logger used across the pecodec
// package. It follows the same Logger/Helper split as go-kratos/kratos's
// log package: a Logger only knows how to persist a flat slice of
// key-value pairs, everything else (levels, formatting, filtering) is
// layered on top.
package log

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// Level is a logging severity.
type Level int8

// Predefined logging levels, lowest to highest severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the minimal logging sink: a level plus an already-formatted
// slice of key-value pairs.
type Logger interface {
	Log(level Level, keyvals ...interface{}) error
}

// stdLogger writes to an io.Writer using the standard library logger.
type stdLogger struct {
	mu  sync.Mutex
	std *log.Logger
}

// NewStdLogger creates a Logger backed by an io.Writer.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{std: log.New(w, "", log.LstdFlags)}
}

func (l *stdLogger) Log(level Level, keyvals ...interface{}) error {
	if len(keyvals) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprint(keyvals...)
	l.std.Printf("[%s] %s", level.String(), msg)
	return nil
}

// FilterOption configures a filter Logger.
type FilterOption func(*filterLogger)

// FilterLevel sets the minimum level that passes through the filter.
func FilterLevel(level Level) FilterOption {
	return func(f *filterLogger) {
		f.level = level
	}
}

type filterLogger struct {
	logger Logger
	level  Level
}

// NewFilter wraps a Logger, dropping any record below the configured level.
func NewFilter(logger Logger, opts ...FilterOption) Logger {
	f := &filterLogger{logger: logger, level: LevelDebug}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *filterLogger) Log(level Level, keyvals ...interface{}) error {
	if level < f.level {
		return nil
	}
	return f.logger.Log(level, keyvals...)
}

// Helper adds the conventional Debug/Warn/Error call surface over a Logger.
type Helper struct {
	logger Logger
}

// NewHelper wraps a Logger with leveled convenience methods.
func NewHelper(logger Logger) *Helper {
	return &Helper{logger: logger}
}

// Debug logs at debug level.
func (h *Helper) Debug(a ...interface{}) {
	_ = h.logger.Log(LevelDebug, a...)
}

// Debugf logs a formatted message at debug level.
func (h *Helper) Debugf(format string, a ...interface{}) {
	_ = h.logger.Log(LevelDebug, fmt.Sprintf(format, a...))
}

// Warn logs at warn level.
func (h *Helper) Warn(a ...interface{}) {
	_ = h.logger.Log(LevelWarn, a...)
}

// Warnf logs a formatted message at warn level.
func (h *Helper) Warnf(format string, a ...interface{}) {
	_ = h.logger.Log(LevelWarn, fmt.Sprintf(format, a...))
}

// Error logs at error level.
func (h *Helper) Error(a ...interface{}) {
	_ = h.logger.Log(LevelError, a...)
}

// Errorf logs a formatted message at error level.
func (h *Helper) Errorf(format string, a ...interface{}) {
	_ = h.logger.Log(LevelError, fmt.Sprintf(format, a...))
}
