// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package lgr implements the structured logger injected into coupling components.
// Rank-zero gating is explicit: each call says whether only worker 0 should emit the record.
package lgr

import (
	"context"
	"io"
	"log/slog"
)

// Logger wraps slog with the rank of the calling worker
type Logger struct {
	log  *slog.Logger
	rank int
}

// New returns a logger writing to handler h on behalf of worker rank
func New(h slog.Handler, rank int) *Logger {
	return &Logger{log: slog.New(h).With(slog.Int("rank", rank)), rank: rank}
}

// NewText returns a logger writing text records to w at the given minimum level
func NewText(w io.Writer, level slog.Level, rank int) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}), rank)
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return NewText(io.Discard, slog.LevelError+1, 0)
}

// With returns a logger carrying extra attributes
func (o *Logger) With(args ...any) *Logger {
	return &Logger{log: o.log.With(args...), rank: o.rank}
}

// Rank returns the worker id attached to this logger
func (o *Logger) Rank() int { return o.rank }

func (o *Logger) Debug(rootOnly bool, msg string, args ...any) {
	o.emit(rootOnly, slog.LevelDebug, msg, args...)
}

func (o *Logger) Info(rootOnly bool, msg string, args ...any) {
	o.emit(rootOnly, slog.LevelInfo, msg, args...)
}

func (o *Logger) Warn(rootOnly bool, msg string, args ...any) {
	o.emit(rootOnly, slog.LevelWarn, msg, args...)
}

func (o *Logger) Error(rootOnly bool, msg string, args ...any) {
	o.emit(rootOnly, slog.LevelError, msg, args...)
}

func (o *Logger) emit(rootOnly bool, level slog.Level, msg string, args ...any) {
	if o == nil || (rootOnly && o.rank != 0) {
		return
	}
	o.log.Log(context.Background(), level, msg, args...)
}
