// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"context"
	"log/slog"
	"sync"
)

// Record is a captured log record, flattened for assertions.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// captureStore is the buffer shared by a Capture and all handlers derived
// from it via WithAttrs, so records logged through child loggers remain
// visible to the test.
type captureStore struct {
	mu      sync.Mutex
	records []Record
}

// Capture is a slog.Handler that collects records in memory. It is meant
// for tests that need to verify log output:
//
//	capture := logging.NewCapture()
//	logger := logging.NewWithHandler(capture)
//	...
//	require.True(t, capture.Has("enriched index does not exist yet"))
type Capture struct {
	store *captureStore
	attrs []slog.Attr
}

// NewCapture creates an empty Capture handler.
func NewCapture() *Capture {
	return &Capture{store: &captureStore{}}
}

func (c *Capture) Enabled(context.Context, slog.Level) bool { return true }

func (c *Capture) Handle(_ context.Context, r slog.Record) error {
	rec := Record{
		Level:   r.Level,
		Message: r.Message,
		Attrs:   make(map[string]any, r.NumAttrs()+len(c.attrs)),
	}
	for _, a := range c.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})

	c.store.mu.Lock()
	c.store.records = append(c.store.records, rec)
	c.store.mu.Unlock()
	return nil
}

func (c *Capture) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Capture{
		store: c.store,
		attrs: append(append([]slog.Attr{}, c.attrs...), attrs...),
	}
}

func (c *Capture) WithGroup(string) slog.Handler { return c }

// Records returns a copy of all captured records, including those logged
// through derived (With) loggers.
func (c *Capture) Records() []Record {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	out := make([]Record, len(c.store.records))
	copy(out, c.store.records)
	return out
}

// Has reports whether any captured record carries the given message.
func (c *Capture) Has(message string) bool {
	for _, r := range c.Records() {
		if r.Message == message {
			return true
		}
	}
	return false
}
