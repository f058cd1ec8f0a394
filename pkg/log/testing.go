// Testing helpers that capture log output in memory.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
)

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// TestLogger is a Logger that captures every record as a JSON line in memory.
// It uses the same zerolog backend as production so assertions see the real
// field encoding.
type TestLogger struct {
	Logger
	buffer *syncBuffer
}

// NewTestLogger creates a TestLogger with the specified minimum level.
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	logger.Info("test message", "key", "value")
//	if !logger.ContainsField("key", "value") { ... }
func NewTestLogger(level Level) *TestLogger {
	buffer := &syncBuffer{}
	return &TestLogger{
		Logger: NewZerologLogger(buffer, level),
		buffer: buffer,
	}
}

// With implements Logger.With; child loggers write to the same buffer.
func (t *TestLogger) With(fields ...any) Logger {
	return &TestLogger{Logger: t.Logger.With(fields...), buffer: t.buffer}
}

// String returns the raw captured output.
func (t *TestLogger) String() string {
	return t.buffer.String()
}

// GetLogEntries parses the captured output into one map per record.
func (t *TestLogger) GetLogEntries() ([]map[string]interface{}, error) {
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(t.buffer.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// ContainsMessage reports whether any record has exactly this message.
func (t *TestLogger) ContainsMessage(message string) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry["message"] == message {
			return true
		}
	}
	return false
}

// ContainsField reports whether any record has key set to value. JSON
// numbers compare as float64.
func (t *TestLogger) ContainsField(key string, value interface{}) bool {
	entries, err := t.GetLogEntries()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if fieldValue, exists := entry[key]; exists && fieldValue == value {
			return true
		}
	}
	return false
}

// Count returns the number of records at the given level ("debug", "info",
// "warn", "error").
func (t *TestLogger) Count(level string) int {
	entries, err := t.GetLogEntries()
	if err != nil {
		return 0
	}
	n := 0
	for _, entry := range entries {
		if entry["level"] == level {
			n++
		}
	}
	return n
}

// Clear drops all captured output.
func (t *TestLogger) Clear() {
	t.buffer.Reset()
}
