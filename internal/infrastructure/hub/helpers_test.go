package hub

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"go-newsletter-sse/internal/infrastructure/logger"
)

type mockLogger struct {
	mu     sync.Mutex
	errors []string
	warns  []string
}

func (m *mockLogger) Debug(msg string)                  {}
func (m *mockLogger) Debugf(format string, args ...any) {}
func (m *mockLogger) Info(msg string)                   {}
func (m *mockLogger) Infof(format string, args ...any)  {}
func (m *mockLogger) Warn(msg string)                   { m.warnf(msg) }
func (m *mockLogger) Warnf(format string, args ...any)  { m.warnf(format) }
func (m *mockLogger) Error(msg string)                  { m.errorf(msg) }
func (m *mockLogger) Errorf(format string, args ...any) { m.errorf(format) }
func (m *mockLogger) Fatal(msg string)                  {}
func (m *mockLogger) Fatalf(format string, args ...any) {}

func (m *mockLogger) WithField(key string, value any) logger.Logger { return m }
func (m *mockLogger) WithFields(fields logger.Fields) logger.Logger { return m }
func (m *mockLogger) WithContext(ctx context.Context) logger.Logger { return m }
func (m *mockLogger) SetLevel(level logger.Level)                   {}
func (m *mockLogger) SetOutput(output io.Writer)                    {}

func (m *mockLogger) errorf(format string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, format)
}

func (m *mockLogger) warnf(format string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, format)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

// recordingWriter keeps every frame it receives. It can be switched to fail
// or panic on later writes.
type recordingWriter struct {
	mu       sync.Mutex
	frames   []string
	closes   int
	closed   bool
	writeErr error
	panics   bool
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.panics {
		panic("writer exploded")
	}
	if w.closed {
		return 0, ErrWriterClosed
	}
	if w.writeErr != nil {
		return 0, w.writeErr
	}
	w.frames = append(w.frames, string(p))
	return len(p), nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closes++
	w.closed = true
	return nil
}

func (w *recordingWriter) failWith(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writeErr = err
}

func (w *recordingWriter) panicOnWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.panics = true
}

func (w *recordingWriter) Frames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.frames...)
}

func (w *recordingWriter) Closes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closes
}

// eventNames returns the event field of every frame.
func eventNames(frames []string) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		for _, line := range strings.Split(f, "\n") {
			if name, ok := strings.CutPrefix(line, "event: "); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// frameData decodes the data line of a single frame into v.
func frameData(t *testing.T, frame string, v any) {
	t.Helper()

	for _, line := range strings.Split(frame, "\n") {
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			require.NoError(t, json.Unmarshal([]byte(data), v))
			return
		}
	}
	t.Fatalf("frame has no data line: %q", frame)
}
