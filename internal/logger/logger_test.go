package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/labelgrid/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     logger.LogLevel
		logFunc   func(l logger.Logger)
		wantEmpty bool
	}{
		{"debug hidden at info", logger.LogLevelInfo, func(l logger.Logger) { l.Debug("hidden") }, true},
		{"info shown at info", logger.LogLevelInfo, func(l logger.Logger) { l.Info("shown") }, false},
		{"trace shown at trace", logger.LogLevelTrace, func(l logger.Logger) { l.Trace("shown") }, false},
		{"warn hidden at error", logger.LogLevelError, func(l logger.Logger) { l.Warn("hidden") }, true},
		{"explicit error level", logger.LogLevelWarn, func(l logger.Logger) { l.Log(logger.LogLevelError, "shown") }, false},
		{"explicit debug level", logger.LogLevelWarn, func(l logger.Logger) { l.Log(logger.LogLevelDebug, "hidden") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.logFunc(logger.NewSlogLogger(&buf, tt.level, time.UTC))

			if tt.wantEmpty {
				assert.Empty(t, buf.String())
			} else {
				assert.NotEmpty(t, buf.String())
			}
		})
	}
}

func TestTraceLevelRendersAsTrace(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger.NewSlogLogger(&buf, logger.LogLevelTrace, time.UTC).Trace("walking")

	assert.Contains(t, buf.String(), "level=TRACE")
	assert.NotContains(t, buf.String(), "time=")
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC)

	log := base.Module("dataset").Module("scan").With(logger.String("version", "tiny"))
	log.Info("indexed", logger.Int("items", 3), logger.Bool("observed", true), logger.Error(errors.New("none")))

	out := buf.String()
	assert.Contains(t, out, "module=dataset.scan")
	assert.Contains(t, out, "version=tiny")
	assert.Contains(t, out, "items=3")
	assert.Contains(t, out, "observed=true")
	assert.Contains(t, out, "error=none")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC)
	_ = parent.With(logger.String("child", "yes"))

	parent.Info("parent only")
	assert.NotContains(t, buf.String(), "child=yes")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC)

	log.WithContext(logger.WithTraceID(context.Background(), "req-42")).Info("handled")
	assert.Contains(t, buf.String(), "trace_id=req-42")

	buf.Reset()
	log.WithContext(context.Background()).Info("plain")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestDurationFieldIsReadable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger.NewSlogLogger(&buf, logger.LogLevelInfo, time.UTC).
		Info("scan", logger.Duration("elapsed", 1500*time.Millisecond))

	assert.Contains(t, buf.String(), "elapsed=1.5s")
}

func TestCentralLoggerFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "app.log")

	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
	})
	require.NoError(t, err)

	cl.Module("previewcache").Debug("cache miss", logger.String("key", "tiny/10/observed"))
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "cache miss", record["msg"])
	assert.Equal(t, "previewcache", record["module"])
	assert.Equal(t, "tiny/10/observed", record["key"])
}

func TestCentralLoggerModuleOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	accessPath := filepath.Join(dir, "access.log")

	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		Console: &logger.ConsoleOutput{Enabled: false},
		ModuleOutputs: map[string]logger.ModuleOutput{
			"access": {Enabled: true, FilePath: accessPath, Level: "info"},
		},
	})
	require.NoError(t, err)

	cl.Module("access").Info("GET /", logger.Int("status", 200))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(accessPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":200`)
}

func TestCentralLoggerInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestBufferedFileWriterReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	w, err := logger.NewBufferedFileWriter(path, logger.WithFlushInterval(0))
	require.NoError(t, err)

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)

	rotated := filepath.Join(dir, "app.log.1")
	require.NoError(t, os.Rename(path, rotated))
	require.NoError(t, w.Reopen())

	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "Close is idempotent")

	_, err = w.Write([]byte("late\n"))
	require.Error(t, err)

	assert.Equal(t, []string{"first"}, readLines(t, rotated))
	assert.Equal(t, []string{"second"}, readLines(t, path))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	require.NoError(t, scanner.Err())
	return lines
}
