package logger_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/datamerge/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   logger.LogLevel
		logFunc func(l logger.Logger)
		visible bool
	}{
		{"debug hidden at info", logger.LogLevelInfo, func(l logger.Logger) { l.Debug("message") }, false},
		{"info visible at info", logger.LogLevelInfo, func(l logger.Logger) { l.Info("message") }, true},
		{"warn visible at info", logger.LogLevelInfo, func(l logger.Logger) { l.Warn("message") }, true},
		{"trace visible at trace", logger.LogLevelTrace, func(l logger.Logger) { l.Trace("message") }, true},
		{"info hidden at error", logger.LogLevelError, func(l logger.Logger) { l.Info("message") }, false},
		{"error always visible", logger.LogLevelError, func(l logger.Logger) { l.Error("message") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			tt.logFunc(logger.NewSlogLogger(buf, tt.level, time.UTC))
			assert.Equal(t, tt.visible, strings.Contains(buf.String(), "message"))
		})
	}
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: true, Level: "debug"},
	}, logger.WithConsoleWriter(buf))
	require.NoError(t, err)
	defer func() { _ = cl.Close() }()

	log := cl.Module("dataset").Module("walker").With(logger.String("dataset", "passport.yolov11"))
	log.Info("Split resolved", logger.String("split", "valid"), logger.Int("images", 3))

	out := buf.String()
	assert.Contains(t, out, "module=dataset.walker")
	assert.Contains(t, out, "dataset=passport.yolov11")
	assert.Contains(t, out, "split=valid")
	assert.Contains(t, out, "images=3")
	assert.NotContains(t, out, "time=")
}

func TestModuleLevelOverride(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Console:      &logger.ConsoleOutput{Enabled: true, Level: "trace"},
		ModuleLevels: map[string]string{"history": "trace"},
	}, logger.WithConsoleWriter(buf))
	require.NoError(t, err)

	cl.Module("merge").Debug("merge debug")
	cl.Module("history").Trace("history trace")
	cl.Module("").Module("history").Trace("nested history trace")
	cl.Module("").Module("merge").Debug("nested merge debug")

	assert.NotContains(t, buf.String(), "merge debug")
	assert.Contains(t, buf.String(), "history trace")
	assert.Contains(t, buf.String(), "nested history trace")
	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelInfo, time.UTC)

	ctx := logger.WithTraceID(context.Background(), "run-123")
	log.WithContext(ctx).Info("Run started")
	log.WithContext(context.Background()).Info("No trace")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=run-123")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestFileOutputWritesJSON(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "logs", "datamerge.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: logPath, Level: "info"},
	})
	require.NoError(t, err)

	cl.Module("merge").Info("Split merged",
		logger.String("split", "train"),
		logger.Duration("elapsed", 1500*time.Millisecond),
		logger.Error(os.ErrNotExist))
	require.NoError(t, cl.Close())

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())

	var record map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "Split merged", record["msg"])
	assert.Equal(t, "merge", record["module"])
	assert.Equal(t, "train", record["split"])
	assert.Equal(t, "1.5s", record["elapsed"])
	assert.Equal(t, os.ErrNotExist.Error(), record["error"])
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}

func TestNilConfig(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(nil)
	assert.Error(t, err)
}

func TestConsoleAndFileLevelsApplySeparately(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "datamerge.log")
	console := &bytes.Buffer{}
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: true, Level: "warn"},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: logPath, Level: "debug"},
	}, logger.WithConsoleWriter(console))
	require.NoError(t, err)

	log := cl.Module("merge").With(logger.String("dataset", "passport.yolov11"))
	log.Debug("Split walked")
	log.Warn("Split missing")
	require.NoError(t, cl.Close())

	assert.NotContains(t, console.String(), "Split walked")
	assert.Contains(t, console.String(), "Split missing")
	assert.Contains(t, console.String(), "dataset=passport.yolov11")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"msg":"Split walked"`)
	assert.Contains(t, lines[1], `"dataset":"passport.yolov11"`)
}
