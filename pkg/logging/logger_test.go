package logging

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDir points the package at a temporary log directory and resets global state.
func setupTestDir(t *testing.T, level string) {
	t.Helper()

	tempDir := t.TempDir()

	origOpts := currentOptions()
	origSink, origDir, origErr := sink, logDir, initErr

	Configure(Options{Level: level, Dir: tempDir})
	sink, logDir, initErr = nil, "", nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}

	t.Cleanup(func() {
		if sink != nil {
			_ = sink.Close()
		}
		Configure(origOpts)
		sink, logDir, initErr = origSink, origDir, origErr
		initOnce = sync.Once{}
		sessionIDOnce = sync.Once{}
	})
}

func readLog(t *testing.T, l *Logger) string {
	t.Helper()
	require.NoError(t, l.Close())
	data, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	return string(data)
}

func TestNewLogger(t *testing.T) {
	setupTestDir(t, "debug")

	logger, err := NewLogger("test-component")
	require.NoError(t, err)

	assert.Equal(t, "test-component", logger.component)
	assert.NotEmpty(t, logger.SessionID())
	assert.NotEmpty(t, logger.LogPath())
	assert.True(t, strings.HasSuffix(logger.LogPath(), "-webvision.log"))

	dir, err := GetLogDirectory()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(logger.LogPath(), dir))
}

func TestLoggerWritesComponentAndMessage(t *testing.T) {
	setupTestDir(t, "debug")

	logger, err := NewLogger("observer")
	require.NoError(t, err)

	logger.Debugf("marking page attempt %d", 3)
	logger.Infof("navigated to %s", "https://example.com")
	logger.Warnf("screenshot failed")
	logger.Errorf("boom: %v", "bad")

	content := readLog(t, logger)
	assert.Contains(t, content, `"logger":"observer"`)
	assert.Contains(t, content, "marking page attempt 3")
	assert.Contains(t, content, "navigated to https://example.com")
	assert.Contains(t, content, `"level":"warn"`)
	assert.Contains(t, content, "boom: bad")
	assert.Contains(t, content, logger.SessionID())
}

func TestLoggerLevelFiltering(t *testing.T) {
	setupTestDir(t, "warn")

	logger, err := NewLogger("filter")
	require.NoError(t, err)

	logger.Debugf("hidden debug")
	logger.Infof("hidden info")
	logger.Warnf("visible warn")

	content := readLog(t, logger)
	assert.NotContains(t, content, "hidden debug")
	assert.NotContains(t, content, "hidden info")
	assert.Contains(t, content, "visible warn")
}

func TestLoggerWith(t *testing.T) {
	setupTestDir(t, "info")

	logger, err := NewLogger("graph")
	require.NoError(t, err)

	child := logger.With("run_id", "run-42")
	child.Infof("stage entered")

	content := readLog(t, child)
	assert.Contains(t, content, `"run_id":"run-42"`)
	assert.Equal(t, logger.LogPath(), child.LogPath())
}

func TestSharedSessionAcrossComponents(t *testing.T) {
	setupTestDir(t, "info")

	a, err := NewLogger("a")
	require.NoError(t, err)
	b, err := NewLogger("b")
	require.NoError(t, err)

	assert.Equal(t, a.SessionID(), b.SessionID())
	assert.Equal(t, a.LogPath(), b.LogPath())
	assert.Equal(t, a.SessionID(), GetSessionID())
}

func TestFallbackWhenDirectoryUnavailable(t *testing.T) {
	setupTestDir(t, "info")

	// a regular file where a directory is expected
	blocker := t.TempDir() + "/blocker"
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	Configure(Options{Level: "info", Dir: blocker + "/logs"})

	logger, err := NewLogger("fallback")
	require.Error(t, err)
	require.NotNil(t, logger)
	assert.Empty(t, logger.LogPath())

	logger.Infof("still usable")
	assert.NoError(t, logger.Close())
}

func TestCloseIsIdempotent(t *testing.T) {
	setupTestDir(t, "info")

	logger, err := NewLogger("close")
	require.NoError(t, err)

	assert.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Infof("discarded %d", 1)
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"WARN", "warn"},
		{" error ", "error"},
		{"", "info"},
		{"verbose", "info"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in).String())
		})
	}
}
