package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, color bool, level Level) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.ColorConsole = color
	opts.ConsoleLevel = level
	l, err := NewLoggerWithWriter(opts, &buf)
	require.NoError(t, err)
	return l, &buf
}

func TestLevel_Strings(t *testing.T) {
	tests := []struct {
		level Level
		lower string
		upper string
	}{
		{DebugLevel, "debug", "DEBUG"},
		{InfoLevel, "info", "INFO"},
		{SuccessLevel, "success", "SUCCESS"},
		{WarnLevel, "warn", "WARN"},
		{ErrorLevel, "error", "ERROR"},
		{FailLevel, "fail", "FAIL"},
	}
	for _, tt := range tests {
		t.Run(tt.lower, func(t *testing.T) {
			assert.Equal(t, tt.lower, tt.level.String())
			assert.Equal(t, tt.upper, tt.level.CapitalString())
			parsed, err := ParseLevel(tt.lower)
			require.NoError(t, err)
			assert.Equal(t, tt.level, parsed)
		})
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestConsoleOutput_PlainWithContextPrefix(t *testing.T) {
	l, buf := newBufferLogger(t, false, DebugLevel)

	l.With("stage", "preflight", "host", "node1.example.com").Successf("hostname %s verified", "node1")
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.Contains(t, out, "[S:preflight][H:node1.example.com] [SUCCESS] hostname node1 verified")
	assert.NotContains(t, out, customLevelKey)
}

func TestConsoleOutput_ExtraFieldsSortedAndQuoted(t *testing.T) {
	l, buf := newBufferLogger(t, false, DebugLevel)

	l.With("zeta", "last", "alpha", "two words").Infof("done")
	require.NoError(t, l.Sync())

	assert.Contains(t, buf.String(), `[INFO] done alpha="two words" zeta=last`)
}

func TestConsoleOutput_Colors(t *testing.T) {
	l, buf := newBufferLogger(t, true, DebugLevel)

	l.Warnf("careful")
	l.Successf("yay")
	l.Errorf("boom")
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.Contains(t, out, colorYellow+"[WARN]"+colorReset)
	assert.Contains(t, out, colorGreen+"[SUCCESS]"+colorReset)
	assert.Contains(t, out, colorRed+"[ERROR]"+colorReset)
}

func TestConsoleOutput_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, false, WarnLevel)

	l.Debugf("hidden debug")
	l.Infof("hidden info")
	l.Warnf("shown warn")
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
}

func TestFileOutput_JSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "pexm.log")
	opts := DefaultOptions()
	opts.ConsoleOutput = false
	opts.FileOutput = true
	opts.FileLevel = InfoLevel
	opts.LogFilePath = logFile

	l, err := NewLogger(opts)
	require.NoError(t, err)
	l.Infof("written to file")
	l.Debugf("not written")
	require.NoError(t, l.Sync())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"written to file"`)
	assert.NotContains(t, string(content), "not written")
}

func TestFileOutput_RequiresPath(t *testing.T) {
	opts := DefaultOptions()
	opts.FileOutput = true
	opts.LogFilePath = ""
	_, err := NewLogger(opts)
	assert.Error(t, err)
}

func TestNoOutputs_IsNop(t *testing.T) {
	opts := DefaultOptions()
	opts.ConsoleOutput = false
	l, err := NewLogger(opts)
	require.NoError(t, err)
	assert.NotPanics(t, func() { l.Infof("nothing") })
}
