package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewWriter_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf)

	l.Info("saved %d sessions", 3)
	l.Warning("corrupt record %q", "k")
	l.Error("boom")

	out := buf.String()
	require.Contains(t, out, "INFO    ")
	require.Contains(t, out, "saved 3 sessions")
	require.Contains(t, out, `corrupt record "k"`)
	require.Contains(t, out, "ERROR   ")
	require.Contains(t, out, "logger_test.go")
}

func TestNew_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)

	l.Error("disk full")
	require.NoError(t, l.Close())

	b, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	require.Contains(t, string(b), "disk full")
}
