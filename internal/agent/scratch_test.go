package agent

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriteScratch(t *testing.T) {
	dir := t.TempDir()

	path, err := writeScratch(dir, "the task")
	require.NoError(t, err)

	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), scratchPrefix))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "the task", string(data))

	other, err := writeScratch(dir, "the task")
	require.NoError(t, err)
	assert.NotEqual(t, path, other)
}

func TestCleanupMonitor_RemovesFile(t *testing.T) {
	path, err := writeScratch(t.TempDir(), "x")
	require.NoError(t, err)

	c := newCleanupMonitor(zap.NewNop(), 3)
	c.remove(path)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Zero(t, c.failures())
}

func TestCleanupMonitor_MissingFileIsNotAFailure(t *testing.T) {
	c := newCleanupMonitor(zap.NewNop(), 3)
	c.remove(filepath.Join(t.TempDir(), "gone.txt"))
	assert.Zero(t, c.failures())
}

func TestCleanupMonitor_EscalatesRepeatedFailures(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix directory permissions")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	path, err := writeScratch(dir, "x")
	require.NoError(t, err)
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	core, logs := observer.New(zap.WarnLevel)
	c := newCleanupMonitor(zap.New(core), 2)

	c.remove(path)
	c.remove(path)

	assert.EqualValues(t, 2, c.failures())
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)

	require.NoError(t, os.Chmod(dir, 0o700))
	c.remove(path)
	assert.Zero(t, c.failures())
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(5)
	_, _ = tb.Write([]byte("abc"))
	_, _ = tb.Write([]byte("defg"))
	assert.Equal(t, "cdefg", tb.String())

	_, _ = tb.Write([]byte("0123456789"))
	assert.Equal(t, "56789", tb.String())
}
