package output

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirName(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "output_example.com_1700000000123", DirName("example.com", ts))
}

func TestWriter_CreateAndWrite(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "out")
	w := NewWriter(root)
	assert.Equal(t, root, w.Root())
	assert.Equal(t, ".", NewWriter("").Root())

	b, err := w.Create("example.com", time.UnixMilli(42))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "output_example.com_42"), b.Dir)

	raw := []string{"http://example.com/a?id=1", "http://example.com/b"}
	require.NoError(t, b.WriteRaw(raw))
	require.NoError(t, b.WriteCleaned(raw[:1]))

	data, err := os.ReadFile(b.RawPath())
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a?id=1\nhttp://example.com/b\n", string(data))

	cleaned, err := ReadLines(b.CleanedPath())
	require.NoError(t, err)
	assert.Equal(t, raw[:1], cleaned)
}

func TestWriter_EmptyCleanedFileExists(t *testing.T) {
	b, err := NewWriter(t.TempDir()).Create("example.com", time.Now())
	require.NoError(t, err)
	require.NoError(t, b.WriteCleaned(nil))

	info, err := os.Stat(b.CleanedPath())
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestWriter_RepeatedRunsDoNotCollide(t *testing.T) {
	w := NewWriter(t.TempDir())
	ts := time.UnixMilli(1000)

	first, err := w.Create("example.com", ts)
	require.NoError(t, err)
	second, err := w.Create("example.com", ts)
	require.NoError(t, err)

	assert.NotEqual(t, first.Dir, second.Dir)
	assert.Equal(t, first.Dir+"_1", second.Dir)
}

func TestWriter_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	root := t.TempDir()
	require.NoError(t, os.Chmod(root, 0555))
	defer os.Chmod(root, 0755)

	_, err := NewWriter(root).Create("example.com", time.Now())
	assert.Error(t, err)
}
