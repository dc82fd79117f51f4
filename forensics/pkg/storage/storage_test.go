package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"screenshot_1.png", "screenshot_1.png"},
		{"  Screenshot 1.PNG ", "screenshot_1.png"},
		{"a/../b", "a_.._b"},
		{"weird@@name!!.txt", "weird_name_.txt"},
		{"clipboard_tail.txt", "clipboard_tail.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestSafeSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3f2a-Session", "3f2a-Session"},
		{"../etc", ".._etc"},
		{"..", "_"},
		{".", "_"},
		{"", "_"},
		{"a b/c", "a_b_c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeSegment(tt.in))
		})
	}
}

func TestLayoutPaths(t *testing.T) {
	l := NewLayout("/data", "/sources")

	assert.Equal(t, filepath.Join("/data", "inc-1", "manifest"), l.ManifestPath("inc-1"))
	assert.Equal(t, filepath.Join("/data", "inc-1", "raw"), l.RawPath("inc-1"))
	assert.Equal(t, filepath.Join("/sources", "visual", "s1", "screenshots"), l.ScreenshotsDir("s1"))
	assert.Equal(t, filepath.Join("/sources", "app", "s1", "clipboard.log"), l.ClipboardLog("s1"))
	assert.Equal(t, filepath.Join("/sources", "network", "s1"), l.NetworkDir("s1"))
	assert.Equal(t, filepath.Join("/data", "_"), l.IncidentDir(".."))
}

func TestLayoutCreatesDirs(t *testing.T) {
	l := NewLayout(t.TempDir(), t.TempDir())

	raw, err := l.RawDir("inc-1")
	require.NoError(t, err)
	assert.DirExists(t, raw)

	man, err := l.ManifestDir("inc-1")
	require.NoError(t, err)
	assert.DirExists(t, man)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := ListFiles(filepath.Join(dir, "absent"))
	assert.ErrorIs(t, err, ErrSourceMissing)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	_, err = ListFiles(empty)
	assert.ErrorIs(t, err, ErrSourceMissing)

	onlyDirs := filepath.Join(dir, "only-dirs")
	require.NoError(t, os.MkdirAll(filepath.Join(onlyDirs, "sub"), 0o755))
	files, err := ListFiles(onlyDirs)
	require.NoError(t, err)
	assert.Empty(t, files)

	full := filepath.Join(dir, "full")
	require.NoError(t, os.MkdirAll(filepath.Join(full, "sub"), 0o755))
	for _, name := range []string{"c.png", "a.png", "b.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(full, name), []byte(name), 0o644))
	}
	files, err = ListFiles(full)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(full, "a.png"),
		filepath.Join(full, "b.png"),
		filepath.Join(full, "c.png"),
	}, files)
}

func TestCopyAndWriteFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("evidence"), 0o600))

	dst := filepath.Join(dir, "dst.bin")
	n, err := CopyFile(src, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "evidence", string(data))

	_, err = CopyFile(filepath.Join(dir, "nope"), dst)
	assert.ErrorIs(t, err, ErrSourceMissing)

	n, err = WriteFile(dst, []byte("overwritten"))
	require.NoError(t, err)
	assert.Equal(t, int64(11), n)
	data, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "overwritten", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
