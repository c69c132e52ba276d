// File: internal/batch/files_test.go
package batch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mamamind47/dsl-autofill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFilesCfg = config.FilesConfig{
	AllowedExtensions: []string{".pdf", ".doc", ".docx", ".txt", ".jpg", ".png"},
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestListFilesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.pdf"))
	touch(t, filepath.Join(dir, "a.PDF")) // extension match is case insensitive
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "skip.exe"))
	touch(t, filepath.Join(dir, "archive.zip"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755)) // dirs are ignored

	names, err := ListFiles(dir, testFilesCfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.PDF", "b.pdf", "notes.txt"}, names)
}

func TestListFilesCreatesMissingInbox(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "files", "disbursement")

	names, err := ListFiles(dir, testFilesCfg)
	require.NoError(t, err)
	assert.Empty(t, names)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMoveFile(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "completed")
	touch(t, filepath.Join(src, "doc.pdf"))

	dest, err := MoveFile("doc.pdf", src, dst, time.Now())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "doc.pdf"), dest)

	_, err = os.Stat(filepath.Join(src, "doc.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(dest)
	assert.NoError(t, err)
}

func TestMoveFileCollisionGetsTimestampSuffix(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	touch(t, filepath.Join(src, "doc.pdf"))
	touch(t, filepath.Join(dst, "doc.pdf"))

	at := time.Date(2025, 3, 14, 9, 30, 5, 0, time.UTC)
	dest, err := MoveFile("doc.pdf", src, dst, at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "doc_20250314_093005.pdf"), dest)

	_, err = os.Stat(dest)
	assert.NoError(t, err)
	// The original file at the destination is untouched.
	_, err = os.Stat(filepath.Join(dst, "doc.pdf"))
	assert.NoError(t, err)
}

func TestMoveFileMissingSource(t *testing.T) {
	_, err := MoveFile("ghost.pdf", t.TempDir(), t.TempDir(), time.Now())
	assert.Error(t, err)
}
