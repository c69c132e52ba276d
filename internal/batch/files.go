// File: internal/batch/files.go
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mamamind47/dsl-autofill/internal/config"
)

// collisionStampLayout is appended to a file's stem when the destination
// already holds a file with the same name.
const collisionStampLayout = "_20060102_150405"

// ListFiles returns the names of the regular files in dir that carry an
// allowed extension, sorted by name. A missing dir is created empty.
func ListFiles(dir string, files config.FilesConfig) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create inbox %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if files.AllowedExtension(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// MoveFile relocates filename from sourceDir to destDir. When the destination
// already has a file of that name, a timestamp suffix on the stem keeps both.
// Returns the final destination path.
func MoveFile(filename, sourceDir, destDir string, now time.Time) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create destination %s: %w", destDir, err)
	}

	src := filepath.Join(sourceDir, filename)
	dst := filepath.Join(destDir, filename)
	if _, err := os.Stat(dst); err == nil {
		ext := filepath.Ext(filename)
		stem := filename[:len(filename)-len(ext)]
		dst = filepath.Join(destDir, stem+now.Format(collisionStampLayout)+ext)
	}

	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return dst, nil
}
