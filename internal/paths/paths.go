// File: internal/paths/paths.go
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Variant directory names used under files/, completed/ and failed/.
const (
	DisbursementDir = "disbursement"
	SignContractDir = "sign-contract"
)

// Layout resolves every directory the application touches relative to a
// single root. The root is the directory the packaged binary lives in, or
// the working directory when running from source.
type Layout struct {
	root string
}

// Resolve determines the application root and returns the layout for it.
func Resolve() (Layout, error) {
	root, err := appDir()
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve application directory: %w", err)
	}
	return Layout{root: root}, nil
}

// NewLayout builds a layout rooted at an explicit directory. Used by tests
// and by the --root override.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

// appDir picks the executable's directory for a packaged build. Binaries
// produced by `go run` land in a temp build cache, which would scatter the
// inbox and log files somewhere unhelpful, so fall back to the working
// directory in that case.
func appDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return os.Getwd()
	}
	exeDir := filepath.Dir(exe)
	if strings.Contains(exeDir, "go-build") || strings.HasPrefix(exeDir, os.TempDir()) {
		return os.Getwd()
	}
	return exeDir, nil
}

// Root returns the application root directory.
func (l Layout) Root() string { return l.root }

// Inbox returns the source directory for a workflow variant.
func (l Layout) Inbox(variant string) string {
	return filepath.Join(l.root, "files", variant)
}

// Completed returns the destination bin for successfully processed files.
func (l Layout) Completed(variant string) string {
	return filepath.Join(l.root, "completed", variant)
}

// Failed returns the destination bin for failed files.
func (l Layout) Failed(variant string) string {
	return filepath.Join(l.root, "failed", variant)
}

// Accounts returns the credential store directory.
func (l Layout) Accounts() string {
	return filepath.Join(l.root, "accounts")
}

// LogFile returns the path of a log file at the application root.
func (l Layout) LogFile(name string) string {
	return filepath.Join(l.root, name)
}

// Screenshots returns the directory failure screenshots are written to.
func (l Layout) Screenshots() string {
	return filepath.Join(l.root, "screenshots")
}

// EnsureDirs creates every directory the application expects to exist.
func (l Layout) EnsureDirs() error {
	dirs := []string{
		l.Inbox(DisbursementDir),
		l.Inbox(SignContractDir),
		l.Completed(DisbursementDir),
		l.Completed(SignContractDir),
		l.Failed(DisbursementDir),
		l.Failed(SignContractDir),
		l.Accounts(),
		l.Screenshots(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
