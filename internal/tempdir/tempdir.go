// Package tempdir creates per-run scratch directories and guarantees their
// cleanup.
package tempdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/five82/drapto/internal/errors"
)

const (
	minFreeBytes  = 100 * 1024 * 1024 // 100 MiB
	dirPrefix     = "drapto_"
	staleAfter    = 24 * time.Hour
	maintLockName = ".maintenance.lock"
)

// Manager owns one scratch directory scoped to a single file's processing
// run. Crop/noise sample frames and other short-lived artifacts live under
// Path until Close removes it.
type Manager struct {
	Path string
}

// New creates a directory named drapto_<prefix>_<8-alphanumeric> under base
// (the system temp root if base is ""). It verifies base exists, is
// writable, and warns (via the returned warning string, non-fatal) when
// free space is below 100 MiB.
func New(base, prefix string) (*Manager, string, error) {
	if base == "" {
		base = os.TempDir()
	}

	info, err := os.Stat(base)
	if err != nil {
		return nil, "", errors.NewTempDirCreate(base, err)
	}
	if !info.IsDir() {
		return nil, "", errors.NewTempDirCreate(base, fmt.Errorf("%s is not a directory", base))
	}

	warning := ""
	if free, ok := freeBytes(base); ok && free < minFreeBytes {
		warning = fmt.Sprintf("low disk space in %s: %.1f MiB free", base, float64(free)/(1024*1024))
	}

	name := fmt.Sprintf("%s%s_%s", dirPrefix, sanitizePrefix(prefix), shortID())
	path := filepath.Join(base, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, "", errors.NewTempDirCreate(path, err)
	}

	return &Manager{Path: path}, warning, nil
}

// Close removes the scratch directory and everything under it. Safe to call
// on every exit path (success, failure, cancellation).
func (m *Manager) Close() error {
	if m == nil || m.Path == "" {
		return nil
	}
	return os.RemoveAll(m.Path)
}

func sanitizePrefix(prefix string) string {
	if prefix == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, prefix)
}

// shortID returns 8 alphanumeric characters derived from a UUID, keeping
// directory names short without sacrificing collision resistance.
func shortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}

func freeBytes(path string) (uint64, bool) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, false
	}
	return stat.Bavail * uint64(stat.Bsize), true
}
