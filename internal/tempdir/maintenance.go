package tempdir

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// Sweep removes any drapto_* directory under base whose mtime is older than
// 24 hours, covering the case where a prior run was killed before Close ran.
// A file lock serializes sweeps across concurrently-launched processes so
// two runs don't race on the same stale directory.
func Sweep(base string) error {
	if base == "" {
		base = os.TempDir()
	}

	lock := flock.New(filepath.Join(base, maintLockName))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !locked {
		return nil
	}
	defer func() { _ = lock.Unlock() }()

	entries, err := os.ReadDir(base)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-staleAfter)
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		_ = os.RemoveAll(filepath.Join(base, entry.Name()))
	}

	return nil
}
