// Package discovery provides file discovery for video processing.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/five82/drapto/internal/util"
)

// Logger is the subset of log/slog's surface discovery needs; a nil Logger
// disables discovery logging.
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Result contains the files found in a directory scan plus how many
// non-video entries were skipped.
type Result struct {
	Files        []string
	SkippedCount int
}

// FindVideoFiles finds video files in the given directory.
// Returns files sorted alphabetically by filename.
func FindVideoFiles(inputDir string) ([]string, error) {
	result, err := scanDirectory(inputDir)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// FindVideoFilesWithLogging finds video files and logs what was discovered:
// the first few filenames plus a count summary.
func FindVideoFilesWithLogging(inputDir string, logger Logger) (*Result, error) {
	result, err := scanDirectory(inputDir)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logDiscoveredFiles(result, logger)
	}
	return result, nil
}

func scanDirectory(inputDir string) (*Result, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", inputDir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", inputDir)
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", inputDir, err)
	}

	result := &Result{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Skip hidden files
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(inputDir, name)
		if util.IsVideoFile(fullPath) {
			result.Files = append(result.Files, fullPath)
		} else {
			result.SkippedCount++
		}
	}

	if len(result.Files) == 0 {
		return nil, fmt.Errorf("no video files found in %s", inputDir)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(result.Files[i])) < strings.ToLower(filepath.Base(result.Files[j]))
	})

	return result, nil
}

// logDiscoveredFiles logs the first 5 discovered files plus a count.
func logDiscoveredFiles(result *Result, logger Logger) {
	logger.Info("discovered video files", "count", len(result.Files), "skipped", result.SkippedCount)

	maxToLog := min(5, len(result.Files))
	for i := range maxToLog {
		logger.Debug("discovered file", "name", filepath.Base(result.Files[i]))
	}
	if len(result.Files) > 5 {
		logger.Debug("discovery list truncated", "remaining", len(result.Files)-5)
	}
}
