// Package scanner discovers candidate image files for a deduplication run.
package scanner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrDirNotFound indicates the input directory does not exist.
	ErrDirNotFound = errors.New("input directory not found")
	// ErrNoImages indicates the input directory contains no image files.
	ErrNoImages = errors.New("no image files found")
)

// imageExtensions lists the file extensions considered images.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Images lists the image files directly inside dir, sorted by name.
// Extension matching is case-insensitive. Returns ErrDirNotFound when
// the directory is missing and ErrNoImages when nothing matches; both
// are fatal to a run.
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirNotFound, dir)
		}
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if imageExtensions[ext] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	return files, nil
}
