package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ListByPrefix returns the paths of all regular files in dir whose base name
// begins with prefix. A missing directory yields an empty result.
func ListByPrefix(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), prefix) {
			matches = append(matches, filepath.Join(dir, entry.Name()))
		}
	}
	return matches, nil
}

// RemoveByPrefix deletes every regular file in dir whose base name begins
// with prefix, except the paths listed in keep. It keeps going past
// individual failures and reports them joined at the end.
func RemoveByPrefix(dir, prefix string, keep ...string) error {
	matches, err := ListByPrefix(dir, prefix)
	if err != nil {
		return fmt.Errorf("scan %q: %w", dir, err)
	}
	kept := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		kept[path] = struct{}{}
	}
	var errs []error
	for _, path := range matches {
		if _, ok := kept[path]; ok {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %q: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
