package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// EnsureProjectDir creates the .vaultic directory if it does not exist.
func EnsureProjectDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists but is not a directory", dir)
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// FindCiphertexts returns every *.enc file below dir as a slash-separated
// path relative to dir, sorted.
func FindCiphertexts(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "**/*"+CiphertextExt, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", dir, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// OrphanCiphertexts returns the ciphertexts in dir that no known name claims.
func OrphanCiphertexts(dir string, known []string) ([]string, error) {
	found, err := FindCiphertexts(dir)
	if err != nil {
		return nil, err
	}

	claimed := make(map[string]bool, len(known))
	for _, name := range known {
		claimed[filepath.ToSlash(name)] = true
	}

	var orphans []string
	for _, name := range found {
		if !claimed[name] {
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}
