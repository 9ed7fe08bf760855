package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectDirName is the directory that marks a vaultic project root.
const ProjectDirName = ".vaultic"

// FindProjectRoot traverses up from start to find the directory containing .vaultic.
// Returns an empty string (and no error) if no project is found.
// Stops searching at one level above the user's home directory.
func FindProjectRoot(start string) (string, error) {
	currentDir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	stopAt := filepath.Dir(homeDir)

	for {
		candidate := filepath.Join(currentDir, ProjectDirName)
		fileInfo, err := os.Stat(candidate)
		if err == nil {
			if fileInfo.IsDir() {
				return currentDir, nil
			}
		} else if !os.IsNotExist(err) {
			return "", fmt.Errorf("error checking for %s directory at %s: %w", ProjectDirName, currentDir, err)
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir || currentDir == stopAt {
			return "", nil
		}
		currentDir = parentDir
	}
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over path, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err = os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

// EnsureGitignore appends any missing entries to the .gitignore in dir.
// Returns the entries that were added.
func EnsureGitignore(dir string, entries []string) ([]string, error) {
	path := filepath.Join(dir, ".gitignore")

	existing := make(map[string]bool)
	f, err := os.Open(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var needsNewline bool
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			existing[strings.TrimSpace(scanner.Text())] = true
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		data, _ := os.ReadFile(path)
		needsNewline = len(data) > 0 && data[len(data)-1] != '\n'
	}

	var added []string
	for _, entry := range entries {
		if !existing[entry] {
			added = append(added, entry)
		}
	}
	if len(added) == 0 {
		return nil, nil
	}

	// #nosec G302 -- .gitignore is meant to be shared and readable.
	out, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer out.Close()

	var b strings.Builder
	if needsNewline {
		b.WriteString("\n")
	}
	for _, entry := range added {
		b.WriteString(entry)
		b.WriteString("\n")
	}
	if _, err := out.WriteString(b.String()); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", path, err)
	}
	return added, nil
}
