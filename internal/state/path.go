package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Path validation errors.
var (
	ErrPathEscape  = errors.New("path escapes base directory")
	ErrInvalidPath = errors.New("invalid path")
)

// SafeJoin joins a base directory with a relative path, ensuring the result
// stays within the base directory. Returns the absolute path.
func SafeJoin(baseDir, relativePath string) (string, error) {
	if relativePath == "" || strings.ContainsRune(relativePath, '\x00') {
		return "", ErrInvalidPath
	}
	if filepath.IsAbs(relativePath) {
		return "", ErrPathEscape
	}

	absJoined, err := filepath.Abs(filepath.Join(baseDir, relativePath))
	if err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(absBase, absJoined)
	if err != nil {
		return "", err
	}
	if escapes(rel) {
		return "", ErrPathEscape
	}
	return absJoined, nil
}

// ResolvePath turns a tool-supplied path into an absolute one. Relative
// paths are taken from workDir; "" and "." mean workDir itself.
func ResolvePath(workDir, path string) (string, error) {
	if strings.ContainsRune(path, '\x00') {
		return "", ErrInvalidPath
	}
	if path == "" {
		path = "."
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}
	return filepath.Abs(path)
}

// resolvePathForContainment resolves symlinks for containment checks.
// For non-existent paths, it resolves the nearest existing ancestor and
// re-attaches the missing path suffix.
func resolvePathForContainment(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	current := absPath
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}

		if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", err
		}

		missing = append(missing, filepath.Base(current))
		current = parent
	}
}

// IsWithinDirReal checks whether targetPath resolves inside baseDir after
// following symlinks.
func IsWithinDirReal(baseDir, targetPath string) (bool, error) {
	baseResolved, err := resolvePathForContainment(baseDir)
	if err != nil {
		return false, err
	}
	targetResolved, err := resolvePathForContainment(targetPath)
	if err != nil {
		return false, err
	}

	rel, err := filepath.Rel(baseResolved, targetResolved)
	if err != nil {
		return false, err
	}
	return !escapes(rel), nil
}

// escapes reports whether a relative path leaves its base: exactly ".." or
// starting with "../". Names like "..." or "..foo" are fine.
func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
