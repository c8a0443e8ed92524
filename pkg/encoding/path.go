package encoding

import (
	"path/filepath"
	"strings"
)

// NormalizePath returns a lookup key for a file path: absolute, cleaned,
// forward slashes and lowercase, so that textures referenced with different
// casing or separators collapse to one entry.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = strings.ReplaceAll(filepath.Clean(path), "\\", "/")
	return strings.ToLower(path)
}

// RelativeTo returns path relative to base when path lives under base, and
// the cleaned absolute path otherwise. Separators are always forward slashes.
func RelativeTo(path, base string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	if base == "" {
		return filepath.ToSlash(absPath)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return filepath.ToSlash(absPath)
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(absPath)
	}
	return filepath.ToSlash(rel)
}
