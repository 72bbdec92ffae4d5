// Package testgen provides utilities for generating test files (EPUB archives
// and directory trees) for testing the scan pipeline.
package testgen

import (
	"os"
	"path/filepath"
	"testing"
)

// EPUBOptions configures the generated EPUB file.
type EPUBOptions struct {
	Title   string
	Authors []string
	// Chapters holds the body text of each chapter, one XHTML document per
	// entry. A single placeholder chapter is written when empty.
	Chapters []string
	// OmitContainer leaves out META-INF/container.xml so that the parser has
	// to find the OPF by extension.
	OmitContainer bool
}

// CreateSubDir creates a subdirectory within the given parent directory.
// Returns the full path to the created subdirectory.
func CreateSubDir(t *testing.T, parent, name string) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create subdirectory %s: %v", dir, err)
	}
	return dir
}

// WriteFile creates a file with the given content in the specified directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// ReadFile reads and returns the contents of a file.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file %s: %v", path, err)
	}
	return data
}
