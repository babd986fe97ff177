package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// FallbackFilename is used when a URL carries no usable path segment
const FallbackFilename = "unknown_file"

// Manager writes downloaded archive files into a single output directory.
//
// Files are named after the final path segment of their source URL. Two URLs
// sharing a final segment overwrite the same file; that is accepted behavior,
// not something the manager guards against.
type Manager struct {
	outputDir string
}

// NewManager creates a storage manager, creating the output directory if needed
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{outputDir: outputDir}, nil
}

// SaveFile writes the reader's content to outputDir/filename, replacing any
// existing file with that name
func (m *Manager) SaveFile(r io.Reader, filename string) error {
	target := filepath.Join(m.outputDir, filename)

	// Write to a temp file first so a failed download never leaves a
	// truncated archive behind
	tempFile := target + ".tmp"
	out, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to write file data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// FilenameForURL derives the output filename from a download URL's final path
// segment, falling back to FallbackFilename when the URL has none
func FilenameForURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return FallbackFilename
	}

	name := path.Base(parsed.Path)
	if name == "" || name == "." || name == "/" {
		return FallbackFilename
	}

	return name
}
