// Package storage writes downloaded media files to disk and tracks what is
// already present so repeated runs skip finished downloads.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const videoExt = ".mp4"

// Manager handles media file writes and duplicate detection for one output
// directory.
type Manager struct {
	outputDir string
	saved     map[string]bool
}

// NewManager creates the output directory if needed and indexes any videos
// already in it.
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		outputDir: outputDir,
		saved:     make(map[string]bool),
	}
	if err := m.scanExisting(); err != nil {
		return nil, fmt.Errorf("failed to scan output directory: %w", err)
	}
	return m, nil
}

func (m *Manager) scanExisting() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != videoExt {
			continue
		}
		m.saved[strings.TrimSuffix(entry.Name(), videoExt)] = true
	}
	return nil
}

// IsSaved reports whether a video for the shortcode is already on disk.
func (m *Manager) IsSaved(shortcode string) bool {
	if m.saved[shortcode] {
		return true
	}
	if _, err := os.Stat(m.path(shortcode)); err == nil {
		m.saved[shortcode] = true
		return true
	}
	return false
}

func (m *Manager) path(shortcode string) string {
	return filepath.Join(m.outputDir, shortcode+videoExt)
}

// SaveVideo writes the video bytes for a shortcode atomically and returns
// the resulting filename.
func (m *Manager) SaveVideo(r io.Reader, shortcode string) (string, error) {
	path := m.path(shortcode)
	tmp := path + ".tmp"

	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, copyErr := io.Copy(out, r)
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write video data: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close video file: %w", closeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize video file: %w", err)
	}

	m.saved[shortcode] = true
	return filepath.Base(path), nil
}

// SavedCount returns how many videos the manager knows about.
func (m *Manager) SavedCount() int {
	return len(m.saved)
}
