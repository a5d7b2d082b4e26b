package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONLSink appends records to a JSON Lines file, one record per line.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// NewJSONLSink opens (or creates) the dataset file for appending.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	return &JSONLSink{file: f, w: bufio.NewWriter(f)}, nil
}

// Push appends one record. Each record is flushed through to the file so a
// crash loses at most the record being written.
func (s *JSONLSink) Push(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return s.w.Flush()
}

// Close flushes and closes the dataset file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
