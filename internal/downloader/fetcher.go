// Package downloader fetches media files for crawled items one at a time,
// matching the crawl's sequential pacing, and hands them to storage.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"igcrawler/pkg/logger"
	"igcrawler/pkg/source"
)

// VideoStorage persists downloaded media and reports duplicates.
type VideoStorage interface {
	IsSaved(shortcode string) bool
	SaveVideo(r io.Reader, shortcode string) (string, error)
}

// Result describes one fetch attempt.
type Result struct {
	Shortcode string
	Filename  string
	Skipped   bool
	Size      int
	Duration  time.Duration
}

// Fetcher downloads item media sequentially.
type Fetcher struct {
	client  source.Downloader
	storage VideoStorage
	logger  logger.Logger
}

// NewFetcher creates a sequential media fetcher.
func NewFetcher(client source.Downloader, storage VideoStorage, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{client: client, storage: storage, logger: log}
}

// Fetch downloads the item's video and saves it. Items already on disk are
// skipped without a network call.
func (f *Fetcher) Fetch(ctx context.Context, item *source.Item) (*Result, error) {
	if item.VideoURL == "" {
		return nil, fmt.Errorf("item %s has no video URL", item.ID)
	}

	if f.storage.IsSaved(item.ID) {
		f.logger.DebugWithFields("media already saved, skipping download", map[string]interface{}{
			"shortcode": item.ID,
		})
		return &Result{Shortcode: item.ID, Skipped: true}, nil
	}

	start := time.Now()
	data, err := f.client.DownloadVideo(ctx, item.VideoURL)
	if err != nil {
		return nil, err
	}

	filename, err := f.storage.SaveVideo(bytes.NewReader(data), item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to save media for %s: %w", item.ID, err)
	}

	result := &Result{
		Shortcode: item.ID,
		Filename:  filename,
		Size:      len(data),
		Duration:  time.Since(start),
	}

	f.logger.DebugWithFields("media downloaded", map[string]interface{}{
		"shortcode": item.ID,
		"filename":  filename,
		"size":      result.Size,
		"duration":  result.Duration,
	})

	return result, nil
}
