package downloader

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/pkg/logger"
	"igcrawler/pkg/source"
)

type fakeDownloader struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeDownloader) DownloadVideo(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeStorage struct {
	saved   map[string][]byte
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (f *fakeStorage) IsSaved(shortcode string) bool {
	_, ok := f.saved[shortcode]
	return ok
}

func (f *fakeStorage) SaveVideo(r io.Reader, shortcode string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.saved[shortcode] = data
	return shortcode + ".mp4", nil
}

func TestFetchDownloadsAndSaves(t *testing.T) {
	client := &fakeDownloader{data: []byte("video-bytes")}
	storage := newFakeStorage()
	f := NewFetcher(client, storage, logger.NewNop())

	item := &source.Item{ID: "ABC123", VideoURL: "https://cdn/v.mp4"}
	result, err := f.Fetch(context.Background(), item)
	require.NoError(t, err)

	assert.Equal(t, "ABC123.mp4", result.Filename)
	assert.Equal(t, len("video-bytes"), result.Size)
	assert.False(t, result.Skipped)
	assert.Equal(t, []byte("video-bytes"), storage.saved["ABC123"])
}

func TestFetchSkipsSavedMedia(t *testing.T) {
	client := &fakeDownloader{data: []byte("video-bytes")}
	storage := newFakeStorage()
	storage.saved["ABC123"] = []byte("already here")
	f := NewFetcher(client, storage, logger.NewNop())

	result, err := f.Fetch(context.Background(), &source.Item{ID: "ABC123", VideoURL: "https://cdn/v.mp4"})
	require.NoError(t, err)

	assert.True(t, result.Skipped)
	assert.Zero(t, client.calls)
}

func TestFetchErrors(t *testing.T) {
	t.Run("missing video URL", func(t *testing.T) {
		f := NewFetcher(&fakeDownloader{}, newFakeStorage(), logger.NewNop())
		_, err := f.Fetch(context.Background(), &source.Item{ID: "NOURL"})
		assert.Error(t, err)
	})

	t.Run("download failure propagates", func(t *testing.T) {
		client := &fakeDownloader{err: errors.New("connection reset")}
		f := NewFetcher(client, newFakeStorage(), logger.NewNop())
		_, err := f.Fetch(context.Background(), &source.Item{ID: "X", VideoURL: "https://cdn/v.mp4"})
		assert.Error(t, err)
	})

	t.Run("save failure propagates", func(t *testing.T) {
		storage := newFakeStorage()
		storage.saveErr = errors.New("disk full")
		f := NewFetcher(&fakeDownloader{data: []byte("v")}, storage, logger.NewNop())
		_, err := f.Fetch(context.Background(), &source.Item{ID: "X", VideoURL: "https://cdn/v.mp4"})
		assert.Error(t, err)
	})
}
