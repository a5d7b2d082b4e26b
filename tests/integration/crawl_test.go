package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/internal/downloader"
	"igcrawler/pkg/checkpoint"
	"igcrawler/pkg/config"
	"igcrawler/pkg/crawler"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/kv"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/sink"
	"igcrawler/pkg/source"
	"igcrawler/pkg/storage"
)

type env struct {
	cfg         *config.Config
	datasetPath string
	stateDir    string
	outputDir   string
	checkpoints *checkpoint.Store
	backend     kv.Store
}

func newEnv(t *testing.T, accounts ...string) *env {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Crawl.Accounts = accounts
	cfg.Crawl.Categories = []string{"posts"}
	cfg.Crawl.AccountDelay = 0
	cfg.Crawl.StorageMethod = "urls"
	cfg.Crawl.CheckpointInterval = 2
	cfg.Retry.MaxRetries = 1
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	cfg.Retry.Jitter = false
	cfg.Output.DatasetFile = filepath.Join(root, "dataset", "records.jsonl")
	cfg.Output.BaseDirectory = filepath.Join(root, "downloads")
	cfg.State.Directory = filepath.Join(root, "state")

	backend, err := kv.NewFileStore(cfg.State.Directory)
	require.NoError(t, err)

	return &env{
		cfg:         cfg,
		datasetPath: cfg.Output.DatasetFile,
		stateDir:    cfg.State.Directory,
		outputDir:   cfg.Output.BaseDirectory,
		checkpoints: checkpoint.NewStore(backend, "", cfg.Crawl.CheckpointInterval, logger.NewNop()),
		backend:     backend,
	}
}

// run wires a crawler around the scripted source and executes it against
// real sink, checkpoint, and storage components.
func (e *env) run(t *testing.T, ctx context.Context, src source.Source, fetcher crawler.MediaFetcher) error {
	t.Helper()

	dataset, err := sink.NewJSONLSink(e.datasetPath)
	require.NoError(t, err)
	defer dataset.Close()

	c, err := crawler.New(e.cfg, crawler.Deps{
		Source:      src,
		Sink:        dataset,
		Checkpoints: e.checkpoints,
		Fetcher:     fetcher,
		Logger:      logger.NewNop(),
	})
	require.NoError(t, err)
	return c.Run(ctx)
}

func (e *env) records(t *testing.T) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(e.datasetPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	return out
}

func shortcodes(records []map[string]interface{}) []string {
	var out []string
	for _, rec := range records {
		if sc, ok := rec["post_shortcode"].(string); ok {
			out = append(out, sc)
		}
	}
	return out
}

func TestCrawlEndToEnd(t *testing.T) {
	src := newScriptedSource()
	src.addAccount("natgeo", video("natgeo", "N1", 500), video("natgeo", "N2", 800))
	src.addAccount("nasa", video("nasa", "S1", 900))

	e := newEnv(t, "natgeo", "nasa")
	require.NoError(t, e.run(t, context.Background(), src, nil))

	records := e.records(t)
	assert.Equal(t, []string{"N1", "N2", "S1"}, shortcodes(records))

	// Every record carries the run metadata and full extraction.
	first := records[0]
	assert.Equal(t, "natgeo", first["username"])
	assert.Equal(t, "posts", first["content_type"])
	assert.NotEmpty(t, first["run_id"])
	assert.NotEmpty(t, first["caption"])
	assert.InDelta(t, 10.06, first["engagement_rate"].(float64), 0.001)

	// Clean completion leaves no checkpoint behind.
	st := e.checkpoints.Load(context.Background())
	assert.False(t, st.Resuming())
}

func TestCrawlResumeAfterSuspension(t *testing.T) {
	src := newScriptedSource()
	src.addAccount("alpha", video("alpha", "A1", 100))
	src.addAccount("beta", video("beta", "B1", 100))

	e := newEnv(t, "alpha", "beta")

	// First run is suspended during the inter-account delay, after alpha.
	e.cfg.Crawl.AccountDelay = time.Minute
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	err := e.run(t, ctx, src, nil)
	assert.ErrorIs(t, err, context.Canceled)

	// The flushed checkpoint remembers alpha.
	st := e.checkpoints.Load(context.Background())
	assert.True(t, st.IsAccountCompleted("alpha"))

	// Second run completes the crawl without re-emitting alpha's items.
	e.cfg.Crawl.AccountDelay = 0
	require.NoError(t, e.run(t, context.Background(), src, nil))

	records := e.records(t)
	assert.Equal(t, []string{"A1", "B1"}, shortcodes(records))
	assert.Equal(t, 1, src.loadCalls["alpha"])

	st = e.checkpoints.Load(context.Background())
	assert.False(t, st.Resuming())
}

func TestCrawlDownloadsMediaOverHTTP(t *testing.T) {
	payload := []byte("binary video payload")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Write(payload)
	}))
	defer server.Close()

	item := video("natgeo", "N1", 500)
	item.VideoURL = server.URL + "/N1.mp4"

	src := newScriptedSource()
	src.addAccount("natgeo", item)

	e := newEnv(t, "natgeo")
	e.cfg.Crawl.StorageMethod = "both"

	manager, err := storage.NewManager(e.outputDir)
	require.NoError(t, err)
	client := instagram.NewClient(instagram.Options{}, logger.NewNop())
	fetcher := downloader.NewFetcher(client, manager, logger.NewNop())

	require.NoError(t, e.run(t, context.Background(), src, fetcher))

	data, err := os.ReadFile(filepath.Join(e.outputDir, "N1.mp4"))
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	records := e.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "N1.mp4", records[0]["local_filename"])
	assert.Equal(t, "ok", records[0]["download_status"])
}

func TestCrawlAbsorbsMissingProfile(t *testing.T) {
	src := newScriptedSource()
	src.addAccount("real", video("real", "R1", 100))

	e := newEnv(t, "missing", "real")
	require.NoError(t, e.run(t, context.Background(), src, nil))

	records := e.records(t)
	require.Len(t, records, 2)
	assert.Equal(t, "missing", records[0]["username"])
	assert.Equal(t, "not_found", records[0]["error_type"])
	assert.Equal(t, []string{"R1"}, shortcodes(records))
}
