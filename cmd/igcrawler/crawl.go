package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igcrawler/internal/downloader"
	"igcrawler/pkg/auth"
	"igcrawler/pkg/checkpoint"
	"igcrawler/pkg/config"
	"igcrawler/pkg/crawler"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/kv"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/ratelimit"
	"igcrawler/pkg/sink"
	"igcrawler/pkg/storage"
)

var (
	crawlMaxVideos     int
	crawlAccountDelay  time.Duration
	crawlStorageMethod string
	crawlCategories    []string
	crawlOutputDir     string
	crawlDatasetFile   string
	crawlVideosOnly    bool
	crawlMinLikes      int
	crawlDateFrom      string
	crawlDateTo        string
	crawlRateLimit     int
	crawlStateBackend  string
	crawlSessionID     string
	crawlCSRFToken     string
	crawlLoginUser     string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [usernames...]",
	Short: "Crawl accounts and extract their videos",
	Long: `Crawl one or more Instagram accounts sequentially, extracting matching
video posts into the dataset file and optionally downloading the media.

Accounts come from the arguments, the config file, or IGCRAWLER_ACCOUNTS.
Progress is checkpointed; re-running after an interruption resumes without
re-emitting items that were already extracted.`,
	Example: `  # Crawl two accounts with defaults
  igcrawler crawl natgeo nasa

  # Videos with at least 1000 likes, posted in 2024, metadata only
  igcrawler crawl natgeo --min-likes 1000 --date-from 2024-01-01 --storage-method urls`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().IntVar(&crawlMaxVideos, "max-videos", 0, "max videos per account (0 = config default)")
	crawlCmd.Flags().DurationVar(&crawlAccountDelay, "delay", 0, "delay between accounts (0 = config default)")
	crawlCmd.Flags().StringVar(&crawlStorageMethod, "storage-method", "", "what to store: urls, files, or both")
	crawlCmd.Flags().StringSliceVar(&crawlCategories, "categories", nil, "content categories to crawl (posts, reels, igtv)")
	crawlCmd.Flags().StringVarP(&crawlOutputDir, "output", "o", "", "output directory for downloaded media")
	crawlCmd.Flags().StringVar(&crawlDatasetFile, "dataset", "", "dataset file for extracted records")
	crawlCmd.Flags().BoolVar(&crawlVideosOnly, "videos-only", true, "only extract video posts")
	crawlCmd.Flags().IntVar(&crawlMinLikes, "min-likes", 0, "minimum like count")
	crawlCmd.Flags().StringVar(&crawlDateFrom, "date-from", "", "earliest post date (YYYY-MM-DD)")
	crawlCmd.Flags().StringVar(&crawlDateTo, "date-to", "", "latest post date (YYYY-MM-DD)")
	crawlCmd.Flags().IntVar(&crawlRateLimit, "rate-limit", 0, "requests per minute (0 = config default)")
	crawlCmd.Flags().StringVar(&crawlStateBackend, "state-backend", "", "checkpoint backend: file or redis")
	crawlCmd.Flags().StringVar(&crawlSessionID, "session-id", "", "Instagram session ID")
	crawlCmd.Flags().StringVar(&crawlCSRFToken, "csrf-token", "", "Instagram CSRF token")
	crawlCmd.Flags().StringVar(&crawlLoginUser, "login", "", "use stored credentials for this username")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	mergeCrawlFlags(cmd, cfg, args)

	if len(cfg.Crawl.Accounts) == 0 {
		return fmt.Errorf("no accounts to crawl: pass usernames as arguments or set crawl.accounts in the config")
	}

	if quiet {
		cfg.Logging.Level = "error"
	}
	if err := logger.Initialize(logger.Options{
		Level:   cfg.Logging.Level,
		File:    cfg.Logging.File,
		Console: true,
	}); err != nil {
		return err
	}
	log := logger.GetLogger()

	resolveCredentials(cfg, log)
	if cfg.Instagram.SessionID == "" {
		log.Warn("no session credentials configured; private or login-walled profiles will fail")
	}

	backend, closeBackend, err := newStateBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	checkpoints := checkpoint.NewStore(backend, cfg.State.Key, cfg.Crawl.CheckpointInterval, log)

	client := instagram.NewClient(instagram.Options{
		SessionID: cfg.Instagram.SessionID,
		CSRFToken: cfg.Instagram.CSRFToken,
		UserAgent: cfg.Instagram.UserAgent,
		Timeout:   cfg.Instagram.RequestTimeout,
		Limiter:   ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.BurstSize),
	}, log)

	dataset, err := sink.NewJSONLSink(cfg.Output.DatasetFile)
	if err != nil {
		return err
	}
	defer dataset.Close()

	deps := crawler.Deps{
		Source:      client,
		Sink:        dataset,
		Checkpoints: checkpoints,
		Logger:      log,
	}

	if cfg.Crawl.StorageMethod == "files" || cfg.Crawl.StorageMethod == "both" {
		manager, err := storage.NewManager(cfg.Output.BaseDirectory)
		if err != nil {
			return err
		}
		deps.Fetcher = downloader.NewFetcher(client, manager, log)
	}

	c, err := crawler.New(cfg, deps)
	if err != nil {
		return err
	}

	// SIGINT/SIGTERM cancel the crawl; Run flushes the checkpoint on its
	// way out so the next invocation resumes.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.InfoWithFields("starting crawl", map[string]interface{}{
		"accounts":       len(cfg.Crawl.Accounts),
		"categories":     cfg.Crawl.Categories,
		"storage_method": cfg.Crawl.StorageMethod,
	})

	return c.Run(ctx)
}

// mergeCrawlFlags overlays explicitly set flags and positional arguments
// onto the loaded configuration.
func mergeCrawlFlags(cmd *cobra.Command, cfg *config.Config, args []string) {
	if len(args) > 0 {
		cfg.Crawl.Accounts = args
	}
	if cmd.Flags().Changed("max-videos") {
		cfg.Crawl.MaxVideosPerAccount = crawlMaxVideos
	}
	if cmd.Flags().Changed("delay") {
		cfg.Crawl.AccountDelay = crawlAccountDelay
	}
	if cmd.Flags().Changed("storage-method") {
		cfg.Crawl.StorageMethod = crawlStorageMethod
	}
	if cmd.Flags().Changed("categories") {
		cfg.Crawl.Categories = crawlCategories
	}
	if cmd.Flags().Changed("output") {
		cfg.Output.BaseDirectory = crawlOutputDir
	}
	if cmd.Flags().Changed("dataset") {
		cfg.Output.DatasetFile = crawlDatasetFile
	}
	if cmd.Flags().Changed("videos-only") {
		cfg.Filters.VideosOnly = crawlVideosOnly
	}
	if cmd.Flags().Changed("min-likes") {
		cfg.Filters.MinLikes = crawlMinLikes
	}
	if cmd.Flags().Changed("date-from") {
		cfg.Filters.DateFrom = crawlDateFrom
	}
	if cmd.Flags().Changed("date-to") {
		cfg.Filters.DateTo = crawlDateTo
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.RateLimit.RequestsPerMinute = crawlRateLimit
	}
	if cmd.Flags().Changed("state-backend") {
		cfg.State.Backend = crawlStateBackend
	}
	if cmd.Flags().Changed("session-id") {
		cfg.Instagram.SessionID = crawlSessionID
	}
	if cmd.Flags().Changed("csrf-token") {
		cfg.Instagram.CSRFToken = crawlCSRFToken
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
}

// resolveCredentials fills in session credentials from the credential
// stores when the config and flags did not provide them.
func resolveCredentials(cfg *config.Config, log logger.Logger) {
	if cfg.Instagram.SessionID != "" && cfg.Instagram.CSRFToken != "" {
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.DebugWithFields("credential manager unavailable", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	var creds *auth.Credentials
	if crawlLoginUser != "" {
		creds, err = manager.Retrieve(crawlLoginUser)
	} else {
		creds, err = manager.RetrieveDefault()
	}
	if err != nil || creds == nil {
		return
	}

	cfg.Instagram.SessionID = creds.SessionID
	cfg.Instagram.CSRFToken = creds.CSRFToken
	if creds.UserAgent != "" {
		cfg.Instagram.UserAgent = creds.UserAgent
	}
	log.InfoWithFields("using stored credentials", map[string]interface{}{
		"login": creds.Username,
	})
}

// newStateBackend builds the checkpoint KV backend from the config.
func newStateBackend(cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.State.Backend {
	case "redis":
		store, err := kv.NewRedisStore(cfg.State.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, func() { store.Close() }, nil
	default:
		store, err := kv.NewFileStore(cfg.State.Directory)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open state directory: %w", err)
		}
		return store, func() {}, nil
	}
}
