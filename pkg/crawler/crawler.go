// Package crawler walks the configured accounts sequentially, extracting
// matching items into the dataset sink and checkpointing progress so an
// interrupted run resumes where it stopped.
package crawler

import (
	"context"
	stderrors "errors"
	"fmt"

	"igcrawler/pkg/checkpoint"
	"igcrawler/pkg/config"
	"igcrawler/pkg/errors"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/retry"
	"igcrawler/pkg/sink"
	"igcrawler/pkg/source"

	"igcrawler/internal/downloader"
)

// MediaFetcher downloads and stores an item's media file.
type MediaFetcher interface {
	Fetch(ctx context.Context, item *source.Item) (*downloader.Result, error)
}

// Deps are the collaborators the crawler drives.
type Deps struct {
	Source      source.Source
	Sink        sink.Sink
	Checkpoints *checkpoint.Store
	// Fetcher is nil when the storage method is urls-only.
	Fetcher MediaFetcher
	Logger  logger.Logger
}

// Crawler is the crawl orchestrator.
type Crawler struct {
	cfg         *config.Config
	source      source.Source
	sink        sink.Sink
	checkpoints *checkpoint.Store
	fetcher     MediaFetcher
	filters     Filters
	records     *RecordBuilder
	categories  []source.Category
	logger      logger.Logger
}

// New builds a crawler from the configuration and its collaborators.
func New(cfg *config.Config, deps Deps) (*Crawler, error) {
	filters, err := FiltersFromConfig(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("invalid filters: %w", err)
	}

	categories := make([]source.Category, 0, len(cfg.Crawl.Categories))
	for _, name := range cfg.Crawl.Categories {
		cat, err := source.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	if len(categories) == 0 {
		categories = source.DefaultCategories
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	return &Crawler{
		cfg:         cfg,
		source:      deps.Source,
		sink:        deps.Sink,
		checkpoints: deps.Checkpoints,
		fetcher:     deps.Fetcher,
		filters:     filters,
		records:     NewRecordBuilder(cfg.Metadata),
		categories:  categories,
		logger:      log,
	}, nil
}

// Run executes the crawl. It returns nil only on a clean full pass, in which
// case the checkpoint is cleared. On cancellation the state is flushed
// first and the context's error is returned.
func (c *Crawler) Run(ctx context.Context) error {
	accounts := c.cfg.Crawl.Accounts
	if len(accounts) == 0 {
		return stderrors.New("no accounts configured")
	}

	st := c.checkpoints.Load(ctx)
	if st.Resuming() {
		c.logger.InfoWithFields("resuming from checkpoint", st.ResumeInfo())
	}

	startIndex := st.CurrentAccountIndex()
	if startIndex < 0 || startIndex >= len(accounts) {
		startIndex = 0
	}

	for i := startIndex; i < len(accounts); i++ {
		username := accounts[i]

		if st.IsAccountCompleted(username) {
			c.logger.InfoWithFields("account already completed, skipping", map[string]interface{}{
				"username": username,
			})
			continue
		}

		// Pace between accounts, never before the first one processed.
		if i > startIndex && c.cfg.Crawl.AccountDelay > 0 {
			if err := retry.Wait(ctx, c.cfg.Crawl.AccountDelay); err != nil {
				return c.suspend(st, err)
			}
		}

		st.SetCurrentAccount(username, i)
		if err := c.checkpoints.Save(ctx, st); err != nil {
			c.logger.WarnWithFields("checkpoint save failed", map[string]interface{}{
				"error": err.Error(),
			})
		}

		if err := c.crawlAccount(ctx, st, username); err != nil {
			if ctx.Err() != nil {
				return c.suspend(st, ctx.Err())
			}
			c.absorbAccountFailure(ctx, st, username, err)
			continue
		}

		st.MarkAccountCompleted(username)
		if err := c.checkpoints.Save(ctx, st); err != nil {
			c.logger.WarnWithFields("checkpoint save failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return c.suspend(st, err)
	}

	c.logger.InfoWithFields("crawl completed", map[string]interface{}{
		"accounts_completed": st.CompletedCount(),
		"videos_emitted":     st.VideosEmitted(),
		"errors":             st.ErrorCount(),
	})

	if err := c.checkpoints.Clear(ctx); err != nil {
		c.logger.WarnWithFields("failed to clear checkpoint", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

// suspend flushes the state before handing the cancellation error back, so
// a migrated or interrupted run can resume.
func (c *Crawler) suspend(st *checkpoint.CrawlState, cause error) error {
	c.logger.WarnWithFields("crawl suspended, flushing checkpoint", map[string]interface{}{
		"cause": cause.Error(),
	})
	if err := c.checkpoints.Save(context.Background(), st); err != nil {
		c.logger.ErrorWithFields("final checkpoint flush failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return cause
}

// absorbAccountFailure classifies an account-level error, records it, and
// decides whether the account is terminally done. Retryable failures leave
// the account incomplete so a later run tries again.
func (c *Crawler) absorbAccountFailure(ctx context.Context, st *checkpoint.CrawlState, username string, err error) {
	cls := errors.Classify(err)
	st.IncrementErrors()

	c.logger.ErrorWithFields("account crawl failed", map[string]interface{}{
		"username":     username,
		"error":        err.Error(),
		"error_type":   string(cls.Kind),
		"is_retryable": cls.Retryable,
		"guidance":     cls.Guidance,
	})

	if pushErr := c.sink.Push(ctx, c.records.BuildFailure(username, cls, err)); pushErr != nil {
		c.logger.WarnWithFields("failed to push failure record", map[string]interface{}{
			"username": username,
			"error":    pushErr.Error(),
		})
	}

	if !cls.Retryable {
		st.MarkAccountCompleted(username)
	}
	if saveErr := c.checkpoints.Save(ctx, st); saveErr != nil {
		c.logger.WarnWithFields("checkpoint save failed", map[string]interface{}{
			"error": saveErr.Error(),
		})
	}
}

// crawlAccount loads one account with retries and walks its categories.
func (c *Crawler) crawlAccount(ctx context.Context, st *checkpoint.CrawlState, username string) error {
	retryCfg := &retry.Config{
		Policy: retry.Policy{
			MaxRetries:   c.cfg.Retry.MaxRetries,
			InitialDelay: c.cfg.Retry.InitialDelay,
			Multiplier:   c.cfg.Retry.Multiplier,
			MaxDelay:     c.cfg.Retry.MaxDelay,
			Jitter:       c.cfg.Retry.Jitter,
		},
		RetryIf: errors.IsRetryable,
		Logger:  c.logger,
	}

	acct, err := retry.DoWithResult(ctx, func() (source.Account, error) {
		return c.source.LoadAccount(ctx, username)
	}, retryCfg)
	if err != nil {
		return err
	}

	c.logger.InfoWithFields("crawling account", map[string]interface{}{
		"username":    acct.Username(),
		"media_count": acct.MediaCount(),
	})

	var accountVideos int
	for _, category := range c.categories {
		if category == source.CategoryStories {
			c.logger.WarnWithFields("stories require an authenticated session endpoint, skipping", map[string]interface{}{
				"username": username,
			})
			continue
		}

		err := c.crawlCategory(ctx, st, acct, category, &accountVideos)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			// Posts are the primary category: a failure there fails the
			// account. Secondary categories are best-effort.
			if category == source.CategoryPosts {
				return err
			}
			cls := errors.Classify(err)
			st.IncrementErrors()
			c.logger.WarnWithFields("secondary category failed", map[string]interface{}{
				"username":   username,
				"category":   string(category),
				"error":      err.Error(),
				"error_type": string(cls.Kind),
			})
		}
	}

	return nil
}

// crawlCategory walks one category's items, absorbing per-item failures.
func (c *Crawler) crawlCategory(ctx context.Context, st *checkpoint.CrawlState, acct source.Account, category source.Category, accountVideos *int) error {
	it := acct.Items(category)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if max := c.cfg.Crawl.MaxVideosPerAccount; max > 0 && *accountVideos >= max {
			c.logger.InfoWithFields("per-account video limit reached", map[string]interface{}{
				"username": acct.Username(),
				"limit":    max,
			})
			return nil
		}

		item, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if item == nil {
			return nil
		}

		if st.IsItemProcessed(item.ID) {
			c.logger.DebugWithFields("item already processed, skipping", map[string]interface{}{
				"shortcode": item.ID,
			})
			continue
		}

		if !c.filters.ShouldInclude(item) {
			continue
		}

		c.processItem(ctx, st, item, category, accountVideos)

		if err := c.checkpoints.CheckpointIfNeeded(ctx, st); err != nil {
			c.logger.WarnWithFields("periodic checkpoint failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
}

// processItem extracts one item into the sink, downloading media when the
// storage method asks for files. A failed download does not drop the item:
// the record keeps its metadata and is degraded with download_status
// "failed", so downstream consumers still see the post.
func (c *Crawler) processItem(ctx context.Context, st *checkpoint.CrawlState, item *source.Item, category source.Category, accountVideos *int) {
	rec := c.records.Build(item, category)

	wantFiles := c.cfg.Crawl.StorageMethod == "files" || c.cfg.Crawl.StorageMethod == "both"
	if wantFiles && item.IsVideo && c.fetcher != nil {
		result, err := c.fetcher.Fetch(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			cls := errors.Classify(err)
			st.IncrementErrors()
			c.logger.ErrorWithFields("item download failed", map[string]interface{}{
				"shortcode":  item.ID,
				"username":   item.Owner,
				"error":      err.Error(),
				"error_type": string(cls.Kind),
			})
			c.records.DegradeForDownloadFailure(rec, cls, err)
		} else {
			if result.Filename != "" {
				rec["local_filename"] = result.Filename
			}
			rec["download_status"] = "ok"
		}
	}

	if err := c.sink.Push(ctx, rec); err != nil {
		// Leave the item unprocessed so the next run re-emits it.
		st.IncrementErrors()
		c.logger.ErrorWithFields("failed to push record", map[string]interface{}{
			"shortcode": item.ID,
			"error":     err.Error(),
		})
		return
	}

	st.MarkItemProcessed(item.ID)
	st.IncrementVideosEmitted()
	*accountVideos++

	c.logger.DebugWithFields("item extracted", map[string]interface{}{
		"shortcode": item.ID,
		"username":  item.Owner,
		"category":  string(category),
	})
}
