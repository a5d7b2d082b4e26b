package crawler

import (
	"time"

	"igcrawler/pkg/config"
	"igcrawler/pkg/source"
)

// Filters decide which items are worth extracting. They run before any
// download so excluded items cost nothing beyond the listing request.
type Filters struct {
	VideosOnly bool
	MinLikes   int
	// DateFrom and DateTo bound TakenAt inclusively. Zero values mean
	// unbounded.
	DateFrom time.Time
	DateTo   time.Time
}

// FiltersFromConfig parses the configured filter boundaries.
func FiltersFromConfig(cfg config.FilterConfig) (Filters, error) {
	f := Filters{
		VideosOnly: cfg.VideosOnly,
		MinLikes:   cfg.MinLikes,
	}

	if cfg.DateFrom != "" {
		from, err := config.ParseDate(cfg.DateFrom)
		if err != nil {
			return Filters{}, err
		}
		f.DateFrom = from
	}
	if cfg.DateTo != "" {
		to, err := config.ParseDate(cfg.DateTo)
		if err != nil {
			return Filters{}, err
		}
		f.DateTo = to
	}
	return f, nil
}

// ShouldInclude reports whether the item passes every configured filter.
func (f Filters) ShouldInclude(item *source.Item) bool {
	if f.VideosOnly && !item.IsVideo {
		return false
	}
	if f.MinLikes > 0 && item.Likes < f.MinLikes {
		return false
	}
	if !f.DateFrom.IsZero() && item.TakenAt.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && !item.TakenAt.Before(f.DateTo.AddDate(0, 0, 1)) {
		return false
	}
	return true
}
