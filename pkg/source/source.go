// Package source defines the content-source collaborator interfaces the
// crawl orchestrator consumes. Implementations load accounts and enumerate
// their items lazily; failures surface as structured *errors.Error values
// where the transport allows it.
package source

import (
	"context"
	"fmt"
	"time"
)

// Category is a content grouping within an account.
type Category string

const (
	CategoryPosts   Category = "posts"
	CategoryReels   Category = "reels"
	CategoryIGTV    Category = "igtv"
	CategoryStories Category = "stories"
)

// DefaultCategories is the fixed priority order used when none is
// configured.
var DefaultCategories = []Category{CategoryPosts, CategoryReels}

// ParseCategory validates a category name.
func ParseCategory(name string) (Category, error) {
	switch Category(name) {
	case CategoryPosts, CategoryReels, CategoryIGTV, CategoryStories:
		return Category(name), nil
	default:
		return "", fmt.Errorf("unknown content category: %q", name)
	}
}

// Item is a single piece of content belonging to an account. Only the
// fields the filters and the record builder consume are modeled.
type Item struct {
	// ID is the item's shortcode, unique across the platform.
	ID       string
	Owner    string
	IsVideo  bool
	Caption  string
	TakenAt  time.Time
	Likes    int
	Comments int

	VideoURL      string
	VideoViews    int
	VideoDuration float64

	OwnerFollowers int
	Location       string
}

// URL returns the canonical post URL for the item.
func (i *Item) URL() string {
	return fmt.Sprintf("https://www.instagram.com/p/%s/", i.ID)
}

// Iterator walks a category's items lazily. Next returns (nil, nil) when
// the sequence is exhausted. Sequences are finite but not restartable
// mid-walk: obtaining a fresh iterator starts over from the beginning,
// which is why the orchestrator deduplicates at the item level.
type Iterator interface {
	Next(ctx context.Context) (*Item, error)
}

// Account is a loaded content owner.
type Account interface {
	Username() string
	// MediaCount is the total item count the source reports, used only for
	// logging.
	MediaCount() int
	// Items returns a fresh iterator over the given category.
	Items(category Category) Iterator
}

// Source loads accounts by username.
type Source interface {
	LoadAccount(ctx context.Context, username string) (Account, error)
}

// Downloader fetches the raw media bytes for an item.
type Downloader interface {
	DownloadVideo(ctx context.Context, url string) ([]byte, error)
}
