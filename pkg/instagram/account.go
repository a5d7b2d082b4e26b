package instagram

import (
	"context"
	"time"

	"igcrawler/pkg/source"
)

// LoadAccount fetches a profile and returns it as a source.Account.
func (c *Client) LoadAccount(ctx context.Context, username string) (source.Account, error) {
	username = SanitizeUsername(username)

	user, err := c.fetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	c.logger.InfoWithFields("loaded account", map[string]interface{}{
		"username":    username,
		"user_id":     user.ID,
		"media_count": user.EdgeOwnerToTimelineMedia.Count,
		"followers":   user.EdgeFollowedBy.Count,
	})

	return &account{
		client:    c,
		username:  username,
		userID:    user.ID,
		mediaCnt:  user.EdgeOwnerToTimelineMedia.Count,
		followers: user.EdgeFollowedBy.Count,
	}, nil
}

type account struct {
	client    *Client
	username  string
	userID    string
	mediaCnt  int
	followers int
}

func (a *account) Username() string { return a.username }
func (a *account) MediaCount() int  { return a.mediaCnt }

// Items returns a fresh paginated iterator over one category.
func (a *account) Items(category source.Category) source.Iterator {
	return &mediaIterator{account: a, category: category}
}

// mediaIterator walks a media edge page by page, fetching lazily.
type mediaIterator struct {
	account  *account
	category source.Category

	buffer []source.Item
	after  string
	done   bool
}

// Next returns the next item, fetching the next page when the buffer runs
// out. (nil, nil) marks exhaustion.
func (it *mediaIterator) Next(ctx context.Context) (*source.Item, error) {
	for len(it.buffer) == 0 {
		if it.done {
			return nil, nil
		}
		if err := it.fetchPage(ctx); err != nil {
			return nil, err
		}
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]
	return &item, nil
}

func (it *mediaIterator) fetchPage(ctx context.Context) error {
	conn, err := it.account.client.fetchMediaPage(ctx, it.account.userID, it.category, it.after)
	if err != nil {
		return err
	}

	for _, edge := range conn.Edges {
		it.buffer = append(it.buffer, it.itemFromNode(&edge.Node))
	}

	if conn.PageInfo.HasNextPage && conn.PageInfo.EndCursor != "" {
		it.after = conn.PageInfo.EndCursor
	} else {
		it.done = true
	}
	return nil
}

func (it *mediaIterator) itemFromNode(n *Node) source.Item {
	var location string
	if n.Location != nil {
		location = n.Location.Name
	}
	return source.Item{
		ID:             n.Shortcode,
		Owner:          it.account.username,
		IsVideo:        n.IsVideo,
		Caption:        n.Caption(),
		TakenAt:        time.Unix(n.TakenAtTimestamp, 0).UTC(),
		Likes:          n.EdgeLikedBy.Count,
		Comments:       n.EdgeMediaToComment.Count,
		VideoURL:       n.VideoURL,
		VideoViews:     n.VideoViewCount,
		VideoDuration:  n.VideoDuration,
		OwnerFollowers: it.account.followers,
		Location:       location,
	}
}
