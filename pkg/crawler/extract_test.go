package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igcrawler/pkg/config"
	"igcrawler/pkg/errors"
	"igcrawler/pkg/source"
)

func sampleItem() *source.Item {
	return &source.Item{
		ID:             "ABC123",
		Owner:          "alice",
		IsVideo:        true,
		Caption:        "Sunset over the bay #sunset #goldenhour",
		TakenAt:        time.Date(2024, 6, 15, 18, 45, 0, 0, time.UTC),
		Likes:          150,
		Comments:       50,
		VideoURL:       "https://cdn/abc.mp4",
		VideoViews:     5000,
		VideoDuration:  12.5,
		OwnerFollowers: 10000,
		Location:       "San Francisco",
	}
}

func TestBuildFullRecord(t *testing.T) {
	b := NewRecordBuilder(config.MetadataConfig{
		BasicInfo:         true,
		EngagementMetrics: true,
		LocationHashtags:  true,
	})

	rec := b.Build(sampleItem(), source.CategoryPosts)

	assert.Equal(t, "alice", rec["username"])
	assert.Equal(t, "ABC123", rec["post_shortcode"])
	assert.Equal(t, "https://www.instagram.com/p/ABC123/", rec["post_url"])
	assert.Equal(t, true, rec["is_video"])
	assert.Equal(t, "posts", rec["content_type"])
	assert.Equal(t, b.RunID(), rec["run_id"])
	assert.NotEmpty(t, rec["scraped_at"])

	assert.Equal(t, "Sunset over the bay #sunset #goldenhour", rec["caption"])
	assert.Equal(t, 150, rec["likes"])
	assert.Equal(t, 50, rec["comments_count"])
	assert.Equal(t, "2024-06-15T18:45:00Z", rec["timestamp"])

	assert.Equal(t, 5000, rec["video_views"])
	assert.Equal(t, 12.5, rec["video_duration"])
	// (150 + 50) / 10000 * 100 = 2.00
	assert.Equal(t, 2.0, rec["engagement_rate"])

	assert.Equal(t, []string{"sunset", "goldenhour"}, rec["hashtags"])
	assert.Equal(t, "San Francisco", rec["location"])
	assert.Equal(t, "https://cdn/abc.mp4", rec["video_url"])
}

func TestBuildRespectsMetadataToggles(t *testing.T) {
	b := NewRecordBuilder(config.MetadataConfig{})

	rec := b.Build(sampleItem(), source.CategoryReels)

	assert.Equal(t, "reels", rec["content_type"])
	assert.NotContains(t, rec, "caption")
	assert.NotContains(t, rec, "likes")
	assert.NotContains(t, rec, "engagement_rate")
	assert.NotContains(t, rec, "hashtags")
	assert.NotContains(t, rec, "location")
}

func TestBuildFailureRecord(t *testing.T) {
	b := NewRecordBuilder(config.MetadataConfig{})
	err := errors.New(errors.KindRateLimit, "rate limit exceeded", 429)
	cls := errors.Classify(err)

	rec := b.BuildFailure("alice", cls, err)

	assert.Equal(t, "alice", rec["username"])
	assert.Equal(t, "error", rec["content_type"])
	assert.Equal(t, "failed", rec["download_status"])
	assert.Equal(t, false, rec["is_video"])
	assert.Nil(t, rec["post_url"])
	assert.Contains(t, rec["error_message"], "rate limit exceeded")
	assert.Equal(t, "rate_limit", rec["error_type"])
	assert.Equal(t, true, rec["is_retryable"])
	assert.Equal(t, errors.Guidance(errors.KindRateLimit), rec["user_guidance"])
	assert.Equal(t, b.RunID(), rec["run_id"])
}

func TestDegradeForDownloadFailureKeepsMetadata(t *testing.T) {
	b := NewRecordBuilder(config.MetadataConfig{BasicInfo: true})
	err := errors.New(errors.KindConnectionError, "connection reset", 0)
	cls := errors.Classify(err)

	rec := b.Build(sampleItem(), source.CategoryPosts)
	b.DegradeForDownloadFailure(rec, cls, err)

	// Item metadata survives; only the download fields are added.
	assert.Equal(t, "ABC123", rec["post_shortcode"])
	assert.Equal(t, "Sunset over the bay #sunset #goldenhour", rec["caption"])
	assert.Equal(t, "failed", rec["download_status"])
	assert.Contains(t, rec["error_message"], "connection reset")
	assert.Equal(t, "connection_error", rec["error_type"])
	assert.Equal(t, true, rec["is_retryable"])
	assert.Equal(t, errors.Guidance(errors.KindConnectionError), rec["user_guidance"])
}

func TestEngagementRate(t *testing.T) {
	item := sampleItem()
	assert.Equal(t, 2.0, engagementRate(item))

	item.Likes = 333
	item.Comments = 0
	// 333/10000*100 = 3.33
	assert.Equal(t, 3.33, engagementRate(item))

	// Followers are clamped to 1.
	item.Likes = 2
	item.OwnerFollowers = 0
	assert.Equal(t, 200.0, engagementRate(item))
}

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		caption string
		want    []string
	}{
		{"no tags here", []string{}},
		{"#one", []string{"one"}},
		{"mixed #Tag_1 text #tag2", []string{"Tag_1", "tag2"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		got := extractHashtags(tt.caption)
		require.Equal(t, tt.want, got, "caption %q", tt.caption)
	}
}

func TestRunIDsDifferPerBuilder(t *testing.T) {
	a := NewRecordBuilder(config.MetadataConfig{})
	b := NewRecordBuilder(config.MetadataConfig{})
	assert.NotEqual(t, a.RunID(), b.RunID())
}
