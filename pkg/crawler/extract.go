package crawler

import (
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"

	"igcrawler/pkg/config"
	"igcrawler/pkg/errors"
	"igcrawler/pkg/sink"
	"igcrawler/pkg/source"
)

var hashtagPattern = regexp.MustCompile(`#(\w+)`)

// RecordBuilder turns items into dataset records. Every record in one run
// carries the same run_id.
type RecordBuilder struct {
	metadata config.MetadataConfig
	runID    string
}

// NewRecordBuilder creates a builder with a fresh run identifier.
func NewRecordBuilder(metadata config.MetadataConfig) *RecordBuilder {
	return &RecordBuilder{
		metadata: metadata,
		runID:    uuid.NewString(),
	}
}

// RunID returns the run identifier stamped on every record.
func (b *RecordBuilder) RunID() string { return b.runID }

// Build assembles the dataset record for one item. The metadata toggles
// decide which optional field groups are included.
func (b *RecordBuilder) Build(item *source.Item, category source.Category) sink.Record {
	rec := sink.Record{
		"username":       item.Owner,
		"post_shortcode": item.ID,
		"post_url":       item.URL(),
		"is_video":       item.IsVideo,
		"content_type":   string(category),
		"scraped_at":     time.Now().UTC().Format(time.RFC3339),
		"run_id":         b.runID,
	}

	if item.VideoURL != "" {
		rec["video_url"] = item.VideoURL
	}

	if b.metadata.BasicInfo {
		rec["caption"] = item.Caption
		rec["timestamp"] = item.TakenAt.UTC().Format(time.RFC3339)
		rec["likes"] = item.Likes
		rec["comments_count"] = item.Comments
	}

	if b.metadata.EngagementMetrics {
		rec["video_views"] = item.VideoViews
		rec["video_duration"] = item.VideoDuration
		rec["engagement_rate"] = engagementRate(item)
	}

	if b.metadata.LocationHashtags {
		rec["hashtags"] = extractHashtags(item.Caption)
		if item.Location != "" {
			rec["location"] = item.Location
		}
	}

	return rec
}

// BuildFailure assembles the failure record pushed when an account could
// not be processed at all.
func (b *RecordBuilder) BuildFailure(username string, cls errors.Classified, err error) sink.Record {
	return sink.Record{
		"username":        username,
		"post_url":        nil,
		"is_video":        false,
		"content_type":    "error",
		"download_status": "failed",
		"error_message":   err.Error(),
		"error_type":      string(cls.Kind),
		"is_retryable":    cls.Retryable,
		"user_guidance":   cls.Guidance,
		"scraped_at":      time.Now().UTC().Format(time.RFC3339),
		"run_id":          b.runID,
	}
}

// DegradeForDownloadFailure marks an item record whose media download
// failed. The metadata stays intact; only the download fields change.
func (b *RecordBuilder) DegradeForDownloadFailure(rec sink.Record, cls errors.Classified, err error) {
	rec["download_status"] = "failed"
	rec["error_message"] = err.Error()
	rec["error_type"] = string(cls.Kind)
	rec["is_retryable"] = cls.Retryable
	rec["user_guidance"] = cls.Guidance
}

// engagementRate is (likes + comments) / followers * 100, rounded to two
// decimal places. Followers are clamped to 1 so a profile reporting zero
// still gets a rate.
func engagementRate(item *source.Item) float64 {
	followers := item.OwnerFollowers
	if followers < 1 {
		followers = 1
	}
	rate := float64(item.Likes+item.Comments) / float64(followers) * 100
	return math.Round(rate*100) / 100
}

// extractHashtags pulls the hashtag words out of a caption, without the #.
func extractHashtags(caption string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(caption, -1)
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		tags = append(tags, m[1])
	}
	return tags
}
