package instagram

import "igcrawler/pkg/source"

// Response is the top-level shape shared by the profile and media endpoints.
type Response struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            Data   `json:"data"`
	Status          string `json:"status"`
}

// Data wraps the user information in the response.
type Data struct {
	User *User `json:"user"`
}

// User is an Instagram user profile together with its media edges. The
// profile endpoint populates the identity fields; media queries populate
// only the edge matching the requested category.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"full_name"`
	IsPrivate      bool   `json:"is_private"`
	EdgeFollowedBy Count  `json:"edge_followed_by"`

	EdgeOwnerToTimelineMedia MediaConnection `json:"edge_owner_to_timeline_media"`
	EdgeClipsMedia           MediaConnection `json:"edge_clips_media"`
	EdgeFelixVideoTimeline   MediaConnection `json:"edge_felix_video_timeline"`
}

// MediaFor returns the media edge for a category.
func (u *User) MediaFor(category source.Category) *MediaConnection {
	switch category {
	case source.CategoryReels:
		return &u.EdgeClipsMedia
	case source.CategoryIGTV:
		return &u.EdgeFelixVideoTimeline
	default:
		return &u.EdgeOwnerToTimelineMedia
	}
}

// Count wraps the count-only edges.
type Count struct {
	Count int `json:"count"`
}

// MediaConnection is one page of media items plus pagination state.
type MediaConnection struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []Edge   `json:"edges"`
}

// PageInfo contains pagination information.
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// Edge wraps a single media node.
type Edge struct {
	Node Node `json:"node"`
}

// Node is a single media item.
type Node struct {
	ID                 string       `json:"id"`
	Shortcode          string       `json:"shortcode"`
	DisplayURL         string       `json:"display_url"`
	IsVideo            bool         `json:"is_video"`
	VideoURL           string       `json:"video_url"`
	VideoViewCount     int          `json:"video_view_count"`
	VideoDuration      float64      `json:"video_duration"`
	TakenAtTimestamp   int64        `json:"taken_at_timestamp"`
	EdgeMediaToCaption CaptionEdges `json:"edge_media_to_caption"`
	EdgeLikedBy        Count        `json:"edge_liked_by"`
	EdgeMediaToComment Count        `json:"edge_media_to_comment"`
	Location           *Location    `json:"location"`
}

// Caption returns the first caption text, if any.
func (n *Node) Caption() string {
	if len(n.EdgeMediaToCaption.Edges) == 0 {
		return ""
	}
	return n.EdgeMediaToCaption.Edges[0].Node.Text
}

// CaptionEdges wraps the caption edge list.
type CaptionEdges struct {
	Edges []CaptionEdge `json:"edges"`
}

// CaptionEdge wraps one caption node.
type CaptionEdge struct {
	Node CaptionNode `json:"node"`
}

// CaptionNode holds the caption text.
type CaptionNode struct {
	Text string `json:"text"`
}

// Location is the tagged location of a media item.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
