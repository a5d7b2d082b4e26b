package instagram

import (
	"fmt"
	"net/url"

	"igcrawler/pkg/source"
)

const (
	// BaseURL is the base URL for Instagram.
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the endpoint pattern for user profiles.
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// MediaEndpoint is the endpoint pattern for paginated media queries.
	MediaEndpoint = "/graphql/query/"

	// DefaultPageSize is the number of media items fetched per request.
	DefaultPageSize = 50

	// MaxPageSize is the largest page the media endpoint accepts.
	MaxPageSize = 50
)

// queryHashes maps each content category to its GraphQL query hash. Stories
// use a different, authenticated endpoint and are not served here.
var queryHashes = map[source.Category]string{
	source.CategoryPosts: "e769aa130647d2354c40ea6a439bfc08",
	source.CategoryReels: "45246d3fe16ccc6577e0bd297a5db1ab",
	source.CategoryIGTV:  "bc78b344a68ed16dd5d7f264681c4c76",
}

// GetProfileURL constructs the URL for fetching a user's profile.
func GetProfileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s%s?%s", BaseURL, ProfileEndpoint, params.Encode())
}

// GetMediaURL constructs the URL for fetching one page of a user's media in
// the given category.
func GetMediaURL(userID string, category source.Category, after string) string {
	return GetMediaURLWithLimit(userID, category, after, DefaultPageSize)
}

// GetMediaURLWithLimit constructs a media page URL with a custom page size.
func GetMediaURLWithLimit(userID string, category source.Category, after string, limit int) string {
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > MaxPageSize {
		limit = MaxPageSize
	}

	hash, ok := queryHashes[category]
	if !ok {
		hash = queryHashes[source.CategoryPosts]
	}

	params := url.Values{}
	params.Set("query_hash", hash)
	params.Set("variables", fmt.Sprintf(`{"id":"%s","first":%d,"after":"%s"}`, userID, limit, after))

	return fmt.Sprintf("%s%s?%s", BaseURL, MediaEndpoint, params.Encode())
}

// GetPostURL constructs the URL for a specific post.
func GetPostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// IsValidUsername checks a username against Instagram's character rules.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	if username[0] == '@' {
		username = username[1:]
	}

	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
