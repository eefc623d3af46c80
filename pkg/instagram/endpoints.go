package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the endpoint pattern for user profiles
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// MediaEndpoint is the endpoint pattern for user media
	MediaEndpoint = "/graphql/query/"

	// MediaQueryHash is the query hash for fetching user media
	MediaQueryHash = "e769aa130647d2354c40ea6a439bfc08"

	// DefaultMediaLimit is the default number of media items to fetch per request
	DefaultMediaLimit = 12

	// MaxMediaLimit is the maximum number of media items that can be fetched per request
	MaxMediaLimit = 50

	// Private web API endpoints used by the workflows
	LoginEndpoint          = "/accounts/login/ajax/"
	ActivityEndpoint       = "/api/v1/news/inbox/"
	InboxEndpoint          = "/api/v1/direct_v2/inbox/"
	BroadcastTextEndpoint  = "/api/v1/direct_v2/threads/broadcast/text/"
	ConfigureEndpoint      = "/api/v1/media/configure/"
	ConfigureStoryEndpoint = "/api/v1/media/configure_to_story/"
)

// GetProfileURL constructs the path for fetching a user's profile
func GetProfileURL(username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s?%s", ProfileEndpoint, params.Encode())
}

// GetMediaURL constructs the path for fetching a user's media with pagination
func GetMediaURL(userID string, after string) string {
	return GetMediaURLWithLimit(userID, after, DefaultMediaLimit)
}

// GetMediaURLWithLimit constructs the path for fetching a user's media with custom limit
func GetMediaURLWithLimit(userID string, after string, limit int) string {
	if limit <= 0 {
		limit = DefaultMediaLimit
	} else if limit > MaxMediaLimit {
		limit = MaxMediaLimit
	}

	params := url.Values{}
	params.Set("query_hash", MediaQueryHash)
	params.Set("variables", fmt.Sprintf(`{"id":"%s","first":%d,"after":"%s"}`, userID, limit, after))

	return fmt.Sprintf("%s?%s", MediaEndpoint, params.Encode())
}

// GetMediaInfoURL returns the path of a single media's details
func GetMediaInfoURL(mediaID string) string {
	return fmt.Sprintf("/api/v1/media/%s/info/", url.PathEscape(mediaID))
}

// GetMediaLikersURL returns the path listing who liked a media
func GetMediaLikersURL(mediaID string) string {
	return fmt.Sprintf("/api/v1/media/%s/likers/", url.PathEscape(mediaID))
}

// GetUserInfoURL returns the path of a user's details by id
func GetUserInfoURL(userID string) string {
	return fmt.Sprintf("/api/v1/users/%s/info/", url.PathEscape(userID))
}

// GetFriendshipsURL returns the followers or following page of a user
func GetFriendshipsURL(userID, kind, maxID string) string {
	params := url.Values{}
	params.Set("count", "200")
	if maxID != "" {
		params.Set("max_id", maxID)
	}
	return fmt.Sprintf("/api/v1/friendships/%s/%s/?%s", url.PathEscape(userID), kind, params.Encode())
}

// GetFollowURL returns the path to follow (create) or unfollow (destroy) a user
func GetFollowURL(action, userID string) string {
	return fmt.Sprintf("/api/v1/friendships/%s/%s/", action, url.PathEscape(userID))
}

// GetTagFeedURL returns the recent posts of a hashtag
func GetTagFeedURL(tag string) string {
	return fmt.Sprintf("/api/v1/feed/tag/%s/", url.PathEscape(tag))
}

// GetUploadURL returns the resumable upload path for a photo
func GetUploadURL(uploadName string) string {
	return fmt.Sprintf("/rupload_igphoto/%s", uploadName)
}

// IsValidUsername checks if a username is valid according to Instagram rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Instagram usernames can only contain letters, numbers, periods, and underscores
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

// IsNumericID reports whether s looks like a user pk rather than a username
func IsNumericID(s string) bool {
	if s == "" {
		return false
	}
	for _, char := range s {
		if char < '0' || char > '9' {
			return false
		}
	}
	return true
}

// SanitizeUsername removes any invalid characters from a username
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	// Remove @ symbol if present at the beginning
	if username[0] == '@' {
		username = username[1:]
	}

	// Remove any trailing slashes or spaces
	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
