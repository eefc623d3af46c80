package instagram

import (
	"strings"

	"igbot/pkg/social"
)

// InstagramResponse represents the top-level response from Instagram API
type InstagramResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            Data   `json:"data"`
	Status          string `json:"status"`
}

// Data wraps the user information in the response
type Data struct {
	User User `json:"user"`
}

// User represents an Instagram user profile
type User struct {
	ID                       string                   `json:"id"`
	Username                 string                   `json:"username"`
	EdgeOwnerToTimelineMedia EdgeOwnerToTimelineMedia `json:"edge_owner_to_timeline_media"`
}

// EdgeOwnerToTimelineMedia contains the user's media information
type EdgeOwnerToTimelineMedia struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []Edge   `json:"edges"`
}

// PageInfo contains pagination information
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// Edge wraps a single media node
type Edge struct {
	Node Node `json:"node"`
}

// Node represents a single media item (photo or video)
type Node struct {
	ID         string `json:"id"`
	Shortcode  string `json:"shortcode"`
	DisplayURL string `json:"display_url"`
	IsVideo    bool   `json:"is_video"`
}

// ID is a numeric identifier the API sends either as a number or a string
type ID string

// UnmarshalJSON accepts both 123 and "123"
func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*id = ID(s)
	return nil
}

// UserSummary is the short user object embedded in most responses
type UserSummary struct {
	PK       ID     `json:"pk"`
	Username string `json:"username"`
}

// ImageCandidate is one rendition of a photo
type ImageCandidate struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// Caption holds a media caption
type Caption struct {
	Text string `json:"text"`
}

// MediaItem is a media object of the private API
type MediaItem struct {
	ID             string      `json:"id"`
	PK             ID          `json:"pk"`
	MediaType      int         `json:"media_type"`
	LikeCount      int         `json:"like_count"`
	CommentCount   int         `json:"comment_count"`
	Caption        *Caption    `json:"caption"`
	User           UserSummary `json:"user"`
	ImageVersions2 struct {
		Candidates []ImageCandidate `json:"candidates"`
	} `json:"image_versions2"`
	CarouselMedia []MediaItem `json:"carousel_media"`
}

// Media types
const (
	MediaTypePhoto    = 1
	MediaTypeVideo    = 2
	MediaTypeCarousel = 8
)

// BestImageURL returns the largest rendition of the item
func (m *MediaItem) BestImageURL() string {
	best := ""
	area := -1
	for _, c := range m.ImageVersions2.Candidates {
		if a := c.Width * c.Height; a > area {
			area = a
			best = c.URL
		}
	}
	return best
}

// CaptionText returns the caption or an empty string
func (m *MediaItem) CaptionText() string {
	if m.Caption == nil {
		return ""
	}
	return m.Caption.Text
}

// MediaInfoResponse is the response of the media info endpoint
type MediaInfoResponse struct {
	Items  []MediaItem `json:"items"`
	Status string      `json:"status"`
}

// UsersResponse is a page of users (likers, followers, following)
type UsersResponse struct {
	Users     []UserSummary `json:"users"`
	NextMaxID string        `json:"next_max_id"`
	Status    string        `json:"status"`
}

// UserInfoResponse is the response of the user info endpoint
type UserInfoResponse struct {
	User   UserSummary `json:"user"`
	Status string      `json:"status"`
}

// TagFeedResponse is a page of recent posts for a hashtag
type TagFeedResponse struct {
	Items  []MediaItem `json:"items"`
	Status string      `json:"status"`
}

// StoryArgs mirrors the activity story payload
type StoryArgs struct {
	Text        string  `json:"text"`
	Timestamp   float64 `json:"timestamp"`
	ProfileID   ID      `json:"profile_id"`
	ProfileName string  `json:"profile_name"`
}

// ActivityStory is one activity feed entry
type ActivityStory struct {
	Args StoryArgs `json:"args"`
}

// ActivityResponse is the response of the activity feed endpoint
type ActivityResponse struct {
	NewStories []ActivityStory `json:"new_stories"`
	OldStories []ActivityStory `json:"old_stories"`
	Status     string          `json:"status"`
}

func convertStories(in []ActivityStory) []social.Story {
	out := make([]social.Story, 0, len(in))
	for _, s := range in {
		out = append(out, social.Story{Args: social.StoryArgs{
			Text:        s.Args.Text,
			Timestamp:   int64(s.Args.Timestamp),
			ProfileID:   string(s.Args.ProfileID),
			ProfileName: s.Args.ProfileName,
		}})
	}
	return out
}

// ToActivity converts the response to the client-neutral form
func (r *ActivityResponse) ToActivity() *social.Activity {
	return &social.Activity{
		NewStories: convertStories(r.NewStories),
		OldStories: convertStories(r.OldStories),
	}
}

// ThreadItem is the last permanent item of a thread
type ThreadItem struct {
	ItemType string `json:"item_type"`
	Text     string `json:"text"`
}

// InboxThread is a direct thread as returned by the inbox endpoint
type InboxThread struct {
	ThreadID          string      `json:"thread_id"`
	Inviter           UserSummary `json:"inviter"`
	LastPermanentItem ThreadItem  `json:"last_permanent_item"`
}

// InboxResponse is the response of the direct inbox endpoint
type InboxResponse struct {
	Inbox struct {
		Threads []InboxThread `json:"threads"`
	} `json:"inbox"`
	Status string `json:"status"`
}

// ToThreads converts the response to the client-neutral form
func (r *InboxResponse) ToThreads() []social.Thread {
	threads := make([]social.Thread, 0, len(r.Inbox.Threads))
	for _, t := range r.Inbox.Threads {
		threads = append(threads, social.Thread{
			ThreadID: t.ThreadID,
			Inviter:  social.User{PK: string(t.Inviter.PK), Username: t.Inviter.Username},
			LastItem: social.ThreadItem{ItemType: t.LastPermanentItem.ItemType, Text: t.LastPermanentItem.Text},
		})
	}
	return threads
}

// LoginResponse is the response of the web login endpoint
type LoginResponse struct {
	Authenticated bool   `json:"authenticated"`
	User          bool   `json:"user"`
	UserID        string `json:"userId"`
	Status        string `json:"status"`
	Message       string `json:"message"`
	CheckpointURL string `json:"checkpoint_url"`
	ErrorType     string `json:"error_type"`
	TwoFactor     bool   `json:"two_factor_required"`
}

// UploadResponse is the response of the resumable upload endpoint
type UploadResponse struct {
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
}

// ConfigureResponse is the response of the configure endpoints
type ConfigureResponse struct {
	Media  MediaItem `json:"media"`
	Status string    `json:"status"`
}
