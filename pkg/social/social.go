// Package social defines the social-network client the workflows drive.
//
// Everything above this package depends only on Client. pkg/instagram
// provides an HTTP implementation and Fake is an in-memory one for tests.
package social

import (
	"context"
	"strings"
	"time"
)

// FollowSuffix marks an activity story as a new follower event
const FollowSuffix = "started following you."

// MediaID is an opaque handle for a post; compared for equality only
type MediaID string

// Credential is what the client needs to log in
type Credential struct {
	Username string
	Password string
	Proxy    string
}

// MediaInfo holds the engagement numbers used for ranking
type MediaInfo struct {
	ID           MediaID
	LikeCount    int
	CommentCount int
}

// StoryArgs is the payload of an activity story
type StoryArgs struct {
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
	ProfileID   string `json:"profile_id"`
	ProfileName string `json:"profile_name"`
}

// Story is one entry of the account's activity feed
type Story struct {
	Args StoryArgs `json:"args"`
}

// Activity is the account's recent activity split like the API returns it
type Activity struct {
	NewStories []Story `json:"new_stories"`
	OldStories []Story `json:"old_stories"`
}

// Follower is a follow event extracted from the activity feed
type Follower struct {
	UserID     string
	Username   string
	FollowTime time.Time
}

// IsFollow reports whether the story announces a new follower
func (s Story) IsFollow() bool {
	return strings.HasSuffix(s.Args.Text, FollowSuffix)
}

// Time returns the story timestamp in UTC
func (s Story) Time() time.Time {
	return time.Unix(s.Args.Timestamp, 0).UTC()
}

// User is a thread participant
type User struct {
	PK       string
	Username string
}

// ThreadItem is the last message of a thread
type ThreadItem struct {
	ItemType string
	Text     string
}

// Thread is a direct-message conversation
type Thread struct {
	ThreadID string
	Inviter  User
	LastItem ThreadItem
}

// IsText reports whether the last item of the thread is a plain text message
func (t Thread) IsText() bool {
	return t.LastItem.ItemType == "text"
}

// Client is the social-network collaborator
type Client interface {
	Login(ctx context.Context, cred Credential) error
	RecentActivity(ctx context.Context) (*Activity, error)
	UserMedia(ctx context.Context, username string) ([]MediaID, error)
	MediaInfo(ctx context.Context, id MediaID) (*MediaInfo, error)
	// DownloadPhoto saves the photo locally and returns its path. With
	// saveCaption a caption sidecar is written next to it.
	DownloadPhoto(ctx context.Context, id MediaID, saveCaption bool) (string, error)
	UploadPhoto(ctx context.Context, path, caption string) error
	// SendMessage sends text to recipients (user IDs). A non-empty threadID
	// replies into that thread.
	SendMessage(ctx context.Context, text string, recipients []string, threadID string) error
	Inbox(ctx context.Context) ([]Thread, error)
	HashtagUsers(ctx context.Context, tag string) ([]string, error)
	Follow(ctx context.Context, userID string) error
	Unfollow(ctx context.Context, userID string) error
	Followers(ctx context.Context) ([]string, error)
	Following(ctx context.Context) ([]string, error)
	UsernameFromID(ctx context.Context, userID string) (string, error)
	UserIDFromUsername(ctx context.Context, username string) (string, error)
	MediaLikers(ctx context.Context, id MediaID) ([]string, error)
	UploadStoryPhoto(ctx context.Context, path string) error
}
