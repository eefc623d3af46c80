package social

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SentMessage records one SendMessage call on Fake
type SentMessage struct {
	Text       string
	Recipients []string
	ThreadID   string
}

// Upload records one UploadPhoto call on Fake
type Upload struct {
	Path    string
	Caption string
}

// Fake is an in-memory Client for tests. Populate the exported maps, inject
// errors through the Err fields, and inspect the recorded calls afterwards.
type Fake struct {
	mu sync.Mutex

	// Data served by the fake
	Media       map[string][]MediaID // username -> media
	Info        map[MediaID]*MediaInfo
	Captions    map[MediaID]string
	Activities  []*Activity // served in order, last one repeats
	Threads     []Thread
	Hashtags    map[string][]string
	FollowerIDs []string
	FollowingID []string
	Usernames   map[string]string // user ID -> username
	Likers      map[MediaID][]string

	// DownloadDir is where DownloadPhoto writes files. Empty means no files
	// are written and the returned path is synthetic.
	DownloadDir string

	// Error injection for testing
	LoginError       error
	ActivityErrors   []error // consumed one per call, nil entries succeed
	UserMediaError   error
	MediaInfoError   error
	DownloadErrors   map[MediaID]error
	UploadErrors     map[string]error // path -> error
	SendError        error
	InboxError       error
	FollowError      error
	UnfollowError    error
	StoryUploadError error

	// Recorded calls
	LoggedIn       *Credential
	UserMediaCalls []string
	MediaInfoCalls []MediaID
	Downloads      []MediaID
	Uploads        []Upload
	Sent           []SentMessage
	Followed       []string
	Unfollowed     []string
	Stories        []string
	ActivityCalls  int
}

// NewFake creates an empty fake client
func NewFake() *Fake {
	return &Fake{
		Media:          make(map[string][]MediaID),
		Info:           make(map[MediaID]*MediaInfo),
		Captions:       make(map[MediaID]string),
		Hashtags:       make(map[string][]string),
		Usernames:      make(map[string]string),
		Likers:         make(map[MediaID][]string),
		DownloadErrors: make(map[MediaID]error),
		UploadErrors:   make(map[string]error),
	}
}

func (f *Fake) Login(ctx context.Context, cred Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoginError != nil {
		return f.LoginError
	}
	c := cred
	f.LoggedIn = &c
	return nil
}

func (f *Fake) RecentActivity(ctx context.Context) (*Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.ActivityCalls
	f.ActivityCalls++
	if call < len(f.ActivityErrors) && f.ActivityErrors[call] != nil {
		return nil, f.ActivityErrors[call]
	}
	if len(f.Activities) == 0 {
		return &Activity{}, nil
	}
	if call >= len(f.Activities) {
		call = len(f.Activities) - 1
	}
	return f.Activities[call], nil
}

func (f *Fake) UserMedia(ctx context.Context, username string) ([]MediaID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UserMediaCalls = append(f.UserMediaCalls, username)
	if f.UserMediaError != nil {
		return nil, f.UserMediaError
	}
	return append([]MediaID(nil), f.Media[username]...), nil
}

func (f *Fake) MediaInfo(ctx context.Context, id MediaID) (*MediaInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.MediaInfoCalls = append(f.MediaInfoCalls, id)
	if f.MediaInfoError != nil {
		return nil, f.MediaInfoError
	}
	info, ok := f.Info[id]
	if !ok {
		return &MediaInfo{ID: id}, nil
	}
	cp := *info
	cp.ID = id
	return &cp, nil
}

func (f *Fake) DownloadPhoto(ctx context.Context, id MediaID, saveCaption bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Downloads = append(f.Downloads, id)
	if err := f.DownloadErrors[id]; err != nil {
		return "", err
	}

	name := string(id) + ".jpg"
	if f.DownloadDir == "" {
		return name, nil
	}

	path := filepath.Join(f.DownloadDir, name)
	if err := os.WriteFile(path, []byte("photo "+string(id)), 0644); err != nil {
		return "", err
	}
	if caption, ok := f.Captions[id]; ok && saveCaption {
		if err := os.WriteFile(path[:len(path)-3]+"txt", []byte(caption), 0644); err != nil {
			return "", err
		}
	}
	return path, nil
}

func (f *Fake) UploadPhoto(ctx context.Context, path, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.UploadErrors[path]; err != nil {
		return err
	}
	f.Uploads = append(f.Uploads, Upload{Path: path, Caption: caption})
	return nil
}

func (f *Fake) SendMessage(ctx context.Context, text string, recipients []string, threadID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendError != nil {
		return f.SendError
	}
	f.Sent = append(f.Sent, SentMessage{
		Text:       text,
		Recipients: append([]string(nil), recipients...),
		ThreadID:   threadID,
	})
	return nil
}

func (f *Fake) Inbox(ctx context.Context) ([]Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InboxError != nil {
		return nil, f.InboxError
	}
	return append([]Thread(nil), f.Threads...), nil
}

func (f *Fake) HashtagUsers(ctx context.Context, tag string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Hashtags[tag]...), nil
}

func (f *Fake) Follow(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FollowError != nil {
		return f.FollowError
	}
	f.Followed = append(f.Followed, userID)
	return nil
}

func (f *Fake) Unfollow(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UnfollowError != nil {
		return f.UnfollowError
	}
	f.Unfollowed = append(f.Unfollowed, userID)
	return nil
}

func (f *Fake) Followers(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.FollowerIDs...), nil
}

func (f *Fake) Following(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.FollowingID...), nil
}

func (f *Fake) UsernameFromID(ctx context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.Usernames[userID]
	if !ok {
		return "", fmt.Errorf("unknown user id %s", userID)
	}
	return name, nil
}

func (f *Fake) UserIDFromUsername(ctx context.Context, username string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, name := range f.Usernames {
		if name == username {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown username %s", username)
}

func (f *Fake) MediaLikers(ctx context.Context, id MediaID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Likers[id]...), nil
}

func (f *Fake) UploadStoryPhoto(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StoryUploadError != nil {
		return f.StoryUploadError
	}
	f.Stories = append(f.Stories, path)
	return nil
}

var _ Client = (*Fake)(nil)
