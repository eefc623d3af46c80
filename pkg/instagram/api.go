package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	errs "igbot/pkg/errors"
	"igbot/pkg/social"
)

var _ social.Client = (*Client)(nil)

// Login authenticates with username and password through the web login flow
func (c *Client) Login(ctx context.Context, cred social.Credential) error {
	if cred.Proxy != "" {
		transport, err := newTransport(cred.Proxy)
		if err != nil {
			return err
		}
		c.httpClient.Transport = transport
	}

	// The landing page sets the csrftoken cookie the login form needs
	if _, err := c.send(ctx, request{method: http.MethodGet, path: "/"}); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	form := url.Values{}
	form.Set("username", cred.Username)
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), cred.Password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	var resp LoginResponse
	if err := c.post(ctx, LoginEndpoint, form, &resp); err != nil {
		return err
	}

	switch {
	case resp.CheckpointURL != "" || resp.ErrorType == "checkpoint_required":
		return errs.New(errs.ErrorTypeChallenge, http.StatusBadRequest, "login requires a checkpoint: %s", resp.CheckpointURL)
	case resp.TwoFactor:
		return errs.New(errs.ErrorTypeChallenge, http.StatusBadRequest, "two-factor authentication is not supported")
	case !resp.Authenticated:
		return errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "login failed for %s", cred.Username)
	}

	c.setUserID(resp.UserID)
	c.logger.InfoWithFields("Logged in", map[string]interface{}{
		"username": cred.Username,
		"user_id":  resp.UserID,
	})
	return nil
}

// RecentActivity returns the account's activity feed
func (c *Client) RecentActivity(ctx context.Context) (*social.Activity, error) {
	var resp ActivityResponse
	if err := c.get(ctx, ActivityEndpoint, &resp); err != nil {
		return nil, err
	}
	return resp.ToActivity(), nil
}

// FetchUserProfile fetches the Instagram user profile data
func (c *Client) FetchUserProfile(ctx context.Context, username string) (*InstagramResponse, error) {
	c.logger.DebugWithFields("fetching user profile", map[string]interface{}{
		"username": username,
	})

	var response InstagramResponse
	if err := c.get(ctx, GetProfileURL(username), &response); err != nil {
		c.logger.ErrorWithFields("failed to fetch user profile", map[string]interface{}{
			"username": username,
			"error":    err.Error(),
		})
		return nil, err
	}

	if response.RequiresToLogin {
		c.logger.WarnWithFields("authentication required for profile", map[string]interface{}{
			"username": username,
		})
		return nil, errs.New(errs.ErrorTypeAuth, http.StatusUnauthorized, "Instagram requires authentication to view this profile")
	}

	return &response, nil
}

// FetchUserMedia fetches paginated media for a user
func (c *Client) FetchUserMedia(ctx context.Context, userID string, after string) (*InstagramResponse, error) {
	c.logger.DebugWithFields("fetching user media", map[string]interface{}{
		"user_id": userID,
		"after":   after,
	})

	var response InstagramResponse
	if err := c.get(ctx, GetMediaURL(userID, after), &response); err != nil {
		c.logger.ErrorWithFields("failed to fetch user media", map[string]interface{}{
			"user_id": userID,
			"after":   after,
			"error":   err.Error(),
		})
		return nil, err
	}

	return &response, nil
}

// UserMedia returns the ids of every photo the user has posted
func (c *Client) UserMedia(ctx context.Context, username string) ([]social.MediaID, error) {
	name := SanitizeUsername(username)
	if !IsValidUsername(name) {
		return nil, errs.New(errs.ErrorTypeNotFound, http.StatusNotFound, "invalid username %q", username)
	}
	profile, err := c.FetchUserProfile(ctx, name)
	if err != nil {
		return nil, err
	}

	user := profile.Data.User
	var ids []social.MediaID
	timeline := user.EdgeOwnerToTimelineMedia
	for {
		for _, edge := range timeline.Edges {
			if !edge.Node.IsVideo {
				ids = append(ids, social.MediaID(edge.Node.ID))
			}
		}
		if !timeline.PageInfo.HasNextPage || timeline.PageInfo.EndCursor == "" {
			break
		}

		page, err := c.FetchUserMedia(ctx, user.ID, timeline.PageInfo.EndCursor)
		if err != nil {
			return nil, err
		}
		timeline = page.Data.User.EdgeOwnerToTimelineMedia
	}

	c.logger.DebugWithFields("fetched user media", map[string]interface{}{
		"username": username,
		"count":    len(ids),
	})
	return ids, nil
}

func (c *Client) mediaItem(ctx context.Context, id social.MediaID) (*MediaItem, error) {
	var resp MediaInfoResponse
	if err := c.get(ctx, GetMediaInfoURL(string(id)), &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, errs.New(errs.ErrorTypeNotFound, http.StatusNotFound, "media %s not found", id)
	}
	return &resp.Items[0], nil
}

// MediaInfo returns the like and comment counts of a media
func (c *Client) MediaInfo(ctx context.Context, id social.MediaID) (*social.MediaInfo, error) {
	item, err := c.mediaItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return &social.MediaInfo{ID: id, LikeCount: item.LikeCount, CommentCount: item.CommentCount}, nil
}

// fetch downloads raw bytes such as a photo from a CDN URL
func (c *Client) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	c.logger.DebugWithFields("downloading photo", map[string]interface{}{
		"url": rawURL,
	})
	data, err := c.send(ctx, request{method: http.MethodGet, path: rawURL})
	if err != nil {
		c.logger.ErrorWithFields("failed to download photo", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return nil, err
	}
	return data, nil
}

// DownloadPhoto saves the photo as <id>.jpg. The photos of a carousel post are
// saved as <id>_0.jpg, <id>_1.jpg and so on, skipping other children, and the
// first one is returned. The caption sidecar is <id>.txt.
func (c *Client) DownloadPhoto(ctx context.Context, id social.MediaID, saveCaption bool) (string, error) {
	item, err := c.mediaItem(ctx, id)
	if err != nil {
		return "", err
	}

	name := string(id)
	var first string
	switch item.MediaType {
	case MediaTypeCarousel:
		n := 0
		for i := range item.CarouselMedia {
			child := &item.CarouselMedia[i]
			if child.MediaType != MediaTypePhoto {
				continue
			}
			path, err := c.savePhoto(ctx, child, fmt.Sprintf("%s_%d", name, n))
			if err != nil {
				return "", err
			}
			n++
			if first == "" {
				first = path
			}
		}
		if first == "" {
			return "", errs.New(errs.ErrorTypeNotFound, 0, "carousel %s has no photos", id)
		}
	case MediaTypePhoto:
		first, err = c.savePhoto(ctx, item, name)
		if err != nil {
			return "", err
		}
	default:
		return "", errs.New(errs.ErrorTypeNotFound, 0, "media %s is not a photo", id)
	}

	if saveCaption {
		if _, err := c.storage.SaveCaption(name, item.CaptionText()); err != nil {
			return "", err
		}
	}
	return first, nil
}

func (c *Client) savePhoto(ctx context.Context, item *MediaItem, name string) (string, error) {
	if c.storage.IsDownloaded(name) {
		return c.storage.PhotoPath(name), nil
	}
	photoURL := item.BestImageURL()
	if photoURL == "" {
		return "", errs.New(errs.ErrorTypeParsing, 0, "media %s has no image url", name)
	}
	data, err := c.fetch(ctx, photoURL)
	if err != nil {
		return "", err
	}
	return c.storage.SavePhoto(bytes.NewReader(data), name)
}

// SendMessage sends text to recipients, which may be user ids or usernames.
// A non-empty threadID replies into that thread instead.
func (c *Client) SendMessage(ctx context.Context, text string, recipients []string, threadID string) error {
	form := url.Values{}
	form.Set("text", text)
	form.Set("action", "send_item")
	form.Set("client_context", uuid.NewString())

	if threadID != "" {
		form.Set("thread_ids", fmt.Sprintf(`["%s"]`, threadID))
	} else {
		ids := make([]string, 0, len(recipients))
		for _, r := range recipients {
			id, err := c.resolveUserID(ctx, r)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		encoded, err := json.Marshal([][]string{ids})
		if err != nil {
			return err
		}
		form.Set("recipient_users", string(encoded))
	}

	var resp struct {
		Status string `json:"status"`
	}
	return c.post(ctx, BroadcastTextEndpoint, form, &resp)
}

// Inbox returns the direct message threads
func (c *Client) Inbox(ctx context.Context) ([]social.Thread, error) {
	var resp InboxResponse
	if err := c.get(ctx, InboxEndpoint, &resp); err != nil {
		return nil, err
	}
	return resp.ToThreads(), nil
}

// HashtagUsers returns the ids of users who recently posted under tag
func (c *Client) HashtagUsers(ctx context.Context, tag string) ([]string, error) {
	var resp TagFeedResponse
	if err := c.get(ctx, GetTagFeedURL(tag), &resp); err != nil {
		return nil, err
	}

	seen := make(map[ID]bool)
	var users []string
	for _, item := range resp.Items {
		if item.User.PK == "" || seen[item.User.PK] {
			continue
		}
		seen[item.User.PK] = true
		users = append(users, string(item.User.PK))
	}
	return users, nil
}

// Follow follows a user given by id or username
func (c *Client) Follow(ctx context.Context, userID string) error {
	id, err := c.resolveUserID(ctx, userID)
	if err != nil {
		return err
	}
	var resp struct {
		Status string `json:"status"`
	}
	return c.post(ctx, GetFollowURL("create", id), nil, &resp)
}

// Unfollow unfollows a user given by id or username
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	id, err := c.resolveUserID(ctx, userID)
	if err != nil {
		return err
	}
	var resp struct {
		Status string `json:"status"`
	}
	return c.post(ctx, GetFollowURL("destroy", id), nil, &resp)
}

func (c *Client) friendships(ctx context.Context, kind string) ([]string, error) {
	self, err := c.requireLogin()
	if err != nil {
		return nil, err
	}

	var ids []string
	maxID := ""
	for {
		var page UsersResponse
		if err := c.get(ctx, GetFriendshipsURL(self, kind, maxID), &page); err != nil {
			return nil, err
		}
		for _, u := range page.Users {
			ids = append(ids, string(u.PK))
		}
		if page.NextMaxID == "" {
			return ids, nil
		}
		maxID = page.NextMaxID
	}
}

// Followers returns the ids of the accounts following the logged-in user
func (c *Client) Followers(ctx context.Context) ([]string, error) {
	return c.friendships(ctx, "followers")
}

// Following returns the ids of the accounts the logged-in user follows
func (c *Client) Following(ctx context.Context) ([]string, error) {
	return c.friendships(ctx, "following")
}

// UsernameFromID resolves a user id to its username
func (c *Client) UsernameFromID(ctx context.Context, userID string) (string, error) {
	var resp UserInfoResponse
	if err := c.get(ctx, GetUserInfoURL(userID), &resp); err != nil {
		return "", err
	}
	return resp.User.Username, nil
}

// UserIDFromUsername resolves a username to its user id
func (c *Client) UserIDFromUsername(ctx context.Context, username string) (string, error) {
	name := SanitizeUsername(username)
	if !IsValidUsername(name) {
		return "", errs.New(errs.ErrorTypeNotFound, http.StatusNotFound, "invalid username %q", username)
	}
	profile, err := c.FetchUserProfile(ctx, name)
	if err != nil {
		return "", err
	}
	if profile.Data.User.ID == "" {
		return "", errs.New(errs.ErrorTypeNotFound, http.StatusNotFound, "user %s not found", username)
	}
	return profile.Data.User.ID, nil
}

func (c *Client) resolveUserID(ctx context.Context, user string) (string, error) {
	if IsNumericID(user) {
		return user, nil
	}
	return c.UserIDFromUsername(ctx, user)
}

// MediaLikers returns the ids of the users who liked a media
func (c *Client) MediaLikers(ctx context.Context, id social.MediaID) ([]string, error) {
	var resp UsersResponse
	if err := c.get(ctx, GetMediaLikersURL(string(id)), &resp); err != nil {
		return nil, err
	}
	likers := make([]string, 0, len(resp.Users))
	for _, u := range resp.Users {
		likers = append(likers, string(u.PK))
	}
	return likers, nil
}

// uploadID returns a fresh upload id
func uploadID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
