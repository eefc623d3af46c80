package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	errs "igbot/pkg/errors"
	"igbot/pkg/media"
)

// uploadPhoto normalises the photo at path, pushes it to the resumable upload
// endpoint and returns the upload id to configure
func (c *Client) uploadPhoto(ctx context.Context, path string) (string, error) {
	size := c.normalizeSize
	if size <= 0 {
		size = media.DefaultMaxSize
	}
	normalized, err := media.NormalizeFile(path, size)
	if err != nil {
		return "", err
	}
	defer os.Remove(normalized)

	data, err := os.ReadFile(normalized)
	if err != nil {
		return "", fmt.Errorf("failed to read normalized photo: %w", err)
	}

	id := uploadID()
	params, err := json.Marshal(map[string]string{
		"media_type":        "1",
		"upload_id":         id,
		"image_compression": `{"lib_name":"moz","lib_version":"3.1.m","quality":"80"}`,
	})
	if err != nil {
		return "", err
	}

	name := "fb_uploader_" + id
	r := request{
		method: http.MethodPost,
		path:   GetUploadURL(name),
		body:   data,
		headers: map[string]string{
			"X-Entity-Type":              "image/jpeg",
			"X-Entity-Name":              name,
			"X-Entity-Length":            strconv.Itoa(len(data)),
			"Offset":                     "0",
			"X-Instagram-Rupload-Params": string(params),
		},
	}

	var resp UploadResponse
	if err := c.sendJSON(ctx, r, &resp); err != nil {
		return "", err
	}
	if resp.UploadID == "" {
		resp.UploadID = id
	}

	c.logger.DebugWithFields("photo uploaded", map[string]interface{}{
		"path":      path,
		"upload_id": resp.UploadID,
		"bytes":     len(data),
	})
	return resp.UploadID, nil
}

func (c *Client) configure(ctx context.Context, endpoint string, form url.Values) error {
	var resp ConfigureResponse
	if err := c.post(ctx, endpoint, form, &resp); err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "ok" {
		return errs.New(errs.ErrorTypeUnknown, http.StatusOK, "configure returned status %q", resp.Status)
	}
	return nil
}

// UploadPhoto posts the photo at path to the feed with caption
func (c *Client) UploadPhoto(ctx context.Context, path, caption string) error {
	id, err := c.uploadPhoto(ctx, path)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("upload_id", id)
	form.Set("caption", caption)
	form.Set("source_type", "library")
	if err := c.configure(ctx, ConfigureEndpoint, form); err != nil {
		return err
	}

	c.logger.InfoWithFields("Photo posted", map[string]interface{}{
		"path": path,
	})
	return nil
}

// UploadStoryPhoto posts the photo at path as a story
func (c *Client) UploadStoryPhoto(ctx context.Context, path string) error {
	id, err := c.uploadPhoto(ctx, path)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("upload_id", id)
	form.Set("source_type", "4")
	form.Set("configure_mode", "1")
	if err := c.configure(ctx, ConfigureStoryEndpoint, form); err != nil {
		return err
	}

	c.logger.InfoWithFields("Story posted", map[string]interface{}{
		"path": path,
	})
	return nil
}
