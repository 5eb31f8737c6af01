package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rcmckee/bigcases2/core"
)

type MastodonConfig struct {
	ServerURL   string
	AccessToken string
	HTTPClient  *http.Client
}

func DefaultMastodonConfig() MastodonConfig {
	return MastodonConfig{HTTPClient: http.DefaultClient}
}

// MastodonClient posts statuses to a single Mastodon instance through its
// REST API. Media goes up first, then the status references it by id.
type MastodonClient struct {
	cfg MastodonConfig
}

func NewMastodonClient(cfg MastodonConfig) (*MastodonClient, error) {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = DefaultMastodonConfig().HTTPClient
	}
	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if cfg.ServerURL == "" {
		return nil, channelError("mastodon server url is required", nil)
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, channelError("mastodon access token is required", nil)
	}
	return &MastodonClient{cfg: cfg}, nil
}

type mastodonStatusRequest struct {
	Status   string   `json:"status"`
	MediaIDs []string `json:"media_ids,omitempty"`
}

type mastodonStatusResponse struct {
	ID string `json:"id"`
}

type mastodonMediaResponse struct {
	ID string `json:"id"`
}

func (c *MastodonClient) Submit(ctx context.Context, text string, image *core.ImageFile, files []core.ImageFile) (string, error) {
	var mediaIDs []string
	attachments := files
	if image != nil {
		attachments = append([]core.ImageFile{*image}, files...)
	}
	for _, file := range attachments {
		mediaID, err := c.uploadMedia(ctx, file)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	payload := mastodonStatusRequest{Status: text, MediaIDs: mediaIDs}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", channelWrapError(err, "mastodon: encode status payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL+"/api/v1/statuses", bytes.NewReader(body))
	if err != nil {
		return "", channelWrapError(err, "mastodon: build status request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", channelWrapError(err, "mastodon: post status")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", channelStatusError("mastodon", resp)
	}

	var parsed mastodonStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", channelWrapError(err, "mastodon: decode status response")
	}
	if parsed.ID == "" {
		return "", channelError("mastodon: response carries no status id", nil)
	}
	return parsed.ID, nil
}

func (c *MastodonClient) uploadMedia(ctx context.Context, file core.ImageFile) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return "", channelWrapError(err, "mastodon: build media form")
	}
	if _, err := part.Write(file.Content); err != nil {
		return "", channelWrapError(err, "mastodon: write media form")
	}
	if err := writer.Close(); err != nil {
		return "", channelWrapError(err, "mastodon: close media form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServerURL+"/api/v2/media", &buf)
	if err != nil {
		return "", channelWrapError(err, "mastodon: build media request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", channelWrapError(err, "mastodon: upload media")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return "", channelStatusError("mastodon", resp)
	}

	var parsed mastodonMediaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", channelWrapError(err, "mastodon: decode media response")
	}
	if parsed.ID == "" {
		return "", channelError("mastodon: upload response carries no media id", nil)
	}
	return parsed.ID, nil
}

var _ core.PostClient = (*MastodonClient)(nil)
