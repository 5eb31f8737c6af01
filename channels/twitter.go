package channels

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/rcmckee/bigcases2/core"
)

const (
	twitterAPIBase    = "https://api.twitter.com"
	twitterUploadBase = "https://upload.twitter.com"
)

type TwitterConfig struct {
	AccessToken string
	APIBaseURL  string
	UploadURL   string
	HTTPClient  *http.Client
}

func DefaultTwitterConfig() TwitterConfig {
	return TwitterConfig{
		APIBaseURL: twitterAPIBase,
		UploadURL:  twitterUploadBase,
		HTTPClient: http.DefaultClient,
	}
}

// TwitterClient posts statuses through the v2 tweet endpoint and attaches
// media through the v1.1 upload endpoint, which v2 still delegates to.
type TwitterClient struct {
	cfg TwitterConfig
}

func NewTwitterClient(cfg TwitterConfig) (*TwitterClient, error) {
	defaults := DefaultTwitterConfig()
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaults.APIBaseURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = defaults.UploadURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = defaults.HTTPClient
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, channelError("twitter access token is required", nil)
	}
	return &TwitterClient{cfg: cfg}, nil
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type mediaUploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

func (c *TwitterClient) Submit(ctx context.Context, text string, image *core.ImageFile, files []core.ImageFile) (string, error) {
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

	payload := tweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &tweetMedia{MediaIDs: mediaIDs}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", channelWrapError(err, "twitter: encode tweet payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", channelWrapError(err, "twitter: build tweet request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", channelWrapError(err, "twitter: post tweet")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", channelStatusError("twitter", resp)
	}

	var parsed tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", channelWrapError(err, "twitter: decode tweet response")
	}
	if parsed.Data.ID == "" {
		return "", channelError("twitter: response carries no tweet id", nil)
	}
	return parsed.Data.ID, nil
}

func (c *TwitterClient) uploadMedia(ctx context.Context, file core.ImageFile) (string, error) {
	form := url.Values{}
	form.Set("media_data", base64.StdEncoding.EncodeToString(file.Content))

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.cfg.UploadURL+"/1.1/media/upload.json",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return "", channelWrapError(err, "twitter: build media upload request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", channelWrapError(err, "twitter: upload media")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", channelStatusError("twitter", resp)
	}

	var parsed mediaUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", channelWrapError(err, "twitter: decode media upload response")
	}
	if parsed.MediaIDString == "" {
		return "", channelError("twitter: upload response carries no media id", nil)
	}
	return parsed.MediaIDString, nil
}

func channelError(message string, metadata map[string]any) error {
	err := goerrors.New(message, goerrors.CategoryExternal).
		WithTextCode(core.PipelineErrorExternalCallFailed)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func channelWrapError(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithTextCode(core.PipelineErrorExternalCallFailed)
}

func channelStatusError(service string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return channelError(
		fmt.Sprintf("%s: unexpected status %d", service, resp.StatusCode),
		map[string]any{
			"status_code": resp.StatusCode,
			"body":        string(snippet),
		},
	)
}

var _ core.PostClient = (*TwitterClient)(nil)
