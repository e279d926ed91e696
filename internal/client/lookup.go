package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/pkg/ytvideodata"
)

// VideoLookup resolves a video URL into playlist metadata.
type VideoLookup interface {
	Lookup(ctx context.Context, rawURL string) (protocol.VideoMeta, error)
}

// HTTPLookup asks the relay's video-info endpoint.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLookup(baseURL string, client *http.Client) *HTTPLookup {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPLookup{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

func (l *HTTPLookup) Lookup(ctx context.Context, rawURL string) (protocol.VideoMeta, error) {
	endpoint := l.baseURL + "/api/v1/video-info?" + url.Values{"url": {rawURL}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return protocol.VideoMeta{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return protocol.VideoMeta{}, fmt.Errorf("failed to get video info: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return protocol.VideoMeta{}, ytvideodata.ErrInvalidVideoURL
	case http.StatusNotFound:
		return protocol.VideoMeta{}, ytvideodata.ErrVideoNotFound
	default:
		var body struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&body)
		return protocol.VideoMeta{}, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, body.Error)
	}

	var meta protocol.VideoMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return protocol.VideoMeta{}, fmt.Errorf("failed to decode video info: %w", err)
	}

	return meta, nil
}
