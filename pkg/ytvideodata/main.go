package ytvideodata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type VideoData struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

const (
	defaultOEmbedURL = "https://www.youtube.com/oembed"
	defaultPageURL   = "https://youtu.be/"
	defaultTimeout   = 10 * time.Second
)

type Fetcher struct {
	client    *http.Client
	oembedURL string
	pageURL   string
}

type Option func(*Fetcher)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithOEmbedURL overrides the oEmbed endpoint.
func WithOEmbedURL(u string) Option {
	return func(f *Fetcher) {
		f.oembedURL = u
	}
}

// WithPageURL overrides the prefix the video id is appended to for the page fallback.
func WithPageURL(u string) Option {
	return func(f *Fetcher) {
		f.pageURL = u
	}
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: defaultTimeout},
		oembedURL: defaultOEmbedURL,
		pageURL:   defaultPageURL,
	}
	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *Fetcher) Get(ctx context.Context, videoID string) (*VideoData, error) {
	videoData, err := f.getWithEmbed(ctx, videoID)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = f.getFromPage(ctx, videoID)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	videoData.ID = videoID

	return videoData, nil
}

// Resolve extracts the id from rawURL and fetches its metadata.
func (f *Fetcher) Resolve(ctx context.Context, rawURL string) (*VideoData, error) {
	videoID, err := ExtractID(rawURL)
	if err != nil {
		return nil, err
	}

	return f.Get(ctx, videoID)
}
