package ytvideodata

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

type getter interface {
	Get(ctx context.Context, videoID string) (*VideoData, error)
}

// Cache keeps successful lookups; failures are never cached.
type Cache struct {
	getter getter
	lru    *lru.Cache[string, VideoData]
}

func NewCache(g getter, size int) (*Cache, error) {
	l, err := lru.New[string, VideoData](size)
	if err != nil {
		return nil, err
	}

	return &Cache{getter: g, lru: l}, nil
}

func (c *Cache) Get(ctx context.Context, videoID string) (*VideoData, error) {
	if videoData, ok := c.lru.Get(videoID); ok {
		return &videoData, nil
	}

	videoData, err := c.getter.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	c.lru.Add(videoID, *videoData)

	return videoData, nil
}

func (c *Cache) Resolve(ctx context.Context, rawURL string) (*VideoData, error) {
	videoID, err := ExtractID(rawURL)
	if err != nil {
		return nil, err
	}

	return c.Get(ctx, videoID)
}
