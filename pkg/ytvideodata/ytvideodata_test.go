package ytvideodata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractID(t *testing.T) {
	for _, rawURL := range []string{
		"https://www.youtube.com/watch?v=abc12345678",
		"https://youtu.be/abc12345678",
		"https://www.youtube.com/shorts/abc12345678",
		"https://www.youtube.com/embed/abc12345678?autoplay=1",
		"https://www.youtube.com/watch?feature=share&v=abc12345678",
		"https://m.youtube.com/v/abc12345678",
	} {
		id, err := ExtractID(rawURL)
		require.NoError(t, err, rawURL)
		assert.Equal(t, "abc12345678", id, rawURL)
	}

	for _, rawURL := range []string{
		"https://example.com/video",
		"",
		"https://youtu.be/short",
	} {
		_, err := ExtractID(rawURL)
		assert.ErrorIs(t, err, ErrInvalidVideoURL, rawURL)
	}
}

func newTestServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		target := r.URL.Query().Get("url")
		switch {
		case strings.HasSuffix(target, "abc12345678"):
			w.Write([]byte(`{"title":"First","author_name":"Author","thumbnail_url":"https://i.ytimg.com/vi/abc12345678/hqdefault.jpg"}`))
		case strings.HasSuffix(target, "private0000"):
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/page/private0000", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Hidden - YouTube</title></head>
<body><span><link itemprop="name" content="Channel"></span></body></html>`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestFetcherGet(t *testing.T) {
	var hits atomic.Int32
	server := newTestServer(t, &hits)
	f := NewFetcher(WithOEmbedURL(server.URL+"/oembed"), WithPageURL(server.URL+"/page/"))
	ctx := context.Background()

	videoData, err := f.Resolve(ctx, "https://youtu.be/abc12345678")
	require.NoError(t, err)
	assert.Equal(t, &VideoData{
		ID:           "abc12345678",
		Title:        "First",
		AuthorName:   "Author",
		ThumbnailURL: "https://i.ytimg.com/vi/abc12345678/hqdefault.jpg",
	}, videoData)

	videoData, err = f.Get(ctx, "private0000")
	require.NoError(t, err)
	assert.Equal(t, "Hidden", videoData.Title)
	assert.Equal(t, "Channel", videoData.AuthorName)
	assert.Equal(t, "private0000", videoData.ID)

	_, err = f.Get(ctx, "missing0000")
	assert.ErrorIs(t, err, ErrVideoNotFound)

	_, err = f.Resolve(ctx, "https://example.com/video")
	assert.ErrorIs(t, err, ErrInvalidVideoURL)
}

func TestCache(t *testing.T) {
	var hits atomic.Int32
	server := newTestServer(t, &hits)
	c, err := NewCache(NewFetcher(WithOEmbedURL(server.URL+"/oembed")), 8)
	require.NoError(t, err)
	ctx := context.Background()

	for range 3 {
		videoData, err := c.Resolve(ctx, "https://www.youtube.com/watch?v=abc12345678")
		require.NoError(t, err)
		assert.Equal(t, "First", videoData.Title)
	}
	assert.Equal(t, int32(1), hits.Load())

	for range 2 {
		_, err := c.Get(ctx, "missing0000")
		assert.ErrorIs(t, err, ErrVideoNotFound)
	}
	assert.Equal(t, int32(3), hits.Load())
}
