package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/pkg/ytvideodata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/video-info", r.URL.Path)

		switch r.URL.Query().Get("url") {
		case "https://youtu.be/abc12345678":
			json.NewEncoder(w).Encode(protocol.VideoMeta{Id: "abc12345678", Title: "first"})
		case "https://youtu.be/missing0000":
			w.WriteHeader(http.StatusNotFound)
		case "https://youtu.be/broken00000":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"upstream down"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(server.Close)

	l := NewHTTPLookup(server.URL+"/", nil)
	ctx := context.Background()

	meta, err := l.Lookup(ctx, "https://youtu.be/abc12345678")
	require.NoError(t, err)
	assert.Equal(t, protocol.VideoMeta{Id: "abc12345678", Title: "first"}, meta)

	_, err = l.Lookup(ctx, "https://youtu.be/missing0000")
	assert.ErrorIs(t, err, ytvideodata.ErrVideoNotFound)

	_, err = l.Lookup(ctx, "https://example.com")
	assert.ErrorIs(t, err, ytvideodata.ErrInvalidVideoURL)

	_, err = l.Lookup(ctx, "https://youtu.be/broken00000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:8080", "ws://localhost:8080/api/v1/ws", false},
		{"https://relay.example.com/", "wss://relay.example.com/api/v1/ws", false},
		{"ws://127.0.0.1:80", "ws://127.0.0.1:80/api/v1/ws", false},
		{"ftp://example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := WebsocketURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
