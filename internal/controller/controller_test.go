package controller

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/lockstep/internal/protocol"
	connInmemory "github.com/sharetube/lockstep/internal/repository/connection/inmemory"
	roomInmemory "github.com/sharetube/lockstep/internal/repository/room/inmemory"
	"github.com/sharetube/lockstep/internal/service/room"
	"github.com/sharetube/lockstep/pkg/ytvideodata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVideoInfo struct{}

func (fakeVideoInfo) Resolve(_ context.Context, rawURL string) (*ytvideodata.VideoData, error) {
	id, err := ytvideodata.ExtractID(rawURL)
	if err != nil {
		return nil, err
	}

	if id == "missing0000" {
		return nil, ytvideodata.ErrVideoNotFound
	}

	return &ytvideodata.VideoData{ID: id, Title: "title " + id, AuthorName: "author"}, nil
}

func newTestServer(t *testing.T, negativeAcks bool) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	connRepo := connInmemory.NewRepo(logger)
	roomService := room.NewService(roomInmemory.NewRepo(logger), connRepo, &room.Config{
		MembersLimit:  9,
		PlaylistLimit: 25,
	}, logger)
	ctrl := NewController(roomService, connRepo, fakeVideoInfo{}, &Config{
		NegativeAcks: negativeAcks,
		SendBuffer:   64,
	}, logger)

	server := httptest.NewServer(ctrl.GetMux())
	t.Cleanup(server.Close)

	return server
}

type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, server *httptest.Server) *testClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(typ string, payload any) {
	c.t.Helper()

	require.NoError(c.t, c.conn.WriteJSON(protocol.Output{Type: typ, Payload: payload}))
}

func (c *testClient) read() protocol.Message {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg protocol.Message
	require.NoError(c.t, c.conn.ReadJSON(&msg))

	return msg
}

func (c *testClient) expect(typ string, payload any) {
	c.t.Helper()

	msg := c.read()
	require.Equal(c.t, typ, msg.Type)
	if payload != nil {
		require.NoError(c.t, json.Unmarshal(msg.Payload, payload))
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, false)

	resp, err := http.Get(server.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestVideoInfo(t *testing.T) {
	server := newTestServer(t, false)

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"watch url", "https://www.youtube.com/watch?v=abc12345678", http.StatusOK},
		{"missing url", "", http.StatusBadRequest},
		{"not youtube", "https://example.com/video", http.StatusBadRequest},
		{"not found", "https://youtu.be/missing0000", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, server.URL+"/api/v1/video-info", nil)
			require.NoError(t, err)
			q := req.URL.Query()
			q.Set("url", tt.url)
			req.URL.RawQuery = q.Encode()

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				var meta protocol.VideoMeta
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
				assert.Equal(t, "abc12345678", meta.Id)
				assert.Equal(t, "title abc12345678", meta.Title)
			}
		})
	}
}

func TestRoomSync(t *testing.T) {
	server := newTestServer(t, false)

	a, b := dial(t, server), dial(t, server)
	a.send(protocol.EventJoinRoom, protocol.JoinRoomInput{RoomId: "r1"})
	var init protocol.RoomSnapshot
	a.expect(protocol.EventInit, &init)
	assert.Empty(t, init.Playlist)

	a.send(protocol.EventUpdatePlaylist, protocol.UpdatePlaylistInput{
		RoomId:   "r1",
		Playlist: []protocol.VideoMeta{{Id: "abc12345678"}, {Id: "xyz12345678"}},
	})
	a.expect(protocol.EventPlaylistUpdated, nil)

	b.send(protocol.EventJoinRoom, protocol.JoinRoomInput{RoomId: "r1"})
	b.expect(protocol.EventInit, &init)
	assert.Len(t, init.Playlist, 2)

	a.send(protocol.EventPlayVideo, protocol.PlayVideoInput{RoomId: "r1", Index: 1})
	for _, c := range []*testClient{a, b} {
		var played protocol.PlayVideoOutput
		c.expect(protocol.EventPlayVideo, &played)
		assert.Equal(t, protocol.PlayVideoOutput{CurrentIndex: 1, IsPlaying: true}, played)
	}

	a.send(protocol.EventPlaybackTimeUpdate, protocol.PlaybackTimeUpdateInput{RoomId: "r1", Time: 7.5})
	var tu protocol.PlaybackTimeUpdateOutput
	b.expect(protocol.EventPlaybackTimeUpdate, &tu)
	assert.Equal(t, 7.5, tu.Time)

	b.send(protocol.EventPauseVideo, protocol.PauseVideoInput{RoomId: "r1"})
	a.expect(protocol.EventPauseVideo, nil)
	b.expect(protocol.EventPauseVideo, nil)

	resp, err := http.Get(server.URL + "/api/v1/rooms/r1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state room.Room
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, 1, state.CurrentIndex)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, 7.5, state.CurrentTime)
	assert.Len(t, state.MemberIds, 2)

	resp, err = http.Get(server.URL + "/api/v1/rooms/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRejectedIntents(t *testing.T) {
	t.Run("dropped silently", func(t *testing.T) {
		server := newTestServer(t, false)
		a := dial(t, server)
		a.send(protocol.EventJoinRoom, protocol.JoinRoomInput{RoomId: "r1"})
		a.expect(protocol.EventInit, nil)

		a.send(protocol.EventPlayVideo, protocol.PlayVideoInput{RoomId: "r1", Index: 3})
		a.send(protocol.EventPauseVideo, protocol.PauseVideoInput{RoomId: "r1"})

		// the rejected play produced nothing, the pause is the next message
		a.expect(protocol.EventPauseVideo, nil)
	})

	t.Run("negative acks", func(t *testing.T) {
		server := newTestServer(t, true)
		a := dial(t, server)
		a.send(protocol.EventJoinRoom, protocol.JoinRoomInput{RoomId: "r1"})
		a.expect(protocol.EventInit, nil)

		a.send(protocol.EventPlayVideo, protocol.PlayVideoInput{RoomId: "r1", Index: 3})
		var rejected protocol.IntentRejectedOutput
		a.expect(protocol.EventIntentRejected, &rejected)
		assert.Equal(t, protocol.EventPlayVideo, rejected.Type)
		assert.Contains(t, rejected.Reason, room.ErrIndexOutOfRange.Error())

		a.send(protocol.EventJoinRoom, protocol.JoinRoomInput{})
		a.expect(protocol.EventIntentRejected, &rejected)
		assert.Equal(t, protocol.EventJoinRoom, rejected.Type)

		a.send("bogus", nil)
		a.expect(protocol.EventIntentRejected, &rejected)
		assert.Equal(t, "bogus", rejected.Type)

		a.send(protocol.EventPlaybackTimeUpdate, protocol.PlaybackTimeUpdateInput{RoomId: "r1", Time: 1})
		a.expect(protocol.EventIntentRejected, &rejected)
		assert.Contains(t, rejected.Reason, room.ErrNotPlaying.Error())
	})
}

func TestNonDriverHeartbeatIsNotAcked(t *testing.T) {
	server := newTestServer(t, true)

	a, b := dial(t, server), dial(t, server)
	a.send(protocol.EventJoinRoom, protocol.JoinRoomInput{RoomId: "r1"})
	a.expect(protocol.EventInit, nil)
	b.send(protocol.EventJoinRoom, protocol.JoinRoomInput{RoomId: "r1"})
	b.expect(protocol.EventInit, nil)

	a.send(protocol.EventUpdatePlaylist, protocol.UpdatePlaylistInput{
		RoomId:   "r1",
		Playlist: []protocol.VideoMeta{{Id: "abc12345678"}},
	})
	b.expect(protocol.EventPlaylistUpdated, nil)
	a.send(protocol.EventPlayVideo, protocol.PlayVideoInput{RoomId: "r1", Index: 0})
	b.expect(protocol.EventPlayVideo, nil)

	b.send(protocol.EventPlaybackTimeUpdate, protocol.PlaybackTimeUpdateInput{RoomId: "r1", Time: 3})
	b.send(protocol.EventPlayVideo, protocol.PlayVideoInput{RoomId: "r1", Index: 4})

	// the heartbeat was ignored without a reply, the bad play is the next message
	var rejected protocol.IntentRejectedOutput
	b.expect(protocol.EventIntentRejected, &rejected)
	assert.Equal(t, protocol.EventPlayVideo, rejected.Type)
}

func TestDisconnectLeavesRoom(t *testing.T) {
	server := newTestServer(t, false)

	a, b := dial(t, server), dial(t, server)
	a.send(protocol.EventJoinRoom, protocol.JoinRoomInput{RoomId: "r1"})
	a.expect(protocol.EventInit, nil)
	b.send(protocol.EventJoinRoom, protocol.JoinRoomInput{RoomId: "r1"})
	b.expect(protocol.EventInit, nil)

	require.NoError(t, b.conn.Close())

	assert.Eventually(t, func() bool {
		resp, err := http.Get(server.URL + "/api/v1/rooms/r1")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		var state room.Room
		if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
			return false
		}

		return len(state.MemberIds) == 1
	}, 5*time.Second, 20*time.Millisecond)
}
