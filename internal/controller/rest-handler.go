package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sharetube/lockstep/internal/protocol"
	"github.com/sharetube/lockstep/internal/service/room"
	"github.com/sharetube/lockstep/pkg/validator"
	"github.com/sharetube/lockstep/pkg/ytvideodata"
)

func (c controller) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (c controller) getVideoInfo(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := c.validate.Var("url", rawURL, "required,url"); err != nil {
		c.writeJSON(w, r, http.StatusBadRequest, envelope{"errors": err})
		return
	}

	videoData, err := c.videoInfo.Resolve(r.Context(), rawURL)
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to resolve video", "url", rawURL, "error", err)
		switch {
		case errors.Is(err, ytvideodata.ErrInvalidVideoURL):
			c.writeJSON(w, r, http.StatusBadRequest, envelope{"errors": validator.ValidationErrors{{
				Field:   "url",
				Code:    "INVALID",
				Message: err.Error(),
			}}})
		case errors.Is(err, ytvideodata.ErrVideoNotFound):
			c.writeError(w, r, http.StatusNotFound, err)
		default:
			c.writeError(w, r, http.StatusBadGateway, err)
		}
		return
	}

	c.writeJSON(w, r, http.StatusOK, protocol.VideoMeta{
		Id:           videoData.ID,
		Title:        videoData.Title,
		ThumbnailURL: videoData.ThumbnailURL,
		AuthorName:   videoData.AuthorName,
	})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")

	roomState, err := c.roomService.GetRoom(r.Context(), roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			c.writeError(w, r, http.StatusNotFound, err)
			return
		}

		c.logger.WarnContext(r.Context(), "failed to get room", "room_id", roomId, "error", err)
		c.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	c.writeJSON(w, r, http.StatusOK, roomState)
}
