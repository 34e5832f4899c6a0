/*
Package handler provides the HTTP handler functions of the monitoring surface.
*/
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"planpoker/internal/app/room"
	"planpoker/internal/app/storage"
	"planpoker/internal/pkg/errs"
	"planpoker/internal/pkg/logx"
	"planpoker/internal/pkg/randx"
	"planpoker/internal/pkg/resp"
)

// HealthStatus is the body of GET /health. The counts are snapshots.
type HealthStatus struct {
	Status      string `json:"status"`
	Rooms       int    `json:"rooms"`
	Connections int    `json:"connections"`
	Bound       int    `json:"bound"`
}

// HandleHealth reports process status, room count and live connection count.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := deps.Store.Count(r.Context())
		if err != nil {
			logx.Error(err, "Health check failed to count rooms")
			resp.RespondError(w, r, errs.NewError(errs.ErrStore))
			return
		}

		resp.RespondSuccess(w, r, HealthStatus{
			Status:      "ok",
			Rooms:       rooms,
			Connections: deps.Manager.Len(),
			Bound:       deps.Registry.Len(),
		})
	}
}

// HandleListRooms returns every room projection, oldest first.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := deps.Store.List(r.Context())
		if err != nil {
			logx.Error(err, "Failed to list rooms")
			resp.RespondError(w, r, errs.NewError(errs.ErrStore))
			return
		}
		if rooms == nil {
			rooms = []room.Room{}
		}

		resp.RespondSuccess(w, r, map[string]any{
			"rooms": rooms,
		})
	}
}

// HandleGetRoom returns a single room projection.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !randx.IsValidRoomCode(id) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
			return
		}

		found, err := deps.Store.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				resp.RespondError(w, r, errs.NewError(errs.ErrRoomNotFound))
				return
			}
			logx.Error(err, "Failed to load room", "room_id", id)
			resp.RespondError(w, r, errs.NewError(errs.ErrStore))
			return
		}

		resp.RespondSuccess(w, r, found)
	}
}
