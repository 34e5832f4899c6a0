/*
Package handler provides the HTTP handler function for WebSocket connection upgrading.

This file contains the HandleWebSocket function, which upgrades the HTTP connection to
WebSocket and starts the client lifecycle. Room membership is established later by the
room:create and room:join commands sent over the socket.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"planpoker/internal/app/session"
	"planpoker/internal/pkg/logx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		commandLimiter := rate.NewLimiter(rate.Limit(deps.Config.CommandRate), deps.Config.CommandBurst)
		client := session.NewClient(conn, deps.Engine, deps.Manager, commandLimiter)

		logx.Info("WebSocket connection established", "conn_id", client.ID)

		client.Serve()
	}
}
