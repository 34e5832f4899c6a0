package handler

import (
	"planpoker/internal/app/session"
	"planpoker/internal/app/storage"
	"planpoker/internal/configs"
)

// AppDeps bundles the components the HTTP layer needs.
type AppDeps struct {
	Config   *configs.AppConfig
	Store    storage.RoomStore
	Registry *session.Registry
	Manager  *session.Manager
	Engine   *session.Engine
}
