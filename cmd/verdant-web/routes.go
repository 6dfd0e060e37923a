package main

import (
	"net/http"

	verdant "github.com/verdanthq/verdant"
	"github.com/microcosm-cc/bluemonday"
)

// newRouter sets up all routes using Go 1.22+ enhanced routing.
func newRouter(engine *verdant.Engine, secret []byte) http.Handler {
	mux := http.NewServeMux()

	h := &handlers{
		engine: engine,
		policy: bluemonday.StrictPolicy(),
		secret: secret,
	}

	// Public routes
	mux.HandleFunc("POST /api/login", h.handleLogin)
	mux.HandleFunc("POST /api/users", h.handleUserCreate)
	mux.HandleFunc("GET /api/health", h.handleHealth)

	// Authenticated routes
	api := http.NewServeMux()
	api.HandleFunc("GET /api/plants", h.handlePlantList)
	api.HandleFunc("POST /api/plants", h.handlePlantAdd)
	api.HandleFunc("GET /api/garden", h.handleGardenList)
	api.HandleFunc("POST /api/garden", h.handleGardenAdd)
	api.HandleFunc("POST /api/garden/{itemID}/water", h.handleWater)
	api.HandleFunc("DELETE /api/garden/{itemID}", h.handleGardenRemove)
	api.HandleFunc("POST /api/schedules", h.handleScheduleCreate)
	api.HandleFunc("GET /api/schedules/{scheduleID}", h.handleScheduleShow)
	api.HandleFunc("POST /api/schedules/{scheduleID}/extend", h.handleScheduleExtend)
	api.HandleFunc("POST /api/schedules/{scheduleID}/tasks/{day}/{taskIndex}", h.handleTaskToggle)
	api.HandleFunc("GET /api/notifications", h.handleNotifications)
	api.HandleFunc("POST /api/notifications/clear", h.handleNotificationsClear)
	api.HandleFunc("POST /api/chat", h.handleChat)
	api.HandleFunc("GET /api/chat/history", h.handleChatHistory)
	api.HandleFunc("GET /api/context", h.handleContext)
	api.HandleFunc("GET /api/journals", h.handleJournalList)
	api.HandleFunc("POST /api/journals", h.handleJournalAdd)
	api.HandleFunc("POST /api/detect", h.handleDetect)

	mux.Handle("/api/", auth(secret, api))

	return mux
}
