package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	verdant "github.com/verdanthq/verdant"
	"github.com/verdanthq/verdant/internal/ai"

	"github.com/microcosm-cc/bluemonday"
)

// maxImageBytes bounds detection uploads.
const maxImageBytes = 8 << 20

// handlers holds dependencies for all HTTP handler methods.
type handlers struct {
	engine *verdant.Engine
	policy *bluemonday.Policy
	secret []byte
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("verdant-web: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verdant.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, verdant.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, verdant.ErrExtensionRejected):
		writeError(w, http.StatusConflict, "extension rejected, schedule unchanged")
	case errors.Is(err, ai.ErrNotConfigured):
		writeError(w, http.StatusBadGateway, "AI is not configured")
	default:
		log.Printf("verdant-web: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sanitize strips any markup from user-supplied free text.
func (h *handlers) sanitize(s string) string {
	return strings.TrimSpace(h.policy.Sanitize(s))
}

// --- public handlers ---

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"ai_configured": h.engine.AIConfigured(),
	})
}

func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	user, err := h.engine.GetUserByName(body.Username)
	if err != nil {
		if errors.Is(err, verdant.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		writeEngineError(w, err)
		return
	}

	token, err := issueToken(h.secret, user.ID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *handlers) handleUserCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Role     string `json:"role"`
		IsPro    bool   `json:"is_pro"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	username := h.sanitize(body.Username)
	if username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if body.Role == "" {
		body.Role = "user"
	}

	user, err := h.engine.RegisterUser(username, body.Role, body.IsPro)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// --- plants and garden ---

func (h *handlers) handlePlantList(w http.ResponseWriter, r *http.Request) {
	plants, err := h.engine.ListPlants()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plants)
}

func (h *handlers) handlePlantAdd(w http.ResponseWriter, r *http.Request) {
	var plant verdant.Plant
	if !decodeBody(w, r, &plant) {
		return
	}
	plant.Name = h.sanitize(plant.Name)
	if plant.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	plant.Description = h.sanitize(plant.Description)

	id, err := h.engine.AddPlant(plant)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *handlers) handleGardenList(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	items, err := h.engine.GetGarden(uid)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handlers) handleGardenAdd(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	var item verdant.GardenItem
	if !decodeBody(w, r, &item) {
		return
	}
	if item.PlantID <= 0 {
		writeError(w, http.StatusBadRequest, "plant_id is required")
		return
	}
	item.Nickname = h.sanitize(item.Nickname)
	item.Location = h.sanitize(item.Location)
	item.Notes = h.sanitize(item.Notes)

	id, err := h.engine.AddGardenItem(uid, item)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *handlers) handleWater(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	itemID, ok := pathID(r, "itemID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}
	if err := h.engine.WaterPlant(uid, itemID); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "watered"})
}

func (h *handlers) handleGardenRemove(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	itemID, ok := pathID(r, "itemID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item ID")
		return
	}
	if err := h.engine.RemoveGardenItem(uid, itemID); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- schedules ---

func (h *handlers) handleScheduleCreate(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	var body struct {
		GardenItemID int64  `json:"garden_item_id"`
		Stage        string `json:"stage"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.GardenItemID <= 0 {
		writeError(w, http.StatusBadRequest, "garden_item_id is required")
		return
	}

	result, err := h.engine.CreateSchedule(uid, body.GardenItemID, body.Stage)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handlers) handleScheduleShow(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	scheduleID, ok := pathID(r, "scheduleID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid schedule ID")
		return
	}
	days, err := h.engine.GetScheduleDays(uid, scheduleID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, days)
}

func (h *handlers) handleScheduleExtend(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	scheduleID, ok := pathID(r, "scheduleID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid schedule ID")
		return
	}
	result, err := h.engine.ExtendSchedule(uid, scheduleID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) handleTaskToggle(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	scheduleID, ok := pathID(r, "scheduleID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid schedule ID")
		return
	}
	day, err := strconv.Atoi(r.PathValue("day"))
	if err != nil || day <= 0 {
		writeError(w, http.StatusBadRequest, "invalid day")
		return
	}
	taskIndex, err := strconv.Atoi(r.PathValue("taskIndex"))
	if err != nil || taskIndex < 0 {
		writeError(w, http.StatusBadRequest, "invalid task index")
		return
	}

	var body struct {
		Completed bool `json:"completed"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := h.engine.ToggleTask(uid, scheduleID, day, taskIndex, body.Completed)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- notifications ---

func (h *handlers) handleNotifications(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	notifs, err := h.engine.GetNotifications(uid, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifs)
}

func (h *handlers) handleNotificationsClear(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	n, err := h.engine.ClearNotifications(uid)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": n})
}

// --- assistant ---

func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	var body struct {
		Message string `json:"message"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	message := h.sanitize(body.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.engine.Chat(uid, message)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *handlers) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	history, err := h.engine.GetChatHistory(uid, 50)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *handlers) handleContext(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, h.engine.BuildContext(uid))
}

// --- journals ---

func (h *handlers) handleJournalList(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	journals, err := h.engine.GetJournals(uid)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, journals)
}

func (h *handlers) handleJournalAdd(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())
	var body struct {
		Title          string   `json:"title"`
		PlantID        *int64   `json:"plant_id"`
		Notes          string   `json:"notes"`
		GrowthHeightCm *float64 `json:"growth_height_cm"`
		GrowthWidthCm  *float64 `json:"growth_width_cm"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	title := h.sanitize(body.Title)
	if title == "" {
		title = "Garden journal"
	}

	id, err := h.engine.AddJournalEntry(uid, body.PlantID, title, verdant.JournalEntry{
		Notes:          h.sanitize(body.Notes),
		GrowthHeightCm: body.GrowthHeightCm,
		GrowthWidthCm:  body.GrowthWidthCm,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// --- detection ---

func (h *handlers) handleDetect(w http.ResponseWriter, r *http.Request) {
	uid := userIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	kind := r.FormValue("kind")
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	det, err := h.engine.DetectImage(uid, kind, mimeType, data)
	if err != nil {
		if strings.Contains(err.Error(), "unknown detection kind") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, det)
}
