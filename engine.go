// Package verdant provides the core engine for the Verdant gardening
// assistant: garden and plant records, AI-generated care schedules,
// derived notifications, and a context-grounded chat assistant.
package verdant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/verdanthq/verdant/internal/ai"
	"github.com/verdanthq/verdant/internal/assistant"
	"github.com/verdanthq/verdant/internal/notify"
	"github.com/verdanthq/verdant/internal/schedule"
	"github.com/verdanthq/verdant/internal/storage"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthorized is returned when a user does not own the target record.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrExtensionRejected is returned when a schedule extension fails the
	// exact-length requirement and the stored schedule is left unchanged.
	ErrExtensionRejected = schedule.ErrExtensionRejected
)

const (
	chatTimeout     = 60 * time.Second
	scheduleTimeout = 120 * time.Second
	detectTimeout   = 60 * time.Second

	chatHistoryDepth = 12

	msgAIUnavailable = "AI is not configured. Ask your administrator to set an API key."
	msgAIFailed      = "Sorry, I couldn't generate a response right now. Please try again."
)

// Engine ties together storage, AI completion, schedule planning, and
// notification derivation behind one API.
type Engine struct {
	store     *storage.Store
	completer ai.Completer
	planner   *schedule.Planner
	deriver   *notify.Deriver
	chatTemp  float64
}

// NewEngine creates an engine from the given configuration. A missing or
// unconfigured AI backend is not an error: AI-dependent operations degrade
// to fallback responses instead.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = "./verdant.db"
	}
	if cfg.AIProvider == "" {
		cfg.AIProvider = "gemini"
	}
	if cfg.ScheduleTemperature == 0 {
		cfg.ScheduleTemperature = 0.4
	}
	if cfg.ChatTemperature == 0 {
		cfg.ChatTemperature = 0.6
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	completer, err := newCompleter(cfg)
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			completer = nil
		} else {
			store.Close()
			return nil, err
		}
	}

	deriver := notify.NewDeriver(store)
	planner := schedule.NewPlanner(store, completer, deriver, cfg.ScheduleTemperature)

	return &Engine{
		store:     store,
		completer: completer,
		planner:   planner,
		deriver:   deriver,
		chatTemp:  cfg.ChatTemperature,
	}, nil
}

func newCompleter(cfg EngineConfig) (ai.Completer, error) {
	switch cfg.AIProvider {
	case "ollama":
		return ai.NewOllamaCompleter(cfg.OllamaBaseURL, cfg.OllamaModel)
	case "gemini":
		return ai.NewGeminiCompleter(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}

// Close releases the engine's resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// AIConfigured reports whether a completion backend is available.
func (e *Engine) AIConfigured() bool {
	return e.completer != nil
}

// --- users and plants ---

// RegisterUser creates a user and returns it.
func (e *Engine) RegisterUser(username, role string, isPro bool) (*User, error) {
	id, err := e.store.CreateUser(username, role, isPro)
	if err != nil {
		return nil, err
	}
	u, err := e.store.GetUser(id)
	if err != nil {
		return nil, err
	}
	return userFromInternal(u), nil
}

// GetUser returns a user by ID, or ErrNotFound.
func (e *Engine) GetUser(userID int64) (*User, error) {
	u, err := e.store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return userFromInternal(u), nil
}

// GetUserByName returns a user by username, or ErrNotFound.
func (e *Engine) GetUserByName(username string) (*User, error) {
	u, err := e.store.GetUserByName(username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return userFromInternal(u), nil
}

// ListUsers returns all users.
func (e *Engine) ListUsers() ([]User, error) {
	users, err := e.store.ListUsers()
	if err != nil {
		return nil, err
	}
	out := make([]User, len(users))
	for i := range users {
		out[i] = *userFromInternal(&users[i])
	}
	return out, nil
}

// AddPlant adds a plant to the catalog.
func (e *Engine) AddPlant(p Plant) (int64, error) {
	return e.store.AddPlant(&storage.Plant{
		Name:           p.Name,
		ScientificName: p.ScientificName,
		Type:           p.Type,
		DurationDays:   p.DurationDays,
		PhotoURL:       p.PhotoURL,
		Description:    p.Description,
		Sunlight:       p.Sunlight,
		WateringNeeds:  p.WateringNeeds,
	})
}

// ListPlants returns the plant catalog.
func (e *Engine) ListPlants() ([]Plant, error) {
	plants, err := e.store.ListPlants()
	if err != nil {
		return nil, err
	}
	out := make([]Plant, len(plants))
	for i := range plants {
		out[i] = plantFromInternal(&plants[i])
	}
	return out, nil
}

// --- garden ---

// AddGardenItem adds a plant instance to a user's garden.
func (e *Engine) AddGardenItem(userID int64, item GardenItem) (int64, error) {
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	return e.store.AddGardenItem(&storage.GardenItem{
		UserID:               userID,
		PlantID:              item.PlantID,
		Nickname:             item.Nickname,
		Location:             item.Location,
		Notes:                item.Notes,
		Quantity:             quantity,
		PlantedOn:            item.PlantedOn,
		WateringIntervalDays: item.WateringIntervalDays,
	})
}

// GetGarden returns a user's garden items with joined plant details and
// each item's most recent schedule ID.
func (e *Engine) GetGarden(userID int64) ([]GardenItem, error) {
	items, err := e.store.GetGardenItems(userID)
	if err != nil {
		return nil, err
	}
	out := make([]GardenItem, len(items))
	for i := range items {
		out[i] = gardenItemFromInternal(&items[i])
	}
	return out, nil
}

// RemoveGardenItem deletes a garden item the user owns.
func (e *Engine) RemoveGardenItem(userID, itemID int64) error {
	ok, err := e.store.RemoveGardenItem(userID, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// WaterPlant records that a garden item was watered now and remembers the
// event as a care memory.
func (e *Engine) WaterPlant(userID, itemID int64) error {
	item, err := e.store.GetGardenItem(itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrNotFound
	}
	if item.UserID != userID {
		return ErrNotAuthorized
	}
	now := time.Now()
	if err := e.store.UpdateLastWatered(itemID, now); err != nil {
		return err
	}
	name := item.Nickname
	if name == "" {
		name = item.PlantName
	}
	value, _ := json.Marshal(map[string]string{
		"event": "watered " + name,
		"at":    now.Format(time.RFC3339),
	})
	key := fmt.Sprintf("watered-item-%d", itemID)
	if err := e.store.UpsertMemory(userID, storage.MemoryCareEvent, key, string(value)); err != nil {
		log.Printf("verdant: failed to record watering memory: %v", err)
	}
	return nil
}

// --- schedules ---

// CreateSchedule generates a care schedule for a garden item at the given
// growth stage and persists it.
func (e *Engine) CreateSchedule(userID, gardenItemID int64, stage string) (*ScheduleResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduleTimeout)
	defer cancel()

	res, err := e.planner.Create(ctx, userID, gardenItemID, stage)
	if err != nil {
		return nil, mapScheduleErr(err)
	}
	return scheduleResultFromInternal(res), nil
}

// ExtendSchedule appends the remaining days to an existing schedule.
func (e *Engine) ExtendSchedule(userID, scheduleID int64) (*ScheduleResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduleTimeout)
	defer cancel()

	res, err := e.planner.Extend(ctx, userID, scheduleID)
	if err != nil {
		return nil, mapScheduleErr(err)
	}
	return scheduleResultFromInternal(res), nil
}

// GetScheduleDays returns the parsed day array of a schedule the user owns.
// A raw-text blob yields an empty slice.
func (e *Engine) GetScheduleDays(userID, scheduleID int64) ([]ScheduleDay, error) {
	sc, err := e.store.GetSchedule(scheduleID)
	if err != nil {
		return nil, err
	}
	if sc == nil {
		return nil, ErrNotFound
	}
	if sc.UserID != userID {
		return nil, ErrNotAuthorized
	}
	days, err := schedule.ParseDays(sc.ScheduleJSON)
	if err != nil {
		return []ScheduleDay{}, nil
	}
	return daysFromInternal(days), nil
}

// ToggleTask flips a task's completion state and records the change as a
// notification.
func (e *Engine) ToggleTask(userID, scheduleID int64, day, taskIndex int, completed bool) (*ToggleResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
	defer cancel()

	res, err := e.planner.Toggle(ctx, userID, scheduleID, day, taskIndex, completed)
	if err != nil {
		return nil, mapScheduleErr(err)
	}
	return &ToggleResult{
		TaskText: res.TaskText,
		Message:  res.Message,
		URL:      res.URL,
	}, nil
}

// --- notifications ---

// ScanDueToday derives pending-task notifications for the user's active
// schedules based on each schedule's age.
func (e *Engine) ScanDueToday(userID int64) (*ScanResult, error) {
	res, err := e.deriver.ScanDueToday(userID)
	if err != nil {
		return nil, err
	}
	return &ScanResult{
		SchedulesScanned: res.SchedulesScanned,
		Ensured:          res.Ensured,
		Completed:        res.Completed,
	}, nil
}

// GetNotifications runs a due-today scan and returns the user's unread
// notifications. When there are none, a synthetic garden summary notice is
// returned instead so the feed is never empty.
func (e *Engine) GetNotifications(userID int64, limit int) ([]Notification, error) {
	if _, err := e.deriver.ScanDueToday(userID); err != nil {
		log.Printf("verdant: due-today scan: %v", err)
	}
	notifs, err := e.store.GetUnreadNotifications(userID, limit)
	if err != nil {
		return nil, err
	}
	if len(notifs) == 0 {
		items, err := e.store.GetGardenItems(userID)
		if err != nil {
			return nil, err
		}
		return []Notification{{
			Message:   fmt.Sprintf("You're all caught up. %d plants in your garden.", len(items)),
			Kind:      storage.NotificationAdhoc,
			CreatedAt: time.Now(),
		}}, nil
	}
	out := make([]Notification, len(notifs))
	for i := range notifs {
		out[i] = notificationFromInternal(&notifs[i])
	}
	return out, nil
}

// ClearNotifications marks all of a user's notifications read and returns
// the number affected.
func (e *Engine) ClearNotifications(userID int64) (int64, error) {
	return e.store.MarkAllNotificationsRead(userID)
}

// --- assistant ---

// BuildContext aggregates the user's gardening state into a snapshot.
// Individual section failures are logged and leave that section empty.
func (e *Engine) BuildContext(userID int64) *ContextSnapshot {
	return assistant.NewAggregator(e.store).Build(userID)
}

// BuildPrompt renders the full assistant prompt for a message without
// calling the model. Useful for debugging what the assistant sees.
func (e *Engine) BuildPrompt(userID int64, message string) (string, *ContextSnapshot, error) {
	snap := e.BuildContext(userID)
	history, err := e.chatHistory(userID, false)
	if err != nil {
		return "", nil, err
	}
	return assistant.RenderPrompt(snap, history, message), snap, nil
}

// Chat sends a user message through the context-grounded assistant and
// returns the reply. Both sides of the exchange are persisted; model
// failures produce a stored fallback reply rather than an error.
func (e *Engine) Chat(userID int64, message string) (string, error) {
	if _, err := e.store.AddChatMessage(userID, "user", message); err != nil {
		return "", fmt.Errorf("failed to store chat message: %w", err)
	}

	reply := msgAIUnavailable
	if e.completer != nil {
		snap := e.BuildContext(userID)
		history, err := e.chatHistory(userID, true)
		if err != nil {
			return "", err
		}
		prompt := assistant.RenderPrompt(snap, history, message)

		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()

		text, err := ai.CompleteWithRetry(ctx, e.completer, ai.Request{
			Prompt:      prompt,
			Temperature: e.chatTemp,
		})
		if err != nil {
			log.Printf("verdant: chat completion: %v", err)
			reply = msgAIFailed
		} else {
			reply = text
		}
	}

	if _, err := e.store.AddChatMessage(userID, "assistant", reply); err != nil {
		log.Printf("verdant: failed to store assistant reply: %v", err)
	}
	return reply, nil
}

// chatHistory returns the most recent turns in chronological order.
// skipNewest drops the head message, for callers that persisted the
// current request before rendering.
func (e *Engine) chatHistory(userID int64, skipNewest bool) ([]ChatLine, error) {
	limit := chatHistoryDepth
	if skipNewest {
		limit++
	}
	msgs, err := e.store.GetRecentChatMessages(userID, limit)
	if err != nil {
		return nil, err
	}
	// Newest first from storage; reverse into chronological order.
	if skipNewest && len(msgs) > 0 {
		msgs = msgs[1:]
	}
	history := make([]ChatLine, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		history = append(history, ChatLine{Role: msgs[i].Role, Message: msgs[i].Message})
	}
	return history, nil
}

// GetChatHistory returns the user's most recent chat messages in
// chronological order.
func (e *Engine) GetChatHistory(userID int64, limit int) ([]ChatLine, error) {
	msgs, err := e.store.GetRecentChatMessages(userID, limit)
	if err != nil {
		return nil, err
	}
	history := make([]ChatLine, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		history = append(history, ChatLine{Role: msgs[i].Role, Message: msgs[i].Message})
	}
	return history, nil
}

// --- journals ---

// AddJournalEntry appends a dated entry to the journal keyed by
// (user, plant, title), creating the journal when absent.
func (e *Engine) AddJournalEntry(userID int64, plantID *int64, title string, entry JournalEntry) (int64, error) {
	journalID, err := e.store.GetOrCreateJournal(userID, plantID, title)
	if err != nil {
		return 0, err
	}
	entryDate := entry.EntryDate
	if entryDate.IsZero() {
		entryDate = time.Now()
	}
	return e.store.AddJournalEntry(&storage.JournalEntry{
		JournalID:      journalID,
		EntryDate:      entryDate,
		Notes:          entry.Notes,
		PhotoPath:      entry.PhotoPath,
		GrowthHeightCm: entry.GrowthHeightCm,
		GrowthWidthCm:  entry.GrowthWidthCm,
	})
}

// GetJournals returns the user's journals with entry counts.
func (e *Engine) GetJournals(userID int64) ([]Journal, error) {
	journals, err := e.store.GetJournals(userID)
	if err != nil {
		return nil, err
	}
	out := make([]Journal, len(journals))
	for i := range journals {
		out[i] = journalFromInternal(&journals[i])
	}
	return out, nil
}

// GetJournalEntries returns the most recent entries of one journal.
func (e *Engine) GetJournalEntries(journalID int64, limit int) ([]JournalEntry, error) {
	entries, err := e.store.GetJournalEntries(journalID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]JournalEntry, len(entries))
	for i := range entries {
		out[i] = journalEntryFromInternal(&entries[i])
	}
	return out, nil
}

// --- memories ---

// RememberPreference stores or replaces a user preference used to ground
// the assistant.
func (e *Engine) RememberPreference(userID int64, key string, value any) error {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode preference: %w", err)
	}
	return e.store.UpsertMemory(userID, storage.MemoryPreference, key, string(blob))
}

// ForgetPreference removes a stored preference.
func (e *Engine) ForgetPreference(userID int64, key string) error {
	return e.store.DeleteMemory(userID, storage.MemoryPreference, key)
}

// ListPreferences returns the user's remembered preferences, newest first.
func (e *Engine) ListPreferences(userID int64) ([]MemoryEntry, error) {
	memories, err := e.store.GetMemories(userID, storage.MemoryPreference, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	out := make([]MemoryEntry, 0, len(memories))
	for _, m := range memories {
		out = append(out, MemoryEntry{Key: m.Key, Value: m.ValueJSON})
	}
	return out, nil
}

// --- detection ---

// DetectImage classifies a plant photo as a weed or disease candidate and
// records the session. kind must be "weed" or "disease".
func (e *Engine) DetectImage(userID int64, kind, mimeType string, data []byte) (*Detection, error) {
	if kind != storage.DetectionWeed && kind != storage.DetectionDisease {
		return nil, fmt.Errorf("unknown detection kind %q", kind)
	}
	if e.completer == nil {
		return nil, ai.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Identify the most likely %s affecting the plant in this photo. "+
			"Respond with only a JSON object: {\"name\": \"...\", \"confidence\": 0.0}. "+
			"Confidence is between 0 and 1. If nothing is detected, use \"none\".",
		kind,
	)
	raw, err := ai.CompleteWithRetry(ctx, e.completer, ai.Request{
		Prompt: prompt,
		Inline: &ai.Inline{MIMEType: mimeType, Data: data},
	})
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	resultJSON := ai.ExtractJSONObject(raw)
	var parsed struct {
		Name string `json:"name"`
	}
	name := "unknown"
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err == nil && parsed.Name != "" {
		name = parsed.Name
	}

	id, err := e.store.AddDetectionSession(userID, kind, name, resultJSON)
	if err != nil {
		return nil, err
	}
	return &Detection{
		ID:                id,
		Kind:              kind,
		ResultName:        name,
		ConfidenceDisplay: assistant.ConfidenceDisplay(resultJSON),
		CreatedAt:         time.Now(),
	}, nil
}

// GetRecentDetections returns the user's most recent detection sessions.
func (e *Engine) GetRecentDetections(userID int64, limit int) ([]Detection, error) {
	sessions, err := e.store.GetRecentDetectionSessions(userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Detection, len(sessions))
	for i := range sessions {
		out[i] = Detection{
			ID:                sessions[i].ID,
			Kind:              sessions[i].Kind,
			ResultName:        sessions[i].ResultName,
			ConfidenceDisplay: assistant.ConfidenceDisplay(sessions[i].ResultJSON),
			CreatedAt:         sessions[i].CreatedAt,
		}
	}
	return out, nil
}

func mapScheduleErr(err error) error {
	switch {
	case errors.Is(err, schedule.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, schedule.ErrNotAuthorized):
		return ErrNotAuthorized
	default:
		return err
	}
}

// --- internal type conversion helpers ---

func userFromInternal(u *storage.User) *User {
	return &User{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		IsPro:     u.IsPro,
		CreatedAt: u.CreatedAt,
	}
}

func plantFromInternal(p *storage.Plant) Plant {
	return Plant{
		ID:             p.ID,
		Name:           p.Name,
		ScientificName: p.ScientificName,
		Type:           p.Type,
		DurationDays:   p.DurationDays,
		PhotoURL:       p.PhotoURL,
		Description:    p.Description,
		Sunlight:       p.Sunlight,
		WateringNeeds:  p.WateringNeeds,
		CreatedAt:      p.CreatedAt,
	}
}

func gardenItemFromInternal(g *storage.GardenItem) GardenItem {
	return GardenItem{
		ID:                   g.ID,
		UserID:               g.UserID,
		PlantID:              g.PlantID,
		PlantName:            g.PlantName,
		PlantType:            g.PlantType,
		Nickname:             g.Nickname,
		Location:             g.Location,
		Notes:                g.Notes,
		Quantity:             g.Quantity,
		PlantedOn:            g.PlantedOn,
		WateringIntervalDays: g.WateringIntervalDays,
		LastWatered:          g.LastWatered,
		CurrentScheduleID:    g.CurrentScheduleID,
		CreatedAt:            g.CreatedAt,
	}
}

func scheduleResultFromInternal(r *schedule.Result) *ScheduleResult {
	return &ScheduleResult{
		ScheduleID: r.ScheduleID,
		Days:       daysFromInternal(r.Days),
		Degraded:   r.Degraded,
		AIText:     r.AIText,
		NoOp:       r.NoOp,
	}
}

func daysFromInternal(days []schedule.Day) []ScheduleDay {
	out := make([]ScheduleDay, len(days))
	for i, d := range days {
		out[i] = ScheduleDay{Day: d.Day, Tasks: d.Tasks}
	}
	return out
}

func notificationFromInternal(n *storage.Notification) Notification {
	return Notification{
		ID:        n.ID,
		Message:   n.Message,
		URL:       n.URL,
		Kind:      n.Kind,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func journalFromInternal(j *storage.Journal) Journal {
	return Journal{
		ID:              j.ID,
		Title:           j.Title,
		PlantID:         j.PlantID,
		EntryCount:      j.EntryCount,
		LatestEntryDate: j.LatestEntryDate,
		CreatedAt:       j.CreatedAt,
	}
}

func journalEntryFromInternal(e *storage.JournalEntry) JournalEntry {
	return JournalEntry{
		ID:             e.ID,
		JournalID:      e.JournalID,
		EntryDate:      e.EntryDate,
		Notes:          e.Notes,
		PhotoPath:      e.PhotoPath,
		GrowthHeightCm: e.GrowthHeightCm,
		GrowthWidthCm:  e.GrowthWidthCm,
	}
}
