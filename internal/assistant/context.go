package assistant

import (
	"fmt"
	"log"
	"time"

	"github.com/verdanthq/verdant/internal/storage"
)

// Store is the storage surface the aggregator reads from.
type Store interface {
	GetUser(userID int64) (*storage.User, error)
	GetGardenItems(userID int64) ([]storage.GardenItem, error)
	GetSchedule(scheduleID int64) (*storage.Schedule, error)
	GetTaskStats(scheduleID int64) (storage.TaskStats, error)
	GetNextIncompleteTask(scheduleID int64) (*storage.ScheduleTask, error)
	GetJournals(userID int64) ([]storage.Journal, error)
	GetLatestJournalEntry(journalID int64) (*storage.JournalEntry, error)
	GetUnreadNotifications(userID int64, limit int) ([]storage.Notification, error)
	GetRecentDetectionSessions(userID int64, limit int) ([]storage.DetectionSession, error)
	GetChatStats(userID int64) (int, *time.Time, error)
	GetRecentChatMessages(userID int64, limit int) ([]storage.ChatMessage, error)
	GetMemories(userID int64, memoryType string, limit int) ([]storage.Memory, error)
}

// Snapshot is the aggregated, bounded view of one user's gardening state.
type Snapshot struct {
	Profile     Profile        `json:"profile"`
	Garden      []GardenItem   `json:"garden"`
	Schedules   []ScheduleInfo `json:"schedules"`
	Journals    []JournalInfo  `json:"journals"`
	Alerts      []Alert        `json:"alerts"`
	Detections  []Detection    `json:"detections"`
	Chat        ChatSummary    `json:"chat"`
	Preferences []MemoryEntry  `json:"preferences"`
	CareEvents  []MemoryEntry  `json:"care_events"`
	Insights    []Insight      `json:"insights"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type Profile struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	IsPro    bool      `json:"is_pro"`
	JoinedAt time.Time `json:"joined_at"`
}

type GardenItem struct {
	ItemID     int64  `json:"item_id"`
	PlantName  string `json:"plant_name"`
	Nickname   string `json:"nickname,omitempty"`
	Location   string `json:"location,omitempty"`
	Quantity   int    `json:"quantity"`
	ScheduleID *int64 `json:"schedule_id,omitempty"`
}

type ScheduleInfo struct {
	ScheduleID     int64     `json:"schedule_id"`
	PlantName      string    `json:"plant_name"`
	CreatedAt      time.Time `json:"created_at"`
	TasksTotal     int       `json:"tasks_total"`
	TasksCompleted int       `json:"tasks_completed"`
	NextTaskDay    int       `json:"next_task_day,omitempty"`
	NextTask       string    `json:"next_task,omitempty"`
	Complete       bool      `json:"complete"`
}

type JournalInfo struct {
	JournalID       int64      `json:"journal_id"`
	Title           string     `json:"title"`
	EntryCount      int        `json:"entry_count"`
	LatestEntryDate *time.Time `json:"latest_entry_date,omitempty"`
	LatestPreview   string     `json:"latest_preview,omitempty"`
}

type Alert struct {
	Message   string    `json:"message"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Detection struct {
	Kind              string    `json:"kind"`
	ResultName        string    `json:"result_name"`
	ConfidenceDisplay string    `json:"confidence_display"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ChatSummary struct {
	MessageCount int        `json:"message_count"`
	LastAt       *time.Time `json:"last_at,omitempty"`
	Previews     []string   `json:"previews,omitempty"`
}

type MemoryEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type Insight struct {
	Priority string `json:"priority"` // high, medium, info
	Message  string `json:"message"`
}

const (
	maxAlerts       = 5
	maxDetections   = 5
	maxChatPreviews = 3
	maxMemories     = 5
)

// Aggregator builds context snapshots. One aggregator is meant to live for
// a single request; the snapshot is computed at most once per instance.
type Aggregator struct {
	store Store
	snap  *Snapshot
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Build assembles the snapshot. Every section is fault-isolated: a failing
// sub-fetch logs and leaves its section empty rather than aborting the rest.
func (a *Aggregator) Build(userID int64) *Snapshot {
	if a.snap != nil {
		return a.snap
	}

	snap := &Snapshot{GeneratedAt: time.Now()}

	if profile, err := a.fetchProfile(userID); err != nil {
		log.Printf("verdant: context profile section: %v", err)
	} else {
		snap.Profile = profile
	}

	garden, err := a.fetchGarden(userID)
	if err != nil {
		log.Printf("verdant: context garden section: %v", err)
	}
	snap.Garden = garden

	if schedules, err := a.fetchSchedules(garden); err != nil {
		log.Printf("verdant: context schedules section: %v", err)
	} else {
		snap.Schedules = schedules
	}

	if journals, err := a.fetchJournals(userID); err != nil {
		log.Printf("verdant: context journals section: %v", err)
	} else {
		snap.Journals = journals
	}

	if alerts, err := a.fetchAlerts(userID); err != nil {
		log.Printf("verdant: context notifications section: %v", err)
	} else {
		snap.Alerts = alerts
	}

	if detections, err := a.fetchDetections(userID); err != nil {
		log.Printf("verdant: context detections section: %v", err)
	} else {
		snap.Detections = detections
	}

	if chat, err := a.fetchChat(userID); err != nil {
		log.Printf("verdant: context chat section: %v", err)
	} else {
		snap.Chat = chat
	}

	if prefs, err := a.fetchMemories(userID, storage.MemoryPreference); err != nil {
		log.Printf("verdant: context preference memory section: %v", err)
	} else {
		snap.Preferences = prefs
	}
	if events, err := a.fetchMemories(userID, storage.MemoryCareEvent); err != nil {
		log.Printf("verdant: context care-event memory section: %v", err)
	} else {
		snap.CareEvents = events
	}

	snap.Insights = deriveInsights(snap)

	a.snap = snap
	return snap
}

func (a *Aggregator) fetchProfile(userID int64) (Profile, error) {
	u, err := a.store.GetUser(userID)
	if err != nil {
		return Profile{}, err
	}
	if u == nil {
		return Profile{UserID: userID}, nil
	}
	return Profile{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
		IsPro:    u.IsPro,
		JoinedAt: u.CreatedAt,
	}, nil
}

func (a *Aggregator) fetchGarden(userID int64) ([]GardenItem, error) {
	items, err := a.store.GetGardenItems(userID)
	if err != nil {
		return nil, err
	}
	garden := make([]GardenItem, 0, len(items))
	for _, item := range items {
		garden = append(garden, GardenItem{
			ItemID:     item.ID,
			PlantName:  item.PlantName,
			Nickname:   Shorten(item.Nickname, PreviewLimit),
			Location:   Shorten(item.Location, PreviewLimit),
			Quantity:   item.Quantity,
			ScheduleID: item.CurrentScheduleID,
		})
	}
	return garden, nil
}

func (a *Aggregator) fetchSchedules(garden []GardenItem) ([]ScheduleInfo, error) {
	var infos []ScheduleInfo
	for _, item := range garden {
		if item.ScheduleID == nil {
			continue
		}
		sc, err := a.store.GetSchedule(*item.ScheduleID)
		if err != nil {
			return nil, err
		}
		if sc == nil {
			continue
		}
		stats, err := a.store.GetTaskStats(sc.ID)
		if err != nil {
			return nil, err
		}
		info := ScheduleInfo{
			ScheduleID:     sc.ID,
			PlantName:      item.PlantName,
			CreatedAt:      sc.CreatedAt,
			TasksTotal:     stats.Total,
			TasksCompleted: stats.Completed,
		}
		next, err := a.store.GetNextIncompleteTask(sc.ID)
		if err != nil {
			return nil, err
		}
		if next != nil {
			info.NextTaskDay = next.Day
			info.NextTask = Shorten(next.TaskText, PreviewLimit)
		} else {
			info.Complete = true
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (a *Aggregator) fetchJournals(userID int64) ([]JournalInfo, error) {
	journals, err := a.store.GetJournals(userID)
	if err != nil {
		return nil, err
	}
	var infos []JournalInfo
	for _, j := range journals {
		info := JournalInfo{
			JournalID:       j.ID,
			Title:           Shorten(j.Title, PreviewLimit),
			EntryCount:      j.EntryCount,
			LatestEntryDate: j.LatestEntryDate,
		}
		latest, err := a.store.GetLatestJournalEntry(j.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			info.LatestPreview = Shorten(latest.Notes, PreviewLimit)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (a *Aggregator) fetchAlerts(userID int64) ([]Alert, error) {
	notes, err := a.store.GetUnreadNotifications(userID, maxAlerts)
	if err != nil {
		return nil, err
	}
	var alerts []Alert
	for _, n := range notes {
		alerts = append(alerts, Alert{
			Message:   Shorten(n.Message, PreviewLimit),
			URL:       n.URL,
			CreatedAt: n.CreatedAt,
		})
	}
	return alerts, nil
}

func (a *Aggregator) fetchDetections(userID int64) ([]Detection, error) {
	sessions, err := a.store.GetRecentDetectionSessions(userID, maxDetections)
	if err != nil {
		return nil, err
	}
	var detections []Detection
	for _, s := range sessions {
		detections = append(detections, Detection{
			Kind:              s.Kind,
			ResultName:        Shorten(s.ResultName, PreviewLimit),
			ConfidenceDisplay: ConfidenceDisplay(s.ResultJSON),
			UpdatedAt:         s.UpdatedAt,
		})
	}
	return detections, nil
}

func (a *Aggregator) fetchChat(userID int64) (ChatSummary, error) {
	count, lastAt, err := a.store.GetChatStats(userID)
	if err != nil {
		return ChatSummary{}, err
	}
	summary := ChatSummary{MessageCount: count, LastAt: lastAt}

	messages, err := a.store.GetRecentChatMessages(userID, maxChatPreviews)
	if err != nil {
		return ChatSummary{}, err
	}
	// The query is newest-first; previews read chronologically.
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		summary.Previews = append(summary.Previews,
			fmt.Sprintf("%s: %s", m.Role, Shorten(m.Message, PreviewLimit)))
	}
	return summary, nil
}

func (a *Aggregator) fetchMemories(userID int64, memoryType string) ([]MemoryEntry, error) {
	memories, err := a.store.GetMemories(userID, memoryType, maxMemories)
	if err != nil {
		return nil, err
	}
	var entries []MemoryEntry
	for _, m := range memories {
		entries = append(entries, MemoryEntry{
			Key:   m.Key,
			Value: Shorten(m.ValueJSON, PreviewLimit),
		})
	}
	return entries, nil
}

// deriveInsights builds the insight list in strict enumeration order:
// schedule next-tasks first, then notifications, then the latest detection.
func deriveInsights(snap *Snapshot) []Insight {
	var insights []Insight
	for _, sc := range snap.Schedules {
		if sc.NextTask == "" {
			continue
		}
		insights = append(insights, Insight{
			Priority: "high",
			Message:  fmt.Sprintf("Upcoming for %s: Day %d - %s", sc.PlantName, sc.NextTaskDay, sc.NextTask),
		})
	}
	for _, alert := range snap.Alerts {
		insights = append(insights, Insight{Priority: "medium", Message: alert.Message})
	}
	if len(snap.Detections) > 0 {
		d := snap.Detections[0]
		insights = append(insights, Insight{
			Priority: "info",
			Message:  fmt.Sprintf("Latest %s detection: %s (%s)", d.Kind, d.ResultName, d.ConfidenceDisplay),
		})
	}
	return insights
}
