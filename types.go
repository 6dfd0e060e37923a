package verdant

import (
	"time"

	"github.com/verdanthq/verdant/internal/assistant"
)

// EngineConfig configures the Verdant engine.
type EngineConfig struct {
	DBPath string

	// AIProvider selects the completion backend: "gemini" (default) or
	// "ollama". An empty Gemini API key leaves the engine unconfigured;
	// AI-dependent calls then resolve to friendly fallback messages.
	AIProvider    string
	GeminiAPIKey  string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string

	ScheduleTemperature float64
	ChatTemperature     float64
}

// ContextSnapshot is the aggregated view of one user's gardening state.
type ContextSnapshot = assistant.Snapshot

// ChatLine is one turn of prior conversation.
type ChatLine = assistant.ChatLine

// MemoryEntry is one remembered key/value pair.
type MemoryEntry = assistant.MemoryEntry

// User represents a registered gardener.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	IsPro     bool      `json:"is_pro"`
	CreatedAt time.Time `json:"created_at"`
}

// Plant is a catalog entry, distinct from a garden item.
type Plant struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	ScientificName string    `json:"scientific_name,omitempty"`
	Type           string    `json:"type,omitempty"`
	DurationDays   *int      `json:"duration_days,omitempty"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	Description    string    `json:"description,omitempty"`
	Sunlight       string    `json:"sunlight,omitempty"`
	WateringNeeds  string    `json:"watering_needs,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GardenItem is one plant instance a user is growing.
type GardenItem struct {
	ID                   int64      `json:"id"`
	UserID               int64      `json:"user_id"`
	PlantID              int64      `json:"plant_id"`
	PlantName            string     `json:"plant_name"`
	PlantType            string     `json:"plant_type,omitempty"`
	Nickname             string     `json:"nickname,omitempty"`
	Location             string     `json:"location,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	Quantity             int        `json:"quantity"`
	PlantedOn            *time.Time `json:"planted_on,omitempty"`
	WateringIntervalDays *int       `json:"watering_interval_days,omitempty"`
	LastWatered          *time.Time `json:"last_watered,omitempty"`
	CurrentScheduleID    *int64     `json:"current_schedule_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ScheduleDay is one day of a care schedule.
type ScheduleDay struct {
	Day   int      `json:"day"`
	Tasks []string `json:"tasks"`
}

// ScheduleResult reports a schedule creation or extension.
type ScheduleResult struct {
	ScheduleID int64         `json:"schedule_id"`
	Days       []ScheduleDay `json:"days,omitempty"`
	Degraded   bool          `json:"degraded,omitempty"`
	AIText     bool          `json:"ai_text,omitempty"`
	NoOp       bool          `json:"no_op,omitempty"`
}

// ToggleResult reports a task completion toggle.
type ToggleResult struct {
	TaskText string `json:"task_text"`
	Message  string `json:"message"`
	URL      string `json:"url"`
}

// ScanResult summarizes a due-today notification scan.
type ScanResult struct {
	SchedulesScanned int `json:"schedules_scanned"`
	Ensured          int `json:"ensured"`
	Completed        int `json:"completed"`
}

// Notification is a per-user message, optionally tied to a schedule day.
type Notification struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	URL       string    `json:"url,omitempty"`
	Kind      string    `json:"kind"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Journal groups dated entries for one (user, plant) pair.
type Journal struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	PlantID         *int64     `json:"plant_id,omitempty"`
	EntryCount      int        `json:"entry_count"`
	LatestEntryDate *time.Time `json:"latest_entry_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// JournalEntry is a dated free-text record with optional measurements.
type JournalEntry struct {
	ID             int64     `json:"id"`
	JournalID      int64     `json:"journal_id"`
	EntryDate      time.Time `json:"entry_date"`
	Notes          string    `json:"notes,omitempty"`
	PhotoPath      string    `json:"photo_path,omitempty"`
	GrowthHeightCm *float64  `json:"growth_height_cm,omitempty"`
	GrowthWidthCm  *float64  `json:"growth_width_cm,omitempty"`
}

// Detection is a recorded weed/disease classifier result.
type Detection struct {
	ID                int64     `json:"id"`
	Kind              string    `json:"kind"`
	ResultName        string    `json:"result_name"`
	ConfidenceDisplay string    `json:"confidence_display"`
	CreatedAt         time.Time `json:"created_at"`
}
