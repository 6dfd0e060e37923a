package assistant

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verdanthq/verdant/internal/storage"
)

func newTestStore(t *testing.T) (*storage.Store, int64) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	userID, err := store.CreateUser("marisol", "user", true)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return store, userID
}

func seedGarden(t *testing.T, store *storage.Store, userID int64) (int64, int64) {
	t.Helper()
	duration := 10
	plantID, _ := store.AddPlant(&storage.Plant{Name: "Tomato", DurationDays: &duration})
	itemID, err := store.AddGardenItem(&storage.GardenItem{
		UserID: userID, PlantID: plantID, Nickname: "Sunny", Location: "balcony", Quantity: 2,
	})
	if err != nil {
		t.Fatalf("AddGardenItem failed: %v", err)
	}
	return plantID, itemID
}

func TestShorten(t *testing.T) {
	if got := Shorten("  several   spaced\twords \n here ", 180); got != "several spaced words here" {
		t.Errorf("Shorten collapse = %q", got)
	}
	long := strings.Repeat("x", 200)
	got := Shorten(long, 180)
	if len([]rune(got)) != 180 {
		t.Errorf("Shorten length = %d, want 180", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Error("Shorten should end with ellipsis")
	}
	if got := Shorten("short", 180); got != "short" {
		t.Errorf("Shorten short = %q", got)
	}
}

func TestConfidenceDisplay(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"confidence": 0.92}`, "92%"},
		{`{"confidence": 87}`, "87%"},
		{`{"confidence": 1}`, "100%"},
		{`{"confidence": "high"}`, "?"},
		{`{"name": "aphids"}`, "?"},
		{`not json`, "?"},
	}
	for _, tt := range tests {
		if got := ConfidenceDisplay(tt.input); got != tt.want {
			t.Errorf("ConfidenceDisplay(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestBuildContext(t *testing.T) {
	store, userID := newTestStore(t)
	plantID, itemID := seedGarden(t, store, userID)

	scheduleID, _ := store.CreateSchedule(itemID, userID,
		`[{"day":1,"tasks":["Sow seeds","Water lightly"]},{"day":2,"tasks":["Check moisture"]}]`)
	store.UpsertScheduleTask(scheduleID, 1, 0, "Sow seeds")
	store.UpsertScheduleTask(scheduleID, 1, 1, "Water lightly")
	store.UpsertScheduleTask(scheduleID, 2, 0, "Check moisture")
	store.SetTaskCompletion(scheduleID, 1, 0, true)

	journalID, _ := store.GetOrCreateJournal(userID, &plantID, "Tomato diary")
	store.AddJournalEntry(&storage.JournalEntry{JournalID: journalID, Notes: "First sprout appeared today"})

	store.AddNotification(&storage.Notification{UserID: userID, Kind: storage.NotificationAdhoc, Message: "Welcome to your garden"})
	store.AddDetectionSession(userID, storage.DetectionWeed, "Dandelion", `{"confidence":0.84}`)
	store.AddChatMessage(userID, "user", "How often should I water?")
	store.AddChatMessage(userID, "assistant", "Every two days.")
	store.UpsertMemory(userID, storage.MemoryPreference, "organic_only", `true`)

	snap := NewAggregator(store).Build(userID)

	if snap.Profile.Username != "marisol" || !snap.Profile.IsPro {
		t.Errorf("Profile mismatch: %+v", snap.Profile)
	}
	if len(snap.Garden) != 1 || snap.Garden[0].PlantName != "Tomato" {
		t.Fatalf("Garden mismatch: %+v", snap.Garden)
	}
	if snap.Garden[0].ScheduleID == nil || *snap.Garden[0].ScheduleID != scheduleID {
		t.Error("Garden item should reference the latest schedule")
	}

	if len(snap.Schedules) != 1 {
		t.Fatalf("Expected 1 schedule summary, got %d", len(snap.Schedules))
	}
	sc := snap.Schedules[0]
	if sc.TasksTotal != 3 || sc.TasksCompleted != 1 {
		t.Errorf("Task counts mismatch: %+v", sc)
	}
	if sc.NextTask != "Water lightly" || sc.NextTaskDay != 1 {
		t.Errorf("Next task mismatch: %+v", sc)
	}

	if len(snap.Journals) != 1 || snap.Journals[0].LatestPreview != "First sprout appeared today" {
		t.Errorf("Journal mismatch: %+v", snap.Journals)
	}
	if len(snap.Alerts) != 1 {
		t.Errorf("Expected 1 alert, got %d", len(snap.Alerts))
	}
	if len(snap.Detections) != 1 || snap.Detections[0].ConfidenceDisplay != "84%" {
		t.Errorf("Detection mismatch: %+v", snap.Detections)
	}

	if snap.Chat.MessageCount != 2 {
		t.Errorf("Chat count mismatch: %d", snap.Chat.MessageCount)
	}
	if len(snap.Chat.Previews) != 2 || !strings.HasPrefix(snap.Chat.Previews[0], "user:") {
		t.Errorf("Chat previews should be chronological: %v", snap.Chat.Previews)
	}

	if len(snap.Preferences) != 1 || snap.Preferences[0].Key != "organic_only" {
		t.Errorf("Preference mismatch: %+v", snap.Preferences)
	}

	// Insight order: schedules (high), notifications (medium), detection (info).
	if len(snap.Insights) != 3 {
		t.Fatalf("Expected 3 insights, got %d", len(snap.Insights))
	}
	if snap.Insights[0].Priority != "high" || snap.Insights[1].Priority != "medium" || snap.Insights[2].Priority != "info" {
		t.Errorf("Insight order mismatch: %+v", snap.Insights)
	}
}

type failingJournalStore struct {
	Store
}

func (s failingJournalStore) GetJournals(userID int64) ([]storage.Journal, error) {
	return nil, errors.New("journal table unavailable")
}

func TestBuildContextSectionIsolation(t *testing.T) {
	store, userID := newTestStore(t)
	_, itemID := seedGarden(t, store, userID)
	store.CreateSchedule(itemID, userID, `[{"day":1,"tasks":["Sow seeds"]}]`)
	store.AddNotification(&storage.Notification{UserID: userID, Kind: storage.NotificationAdhoc, Message: "Welcome"})

	snap := NewAggregator(failingJournalStore{store}).Build(userID)

	if len(snap.Garden) != 1 {
		t.Error("Garden section should survive a journal failure")
	}
	if len(snap.Schedules) != 1 {
		t.Error("Schedules section should survive a journal failure")
	}
	if len(snap.Alerts) != 1 {
		t.Error("Notifications section should survive a journal failure")
	}
	if snap.Journals != nil {
		t.Errorf("Failed section should default to empty, got %+v", snap.Journals)
	}
}

func TestBuildContextCachedPerAggregator(t *testing.T) {
	store, userID := newTestStore(t)
	agg := NewAggregator(store)

	first := agg.Build(userID)
	second := agg.Build(userID)
	if first != second {
		t.Error("Aggregator should compute the snapshot at most once")
	}
}
