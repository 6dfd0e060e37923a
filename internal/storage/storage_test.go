package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	store := newTestStore(t)
	if store.db == nil {
		t.Fatal("Database connection is nil")
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store := newTestStore(t)

	userID, err := store.CreateUser("marisol", "user", false)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if userID == 0 {
		t.Fatal("User ID should not be 0")
	}

	u, err := store.GetUserByName("marisol")
	if err != nil {
		t.Fatalf("GetUserByName failed: %v", err)
	}
	if u == nil || u.ID != userID {
		t.Fatalf("Expected user %d, got %+v", userID, u)
	}
	if u.Role != "user" {
		t.Errorf("Role mismatch: got %s, want user", u.Role)
	}
}

func TestGardenItemLatestSchedule(t *testing.T) {
	store := newTestStore(t)

	userID, _ := store.CreateUser("marisol", "user", false)
	duration := 45
	plantID, err := store.AddPlant(&Plant{Name: "Tomato", DurationDays: &duration})
	if err != nil {
		t.Fatalf("AddPlant failed: %v", err)
	}

	itemID, err := store.AddGardenItem(&GardenItem{UserID: userID, PlantID: plantID, Quantity: 1})
	if err != nil {
		t.Fatalf("AddGardenItem failed: %v", err)
	}

	// No schedule yet.
	item, err := store.GetGardenItem(itemID)
	if err != nil {
		t.Fatalf("GetGardenItem failed: %v", err)
	}
	if item.CurrentScheduleID != nil {
		t.Errorf("Expected no current schedule, got %d", *item.CurrentScheduleID)
	}
	if item.PlantName != "Tomato" {
		t.Errorf("Plant name mismatch: got %s, want Tomato", item.PlantName)
	}

	// Two schedules: the later one wins.
	store.CreateSchedule(itemID, userID, `[{"day":1,"tasks":["Water"]}]`)
	second, err := store.CreateSchedule(itemID, userID, `[{"day":1,"tasks":["Prune"]}]`)
	if err != nil {
		t.Fatalf("CreateSchedule failed: %v", err)
	}

	item, err = store.GetGardenItem(itemID)
	if err != nil {
		t.Fatalf("GetGardenItem failed: %v", err)
	}
	if item.CurrentScheduleID == nil || *item.CurrentScheduleID != second {
		t.Fatalf("Expected current schedule %d, got %v", second, item.CurrentScheduleID)
	}
}

func TestUpsertScheduleTaskPreservesCompletion(t *testing.T) {
	store := newTestStore(t)

	userID, _ := store.CreateUser("marisol", "user", false)
	plantID, _ := store.AddPlant(&Plant{Name: "Basil"})
	itemID, _ := store.AddGardenItem(&GardenItem{UserID: userID, PlantID: plantID, Quantity: 1})
	scheduleID, _ := store.CreateSchedule(itemID, userID, `[{"day":1,"tasks":["Water deeply"]}]`)

	if err := store.UpsertScheduleTask(scheduleID, 1, 0, "Water deeply"); err != nil {
		t.Fatalf("UpsertScheduleTask failed: %v", err)
	}

	ok, text, err := store.SetTaskCompletion(scheduleID, 1, 0, true)
	if err != nil {
		t.Fatalf("SetTaskCompletion failed: %v", err)
	}
	if !ok || text != "Water deeply" {
		t.Fatalf("Expected update of existing task, got ok=%v text=%q", ok, text)
	}

	// Re-upserting the same slot must not clear the completion flag.
	if err := store.UpsertScheduleTask(scheduleID, 1, 0, "Water deeply"); err != nil {
		t.Fatalf("UpsertScheduleTask failed: %v", err)
	}

	tasks, err := store.GetScheduleTasks(scheduleID)
	if err != nil {
		t.Fatalf("GetScheduleTasks failed: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	if !tasks[0].Completed {
		t.Error("Completion flag should survive re-upsert")
	}

	stats, err := store.GetTaskStats(scheduleID)
	if err != nil {
		t.Fatalf("GetTaskStats failed: %v", err)
	}
	if stats.Total != 1 || stats.Completed != 1 {
		t.Errorf("Stats mismatch: got %+v, want {1 1}", stats)
	}
}

func TestSetTaskCompletionMissingRow(t *testing.T) {
	store := newTestStore(t)

	userID, _ := store.CreateUser("marisol", "user", false)
	plantID, _ := store.AddPlant(&Plant{Name: "Basil"})
	itemID, _ := store.AddGardenItem(&GardenItem{UserID: userID, PlantID: plantID, Quantity: 1})
	scheduleID, _ := store.CreateSchedule(itemID, userID, `[]`)

	ok, _, err := store.SetTaskCompletion(scheduleID, 3, 0, true)
	if err != nil {
		t.Fatalf("SetTaskCompletion failed: %v", err)
	}
	if ok {
		t.Error("Expected no row to match")
	}
}

func TestPendingNotificationSlot(t *testing.T) {
	store := newTestStore(t)

	userID, _ := store.CreateUser("marisol", "user", false)
	plantID, _ := store.AddPlant(&Plant{Name: "Basil"})
	itemID, _ := store.AddGardenItem(&GardenItem{UserID: userID, PlantID: plantID, Quantity: 1})
	scheduleID, _ := store.CreateSchedule(itemID, userID, `[]`)

	exists, err := store.HasUnreadPending(userID, scheduleID, 2, "water deeply")
	if err != nil {
		t.Fatalf("HasUnreadPending failed: %v", err)
	}
	if exists {
		t.Fatal("Expected no pending notification yet")
	}

	day := 2
	_, err = store.AddNotification(&Notification{
		UserID:     userID,
		ScheduleID: &scheduleID,
		Day:        &day,
		Kind:       NotificationPending,
		TaskKey:    "water deeply",
		Message:    "Pending - Day 2: Water deeply",
	})
	if err != nil {
		t.Fatalf("AddNotification failed: %v", err)
	}

	exists, err = store.HasUnreadPending(userID, scheduleID, 2, "water deeply")
	if err != nil {
		t.Fatalf("HasUnreadPending failed: %v", err)
	}
	if !exists {
		t.Fatal("Expected pending notification to exist")
	}

	if err := store.MarkPendingRead(userID, scheduleID, 2, "water deeply"); err != nil {
		t.Fatalf("MarkPendingRead failed: %v", err)
	}

	exists, _ = store.HasUnreadPending(userID, scheduleID, 2, "water deeply")
	if exists {
		t.Error("Pending notification should be read now")
	}
	// Idempotent on an already-read slot.
	if err := store.MarkPendingRead(userID, scheduleID, 2, "water deeply"); err != nil {
		t.Errorf("MarkPendingRead on read slot failed: %v", err)
	}
}

func TestGetOrCreateJournal(t *testing.T) {
	store := newTestStore(t)

	userID, _ := store.CreateUser("marisol", "user", false)
	plantID, _ := store.AddPlant(&Plant{Name: "Basil"})

	first, err := store.GetOrCreateJournal(userID, &plantID, "Basil Journal")
	if err != nil {
		t.Fatalf("GetOrCreateJournal failed: %v", err)
	}
	second, err := store.GetOrCreateJournal(userID, &plantID, "Basil Journal")
	if err != nil {
		t.Fatalf("GetOrCreateJournal failed: %v", err)
	}
	if first != second {
		t.Errorf("Expected same journal, got %d and %d", first, second)
	}

	_, err = store.AddJournalEntry(&JournalEntry{JournalID: first, EntryDate: time.Now(), Notes: "Sprouted"})
	if err != nil {
		t.Fatalf("AddJournalEntry failed: %v", err)
	}

	journals, err := store.GetJournals(userID)
	if err != nil {
		t.Fatalf("GetJournals failed: %v", err)
	}
	if len(journals) != 1 {
		t.Fatalf("Expected 1 journal, got %d", len(journals))
	}
	if journals[0].EntryCount != 1 {
		t.Errorf("Entry count mismatch: got %d, want 1", journals[0].EntryCount)
	}
}

func TestMemoryUpsert(t *testing.T) {
	store := newTestStore(t)

	userID, _ := store.CreateUser("marisol", "user", false)

	if err := store.UpsertMemory(userID, MemoryPreference, "organic_only", `{"value":true}`); err != nil {
		t.Fatalf("UpsertMemory failed: %v", err)
	}
	if err := store.UpsertMemory(userID, MemoryPreference, "organic_only", `{"value":false}`); err != nil {
		t.Fatalf("UpsertMemory failed: %v", err)
	}

	memories, err := store.GetMemories(userID, MemoryPreference, 10)
	if err != nil {
		t.Fatalf("GetMemories failed: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("Expected 1 memory, got %d", len(memories))
	}
	if memories[0].ValueJSON != `{"value":false}` {
		t.Errorf("Value mismatch: got %s", memories[0].ValueJSON)
	}
}

func TestChatHistory(t *testing.T) {
	store := newTestStore(t)

	userID, _ := store.CreateUser("marisol", "user", false)
	store.AddChatMessage(userID, "user", "How often do I water basil?")
	store.AddChatMessage(userID, "assistant", "Every 2-3 days in warm weather.")

	count, lastAt, err := store.GetChatStats(userID)
	if err != nil {
		t.Fatalf("GetChatStats failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 messages, got %d", count)
	}
	if lastAt == nil {
		t.Error("Expected a last-activity timestamp")
	}

	messages, err := store.GetRecentChatMessages(userID, 10)
	if err != nil {
		t.Fatalf("GetRecentChatMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != "assistant" {
		t.Errorf("Expected newest first, got role %s", messages[0].Role)
	}
}
