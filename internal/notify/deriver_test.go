package notify

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verdanthq/verdant/internal/schedule"
	"github.com/verdanthq/verdant/internal/storage"
)

func newTestDeriver(t *testing.T) (*Deriver, *storage.Store, int64, int64) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	userID, _ := store.CreateUser("marisol", "user", false)
	plantID, _ := store.AddPlant(&storage.Plant{Name: "Basil"})
	itemID, _ := store.AddGardenItem(&storage.GardenItem{UserID: userID, PlantID: plantID, Quantity: 1})
	return NewDeriver(store), store, userID, itemID
}

func TestTaskKey(t *testing.T) {
	if got := TaskKey("  Water   Deeply \n"); got != "water deeply" {
		t.Errorf("TaskKey = %q, want %q", got, "water deeply")
	}
}

func TestEnsurePendingIdempotent(t *testing.T) {
	d, store, userID, itemID := newTestDeriver(t)
	scheduleID, _ := store.CreateSchedule(itemID, userID, `[{"day":1,"tasks":["Water deeply"]}]`)

	for i := 0; i < 3; i++ {
		if err := d.EnsurePending(userID, scheduleID, 1, "Water deeply", "/garden/schedule/1#day-1"); err != nil {
			t.Fatalf("EnsurePending failed: %v", err)
		}
	}

	notes, err := store.GetUnreadNotifications(userID, 10)
	if err != nil {
		t.Fatalf("GetUnreadNotifications failed: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("Expected exactly 1 unread pending, got %d", len(notes))
	}
	if notes[0].Message != "Pending - Day 1: Water deeply" {
		t.Errorf("Message mismatch: %q", notes[0].Message)
	}
}

func TestCompleteThenReEnsure(t *testing.T) {
	d, store, userID, itemID := newTestDeriver(t)
	scheduleID, _ := store.CreateSchedule(itemID, userID, `[{"day":1,"tasks":["Water deeply"]}]`)

	d.EnsurePending(userID, scheduleID, 1, "Water deeply", "")
	if err := d.CompletePending(userID, scheduleID, 1, "Water deeply"); err != nil {
		t.Fatalf("CompletePending failed: %v", err)
	}
	// Completing an already-read slot stays quiet.
	if err := d.CompletePending(userID, scheduleID, 1, "Water deeply"); err != nil {
		t.Fatalf("CompletePending (repeat) failed: %v", err)
	}

	notes, _ := store.GetUnreadNotifications(userID, 10)
	if len(notes) != 0 {
		t.Fatalf("Expected no unread notifications, got %d", len(notes))
	}

	// Unmarking the task brings the slot back as a fresh unread pending.
	if err := d.EnsurePending(userID, scheduleID, 1, "Water deeply", ""); err != nil {
		t.Fatalf("EnsurePending failed: %v", err)
	}
	notes, _ = store.GetUnreadNotifications(userID, 10)
	if len(notes) != 1 {
		t.Fatalf("Expected 1 unread pending after re-ensure, got %d", len(notes))
	}
}

func TestRepeatedCompleteToggleStaysStable(t *testing.T) {
	d, store, userID, itemID := newTestDeriver(t)
	scheduleID, _ := store.CreateSchedule(itemID, userID, `[{"day":1,"tasks":["Water deeply"]}]`)
	d.EnsurePending(userID, scheduleID, 1, "Water deeply", "")

	p := schedule.NewPlanner(store, nil, d, 0.4)

	// Marking the same task complete twice keeps the state and the
	// notification slot stable.
	for i := 0; i < 2; i++ {
		result, err := p.Toggle(context.Background(), userID, scheduleID, 1, 0, true)
		if err != nil {
			t.Fatalf("Toggle %d failed: %v", i+1, err)
		}
		if result.Message != "Task completed for Day 1: Water deeply" {
			t.Errorf("Toggle %d message mismatch: %q", i+1, result.Message)
		}
	}

	tasks, _ := store.GetTasksForDay(scheduleID, 1)
	if len(tasks) != 1 || !tasks[0].Completed {
		t.Fatalf("Expected a single completed task row, got %+v", tasks)
	}

	// The pending slot was marked read once; no duplicate pending notices.
	notes, _ := store.GetNotifications(userID, 10)
	pending := 0
	for _, n := range notes {
		if n.Kind == storage.NotificationPending {
			pending++
			if !n.IsRead {
				t.Errorf("Pending slot should be read after completion: %+v", n)
			}
		}
	}
	if pending != 1 {
		t.Errorf("Expected exactly 1 pending notification, got %d", pending)
	}
}

func TestScanDueToday(t *testing.T) {
	d, store, userID, itemID := newTestDeriver(t)
	scheduleID, _ := store.CreateSchedule(itemID, userID,
		`[{"day":1,"tasks":["Sow seeds","Water lightly"]},{"day":2,"tasks":["Check moisture"]}]`)

	// Schedule created today: current day is 1.
	result, err := d.ScanDueToday(userID)
	if err != nil {
		t.Fatalf("ScanDueToday failed: %v", err)
	}
	if result.SchedulesScanned != 1 {
		t.Errorf("Expected 1 schedule scanned, got %d", result.SchedulesScanned)
	}
	if result.Ensured != 2 {
		t.Errorf("Expected 2 pending ensured, got %d", result.Ensured)
	}

	// Rescanning must not duplicate.
	if _, err := d.ScanDueToday(userID); err != nil {
		t.Fatalf("ScanDueToday (repeat) failed: %v", err)
	}
	notes, _ := store.GetUnreadNotifications(userID, 10)
	if len(notes) != 2 {
		t.Fatalf("Expected 2 unread pendings after rescan, got %d", len(notes))
	}

	// Completing a task flips its slot to read on the next scan.
	store.UpsertScheduleTaskCompleted(scheduleID, 1, 0, "Sow seeds", true)
	result, err = d.ScanDueToday(userID)
	if err != nil {
		t.Fatalf("ScanDueToday failed: %v", err)
	}
	if result.Completed != 1 {
		t.Errorf("Expected 1 slot completed, got %d", result.Completed)
	}
	notes, _ = store.GetUnreadNotifications(userID, 10)
	if len(notes) != 1 {
		t.Fatalf("Expected 1 unread pending left, got %d", len(notes))
	}
}

func TestScanUsesScheduleAge(t *testing.T) {
	d, store, userID, itemID := newTestDeriver(t)
	store.CreateSchedule(itemID, userID,
		`[{"day":1,"tasks":["Sow seeds"]},{"day":2,"tasks":["Check moisture"]}]`)

	// Pretend two calendar days have passed.
	d.now = func() time.Time { return time.Now().AddDate(0, 0, 1) }

	result, err := d.ScanDueToday(userID)
	if err != nil {
		t.Fatalf("ScanDueToday failed: %v", err)
	}
	if result.Ensured != 1 {
		t.Fatalf("Expected 1 pending for day 2, got %d", result.Ensured)
	}
	notes, _ := store.GetUnreadNotifications(userID, 10)
	if notes[0].Message != "Pending - Day 2: Check moisture" {
		t.Errorf("Expected day-2 pending, got %q", notes[0].Message)
	}
}

func TestScanSkipsUnparseableBlobs(t *testing.T) {
	d, store, userID, itemID := newTestDeriver(t)
	store.CreateSchedule(itemID, userID, `{"ai_text":"free-form model output"}`)

	result, err := d.ScanDueToday(userID)
	if err != nil {
		t.Fatalf("ScanDueToday failed: %v", err)
	}
	if result.SchedulesScanned != 0 {
		t.Errorf("Unparseable blobs should be skipped, scanned %d", result.SchedulesScanned)
	}
}

func TestCurrentDayFloor(t *testing.T) {
	d := &Deriver{now: func() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC) }}
	created := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if day := d.currentDay(created); day != 1 {
		t.Errorf("Future creation should floor at day 1, got %d", day)
	}
	created = time.Date(2026, 2, 27, 23, 0, 0, 0, time.UTC)
	if day := d.currentDay(created); day != 3 {
		t.Errorf("Expected day 3, got %d", day)
	}
}
