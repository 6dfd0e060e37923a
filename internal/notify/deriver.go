package notify

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/verdanthq/verdant/internal/schedule"
	"github.com/verdanthq/verdant/internal/storage"
)

// Store is the storage surface the deriver needs.
type Store interface {
	AddNotification(n *storage.Notification) (int64, error)
	HasUnreadPending(userID, scheduleID int64, day int, taskKey string) (bool, error)
	MarkPendingRead(userID, scheduleID int64, day int, taskKey string) error
	GetSchedulesForUser(userID int64) ([]storage.Schedule, error)
	GetTasksForDay(scheduleID int64, day int) ([]storage.ScheduleTask, error)
}

// Deriver maintains pending-task notifications derived from schedule state.
// It never generates anything from model output; every notification is a
// deterministic function of stored schedules and task rows.
type Deriver struct {
	store Store
	now   func() time.Time
}

func NewDeriver(store Store) *Deriver {
	return &Deriver{store: store, now: time.Now}
}

// TaskKey normalizes task text into the idempotency key for pending slots.
func TaskKey(taskText string) string {
	return strings.ToLower(strings.Join(strings.Fields(taskText), " "))
}

// Record stores an ad-hoc notification for a task toggle.
func (d *Deriver) Record(userID, scheduleID int64, day int, message, url string) error {
	_, err := d.store.AddNotification(&storage.Notification{
		UserID:     userID,
		ScheduleID: &scheduleID,
		Day:        &day,
		Kind:       storage.NotificationAdhoc,
		Message:    message,
		URL:        url,
	})
	return err
}

// EnsurePending guarantees exactly one unread pending notification for a
// schedule-day-task slot. Calling it again for the same slot is a no-op.
func (d *Deriver) EnsurePending(userID, scheduleID int64, day int, taskText, url string) error {
	key := TaskKey(taskText)
	exists, err := d.store.HasUnreadPending(userID, scheduleID, day, key)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	_, err = d.store.AddNotification(&storage.Notification{
		UserID:     userID,
		ScheduleID: &scheduleID,
		Day:        &day,
		Kind:       storage.NotificationPending,
		TaskKey:    key,
		Message:    fmt.Sprintf("Pending - Day %d: %s", day, taskText),
		URL:        url,
	})
	return err
}

// CompletePending marks the pending slot read. Idempotent.
func (d *Deriver) CompletePending(userID, scheduleID int64, day int, taskText string) error {
	return d.store.MarkPendingRead(userID, scheduleID, day, TaskKey(taskText))
}

// ScanResult summarizes a due-today scan.
type ScanResult struct {
	SchedulesScanned int
	Ensured          int
	Completed        int
}

// ScanDueToday walks every schedule a user owns, computes the current day
// from the schedule's age, and reconciles pending notifications with task
// completion state. Schedules whose blobs don't parse are skipped.
func (d *Deriver) ScanDueToday(userID int64) (*ScanResult, error) {
	schedules, err := d.store.GetSchedulesForUser(userID)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{}
	for _, sc := range schedules {
		days, perr := schedule.ParseDays(sc.ScheduleJSON)
		if perr != nil {
			continue
		}
		result.SchedulesScanned++

		currentDay := d.currentDay(sc.CreatedAt)
		tasks := tasksForDay(days, currentDay)
		if len(tasks) == 0 {
			continue
		}

		rows, rerr := d.store.GetTasksForDay(sc.ID, currentDay)
		if rerr != nil {
			log.Printf("verdant: scan tasks for schedule %d: %v", sc.ID, rerr)
			continue
		}
		completed := make(map[int]bool, len(rows))
		for _, row := range rows {
			completed[row.TaskIndex] = row.Completed
		}

		url := fmt.Sprintf("/garden/schedule/%d#day-%d", sc.ID, currentDay)
		for i, taskText := range tasks {
			if completed[i] {
				if err := d.CompletePending(userID, sc.ID, currentDay, taskText); err != nil {
					log.Printf("verdant: complete pending for schedule %d: %v", sc.ID, err)
					continue
				}
				result.Completed++
			} else {
				if err := d.EnsurePending(userID, sc.ID, currentDay, taskText, url); err != nil {
					log.Printf("verdant: ensure pending for schedule %d: %v", sc.ID, err)
					continue
				}
				result.Ensured++
			}
		}
	}
	return result, nil
}

// currentDay is the 1-based day index of a schedule: calendar days since
// creation plus one, never below one.
func (d *Deriver) currentDay(createdAt time.Time) int {
	now := d.now()
	a := time.Date(createdAt.Year(), createdAt.Month(), createdAt.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	day := int(b.Sub(a).Hours()/24) + 1
	if day < 1 {
		day = 1
	}
	return day
}

// tasksForDay resolves a day's task list from the blob: an exact day-field
// match first, falling back to positional lookup.
func tasksForDay(days []schedule.Day, day int) []string {
	for _, d := range days {
		if d.Day == day {
			return d.Tasks
		}
	}
	if day >= 1 && day <= len(days) {
		return days[day-1].Tasks
	}
	return nil
}
