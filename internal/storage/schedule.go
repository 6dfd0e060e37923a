package storage

import (
	"database/sql"
	"fmt"
	"time"
)

type Schedule struct {
	ID           int64
	GardenItemID int64
	UserID       int64
	ScheduleJSON string
	CreatedAt    time.Time
}

type ScheduleTask struct {
	ScheduleID  int64
	Day         int
	TaskIndex   int
	TaskText    string
	Completed   bool
	CompletedAt *time.Time
}

// CreateSchedule stores a new schedule blob for a garden item.
func (s *Store) CreateSchedule(gardenItemID, userID int64, scheduleJSON string) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO schedules (garden_item_id, user_id, schedule_json) VALUES (?, ?, ?)",
		gardenItemID, userID, scheduleJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create schedule: %w", err)
	}
	return result.LastInsertId()
}

// GetSchedule returns a single schedule by ID.
func (s *Store) GetSchedule(scheduleID int64) (*Schedule, error) {
	var sc Schedule
	err := s.db.QueryRow(
		"SELECT id, garden_item_id, user_id, schedule_json, created_at FROM schedules WHERE id = ?",
		scheduleID,
	).Scan(&sc.ID, &sc.GardenItemID, &sc.UserID, &sc.ScheduleJSON, &sc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule %d: %w", scheduleID, err)
	}
	return &sc, nil
}

// UpdateScheduleJSON replaces the stored blob for a schedule.
func (s *Store) UpdateScheduleJSON(scheduleID int64, scheduleJSON string) error {
	_, err := s.db.Exec(
		"UPDATE schedules SET schedule_json = ? WHERE id = ?",
		scheduleJSON, scheduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule json: %w", err)
	}
	return nil
}

// GetSchedulesForUser returns all of a user's schedules, newest first.
func (s *Store) GetSchedulesForUser(userID int64) ([]Schedule, error) {
	rows, err := s.db.Query(
		"SELECT id, garden_item_id, user_id, schedule_json, created_at FROM schedules WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedules: %w", err)
	}
	defer rows.Close()

	var schedules []Schedule
	for rows.Next() {
		var sc Schedule
		if err := rows.Scan(&sc.ID, &sc.GardenItemID, &sc.UserID, &sc.ScheduleJSON, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

// UpsertScheduleTask inserts a task row or refreshes its text, preserving
// any existing completion state.
func (s *Store) UpsertScheduleTask(scheduleID int64, day, taskIndex int, taskText string) error {
	_, err := s.db.Exec(
		`INSERT INTO schedule_tasks (schedule_id, day, task_index, task_text)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(schedule_id, day, task_index) DO UPDATE SET
		   task_text = excluded.task_text`,
		scheduleID, day, taskIndex, taskText,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule task: %w", err)
	}
	return nil
}

// UpsertScheduleTaskCompleted inserts a task row with an explicit
// completion state, or overwrites text and state if the row exists.
func (s *Store) UpsertScheduleTaskCompleted(scheduleID int64, day, taskIndex int, taskText string, completed bool) error {
	_, err := s.db.Exec(
		`INSERT INTO schedule_tasks (schedule_id, day, task_index, task_text, completed, completed_at)
		 VALUES (?, ?, ?, ?, ?, CASE WHEN ? THEN CURRENT_TIMESTAMP ELSE NULL END)
		 ON CONFLICT(schedule_id, day, task_index) DO UPDATE SET
		   task_text = excluded.task_text,
		   completed = excluded.completed,
		   completed_at = excluded.completed_at`,
		scheduleID, day, taskIndex, taskText, completed, completed,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert schedule task: %w", err)
	}
	return nil
}

// SetTaskCompletion updates an existing task row's completion state.
// Returns false when no row matched.
func (s *Store) SetTaskCompletion(scheduleID int64, day, taskIndex int, completed bool) (bool, string, error) {
	var taskText string
	err := s.db.QueryRow(
		"SELECT task_text FROM schedule_tasks WHERE schedule_id = ? AND day = ? AND task_index = ?",
		scheduleID, day, taskIndex,
	).Scan(&taskText)
	if err == sql.ErrNoRows {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to look up schedule task: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE schedule_tasks
		 SET completed = ?, completed_at = CASE WHEN ? THEN CURRENT_TIMESTAMP ELSE NULL END
		 WHERE schedule_id = ? AND day = ? AND task_index = ?`,
		completed, completed, scheduleID, day, taskIndex,
	)
	if err != nil {
		return false, "", fmt.Errorf("failed to update task completion: %w", err)
	}
	return true, taskText, nil
}

// GetScheduleTasks returns all task rows for a schedule ordered by day then index.
func (s *Store) GetScheduleTasks(scheduleID int64) ([]ScheduleTask, error) {
	rows, err := s.db.Query(
		`SELECT schedule_id, day, task_index, task_text, completed, completed_at
		 FROM schedule_tasks WHERE schedule_id = ?
		 ORDER BY day, task_index`,
		scheduleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule tasks: %w", err)
	}
	defer rows.Close()

	var tasks []ScheduleTask
	for rows.Next() {
		var t ScheduleTask
		if err := rows.Scan(&t.ScheduleID, &t.Day, &t.TaskIndex, &t.TaskText, &t.Completed, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTasksForDay returns the task rows for one day of a schedule.
func (s *Store) GetTasksForDay(scheduleID int64, day int) ([]ScheduleTask, error) {
	rows, err := s.db.Query(
		`SELECT schedule_id, day, task_index, task_text, completed, completed_at
		 FROM schedule_tasks WHERE schedule_id = ? AND day = ?
		 ORDER BY task_index`,
		scheduleID, day,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks for day: %w", err)
	}
	defer rows.Close()

	var tasks []ScheduleTask
	for rows.Next() {
		var t ScheduleTask
		if err := rows.Scan(&t.ScheduleID, &t.Day, &t.TaskIndex, &t.TaskText, &t.Completed, &t.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// TaskStats holds per-schedule completion counts.
type TaskStats struct {
	Total     int
	Completed int
}

// GetTaskStats returns total and completed task counts for a schedule.
func (s *Store) GetTaskStats(scheduleID int64) (TaskStats, error) {
	var ts TaskStats
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN completed = 1 THEN 1 ELSE 0 END), 0)
		 FROM schedule_tasks WHERE schedule_id = ?`,
		scheduleID,
	).Scan(&ts.Total, &ts.Completed)
	if err != nil {
		return ts, fmt.Errorf("failed to get task stats: %w", err)
	}
	return ts, nil
}

// GetNextIncompleteTask returns the earliest incomplete task for a schedule,
// or nil when every stored task is done.
func (s *Store) GetNextIncompleteTask(scheduleID int64) (*ScheduleTask, error) {
	var t ScheduleTask
	err := s.db.QueryRow(
		`SELECT schedule_id, day, task_index, task_text, completed, completed_at
		 FROM schedule_tasks WHERE schedule_id = ? AND completed = 0
		 ORDER BY day, task_index LIMIT 1`,
		scheduleID,
	).Scan(&t.ScheduleID, &t.Day, &t.TaskIndex, &t.TaskText, &t.Completed, &t.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next incomplete task: %w", err)
	}
	return &t, nil
}
