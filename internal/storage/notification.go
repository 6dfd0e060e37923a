package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	NotificationAdhoc   = "adhoc"
	NotificationPending = "pending"
)

type Notification struct {
	ID         int64
	UserID     int64
	ScheduleID *int64
	Day        *int
	Kind       string
	TaskKey    string
	Message    string
	URL        string
	IsRead     bool
	CreatedAt  time.Time
}

// AddNotification stores a notification and returns its ID.
func (s *Store) AddNotification(n *Notification) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO notifications (user_id, schedule_id, day, kind, task_key, message, url)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.UserID, n.ScheduleID, n.Day, n.Kind, n.TaskKey, n.Message, n.URL,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add notification: %w", err)
	}
	return result.LastInsertId()
}

// HasUnreadPending reports whether an unread pending notification already
// exists for the given schedule-day-task slot.
func (s *Store) HasUnreadPending(userID, scheduleID int64, day int, taskKey string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM notifications
		 WHERE user_id = ? AND schedule_id = ? AND day = ? AND kind = ? AND task_key = ? AND is_read = 0
		 LIMIT 1`,
		userID, scheduleID, day, NotificationPending, taskKey,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check pending notification: %w", err)
	}
	return true, nil
}

// MarkPendingRead marks every unread pending notification for the slot as
// read. Safe to call when none exists.
func (s *Store) MarkPendingRead(userID, scheduleID int64, day int, taskKey string) error {
	_, err := s.db.Exec(
		`UPDATE notifications SET is_read = 1
		 WHERE user_id = ? AND schedule_id = ? AND day = ? AND kind = ? AND task_key = ? AND is_read = 0`,
		userID, scheduleID, day, NotificationPending, taskKey,
	)
	if err != nil {
		return fmt.Errorf("failed to mark pending notification read: %w", err)
	}
	return nil
}

// GetUnreadNotifications returns a user's unread notifications, newest first.
func (s *Store) GetUnreadNotifications(userID int64, limit int) ([]Notification, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, schedule_id, day, kind, task_key, message, url, is_read, created_at
		 FROM notifications WHERE user_id = ? AND is_read = 0
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get unread notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// GetNotifications returns a user's notifications, newest first, read or not.
func (s *Store) GetNotifications(userID int64, limit int) ([]Notification, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, schedule_id, day, kind, task_key, message, url, is_read, created_at
		 FROM notifications WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]Notification, error) {
	var notes []Notification
	for rows.Next() {
		var n Notification
		var taskKey, url sql.NullString
		if err := rows.Scan(&n.ID, &n.UserID, &n.ScheduleID, &n.Day, &n.Kind, &taskKey, &n.Message, &url, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.TaskKey = taskKey.String
		n.URL = url.String
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// MarkAllNotificationsRead marks every unread notification for a user as read.
func (s *Store) MarkAllNotificationsRead(userID int64) (int64, error) {
	result, err := s.db.Exec(
		"UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0",
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

// MarkNotificationRead marks a single notification as read, scoped to its owner.
func (s *Store) MarkNotificationRead(userID, notificationID int64) (bool, error) {
	result, err := s.db.Exec(
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?",
		notificationID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows > 0, nil
}
