package storage

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	DetectionWeed    = "weed"
	DetectionDisease = "disease"
)

type DetectionSession struct {
	ID         int64
	UserID     int64
	Kind       string
	ResultName string
	ResultJSON string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AddDetectionSession records a classifier run result.
func (s *Store) AddDetectionSession(userID int64, kind, resultName, resultJSON string) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO detection_sessions (user_id, kind, result_name, result_json) VALUES (?, ?, ?, ?)",
		userID, kind, resultName, resultJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add detection session: %w", err)
	}
	return result.LastInsertId()
}

// GetRecentDetectionSessions returns a user's latest detection results,
// most recently updated first.
func (s *Store) GetRecentDetectionSessions(userID int64, limit int) ([]DetectionSession, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, kind, result_name, result_json, created_at, updated_at
		 FROM detection_sessions WHERE user_id = ?
		 ORDER BY updated_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get detection sessions: %w", err)
	}
	defer rows.Close()

	var sessions []DetectionSession
	for rows.Next() {
		var d DetectionSession
		var name, resJSON sql.NullString
		if err := rows.Scan(&d.ID, &d.UserID, &d.Kind, &name, &resJSON, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan detection session: %w", err)
		}
		d.ResultName = name.String
		d.ResultJSON = resJSON.String
		sessions = append(sessions, d)
	}
	return sessions, rows.Err()
}
