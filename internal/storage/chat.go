package storage

import (
	"fmt"
	"time"
)

type ChatMessage struct {
	ID        int64
	UserID    int64
	Role      string
	Message   string
	CreatedAt time.Time
}

// AddChatMessage appends a message to a user's chat history.
func (s *Store) AddChatMessage(userID int64, role, message string) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO chat_messages (user_id, role, message) VALUES (?, ?, ?)",
		userID, role, message,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add chat message: %w", err)
	}
	return result.LastInsertId()
}

// GetRecentChatMessages returns the most recent messages for a user, newest
// first. Callers that need chronological order reverse the slice.
func (s *Store) GetRecentChatMessages(userID int64, limit int) ([]ChatMessage, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, role, message, created_at
		 FROM chat_messages WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetChatStats returns the message count and last activity time for a user.
func (s *Store) GetChatStats(userID int64) (int, *time.Time, error) {
	var count int
	var lastAt *time.Time
	err := s.db.QueryRow(
		"SELECT COUNT(*), MAX(created_at) FROM chat_messages WHERE user_id = ?",
		userID,
	).Scan(&count, &lastAt)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get chat stats: %w", err)
	}
	return count, lastAt, nil
}
