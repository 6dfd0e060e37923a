package storage

import (
	"fmt"
	"time"
)

const (
	MemoryPreference = "preference"
	MemoryCareEvent  = "care_event"
)

type Memory struct {
	ID         int64
	UserID     int64
	MemoryType string
	Key        string
	ValueJSON  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UpsertMemory stores a memory entry, replacing the value for an existing
// (user, type, key) tuple.
func (s *Store) UpsertMemory(userID int64, memoryType, key, valueJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO ai_memories (user_id, memory_type, key, value_json, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(user_id, memory_type, key) DO UPDATE SET
		   value_json = excluded.value_json,
		   updated_at = CURRENT_TIMESTAMP`,
		userID, memoryType, key, valueJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert memory: %w", err)
	}
	return nil
}

// GetMemories returns a user's memories of one type, most recently updated first.
func (s *Store) GetMemories(userID int64, memoryType string, limit int) ([]Memory, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, memory_type, key, value_json, created_at, updated_at
		 FROM ai_memories WHERE user_id = ? AND memory_type = ?
		 ORDER BY updated_at DESC, id DESC LIMIT ?`,
		userID, memoryType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get memories: %w", err)
	}
	defer rows.Close()

	var memories []Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ID, &m.UserID, &m.MemoryType, &m.Key, &m.ValueJSON, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// DeleteMemory removes a single memory entry.
func (s *Store) DeleteMemory(userID int64, memoryType, key string) error {
	_, err := s.db.Exec(
		"DELETE FROM ai_memories WHERE user_id = ? AND memory_type = ? AND key = ?",
		userID, memoryType, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}
