package storage

import (
	"database/sql"
	"fmt"
	"time"
)

type Journal struct {
	ID        int64
	UserID    int64
	PlantID   *int64
	Title     string
	CreatedAt time.Time

	// Derived on read.
	EntryCount      int
	LatestEntryDate *time.Time
}

type JournalEntry struct {
	ID             int64
	JournalID      int64
	EntryDate      time.Time
	Notes          string
	PhotoPath      string
	GrowthHeightCm *float64
	GrowthWidthCm  *float64
	CreatedAt      time.Time
}

// GetOrCreateJournal finds the journal keyed by (user, plant, title),
// creating it when absent.
func (s *Store) GetOrCreateJournal(userID int64, plantID *int64, title string) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM journals WHERE user_id = ? AND plant_id IS ? AND title = ?",
		userID, plantID, title,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up journal: %w", err)
	}

	result, err := s.db.Exec(
		"INSERT INTO journals (user_id, plant_id, title) VALUES (?, ?, ?)",
		userID, plantID, title,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create journal: %w", err)
	}
	return result.LastInsertId()
}

// AddJournalEntry appends an entry to a journal.
func (s *Store) AddJournalEntry(e *JournalEntry) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO journal_entries (journal_id, entry_date, notes, photo_path, growth_height_cm, growth_width_cm)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.JournalID, e.EntryDate, e.Notes, e.PhotoPath, e.GrowthHeightCm, e.GrowthWidthCm,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add journal entry: %w", err)
	}
	return result.LastInsertId()
}

// GetJournals returns a user's journals with entry counts and latest entry
// dates, newest journal first.
func (s *Store) GetJournals(userID int64) ([]Journal, error) {
	rows, err := s.db.Query(
		`SELECT j.id, j.user_id, j.plant_id, j.title, j.created_at,
		        COUNT(e.id), MAX(e.entry_date)
		 FROM journals j
		 LEFT JOIN journal_entries e ON e.journal_id = j.id
		 WHERE j.user_id = ?
		 GROUP BY j.id
		 ORDER BY j.created_at DESC, j.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get journals: %w", err)
	}
	defer rows.Close()

	var journals []Journal
	for rows.Next() {
		var j Journal
		if err := rows.Scan(&j.ID, &j.UserID, &j.PlantID, &j.Title, &j.CreatedAt, &j.EntryCount, &j.LatestEntryDate); err != nil {
			return nil, fmt.Errorf("failed to scan journal: %w", err)
		}
		journals = append(journals, j)
	}
	return journals, rows.Err()
}

// GetLatestJournalEntry returns the most recent entry for a journal, or nil.
func (s *Store) GetLatestJournalEntry(journalID int64) (*JournalEntry, error) {
	var e JournalEntry
	var notes, photo sql.NullString
	err := s.db.QueryRow(
		`SELECT id, journal_id, entry_date, notes, photo_path, growth_height_cm, growth_width_cm, created_at
		 FROM journal_entries WHERE journal_id = ?
		 ORDER BY entry_date DESC, id DESC LIMIT 1`,
		journalID,
	).Scan(&e.ID, &e.JournalID, &e.EntryDate, &notes, &photo, &e.GrowthHeightCm, &e.GrowthWidthCm, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest journal entry: %w", err)
	}
	e.Notes = notes.String
	e.PhotoPath = photo.String
	return &e, nil
}

// GetJournalEntries returns a journal's entries, newest first.
func (s *Store) GetJournalEntries(journalID int64, limit int) ([]JournalEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, journal_id, entry_date, notes, photo_path, growth_height_cm, growth_width_cm, created_at
		 FROM journal_entries WHERE journal_id = ?
		 ORDER BY entry_date DESC, id DESC LIMIT ?`,
		journalID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var notes, photo sql.NullString
		if err := rows.Scan(&e.ID, &e.JournalID, &e.EntryDate, &notes, &photo, &e.GrowthHeightCm, &e.GrowthWidthCm, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Notes = notes.String
		e.PhotoPath = photo.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
