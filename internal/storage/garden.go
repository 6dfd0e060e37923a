package storage

import (
	"database/sql"
	"fmt"
	"time"
)

type GardenItem struct {
	ID                   int64
	UserID               int64
	PlantID              int64
	Nickname             string
	Location             string
	Notes                string
	Quantity             int
	PlantedOn            *time.Time
	WateringIntervalDays *int
	LastWatered          *time.Time
	CreatedAt            time.Time

	// Joined plant fields.
	PlantName     string
	PlantType     string
	DurationDays  *int
	WateringNeeds string

	// Most recently created schedule for this item, if any. Resolved per
	// read, never stored.
	CurrentScheduleID *int64
}

// AddGardenItem adds a plant instance to a user's garden.
func (s *Store) AddGardenItem(g *GardenItem) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO garden_items (user_id, plant_id, nickname, location, notes, quantity, planted_on, watering_interval_days)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.PlantID, g.Nickname, g.Location, g.Notes, g.Quantity,
		g.PlantedOn, g.WateringIntervalDays,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add garden item: %w", err)
	}
	return result.LastInsertId()
}

const gardenItemColumns = `
	g.id, g.user_id, g.plant_id, g.nickname, g.location, g.notes, g.quantity,
	g.planted_on, g.watering_interval_days, g.last_watered, g.created_at,
	p.name, p.type, p.duration_days, p.watering_needs,
	(SELECT s.id FROM schedules s
	 WHERE s.garden_item_id = g.id
	 ORDER BY s.created_at DESC, s.id DESC LIMIT 1)`

func scanGardenItem(rows interface{ Scan(...any) error }) (GardenItem, error) {
	var g GardenItem
	var nickname, location, notes, ptype, water sql.NullString
	err := rows.Scan(&g.ID, &g.UserID, &g.PlantID, &nickname, &location, &notes, &g.Quantity,
		&g.PlantedOn, &g.WateringIntervalDays, &g.LastWatered, &g.CreatedAt,
		&g.PlantName, &ptype, &g.DurationDays, &water, &g.CurrentScheduleID)
	if err != nil {
		return g, err
	}
	g.Nickname = nickname.String
	g.Location = location.String
	g.Notes = notes.String
	g.PlantType = ptype.String
	g.WateringNeeds = water.String
	return g, nil
}

// GetGardenItem returns a single garden item with plant details and the
// latest schedule reference.
func (s *Store) GetGardenItem(itemID int64) (*GardenItem, error) {
	row := s.db.QueryRow(
		"SELECT "+gardenItemColumns+" FROM garden_items g JOIN plants p ON g.plant_id = p.id WHERE g.id = ?",
		itemID,
	)
	g, err := scanGardenItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get garden item %d: %w", itemID, err)
	}
	return &g, nil
}

// GetGardenItems returns a user's garden with plant details, newest first.
func (s *Store) GetGardenItems(userID int64) ([]GardenItem, error) {
	rows, err := s.db.Query(
		"SELECT "+gardenItemColumns+` FROM garden_items g
		 JOIN plants p ON g.plant_id = p.id
		 WHERE g.user_id = ?
		 ORDER BY g.created_at DESC, g.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get garden items: %w", err)
	}
	defer rows.Close()

	var items []GardenItem
	for rows.Next() {
		g, err := scanGardenItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan garden item: %w", err)
		}
		items = append(items, g)
	}
	return items, rows.Err()
}

// UpdateLastWatered stamps a garden item's last watering time.
func (s *Store) UpdateLastWatered(itemID int64, when time.Time) error {
	_, err := s.db.Exec("UPDATE garden_items SET last_watered = ? WHERE id = ?", when, itemID)
	if err != nil {
		return fmt.Errorf("failed to update last watered: %w", err)
	}
	return nil
}

// RemoveGardenItem deletes a garden item. CASCADE handles schedules and tasks.
func (s *Store) RemoveGardenItem(userID, itemID int64) (bool, error) {
	result, err := s.db.Exec(
		"DELETE FROM garden_items WHERE id = ? AND user_id = ?",
		itemID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove garden item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows > 0, nil
}
