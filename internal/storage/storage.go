package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

type User struct {
	ID        int64
	Username  string
	Role      string
	IsPro     bool
	CreatedAt time.Time
}

type Plant struct {
	ID             int64
	Name           string
	ScientificName string
	Type           string
	DurationDays   *int
	PhotoURL       string
	Description    string
	Sunlight       string
	WateringNeeds  string
	CreatedAt      time.Time
}

// NewStore creates a new database connection and initializes the schema
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// Migrations for existing databases.
	migrations := []string{
		"ALTER TABLE notifications ADD COLUMN task_key TEXT",
		"ALTER TABLE garden_items ADD COLUMN watering_interval_days INTEGER",
		"ALTER TABLE garden_items ADD COLUMN last_watered DATETIME",
	}
	for _, m := range migrations {
		db.Exec(m) // ignore "duplicate column" errors
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// User management

// CreateUser adds a new user. Usernames are unique case-insensitively.
func (s *Store) CreateUser(username, role string, isPro bool) (int64, error) {
	result, err := s.db.Exec(
		"INSERT INTO users (username, role, is_pro) VALUES (?, ?, ?)",
		username, role, isPro,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return result.LastInsertId()
}

// GetUser returns a single user by ID.
func (s *Store) GetUser(userID int64) (*User, error) {
	var u User
	err := s.db.QueryRow(
		"SELECT id, username, role, is_pro, created_at FROM users WHERE id = ?",
		userID,
	).Scan(&u.ID, &u.Username, &u.Role, &u.IsPro, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return &u, nil
}

// GetUserByName looks a user up by username.
func (s *Store) GetUserByName(username string) (*User, error) {
	var u User
	err := s.db.QueryRow(
		"SELECT id, username, role, is_pro, created_at FROM users WHERE username = ?",
		username,
	).Scan(&u.ID, &u.Username, &u.Role, &u.IsPro, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by name: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query("SELECT id, username, role, is_pro, created_at FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.IsPro, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Plant catalog

// AddPlant adds a plant to the catalog.
func (s *Store) AddPlant(p *Plant) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO plants (name, scientific_name, type, duration_days, photo_url, description, sunlight, watering_needs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.ScientificName, p.Type, p.DurationDays,
		p.PhotoURL, p.Description, p.Sunlight, p.WateringNeeds,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add plant: %w", err)
	}
	return result.LastInsertId()
}

// GetPlant returns a single plant by ID.
func (s *Store) GetPlant(plantID int64) (*Plant, error) {
	var p Plant
	var sci, ptype, photo, desc, sun, water sql.NullString
	err := s.db.QueryRow(
		`SELECT id, name, scientific_name, type, duration_days, photo_url, description, sunlight, watering_needs, created_at
		 FROM plants WHERE id = ?`, plantID,
	).Scan(&p.ID, &p.Name, &sci, &ptype, &p.DurationDays, &photo, &desc, &sun, &water, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plant %d: %w", plantID, err)
	}
	p.ScientificName = sci.String
	p.Type = ptype.String
	p.PhotoURL = photo.String
	p.Description = desc.String
	p.Sunlight = sun.String
	p.WateringNeeds = water.String
	return &p, nil
}

// ListPlants returns the full plant catalog ordered by name.
func (s *Store) ListPlants() ([]Plant, error) {
	rows, err := s.db.Query(
		`SELECT id, name, scientific_name, type, duration_days, photo_url, description, sunlight, watering_needs, created_at
		 FROM plants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	defer rows.Close()

	var plants []Plant
	for rows.Next() {
		var p Plant
		var sci, ptype, photo, desc, sun, water sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &sci, &ptype, &p.DurationDays, &photo, &desc, &sun, &water, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plant: %w", err)
		}
		p.ScientificName = sci.String
		p.Type = ptype.String
		p.PhotoURL = photo.String
		p.Description = desc.String
		p.Sunlight = sun.String
		p.WateringNeeds = water.String
		plants = append(plants, p)
	}
	return plants, rows.Err()
}
