package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/plan/internal/domain"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when an experience or plan item does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalid is returned for input that would break the stored collection
	ErrInvalid = errors.New("invalid input")
)

// Store handles database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// AddExperience creates a new experience and returns it
func (s *Store) AddExperience(name, destination string) (*domain.Experience, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("experience name is required: %w", ErrInvalid)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.Exec(
		"INSERT INTO experiences (id, name, destination, created_at) VALUES (?, ?, ?, ?)",
		id, name, destination, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert experience: %w", err)
	}

	return &domain.Experience{
		ID:          id,
		Name:        name,
		Destination: destination,
		CreatedAt:   now,
	}, nil
}

// GetExperience retrieves an experience by ID
func (s *Store) GetExperience(id string) (*domain.Experience, error) {
	var e domain.Experience
	err := s.db.QueryRow(
		"SELECT id, name, destination, created_at FROM experiences WHERE id = ?",
		id,
	).Scan(&e.ID, &e.Name, &e.Destination, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("experience %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get experience: %w", err)
	}
	return &e, nil
}

// ResolveExperience finds an experience by full ID or unique ID prefix
func (s *Store) ResolveExperience(prefix string) (*domain.Experience, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("empty experience id: %w", ErrNotFound)
	}

	rows, err := s.db.Query(
		"SELECT id FROM experiences WHERE id LIKE ? ORDER BY created_at",
		prefix+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("resolve experience: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan experience id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("experience %s: %w", prefix, ErrNotFound)
	case 1:
		return s.GetExperience(ids[0])
	default:
		return nil, fmt.Errorf("experience prefix %s is ambiguous (%d matches): %w", prefix, len(ids), ErrInvalid)
	}
}

// ListExperiences returns experiences, newest first
func (s *Store) ListExperiences() ([]domain.Experience, error) {
	rows, err := s.db.Query(
		"SELECT id, name, destination, created_at FROM experiences ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list experiences: %w", err)
	}
	defer rows.Close()

	var out []domain.Experience
	for rows.Next() {
		var e domain.Experience
		if err := rows.Scan(&e.ID, &e.Name, &e.Destination, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		out = append(out, e)
	}

	return out, rows.Err()
}

// DeleteExperience removes an experience and its plan items
func (s *Store) DeleteExperience(id string) error {
	res, err := s.db.Exec("DELETE FROM experiences WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete experience: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("experience %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddPlanItem appends a plan item to the end of an experience's collection.
// A parent, if given, must be a root item of the same experience.
func (s *Store) AddPlanItem(experienceID string, item domain.PlanItem) (*domain.PlanItem, error) {
	item.Text = strings.TrimSpace(item.Text)
	if item.Text == "" {
		return nil, fmt.Errorf("plan item text is required: %w", ErrInvalid)
	}
	if _, err := s.GetExperience(experienceID); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if !item.IsRoot() {
		var grandparent sql.NullString
		err := tx.QueryRow(
			"SELECT parent_id FROM plan_items WHERE id = ? AND experience_id = ?",
			*item.Parent, experienceID,
		).Scan(&grandparent)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("parent %s: %w", *item.Parent, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("find parent: %w", err)
		}
		if grandparent.Valid && grandparent.String != "" {
			return nil, fmt.Errorf("parent %s is itself a child: %w", *item.Parent, ErrInvalid)
		}
	} else {
		item.Parent = nil
	}

	var next int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(position), -1) + 1 FROM plan_items WHERE experience_id = ?",
		experienceID,
	).Scan(&next); err != nil {
		return nil, fmt.Errorf("next position: %w", err)
	}

	item.ID = uuid.New().String()
	_, err = tx.Exec(
		`INSERT INTO plan_items (id, experience_id, parent_id, text, cost, planning_days, url, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, experienceID, item.Parent, item.Text, item.Cost, item.PlanningDays, item.URL, next,
	)
	if err != nil {
		return nil, fmt.Errorf("insert plan item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &item, nil
}

// ListPlanItems returns an experience's plan items in stored order
func (s *Store) ListPlanItems(experienceID string) ([]domain.PlanItem, error) {
	if _, err := s.GetExperience(experienceID); err != nil {
		return nil, err
	}
	return listPlanItems(s.db, experienceID)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func listPlanItems(q querier, experienceID string) ([]domain.PlanItem, error) {
	rows, err := q.Query(`
		SELECT id, parent_id, text, cost, planning_days, url
		FROM plan_items
		WHERE experience_id = ?
		ORDER BY position, id
	`, experienceID)
	if err != nil {
		return nil, fmt.Errorf("list plan items: %w", err)
	}
	defer rows.Close()

	items := []domain.PlanItem{}
	for rows.Next() {
		var it domain.PlanItem
		var parent sql.NullString
		if err := rows.Scan(&it.ID, &parent, &it.Text, &it.Cost, &it.PlanningDays, &it.URL); err != nil {
			return nil, fmt.Errorf("scan plan item: %w", err)
		}
		if parent.Valid && parent.String != "" {
			p := parent.String
			it.Parent = &p
		}
		items = append(items, it)
	}

	return items, rows.Err()
}

// ReplacePlanItems stores a full new ordering of an experience's plan items
// in one transaction. The ids must be exactly the stored ones.
func (s *Store) ReplacePlanItems(experienceID string, items []domain.PlanItem) error {
	if _, err := s.GetExperience(experienceID); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	current, err := listPlanItems(tx, experienceID)
	if err != nil {
		return err
	}
	if len(current) != len(items) {
		return fmt.Errorf("got %d plan items, stored %d: %w", len(items), len(current), ErrInvalid)
	}
	known := make(map[string]bool, len(current))
	for _, it := range current {
		known[it.ID] = true
	}
	for _, it := range items {
		if !known[it.ID] {
			return fmt.Errorf("plan item %q is not part of experience %s: %w", it.ID, experienceID, ErrInvalid)
		}
		if strings.TrimSpace(it.Text) == "" {
			return fmt.Errorf("plan item %s has no text: %w", it.ID, ErrInvalid)
		}
		delete(known, it.ID)
	}
	if len(known) != 0 {
		return fmt.Errorf("duplicate plan item ids: %w", ErrInvalid)
	}
	if err := checkParents(items); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`UPDATE plan_items SET parent_id = ?, text = ?, cost = ?, planning_days = ?, url = ?, position = ?
		 WHERE id = ? AND experience_id = ?`,
	)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	for pos, it := range items {
		var parent any
		if !it.IsRoot() {
			parent = *it.Parent
		}
		if _, err := stmt.Exec(parent, it.Text, it.Cost, it.PlanningDays, it.URL, pos, it.ID, experienceID); err != nil {
			return fmt.Errorf("update plan item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// checkParents rejects self-parents, dangling parents and a third level
func checkParents(items []domain.PlanItem) error {
	byID := make(map[string]domain.PlanItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}
	for _, it := range items {
		if it.IsRoot() {
			continue
		}
		pid := it.ParentID()
		if pid == it.ID {
			return fmt.Errorf("plan item %s is its own parent: %w", it.ID, ErrInvalid)
		}
		parent, ok := byID[pid]
		if !ok {
			return fmt.Errorf("plan item %s: parent %s not found: %w", it.ID, pid, ErrInvalid)
		}
		if !parent.IsRoot() {
			return fmt.Errorf("plan item %s: parent %s is itself nested: %w", it.ID, pid, ErrInvalid)
		}
	}
	return nil
}

// DeletePlanItem removes a plan item. Its children become root items.
func (s *Store) DeletePlanItem(experienceID, itemID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"DELETE FROM plan_items WHERE id = ? AND experience_id = ?",
		itemID, experienceID,
	)
	if err != nil {
		return fmt.Errorf("delete plan item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("plan item %s: %w", itemID, ErrNotFound)
	}

	if _, err := tx.Exec(
		"UPDATE plan_items SET parent_id = NULL WHERE parent_id = ? AND experience_id = ?",
		itemID, experienceID,
	); err != nil {
		return fmt.Errorf("detach children: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
