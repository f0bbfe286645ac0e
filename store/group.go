package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Group is a named collection of stages. Group ids auto-increment and names
// are unique.
type Group struct {
	ID   int64
	Name string
}

// AddGroup creates a group. A duplicate name fails with a
// *ConstraintViolation on the "name" field and writes nothing.
func (s *Store) AddGroup(ctx context.Context, name string) (*Group, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO groups (name) VALUES (?)`, name)
	if err != nil {
		return nil, constraintErr(err, "name",
			fmt.Sprintf("a group named %q already exists", name))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add group: %w", err)
	}
	return &Group{ID: id, Name: name}, nil
}

// GetGroup fetches one group by id.
func (s *Store) GetGroup(ctx context.Context, id int64) (*Group, error) {
	var g Group
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM groups WHERE id = ?`, id).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// RenameGroup changes a group's name, with the same uniqueness handling as
// AddGroup.
func (s *Store) RenameGroup(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE groups SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return constraintErr(err, "name",
			fmt.Sprintf("a group named %q already exists", name))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup removes a group. Stages in the group are kept and detached.
func (s *Store) DeleteGroup(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// ListGroups returns all groups ordered by name.
func (s *Store) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
