package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/phanxgames/lantern"
)

// Entity is a persisted creature definition. Stages reference entities by
// id; they are never embedded.
type Entity struct {
	ID               string
	Name             string
	Image            string
	Initiative       int
	PlayerControlled bool
	DisplayOnMap     bool
	Health           int
	MaxHealth        int
	TempHealth       int
}

// Ref converts the record to the protocol's joined-entity shape.
func (e Entity) Ref() lantern.EntityRef {
	return lantern.EntityRef{
		ID:               e.ID,
		Name:             e.Name,
		Image:            e.Image,
		Initiative:       e.Initiative,
		PlayerControlled: e.PlayerControlled,
		DisplayOnMap:     e.DisplayOnMap,
		Health:           e.Health,
		MaxHealth:        e.MaxHealth,
		TempHealth:       e.TempHealth,
	}
}

const entityColumns = `id, name, image, initiative, is_player_controlled,
	display_on_map, health, max_health, temp_health`

func scanEntity(row interface{ Scan(...any) error }) (*Entity, error) {
	var e Entity
	err := row.Scan(&e.ID, &e.Name, &e.Image, &e.Initiative,
		&e.PlayerControlled, &e.DisplayOnMap, &e.Health, &e.MaxHealth, &e.TempHealth)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// AddEntity inserts a new entity, assigning a UUID when e.ID is empty.
func (s *Store) AddEntity(ctx context.Context, e *Entity) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO entities (`+entityColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, e.ID, e.Name, e.Image, e.Initiative, e.PlayerControlled,
		e.DisplayOnMap, e.Health, e.MaxHealth, e.TempHealth)
	if err != nil {
		return fmt.Errorf("add entity: %w", err)
	}
	return nil
}

// GetEntity fetches one entity by id.
func (s *Store) GetEntity(ctx context.Context, id string) (*Entity, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT `+entityColumns+` FROM entities WHERE id = ?
    `, id)
	return scanEntity(row)
}

// EntityPatch is a partial update: nil fields are left untouched.
type EntityPatch struct {
	Name             *string
	Image            *string
	Initiative       *int
	PlayerControlled *bool
	DisplayOnMap     *bool
	Health           *int
	MaxHealth        *int
	TempHealth       *int
}

// UpdateEntity applies a partial update to one entity. Updating an unknown
// id returns ErrNotFound.
func (s *Store) UpdateEntity(ctx context.Context, id string, p EntityPatch) error {
	set := make([]string, 0, 8)
	args := make([]any, 0, 9)
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Image != nil {
		add("image", *p.Image)
	}
	if p.Initiative != nil {
		add("initiative", *p.Initiative)
	}
	if p.PlayerControlled != nil {
		add("is_player_controlled", *p.PlayerControlled)
	}
	if p.DisplayOnMap != nil {
		add("display_on_map", *p.DisplayOnMap)
	}
	if p.Health != nil {
		add("health", *p.Health)
	}
	if p.MaxHealth != nil {
		add("max_health", *p.MaxHealth)
	}
	if p.TempHealth != nil {
		add("temp_health", *p.TempHealth)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE entities SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntity removes one entity. Instances referencing it are kept;
// stage resolution silently drops them once the entity is gone.
func (s *Store) DeleteEntity(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

// SearchEntities returns entities whose name starts with prefix, ordered by
// name. An empty prefix lists everything.
func (s *Store) SearchEntities(ctx context.Context, prefix string) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+entityColumns+` FROM entities
        WHERE name LIKE ? || '%' ORDER BY name
    `, prefix)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
