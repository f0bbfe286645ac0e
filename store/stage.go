package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/phanxgames/lantern"
)

// Stage is a persisted scene: a dungeon file plus background, grid, and
// chaining metadata. The entity placements live in their own table, keyed
// by layer.
type Stage struct {
	ID              string
	Name            string
	BackgroundImage string
	// BackgroundX/Y are an explicit grid-cell position for the background;
	// both nil means auto-center.
	BackgroundX     *float64
	BackgroundY     *float64
	BackgroundScale float64
	GridScale       float64
	PrevStage       string
	NextStage       string
	StageGroup      *int64
	DSFilepath      string
}

// InstanceRecord is a persisted entity placement on a stage layer.
type InstanceRecord struct {
	ID           string
	StageID      string
	LayerID      string
	EntityID     string
	X, Y         int
	Z            float64
	NameOverride string
	Size         string
}

const stageColumns = `id, name, background_image, background_x, background_y,
	background_scale, grid_scale, prev_stage, next_stage, stage_group, ds_filepath`

func scanStage(row interface{ Scan(...any) error }) (*Stage, error) {
	var st Stage
	err := row.Scan(&st.ID, &st.Name, &st.BackgroundImage, &st.BackgroundX, &st.BackgroundY,
		&st.BackgroundScale, &st.GridScale, &st.PrevStage, &st.NextStage, &st.StageGroup, &st.DSFilepath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// AddStage inserts a stage, assigning a UUID when st.ID is empty.
func (s *Store) AddStage(ctx context.Context, st *Stage) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.BackgroundScale == 0 {
		st.BackgroundScale = 1
	}
	if st.GridScale == 0 {
		st.GridScale = lantern.DefaultGridSize
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO stages (`+stageColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, st.ID, st.Name, st.BackgroundImage, st.BackgroundX, st.BackgroundY,
		st.BackgroundScale, st.GridScale, st.PrevStage, st.NextStage, st.StageGroup, st.DSFilepath)
	if err != nil {
		return fmt.Errorf("add stage: %w", err)
	}
	return nil
}

// GetStage fetches one stage by id.
func (s *Store) GetStage(ctx context.Context, id string) (*Stage, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stageColumns+` FROM stages WHERE id = ?`, id)
	return scanStage(row)
}

// StagePatch is a partial stage update: nil fields are left untouched.
type StagePatch struct {
	Name            *string
	BackgroundImage *string
	BackgroundX     *float64
	BackgroundY     *float64
	BackgroundScale *float64
	GridScale       *float64
	PrevStage       *string
	NextStage       *string
	StageGroup      *int64
	DSFilepath      *string
}

// UpdateStage applies a partial update to one stage.
func (s *Store) UpdateStage(ctx context.Context, id string, p StagePatch) error {
	set := make([]string, 0, 10)
	args := make([]any, 0, 11)
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.BackgroundImage != nil {
		add("background_image", *p.BackgroundImage)
	}
	if p.BackgroundX != nil {
		add("background_x", *p.BackgroundX)
	}
	if p.BackgroundY != nil {
		add("background_y", *p.BackgroundY)
	}
	if p.BackgroundScale != nil {
		add("background_scale", *p.BackgroundScale)
	}
	if p.GridScale != nil {
		add("grid_scale", *p.GridScale)
	}
	if p.PrevStage != nil {
		add("prev_stage", *p.PrevStage)
	}
	if p.NextStage != nil {
		add("next_stage", *p.NextStage)
	}
	if p.StageGroup != nil {
		add("stage_group", *p.StageGroup)
	}
	if p.DSFilepath != nil {
		add("ds_filepath", *p.DSFilepath)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE stages SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStage removes a stage and, via cascade, its entity placements.
func (s *Store) DeleteStage(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stages WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete stage: %w", err)
	}
	return nil
}

// SearchStages returns stages whose name starts with prefix, ordered by
// name.
func (s *Store) SearchStages(ctx context.Context, prefix string) ([]Stage, error) {
	return s.queryStages(ctx, `
        SELECT `+stageColumns+` FROM stages WHERE name LIKE ? || '%' ORDER BY name
    `, prefix)
}

// StagesByGroup returns the stages belonging to a group, ordered by name.
func (s *Store) StagesByGroup(ctx context.Context, groupID int64) ([]Stage, error) {
	return s.queryStages(ctx, `
        SELECT `+stageColumns+` FROM stages WHERE stage_group = ? ORDER BY name
    `, groupID)
}

func (s *Store) queryStages(ctx context.Context, query string, args ...any) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var out []Stage
	for rows.Next() {
		st, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// --- Instances ---

// AddInstance places an entity on a stage layer, assigning a UUID when
// rec.ID is empty.
func (s *Store) AddInstance(ctx context.Context, rec *InstanceRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO stage_entities (id, stage_id, layer_id, entity_id, x, y, z, name_override, size)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, rec.ID, rec.StageID, rec.LayerID, rec.EntityID, rec.X, rec.Y, rec.Z, rec.NameOverride, rec.Size)
	if err != nil {
		return fmt.Errorf("add instance: %w", err)
	}
	return nil
}

// MoveInstance updates one placement's grid position.
func (s *Store) MoveInstance(ctx context.Context, id string, x, y int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE stage_entities SET x = ?, y = ? WHERE id = ?`, x, y, id)
	if err != nil {
		return fmt.Errorf("move instance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInstance removes one placement.
func (s *Store) DeleteInstance(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stage_entities WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	return nil
}

// InstancesByLayer returns a stage's placements on one layer.
func (s *Store) InstancesByLayer(ctx context.Context, stageID, layerID string) ([]InstanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, stage_id, layer_id, entity_id, x, y, z, name_override, size
        FROM stage_entities WHERE stage_id = ? AND layer_id = ?
    `, stageID, layerID)
	if err != nil {
		return nil, fmt.Errorf("instances by layer: %w", err)
	}
	defer rows.Close()

	var out []InstanceRecord
	for rows.Next() {
		var rec InstanceRecord
		if err := rows.Scan(&rec.ID, &rec.StageID, &rec.LayerID, &rec.EntityID,
			&rec.X, &rec.Y, &rec.Z, &rec.NameOverride, &rec.Size); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- Resolution ---

// ResolvedStage is a stage joined with its parsed dungeon and resolved
// entity instances, ready to ship over the event protocol.
type ResolvedStage struct {
	Stage     Stage
	Map       *lantern.Dungeon
	Instances []lantern.Instance
}

// ResolveStage loads a stage, parses its dungeon file (when one is set),
// and joins each placement with its entity. Placements whose entity has
// been deleted are silently dropped — an instance is a weak reference.
func (s *Store) ResolveStage(ctx context.Context, id string) (*ResolvedStage, error) {
	st, err := s.GetStage(ctx, id)
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedStage{Stage: *st}

	if st.DSFilepath != "" {
		raw, err := os.ReadFile(st.DSFilepath)
		if err != nil {
			return nil, fmt.Errorf("read dungeon file: %w", err)
		}
		d, err := lantern.ParseDungeon(raw)
		if err != nil {
			return nil, err
		}
		resolved.Map = d
	}

	rows, err := s.db.QueryContext(ctx, `
        SELECT se.id, se.layer_id, se.entity_id, se.x, se.y, se.z, se.name_override, se.size,
               e.id, e.name, e.image, e.initiative, e.is_player_controlled,
               e.display_on_map, e.health, e.max_health, e.temp_health
        FROM stage_entities se
        JOIN entities e ON e.id = se.entity_id
        WHERE se.stage_id = ?
    `, id)
	if err != nil {
		return nil, fmt.Errorf("resolve stage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var in lantern.Instance
		var e Entity
		err := rows.Scan(&in.ID, &in.Layer, &in.EntityID, &in.X, &in.Y, &in.Z,
			&in.NameOverride, &in.Size,
			&e.ID, &e.Name, &e.Image, &e.Initiative, &e.PlayerControlled,
			&e.DisplayOnMap, &e.Health, &e.MaxHealth, &e.TempHealth)
		if err != nil {
			return nil, err
		}
		ref := e.Ref()
		in.Entity = &ref
		resolved.Instances = append(resolved.Instances, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// Payload shapes the resolved stage for Init and UpdateState events.
func (r *ResolvedStage) Payload() lantern.StagePayload {
	p := lantern.StagePayload{
		GridScale: r.Stage.GridScale,
		Instances: r.Instances,
	}
	if r.Stage.BackgroundImage != "" {
		bg := &lantern.BackgroundSpec{
			Image: r.Stage.BackgroundImage,
			Scale: r.Stage.BackgroundScale,
		}
		if r.Stage.BackgroundX != nil && r.Stage.BackgroundY != nil {
			bg.Position = &lantern.Vec2{X: *r.Stage.BackgroundX, Y: *r.Stage.BackgroundY}
		}
		p.Background = bg
	}
	return p
}

// InitiativeOrder returns the resolved instances sorted for the initiative
// tracker: highest initiative first, name as tie-break.
func (r *ResolvedStage) InitiativeOrder() []lantern.Instance {
	out := make([]lantern.Instance, len(r.Instances))
	copy(out, r.Instances)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Entity, out[j].Entity
		if a.Initiative != b.Initiative {
			return a.Initiative > b.Initiative
		}
		return out[i].DisplayName() < out[j].DisplayName()
	})
	return out
}
