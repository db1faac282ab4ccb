package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JohnHuang626/school-score-app/internal/domain/roster"
	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER SETTINGS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RosterRepository implements roster.Repository on the single-row
// roster_settings table.
type RosterRepository struct {
	conn *Connection
}

// NewRosterRepository creates a new RosterRepository.
func NewRosterRepository(conn *Connection) *RosterRepository {
	return &RosterRepository{conn: conn}
}

// Load reads the stored per-grade class counts. A missing settings row is the
// first-run state and surfaces as roster.ErrSettingsNotFound so the caller
// can fall back to defaults.
func (r *RosterRepository) Load(ctx context.Context) (roster.ClassCounts, error) {
	var raw []byte
	err := r.conn.QueryRow(ctx, `SELECT class_counts FROM roster_settings WHERE id = 1`).Scan(&raw)
	if err != nil {
		if IsNoRows(err) {
			return nil, roster.ErrSettingsNotFound
		}
		return nil, storeError("load roster settings", err)
	}

	counts, err := decodeClassCounts(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: load roster settings: %v", scoring.ErrStoreUnavailable, err)
	}
	return counts, nil
}

// Save upserts the settings row, merging the new counts over any existing
// ones. Grades absent from counts keep their stored value, so a partial
// update never wipes the rest of the configuration.
func (r *RosterRepository) Save(ctx context.Context, counts roster.ClassCounts) error {
	raw, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to encode class counts: %w", err)
	}

	_, err = r.conn.Exec(ctx, `
		INSERT INTO roster_settings (id, class_counts, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET class_counts = roster_settings.class_counts || EXCLUDED.class_counts,
		    updated_at   = NOW()
	`, raw)
	if err != nil {
		return storeError("save roster settings", err)
	}
	return nil
}

func decodeClassCounts(raw []byte) (roster.ClassCounts, error) {
	var byGrade map[string]int
	if err := json.Unmarshal(raw, &byGrade); err != nil {
		return nil, fmt.Errorf("failed to decode class counts: %w", err)
	}

	counts := make(roster.ClassCounts, len(byGrade))
	for key, count := range byGrade {
		var grade int
		if _, err := fmt.Sscanf(key, "%d", &grade); err != nil {
			return nil, fmt.Errorf("malformed grade key %q", key)
		}
		counts[scoring.Grade(grade)] = count
	}
	return counts, nil
}
