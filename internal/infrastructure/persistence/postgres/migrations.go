// Package postgres implements the PostgreSQL persistence layer for the
// school score service.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE SCORE EVENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create score events log
-- Version: 001

-- Append-only event log. Events are immutable once written: there is no
-- UPDATE path, only INSERT (batched) and DELETE (by key).
CREATE TABLE IF NOT EXISTS score_events (
    key UUID PRIMARY KEY,
    event_date DATE NOT NULL,
    -- ISO week identifier derived from event_date at write time ("2025-W37").
    -- Stored denormalized so weekly queries match what was valid when the
    -- event was created.
    week VARCHAR(8) NOT NULL,
    period VARCHAR(40) NOT NULL,
    grade INTEGER NOT NULL,
    class_id VARCHAR(10) NOT NULL,
    score INTEGER NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    rater_uid VARCHAR(128) NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_grade CHECK (grade > 0),
    CONSTRAINT valid_class_id CHECK (class_id <> '')
);

-- Weekly aggregation scans by stored week identifier.
CREATE INDEX IF NOT EXISTS idx_score_events_week ON score_events(week);

-- History view orders by creation time, newest first.
CREATE INDEX IF NOT EXISTS idx_score_events_created_at ON score_events(created_at DESC);

-- Per-class drill downs.
CREATE INDEX IF NOT EXISTS idx_score_events_class_week ON score_events(class_id, week);
`

const migration001Down = `
DROP TABLE IF EXISTS score_events;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE ROSTER SETTINGS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create roster settings record
-- Version: 002

-- Single settings record holding the per-grade class counts, e.g.
-- {"1": 4, "2": 5, "3": 5}. The CHECK pins the table to one row.
CREATE TABLE IF NOT EXISTS roster_settings (
    id SMALLINT PRIMARY KEY DEFAULT 1,
    class_counts JSONB NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT single_record CHECK (id = 1)
);
`

const migration002Down = `
DROP TABLE IF EXISTS roster_settings;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_score_events",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_roster_settings",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}
