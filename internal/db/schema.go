package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'grower' CHECK (role IN ('admin', 'grower')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS varieties (
    id                      INTEGER PRIMARY KEY,
    owner_id                INTEGER NOT NULL REFERENCES users(id),
    name                    TEXT NOT NULL,
    germination_days        REAL NOT NULL CHECK (germination_days >= 0),
    blackout_days           INTEGER NOT NULL CHECK (blackout_days >= 0),
    growing_days            INTEGER NOT NULL CHECK (growing_days >= 0),
    seed_density            REAL NOT NULL CHECK (seed_density >= 0),
    soak_hours              REAL NOT NULL DEFAULT 0,
    temp_min                REAL,
    temp_optimal            REAL,
    temp_max                REAL,
    humidity_min            REAL,
    humidity_optimal        REAL,
    humidity_max            REAL,
    expected_yield_per_tray REAL NOT NULL DEFAULT 0,
    cost_per_kg             REAL NOT NULL DEFAULT 0,
    price_per_gram          REAL NOT NULL DEFAULT 0,
    other_costs_per_tray    REAL NOT NULL DEFAULT 0,
    notes                   TEXT,
    is_active               INTEGER NOT NULL DEFAULT 1,
    version                 INTEGER NOT NULL DEFAULT 1,
    created_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at              DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_varieties_owner ON varieties(owner_id, name);

CREATE TABLE IF NOT EXISTS seed_batches (
    id             INTEGER PRIMARY KEY,
    owner_id       INTEGER NOT NULL REFERENCES users(id),
    variety_id     INTEGER NOT NULL REFERENCES varieties(id),
    supplier       TEXT,
    lot_number     TEXT,
    quantity_grams REAL NOT NULL CHECK (quantity_grams >= 0),
    purchased_at   DATETIME,
    notes          TEXT,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS trays (
    id                    INTEGER PRIMARY KEY,
    owner_id              INTEGER NOT NULL REFERENCES users(id),
    variety_id            INTEGER NOT NULL REFERENCES varieties(id),
    batch_id              TEXT NOT NULL DEFAULT '',
    seed_batch_id         INTEGER REFERENCES seed_batches(id),
    seed_amount           REAL NOT NULL DEFAULT 0 CHECK (seed_amount >= 0),
    tray_size             TEXT NOT NULL DEFAULT '10x20' CHECK (tray_size IN ('10x20', '20x20', 'custom')),
    tray_area             REAL NOT NULL,
    status                TEXT NOT NULL DEFAULT 'seeding'
                          CHECK (status IN ('seeding', 'blackout', 'growing', 'ready', 'harvested', 'discarded')),
    location              TEXT,
    growing_area          TEXT,
    notes                 TEXT,
    seeding_date          DATETIME NOT NULL,
    blackout_end_date     DATETIME,
    expected_harvest_date DATETIME,
    actual_harvest_date   DATETIME,
    planned_blackout_days INTEGER NOT NULL DEFAULT 0,
    planned_growing_days  INTEGER NOT NULL DEFAULT 0,
    yield_weight          REAL CHECK (yield_weight >= 0),
    yield_quality         INTEGER CHECK (yield_quality BETWEEN 1 AND 10),
    photo                 BLOB,
    photo_mime            TEXT,
    is_archived           INTEGER NOT NULL DEFAULT 0,
    version               INTEGER NOT NULL DEFAULT 1,
    created_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at            DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_trays_owner_status ON trays(owner_id, status);
CREATE INDEX IF NOT EXISTS idx_trays_variety ON trays(variety_id);

CREATE TABLE IF NOT EXISTS tray_issues (
    id               TEXT PRIMARY KEY,
    tray_id          INTEGER NOT NULL REFERENCES trays(id),
    position         INTEGER NOT NULL,
    type             TEXT NOT NULL CHECK (type IN ('pest', 'disease', 'environmental', 'other')),
    description      TEXT NOT NULL,
    severity         INTEGER NOT NULL CHECK (severity BETWEEN 1 AND 5),
    report_date      DATETIME NOT NULL,
    resolved         INTEGER NOT NULL DEFAULT 0,
    resolution_date  DATETIME,
    resolution_notes TEXT,
    UNIQUE (tray_id, position)
);

CREATE TABLE IF NOT EXISTS tray_events (
    id          INTEGER PRIMARY KEY,
    tray_id     INTEGER NOT NULL REFERENCES trays(id),
    from_status TEXT,
    to_status   TEXT NOT NULL,
    note        TEXT,
    occurred_at DATETIME NOT NULL,
    user_id     INTEGER REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_tray_events_tray ON tray_events(tray_id, occurred_at);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_trays_expected_harvest
	     ON trays(owner_id, expected_harvest_date) WHERE is_archived = 0`,
}

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Migrate ensures the schema and then runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
