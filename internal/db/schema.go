package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id          INTEGER PRIMARY KEY,
    external_id INTEGER NOT NULL UNIQUE,
    full_name   TEXT NOT NULL,
    role        TEXT NOT NULL DEFAULT 'unknown'
                CHECK (role IN ('system_admin', 'manager', 'storekeeper', 'foreman', 'worker', 'unknown')),
    status      TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'blocked')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS categories (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assets (
    id                 INTEGER PRIMARY KEY,
    name               TEXT NOT NULL,
    category_id        INTEGER REFERENCES categories(id),
    code               TEXT UNIQUE,
    qty                REAL NOT NULL DEFAULT 0 CHECK (qty >= 0),
    state              TEXT NOT NULL DEFAULT 'in_stock'
                       CHECK (state IN ('in_stock', 'in_use', 'written_off', 'lost', 'reserved')),
    first_income_photo TEXT,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_assets_category ON assets(category_id);

CREATE TABLE IF NOT EXISTS asset_instances (
    id                  INTEGER PRIMARY KEY,
    asset_id            INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
    label               TEXT NOT NULL,
    assigned_to_user_id INTEGER REFERENCES users(id),
    photo               TEXT,
    unit_price          TEXT,
    state               TEXT NOT NULL DEFAULT 'in_stock'
                        CHECK (state IN ('in_stock', 'in_use', 'written_off', 'lost', 'reserved')),
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_instances_asset ON asset_instances(asset_id, assigned_to_user_id);
CREATE INDEX IF NOT EXISTS idx_instances_user ON asset_instances(assigned_to_user_id);

CREATE TABLE IF NOT EXISTS operations (
    id                INTEGER PRIMARY KEY,
    type              TEXT NOT NULL
                      CHECK (type IN ('incoming', 'outgoing', 'writeoff', 'inventory', 'transfer', 'return')),
    asset_id          INTEGER NOT NULL REFERENCES assets(id),
    from_user_id      INTEGER REFERENCES users(id),
    to_user_id        INTEGER REFERENCES users(id),
    qty               REAL NOT NULL CHECK (qty > 0),
    unit_price        TEXT,
    timestamp         DATETIME NOT NULL,
    comment           TEXT,
    photo             TEXT,
    signed_by_user_id INTEGER REFERENCES users(id),
    signed_at         DATETIME,
    auto_signed       INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_operations_asset ON operations(asset_id);
CREATE INDEX IF NOT EXISTS idx_operations_unsigned ON operations(type) WHERE signed_at IS NULL;

CREATE TABLE IF NOT EXISTS pending_returns (
    id                  INTEGER PRIMARY KEY,
    from_user_id        INTEGER NOT NULL REFERENCES users(id),
    asset_id            INTEGER NOT NULL REFERENCES assets(id),
    asset_name          TEXT NOT NULL,
    qty                 REAL NOT NULL CHECK (qty > 0),
    status              TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    resolved_by_user_id INTEGER REFERENCES users(id),
    created_at          DATETIME NOT NULL,
    resolved_at         DATETIME
);

CREATE TABLE IF NOT EXISTS return_photos (
    id                  INTEGER PRIMARY KEY,
    asset_id            INTEGER NOT NULL REFERENCES assets(id),
    pending_return_id   INTEGER REFERENCES pending_returns(id),
    photo               TEXT NOT NULL,
    uploaded_by_user_id INTEGER REFERENCES users(id),
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS photos (
    id         INTEGER PRIMARY KEY,
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
