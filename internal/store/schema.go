package store

// Schema v1 - Initial database schema
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Assets discovered in the library
CREATE TABLE IF NOT EXISTS assets (
  id TEXT PRIMARY KEY,
  file_key TEXT UNIQUE NOT NULL,
  path TEXT NOT NULL,
  size_bytes INTEGER,
  created_unix INTEGER,
  mtime_unix INTEGER,
  kind TEXT NOT NULL,
  favorite INTEGER DEFAULT 0,
  fingerprint TEXT,
  similarity_print INTEGER DEFAULT 0,
  duration_ms INTEGER DEFAULT 0,
  width INTEGER DEFAULT 0,
  height INTEGER DEFAULT 0,
  bitrate_kbps INTEGER DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'discovered',
  error TEXT,
  first_seen_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  last_update_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_assets_status ON assets(status);
CREATE INDEX IF NOT EXISTS idx_assets_file_key ON assets(file_key);
CREATE INDEX IF NOT EXISTS idx_assets_fingerprint ON assets(fingerprint);
CREATE INDEX IF NOT EXISTS idx_assets_kind ON assets(kind);

-- User albums
CREATE TABLE IF NOT EXISTS albums (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS album_members (
  album_id TEXT REFERENCES albums(id) ON DELETE CASCADE,
  asset_id TEXT REFERENCES assets(id) ON DELETE CASCADE,
  PRIMARY KEY (album_id, asset_id)
);

CREATE INDEX IF NOT EXISTS idx_album_members_asset ON album_members(asset_id);

-- Scan resume state (single row)
CREATE TABLE IF NOT EXISTS scan_progress (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  last_processed_path TEXT,
  total_files INTEGER,
  files_processed INTEGER,
  started_at DATETIME,
  updated_at DATETIME
);
`

// Schema v2 - Cumulative savings totals (single row)
const schemaV2 = `
CREATE TABLE IF NOT EXISTS totals (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  bytes_deleted INTEGER DEFAULT 0,
  assets_deleted INTEGER DEFAULT 0,
  bytes_recovered INTEGER DEFAULT 0,
  assets_replaced INTEGER DEFAULT 0,
  updated_at DATETIME
);
`
