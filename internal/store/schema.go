package store

// schema is applied on open. Timestamps are stored as RFC3339 text; sqlite
// has no native timestamp type and text keeps the rows greppable.
const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id       TEXT PRIMARY KEY,
	latitude          REAL NOT NULL,
	longitude         REAL NOT NULL,
	formatted_address TEXT NOT NULL DEFAULT '',
	local_time        TEXT NOT NULL DEFAULT '',
	timezone          TEXT NOT NULL DEFAULT '',
	day_of_week       TEXT NOT NULL DEFAULT '',
	weather_json      TEXT NOT NULL DEFAULT '{}',
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS strategies (
	snapshot_id         TEXT PRIMARY KEY REFERENCES snapshots(snapshot_id),
	phase               TEXT NOT NULL DEFAULT 'starting',
	status              TEXT NOT NULL DEFAULT 'pending',
	immediate_strategy  TEXT NOT NULL DEFAULT '',
	extended_strategy   TEXT NOT NULL DEFAULT '',
	error_stage         TEXT NOT NULL DEFAULT '',
	error_message       TEXT NOT NULL DEFAULT '',
	error_at            TEXT NOT NULL DEFAULT '',
	phase_started_at    TEXT NOT NULL,
	pipeline_started_at TEXT NOT NULL,
	updated_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS briefings (
	snapshot_id   TEXT PRIMARY KEY REFERENCES snapshots(snapshot_id),
	events_json   TEXT NOT NULL DEFAULT '[]',
	news_json     TEXT NOT NULL DEFAULT '[]',
	traffic_json  TEXT NOT NULL DEFAULT '[]',
	closures_json TEXT NOT NULL DEFAULT '[]',
	weather_json  TEXT NOT NULL DEFAULT '{}',
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rankings (
	ranking_id   TEXT PRIMARY KEY,
	snapshot_id  TEXT NOT NULL UNIQUE REFERENCES snapshots(snapshot_id),
	provider     TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL DEFAULT '',
	elapsed_ms   INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS candidates (
	candidate_id  TEXT PRIMARY KEY,
	ranking_id    TEXT NOT NULL REFERENCES rankings(ranking_id),
	position      INTEGER NOT NULL,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT '',
	latitude      REAL NOT NULL,
	longitude     REAL NOT NULL,
	drive_minutes REAL NOT NULL DEFAULT 0,
	est_earnings  REAL NOT NULL DEFAULT 0,
	value_per_min REAL NOT NULL DEFAULT 0,
	grade         TEXT NOT NULL DEFAULT '',
	rationale     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_candidates_ranking ON candidates(ranking_id, position);

CREATE TABLE IF NOT EXISTS leases (
	key         TEXT PRIMARY KEY,
	holder_id   TEXT NOT NULL,
	acquired_at TEXT NOT NULL,
	expires_at  TEXT NOT NULL
);
`
