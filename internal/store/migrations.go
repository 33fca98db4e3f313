package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS day_entries (
	day        TEXT PRIMARY KEY,
	scraped    INTEGER NOT NULL DEFAULT 0 CHECK(scraped IN (0, 1)),
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS releases (
	day           TEXT NOT NULL REFERENCES day_entries(day),
	release_url   TEXT NOT NULL,
	image_url     TEXT NOT NULL DEFAULT '',
	is_track      INTEGER NOT NULL DEFAULT 0 CHECK(is_track IN (0, 1)),
	artist_name   TEXT NOT NULL DEFAULT '',
	release_title TEXT NOT NULL DEFAULT '',
	page_name     TEXT NOT NULL DEFAULT '',
	fetched_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (day, release_url)
);

CREATE INDEX IF NOT EXISTS idx_releases_day ON releases(day);
CREATE INDEX IF NOT EXISTS idx_day_entries_scraped ON day_entries(scraped);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS sync_runs (
	id           TEXT PRIMARY KEY,
	window_start TEXT NOT NULL,
	window_end   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running', 'succeeded', 'failed')),
	error        TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	finished_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
