package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"bcfeed/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// SetClock overrides the store's notion of the current time. The "today is
// never resolved" rule keys off this clock.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.now = now
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// today returns the current calendar date per the store's clock.
func (s *SQLiteStore) today() model.Day {
	return model.DayOf(s.now())
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// EntriesForRange returns cached releases for every resolved day in
// [start, end] and the set of days still needing a provider query.
func (s *SQLiteStore) EntriesForRange(
	ctx context.Context,
	start, end model.Day,
) ([]model.Release, []model.Day, error) {
	if start.After(end) {
		return nil, nil, fmt.Errorf("invalid range: %s after %s", start, end)
	}

	type entryRow struct {
		Day     string `db:"day"`
		Scraped int    `db:"scraped"`
	}

	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT day, scraped FROM day_entries WHERE day >= ? AND day <= ?",
		start.String(), end.String(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("querying day entries: %w", err)
	}

	scraped := make(map[string]bool, len(rows))
	for _, r := range rows {
		scraped[r.Day] = r.Scraped != 0
	}

	today := s.today()
	var missing []model.Day
	resolved := make(map[string]bool)
	for d := start; !d.After(end); d = d.Next() {
		if d.Equal(today) || !scraped[d.String()] {
			missing = append(missing, d)
			continue
		}
		resolved[d.String()] = true
	}

	all, err := s.selectReleases(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}

	var releases []model.Release
	for _, r := range all {
		if resolved[r.Date.String()] {
			releases = append(releases, r)
		}
	}

	return releases, missing, nil
}

// PersistReleases writes releases grouped by day, one transaction per day,
// so a day's releases and its scraped flag always commit together.
func (s *SQLiteStore) PersistReleases(
	ctx context.Context,
	releases []model.Release,
	excludeToday bool,
) error {
	byDay := make(map[string][]model.Release)
	var order []string
	for _, r := range releases {
		if r.IsZero() || r.Date.IsZero() || r.URL == "" {
			continue
		}
		key := r.Date.String()
		if _, ok := byDay[key]; !ok {
			order = append(order, key)
		}
		byDay[key] = append(byDay[key], r)
	}

	today := s.today()
	for _, key := range order {
		day, err := model.ParseDay(key)
		if err != nil {
			return err
		}
		markScraped := !(excludeToday && day.Equal(today))
		if err := s.persistDay(ctx, day, byDay[key], markScraped); err != nil {
			return err
		}
	}

	return nil
}

// persistDay writes one day's releases and completion flag atomically.
func (s *SQLiteStore) persistDay(
	ctx context.Context,
	day model.Day,
	releases []model.Release,
	markScraped bool,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertDayEntry(ctx, tx, day, markScraped, s.now()); err != nil {
		return err
	}

	const query = `
		INSERT OR REPLACE INTO releases (
			day, release_url, image_url, is_track,
			artist_name, release_title, page_name, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing release upsert: %w", err)
	}
	defer stmt.Close()

	fetchedAt := s.now().UTC()
	for _, r := range releases {
		_, err = stmt.ExecContext(ctx,
			r.Date.String(), r.URL, r.ImageURL, boolToInt(r.IsTrack),
			r.ArtistName, r.ReleaseTitle, r.PageName, fetchedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting release %s: %w", r.URL, err)
		}
	}

	return tx.Commit()
}

// MarkRangeScraped flags every day in [start, end] as scraped, creating
// entries as needed. Today keeps its flag when excludeToday is set.
func (s *SQLiteStore) MarkRangeScraped(
	ctx context.Context,
	start, end model.Day,
	excludeToday bool,
) error {
	if start.After(end) {
		return fmt.Errorf("invalid range: %s after %s", start, end)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	today := s.today()
	for d := start; !d.After(end); d = d.Next() {
		markScraped := !(excludeToday && d.Equal(today))
		if err := upsertDayEntry(ctx, tx, d, markScraped, s.now()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// PersistEmptyRange records "queried, found nothing" for [start, end].
// With a day-entry table this is the same write as marking the range
// scraped; the method exists so callers state their intent.
func (s *SQLiteStore) PersistEmptyRange(
	ctx context.Context,
	start, end model.Day,
	excludeToday bool,
) error {
	return s.MarkRangeScraped(ctx, start, end, excludeToday)
}

// ListReleases returns all cached releases in [start, end] regardless of
// scraped state.
func (s *SQLiteStore) ListReleases(
	ctx context.Context,
	start, end model.Day,
) ([]model.Release, error) {
	return s.selectReleases(ctx, start, end)
}

// BeginRun inserts a sync_runs audit row and returns its ID.
func (s *SQLiteStore) BeginRun(
	ctx context.Context,
	window model.DateRange,
) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, window_start, window_end, status, started_at)
		VALUES (?, ?, ?, 'running', ?)`,
		id, window.Start.String(), window.End.String(), s.now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("recording sync run: %w", err)
	}
	return id, nil
}

// FinishRun records a run's terminal status.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, runErr error) error {
	status := "succeeded"
	errMsg := ""
	if runErr != nil {
		status = "failed"
		errMsg = runErr.Error()
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE sync_runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, errMsg, s.now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("finishing sync run %s: %w", id, err)
	}
	return nil
}

// selectReleases loads releases in [start, end] ordered by day then URL.
func (s *SQLiteStore) selectReleases(
	ctx context.Context,
	start, end model.Day,
) ([]model.Release, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT day, release_url, image_url, is_track,
		       artist_name, release_title, page_name
		FROM releases
		WHERE day >= ? AND day <= ?
		ORDER BY day, release_url`,
		start.String(), end.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying releases: %w", err)
	}
	defer rows.Close()

	var releases []model.Release
	for rows.Next() {
		r, err := scanRelease(rows)
		if err != nil {
			return nil, err
		}
		releases = append(releases, r)
	}

	return releases, rows.Err()
}

// upsertDayEntry creates or updates a day entry. The scraped flag only ever
// rises within a single write; clearing it is not a cache operation.
func upsertDayEntry(
	ctx context.Context,
	tx *sqlx.Tx,
	day model.Day,
	markScraped bool,
	now time.Time,
) error {
	scraped := 0
	if markScraped {
		scraped = 1
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO day_entries (day, scraped, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			scraped = MAX(scraped, excluded.scraped),
			updated_at = excluded.updated_at`,
		day.String(), scraped, now.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upserting day entry %s: %w", day, err)
	}
	return nil
}

// scanRelease scans a release row from a sqlx.Rows result set.
func scanRelease(rows *sqlx.Rows) (model.Release, error) {
	var (
		r       model.Release
		day     string
		isTrack int
	)

	err := rows.Scan(
		&day, &r.URL, &r.ImageURL, &isTrack,
		&r.ArtistName, &r.ReleaseTitle, &r.PageName,
	)
	if err != nil {
		return model.Release{}, fmt.Errorf("scanning release row: %w", err)
	}

	d, err := model.ParseDay(day)
	if err != nil {
		return model.Release{}, err
	}
	r.Date = d
	r.IsTrack = isTrack != 0

	return r, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
