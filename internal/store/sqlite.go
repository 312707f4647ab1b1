package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mail-timeline/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
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

// SaveRun inserts a run and its report.
func (s *SQLiteStore) SaveRun(
	ctx context.Context,
	run model.Run,
	report model.StoredReport,
) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	keywords, err := json.Marshal(nonNil(run.Keywords))
	if err != nil {
		return "", fmt.Errorf("marshaling keywords for run %s: %w", run.ID, err)
	}
	folders, err := json.Marshal(nonNil(run.Folders))
	if err != nil {
		return "", fmt.Errorf("marshaling folders for run %s: %w", run.ID, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at, provider, account,
			keywords, folders, days, total,
			messages_scanned, folders_skipped, messages_skipped, dates_imputed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Provider, run.Account,
		string(keywords), string(folders), run.Days, run.Total,
		run.MessagesScanned, run.FoldersSkipped, run.MessagesSkipped, run.DatesImputed,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (run_id, format, content, created_at)
		VALUES (?, ?, ?, ?)`,
		run.ID, report.Format, report.Content, run.FinishedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting report for run %s: %w", run.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run %s: %w", run.ID, err)
	}
	return run.ID, nil
}

const selectRuns = `
	SELECT r.id, r.started_at, r.finished_at, r.provider, r.account,
		r.keywords, r.folders, r.days, r.total,
		r.messages_scanned, r.folders_skipped, r.messages_skipped, r.dates_imputed,
		COALESCE(p.format, '')
	FROM runs r
	LEFT JOIN reports p ON p.run_id = r.id`

// ListRuns retrieves runs matching the filter, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := selectRuns
	var args []interface{}

	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		query += " WHERE EXISTS (SELECT 1 FROM json_each(r.keywords) WHERE lower(json_each.value) = lower(?))"
		args = append(args, kw)
	}
	query += " ORDER BY r.started_at DESC, r.id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves a single run. A unique ID prefix of at least 8
// characters is accepted in place of the full ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx, selectRuns+" WHERE r.id = ?", fullID)
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting run %s: %w", id, err)
		}
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	run, err := scanRun(rows)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetReport retrieves the stored report of a run.
func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*model.StoredReport, error) {
	fullID, err := s.resolveID(ctx, runID)
	if err != nil {
		return nil, err
	}

	var rep model.StoredReport
	err = s.db.QueryRowxContext(ctx,
		"SELECT run_id, format, content FROM reports WHERE run_id = ?", fullID,
	).Scan(&rep.RunID, &rep.Format, &rep.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report for run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting report for run %s: %w", runID, err)
	}
	return &rep, nil
}

// DeleteRunsBefore removes old runs; their reports cascade.
func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("deleting runs before %s: %w", cutoff.Format(time.DateOnly), err)
	}
	return res.RowsAffected()
}

const minPrefix = 8

func (s *SQLiteStore) resolveID(ctx context.Context, id string) (string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, "SELECT id FROM runs WHERE id = ?", id)
	if err != nil {
		return "", fmt.Errorf("looking up run %s: %w", id, err)
	}
	if len(ids) == 1 {
		return ids[0], nil
	}
	if len(id) < minPrefix {
		return "", fmt.Errorf("run %s: %w", id, ErrNotFound)
	}

	ids = nil
	err = s.db.SelectContext(ctx, &ids, "SELECT id FROM runs WHERE id LIKE ? || '%' LIMIT 2", id)
	if err != nil {
		return "", fmt.Errorf("looking up run %s: %w", id, err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("run %s: %w", id, ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("run id prefix %s is ambiguous", id)
	}
}

// scanRun scans a single run row selected with selectRuns.
func scanRun(rows *sqlx.Rows) (model.Run, error) {
	var (
		run      model.Run
		keywords string
		folders  string
	)

	err := rows.Scan(
		&run.ID, &run.StartedAt, &run.FinishedAt, &run.Provider, &run.Account,
		&keywords, &folders, &run.Days, &run.Total,
		&run.MessagesScanned, &run.FoldersSkipped, &run.MessagesSkipped, &run.DatesImputed,
		&run.Format,
	)
	if err != nil {
		return model.Run{}, fmt.Errorf("scanning run row: %w", err)
	}

	if err := json.Unmarshal([]byte(keywords), &run.Keywords); err != nil {
		return model.Run{}, fmt.Errorf("unmarshaling keywords for run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(folders), &run.Folders); err != nil {
		return model.Run{}, fmt.Errorf("unmarshaling folders for run %s: %w", run.ID, err)
	}

	return run, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
