package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"StaySentinel/internal/model"
)

// SQLiteRecorder persists run history and the latest series to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log logrus.FieldLogger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log logrus.FieldLogger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the API can read history while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.WithField("path", dbPath).Info("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id             TEXT PRIMARY KEY,
			trigger_type       TEXT,
			owner              TEXT,
			locality           TEXT,
			started_at         INTEGER NOT NULL,
			finished_at        INTEGER,
			days_requested     INTEGER,
			days_collected     INTEGER,
			days_skipped       INTEGER,
			entities_seen      INTEGER,
			entities_dropped   INTEGER,
			entities_malformed INTEGER,
			entities_published INTEGER,
			coercion_failures  INTEGER,
			remote_path        TEXT,
			records_attempted  INTEGER,
			records_failed     INTEGER,
			error              TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS hotel_prices (
			owner           TEXT NOT NULL,
			nombre          TEXT NOT NULL,
			fecha           TEXT NOT NULL,
			precio          INTEGER NOT NULL,
			tipo            TEXT NOT NULL,
			estrellas       REAL,
			precio_promedio REAL,
			noches_contadas INTEGER,
			run_id          TEXT,
			updated_at      INTEGER NOT NULL,
			PRIMARY KEY (owner, nombre, fecha)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hotel_prices_fecha ON hotel_prices(fecha)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished interface{}
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Unix()
	}
	_, err := r.db.Exec(`INSERT INTO runs
		(run_id, trigger_type, owner, locality, started_at, finished_at,
		 days_requested, days_collected, days_skipped,
		 entities_seen, entities_dropped, entities_malformed, entities_published,
		 coercion_failures, remote_path, records_attempted, records_failed, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			days_collected = excluded.days_collected,
			days_skipped = excluded.days_skipped,
			entities_seen = excluded.entities_seen,
			entities_dropped = excluded.entities_dropped,
			entities_malformed = excluded.entities_malformed,
			entities_published = excluded.entities_published,
			coercion_failures = excluded.coercion_failures,
			remote_path = excluded.remote_path,
			records_attempted = excluded.records_attempted,
			records_failed = excluded.records_failed,
			error = excluded.error`,
		run.RunID, string(run.Trigger), run.Owner, run.Locality, run.StartedAt.Unix(), finished,
		run.DaysRequested, run.DaysCollected, run.DaysSkipped,
		run.EntitiesSeen, run.EntitiesDropped, run.EntitiesMalformed, run.EntitiesPublished,
		run.CoercionFailures, run.RemotePath, run.RecordsAttempted, run.RecordsFailed, run.Error,
	)
	return err
}

// RecordSeries mirrors the batch into hotel_prices, one row per (owner, property, date).
func (r *SQLiteRecorder) RecordSeries(runID, owner string, batch []*model.ReconciledEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO hotel_prices
		(owner, nombre, fecha, precio, tipo, estrellas, precio_promedio, noches_contadas, run_id, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(owner, nombre, fecha) DO UPDATE SET
			precio = excluded.precio,
			tipo = excluded.tipo,
			estrellas = excluded.estrellas,
			precio_promedio = excluded.precio_promedio,
			noches_contadas = excluded.noches_contadas,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, e := range batch {
		for _, p := range e.Series {
			if _, err := stmt.Exec(owner, e.Name, p.Date.Format(model.DateLayout), p.Price, string(p.Provenance),
				e.StarRating, e.AveragePrice, e.ObservedNights, runID, now); err != nil {
				return fmt.Errorf("upsert %s %s: %w", e.Name, p.Date.Format(model.DateLayout), err)
			}
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]model.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT run_id, trigger_type, owner, locality, started_at, finished_at,
		days_requested, days_collected, days_skipped,
		entities_seen, entities_dropped, entities_malformed, entities_published,
		coercion_failures, remote_path, records_attempted, records_failed, error
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []model.RunSummary
	for rows.Next() {
		var (
			run      model.RunSummary
			trigger  string
			started  int64
			finished sql.NullInt64
			errText  sql.NullString
		)
		if err := rows.Scan(&run.RunID, &trigger, &run.Owner, &run.Locality, &started, &finished,
			&run.DaysRequested, &run.DaysCollected, &run.DaysSkipped,
			&run.EntitiesSeen, &run.EntitiesDropped, &run.EntitiesMalformed, &run.EntitiesPublished,
			&run.CoercionFailures, &run.RemotePath, &run.RecordsAttempted, &run.RecordsFailed, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Trigger = model.TriggerType(trigger)
		run.StartedAt = time.Unix(started, 0).UTC()
		if finished.Valid {
			run.FinishedAt = time.Unix(finished.Int64, 0).UTC()
		}
		run.Error = errText.String
		out = append(out, run)
	}
	return out, rows.Err()
}

// SeriesCount returns how many mirrored rows exist for owner.
func (r *SQLiteRecorder) SeriesCount(owner string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM hotel_prices WHERE owner = ?`, owner).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
