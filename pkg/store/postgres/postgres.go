// Package postgres stores runs in a PostgreSQL table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent/state"
	"github.com/Suryanshpandey5492/WebVision/pkg/logging"
	"github.com/Suryanshpandey5492/WebVision/pkg/store"
)

// DBPool is the subset of *pgxpool.Pool the store needs. pgxmock satisfies it.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	task          TEXT NOT NULL,
	status        TEXT NOT NULL,
	final_answer  TEXT,
	errors        TEXT,
	steps         INTEGER NOT NULL DEFAULT 0,
	visited_sites JSONB NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ,
	duration_ms   BIGINT NOT NULL DEFAULT 0
)`

const upsertSQL = `
INSERT INTO runs (id, task, status, final_answer, errors, steps, visited_sites, created_at, finished_at, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	status = EXCLUDED.status,
	final_answer = EXCLUDED.final_answer,
	errors = EXCLUDED.errors,
	steps = EXCLUDED.steps,
	visited_sites = EXCLUDED.visited_sites,
	finished_at = EXCLUDED.finished_at,
	duration_ms = EXCLUDED.duration_ms`

const selectColumns = `SELECT id, task, status, final_answer, errors, steps, visited_sites, created_at, finished_at, duration_ms FROM runs`

// Store is a store.Store backed by PostgreSQL.
type Store struct {
	pool   DBPool
	logger *logging.Logger
}

// New pings the pool and makes sure the runs table exists.
func New(ctx context.Context, pool DBPool, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	logger.Infof("run store connected to PostgreSQL")
	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Save(ctx context.Context, run store.Run) error {
	if run.ID == "" {
		return fmt.Errorf("save run: empty id")
	}
	sites := run.VisitedSites
	if sites == nil {
		sites = []state.VisitedSite{}
	}
	visited, err := json.Marshal(sites)
	if err != nil {
		return fmt.Errorf("failed to marshal visited sites for run %s: %w", run.ID, err)
	}
	var finished *time.Time
	if !run.FinishedAt.IsZero() {
		finished = &run.FinishedAt
	}

	_, err = s.pool.Exec(ctx, upsertSQL,
		run.ID, run.Task, string(run.Status), run.Answer, run.Errors, run.Steps,
		visited, run.CreatedAt, finished, run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	s.logger.Debugf("saved run %s (%s)", run.ID, run.Status)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (store.Run, error) {
	run, err := scanRun(s.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Run{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return run, nil
}

// List returns the newest runs first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]store.Run, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.pool.Query(ctx, selectColumns+` ORDER BY created_at DESC, id LIMIT $1`, limit)
	} else {
		rows, err = s.pool.Query(ctx, selectColumns+` ORDER BY created_at DESC, id`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRun(row pgx.Row) (store.Run, error) {
	var (
		run        store.Run
		status     string
		visited    []byte
		finished   *time.Time
		durationMS int64
	)
	err := row.Scan(&run.ID, &run.Task, &status, &run.Answer, &run.Errors, &run.Steps,
		&visited, &run.CreatedAt, &finished, &durationMS)
	if err != nil {
		return store.Run{}, err
	}
	run.Status = store.Status(status)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if finished != nil {
		run.FinishedAt = *finished
	}
	if len(visited) > 0 {
		if err := json.Unmarshal(visited, &run.VisitedSites); err != nil {
			return store.Run{}, fmt.Errorf("decode visited sites: %w", err)
		}
	}
	return run, nil
}
