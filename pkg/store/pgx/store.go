// Package pgx implements the run and correction stores on PostgreSQL.
package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// TakeoffDBStore implements store.RunStore and store.CorrectionStore over a
// pgx connection or pool.
type TakeoffDBStore struct {
	conn pgxIConn
}

// NewTakeoffDBStore creates a store over an existing connection or pool.
func NewTakeoffDBStore(conn pgxIConn) *TakeoffDBStore {
	return &TakeoffDBStore{conn: conn}
}

func (s *TakeoffDBStore) CreateRun(ctx context.Context, run store.Run) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO takeoff_runs (id, project_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())`,
		run.ID, run.ProjectID, run.Status)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (s *TakeoffDBStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	var run store.Run
	err := s.conn.QueryRow(ctx,
		`SELECT id, project_id, status, COALESCE(report_key, ''), COALESCE(error, ''),
		        created_at, updated_at
		 FROM takeoff_runs WHERE id = $1`,
		id).Scan(&run.ID, &run.ProjectID, &run.Status, &run.ReportKey, &run.Error,
		&run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.Run{}, store.ErrNotFound
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *TakeoffDBStore) UpdateRunStatus(ctx context.Context, id string, status store.RunStatus, errMsg string) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE takeoff_runs SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *TakeoffDBStore) SetRunReport(ctx context.Context, id string, reportKey string) error {
	tag, err := s.conn.Exec(ctx,
		`UPDATE takeoff_runs SET report_key = $2, updated_at = now() WHERE id = $1`,
		id, reportKey)
	if err != nil {
		return fmt.Errorf("set run report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *TakeoffDBStore) SaveCorrection(ctx context.Context, c common.Correction) error {
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.conn.Exec(ctx,
		`INSERT INTO corrections (id, run_id, field_path, original, corrected, author, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.RunID, c.FieldPath, c.Original, c.Corrected, c.Author, createdAt)
	if err != nil {
		return fmt.Errorf("save correction: %w", err)
	}
	return nil
}

func (s *TakeoffDBStore) ListCorrections(ctx context.Context, runID string) ([]common.Correction, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, run_id, field_path, original, corrected, COALESCE(author, ''), created_at
		 FROM corrections WHERE run_id = $1 ORDER BY created_at, id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()
	return scanCorrections(rows)
}

func (s *TakeoffDBStore) ListProjectCorrections(ctx context.Context, projectID string) ([]common.Correction, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT c.id, c.run_id, c.field_path, c.original, c.corrected, COALESCE(c.author, ''), c.created_at
		 FROM corrections c
		 JOIN takeoff_runs r ON r.id = c.run_id
		 WHERE r.project_id = $1
		 ORDER BY c.created_at, c.id`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list project corrections: %w", err)
	}
	defer rows.Close()
	return scanCorrections(rows)
}

func scanCorrections(rows pgxv5.Rows) ([]common.Correction, error) {
	var out []common.Correction
	for rows.Next() {
		var c common.Correction
		if err := rows.Scan(&c.ID, &c.RunID, &c.FieldPath, &c.Original, &c.Corrected,
			&c.Author, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
