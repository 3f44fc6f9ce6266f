package db

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/allocation-engine/pkg/models"
)

// schemaSQL is compiled into the binary at build time so schema init works
// inside the Docker runtime image, which does not carry this directory.
//
//go:embed schema.sql
var schemaSQL string

// Store persists solve outcomes. The engine runs fine without one; callers
// hold a nil *Store when persistence is unavailable.
type Store struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx.
func Connect(connStr string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for the Allocation Engine")
	return &Store{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *Store) InitSchema() error {
	_, err := s.pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Allocation schema initialized")
	return nil
}

// SaveOutcome persists a finished job's outcome and its assignment rows in
// one transaction. Re-saving the same job id replaces both.
func (s *Store) SaveOutcome(ctx context.Context, jobID string, out models.Outcome) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	upsertJobSQL := `
		INSERT INTO solve_jobs
			(job_id, status, granted_count, nodes_explored, nodes_pruned, simplex_pivots, root_bound, reason, warning, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			granted_count = EXCLUDED.granted_count,
			nodes_explored = EXCLUDED.nodes_explored,
			nodes_pruned = EXCLUDED.nodes_pruned,
			simplex_pivots = EXCLUDED.simplex_pivots,
			root_bound = EXCLUDED.root_bound,
			reason = EXCLUDED.reason,
			warning = EXCLUDED.warning,
			finished_at = NOW();
	`
	_, err = tx.Exec(ctx, upsertJobSQL,
		jobID, string(out.Status), out.Count,
		out.Stats.NodesExplored, out.Stats.NodesPruned, out.Stats.SimplexPivots,
		out.Stats.RootBound, out.Reason, out.Warning,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert solve_jobs: %v", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM job_assignments WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("failed to clear stale assignment rows: %v", err)
	}
	insertEntrySQL := `
		INSERT INTO job_assignments (job_id, request_id, producer_id)
		VALUES ($1, $2, $3);
	`
	for _, e := range out.Assignment {
		if _, err := tx.Exec(ctx, insertEntrySQL, jobID, e.RequestID, e.ProducerID); err != nil {
			return fmt.Errorf("failed to insert assignment row: %v", err)
		}
	}

	return tx.Commit(ctx)
}

// JobRecord is a persisted outcome summary for listings.
type JobRecord struct {
	JobID        string    `json:"jobId"`
	Status       string    `json:"status"`
	GrantedCount int       `json:"grantedCount"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// RecentJobs returns the latest finished jobs, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT job_id, status, granted_count, finished_at
		FROM solve_jobs ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JobRecord
	for rows.Next() {
		var r JobRecord
		if err := rows.Scan(&r.JobID, &r.Status, &r.GrantedCount, &r.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
