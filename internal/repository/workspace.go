// Package repository provides persistence implementations for console
// workspaces: a PostgreSQL store and an in-memory store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ErrWorkspaceNotFound is returned when no workspace is stored under an id.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// WorkspaceRepository stores serialized console state by workspace id.
type WorkspaceRepository interface {
	LoadWorkspace(ctx context.Context, id string) ([]byte, error)
	SaveWorkspace(ctx context.Context, id string, state []byte, at time.Time) error
	StaleWorkspaces(ctx context.Context, before time.Time) ([]string, error)
	DeleteWorkspaces(ctx context.Context, ids []string) (int64, error)
}

// PostgresWorkspaceRepository implements WorkspaceRepository against a PostgreSQL database.
type PostgresWorkspaceRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresWorkspaceRepository creates a repository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance with the console schema.
func NewPostgresWorkspaceRepository(db *sql.DB) *PostgresWorkspaceRepository {
	return &PostgresWorkspaceRepository{DB: db}
}

// LoadWorkspace returns the stored state of workspace id.
func (r *PostgresWorkspaceRepository) LoadWorkspace(ctx context.Context, id string) ([]byte, error) {
	var state []byte
	err := r.DB.QueryRowContext(ctx, `
		SELECT state FROM console_workspaces WHERE id = $1
	`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("LoadWorkspace: %w", err)
	}
	return state, nil
}

// SaveWorkspace inserts or replaces the state of workspace id and stamps it with at.
func (r *PostgresWorkspaceRepository) SaveWorkspace(ctx context.Context, id string, state []byte, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO console_workspaces (id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`, id, state, at.Unix())
	if err != nil {
		return fmt.Errorf("SaveWorkspace: %w", err)
	}
	return nil
}

// StaleWorkspaces lists workspaces last saved before the cutoff.
func (r *PostgresWorkspaceRepository) StaleWorkspaces(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id FROM console_workspaces WHERE updated_at < $1
	`, before.Unix())
	if err != nil {
		return nil, fmt.Errorf("StaleWorkspaces: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("StaleWorkspaces: %w", err)
	}
	return ids, nil
}

// DeleteWorkspaces removes the given workspaces and reports how many existed.
func (r *PostgresWorkspaceRepository) DeleteWorkspaces(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM console_workspaces WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("DeleteWorkspaces: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
