package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
)

// ExecutionStore implements store.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	db     *sql.DB
	logger *slog.Logger
	newID  func() string
	now    func() time.Time
}

const executionColumns = `id, builder_id, status, created_at, updated_at, logs, metadata`

// Create inserts a queued execution after checking the builder exists.
func (s *ExecutionStore) Create(ctx context.Context, builderID string, metadata map[string]any) (*models.Execution, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	now := models.EpochSeconds(s.now())
	record := &models.Execution{
		ID:        s.newID(),
		BuilderID: builderID,
		Status:    models.ExecutionStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Logs:      []string{},
		Metadata:  metadata,
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encoding execution metadata: %w", err)
	}

	err = withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM builders WHERE id = $1)`, builderID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("checking builder: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", store.ErrUnknownBuilder, builderID)
		}

		query := `
			INSERT INTO executions (` + executionColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
		if _, err := tx.ExecContext(ctx, query,
			record.ID,
			record.BuilderID,
			record.Status,
			record.CreatedAt,
			record.UpdatedAt,
			pq.Array(record.Logs),
			meta,
		); err != nil {
			return fmt.Errorf("inserting execution: %w", err)
		}

		return insertActivity(ctx, tx, models.ActivityItem{
			Type:        models.ActivityExecutionCreated,
			ExecutionID: record.ID,
			BuilderID:   builderID,
			Timestamp:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Get retrieves an execution by ID.
func (s *ExecutionStore) Get(ctx context.Context, id string) (*models.Execution, error) {
	return getExecution(ctx, s.db, id, false)
}

func getExecution(ctx context.Context, q queryable, id string, forUpdate bool) (*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	e, err := scanExecution(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("querying execution: %w", err)
	}
	return e, nil
}

// List retrieves all executions.
func (s *ExecutionStore) List(ctx context.Context) ([]*models.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var executions []*models.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		executions = append(executions, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return executions, nil
}

// Update applies u under a row lock.
func (s *ExecutionStore) Update(ctx context.Context, id string, u store.ExecutionUpdate) (*models.Execution, error) {
	var updated *models.Execution
	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		record, err := getExecution(ctx, tx, id, true)
		if err != nil {
			return err
		}

		if u.Status != "" {
			record.Status = u.Status
		}
		for k, v := range u.Metadata {
			record.Metadata[k] = v
		}
		now := models.EpochSeconds(s.now())
		if u.LogLine != "" {
			record.Logs = append(record.Logs, u.LogLine)
			if err := insertActivity(ctx, tx, models.ActivityItem{
				Type:        models.ActivityLog,
				ExecutionID: id,
				Message:     u.LogLine,
				Timestamp:   now,
			}); err != nil {
				return err
			}
		}
		record.UpdatedAt = now

		meta, err := json.Marshal(record.Metadata)
		if err != nil {
			return fmt.Errorf("encoding execution metadata: %w", err)
		}
		query := `
			UPDATE executions
			SET status = $2, updated_at = $3, logs = $4, metadata = $5
			WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, record.Status, record.UpdatedAt, pq.Array(record.Logs), meta); err != nil {
			return fmt.Errorf("updating execution: %w", err)
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	e := &models.Execution{}
	var logs []string
	var meta []byte
	if err := row.Scan(
		&e.ID,
		&e.BuilderID,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
		pq.Array(&logs),
		&meta,
	); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []string{}
	}
	e.Logs = logs
	e.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("decoding execution metadata: %w", err)
		}
	}
	return e, nil
}
