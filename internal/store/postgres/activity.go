package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
)

// ActivityStore implements store.ActivityStore using PostgreSQL.
type ActivityStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func insertActivity(ctx context.Context, q queryable, item models.ActivityItem) error {
	query := `
		INSERT INTO activity (type, ts, name, builder_id, execution_id, message)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := q.ExecContext(ctx, query,
		item.Type,
		item.Timestamp,
		item.Name,
		item.BuilderID,
		item.ExecutionID,
		item.Message,
	); err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}
	return nil
}

// List returns the most recent items, oldest first.
func (s *ActivityStore) List(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	if limit <= 0 {
		limit = store.DefaultActivityLimit
	}
	query := `
		SELECT type, ts, name, builder_id, execution_id, message
		FROM (
			SELECT seq, type, ts, name, builder_id, execution_id, message
			FROM activity
			ORDER BY seq DESC
			LIMIT $1
		) recent
		ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	var items []models.ActivityItem
	for rows.Next() {
		var item models.ActivityItem
		if err := rows.Scan(
			&item.Type,
			&item.Timestamp,
			&item.Name,
			&item.BuilderID,
			&item.ExecutionID,
			&item.Message,
		); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity: %w", err)
	}
	return items, nil
}
