package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
)

// BuilderStore implements store.BuilderStore using PostgreSQL.
type BuilderStore struct {
	db     *sql.DB
	logger *slog.Logger
	newID  func() string
	now    func() time.Time
}

// Register creates a builder and its activity item in one transaction.
func (s *BuilderStore) Register(ctx context.Context, name, description string, metadata map[string]any) (*models.Builder, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	builder := &models.Builder{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		CreatedAt:   models.EpochSeconds(s.now()),
		Metadata:    metadata,
	}

	err := withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		if err := insertBuilder(ctx, tx, builder); err != nil {
			return err
		}
		return insertActivity(ctx, tx, models.ActivityItem{
			Type:      models.ActivityBuilderRegistered,
			BuilderID: builder.ID,
			Name:      name,
			Timestamp: builder.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return builder, nil
}

func insertBuilder(ctx context.Context, q queryable, b *models.Builder) error {
	meta, err := json.Marshal(b.Metadata)
	if err != nil {
		return fmt.Errorf("encoding builder metadata: %w", err)
	}
	query := `
		INSERT INTO builders (id, name, description, created_at, metadata)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.ExecContext(ctx, query, b.ID, b.Name, b.Description, b.CreatedAt, meta); err != nil {
		return fmt.Errorf("inserting builder: %w", err)
	}
	return nil
}

// Get retrieves a builder by ID.
func (s *BuilderStore) Get(ctx context.Context, id string) (*models.Builder, error) {
	query := `
		SELECT id, name, description, created_at, metadata
		FROM builders
		WHERE id = $1`

	b, err := scanBuilder(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("querying builder: %w", err)
	}
	return b, nil
}

// List retrieves all builders in creation order.
func (s *BuilderStore) List(ctx context.Context) ([]*models.Builder, error) {
	query := `
		SELECT id, name, description, created_at, metadata
		FROM builders
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying builders: %w", err)
	}
	defer rows.Close()

	var builders []*models.Builder
	for rows.Next() {
		b, err := scanBuilder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning builder: %w", err)
		}
		builders = append(builders, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating builders: %w", err)
	}
	return builders, nil
}

// Seed inserts the demo builders when the table is empty.
func (s *BuilderStore) Seed(ctx context.Context, demos []store.DemoBuilder) error {
	return withTx(ctx, s.db, s.logger, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM builders`).Scan(&count); err != nil {
			return fmt.Errorf("counting builders: %w", err)
		}
		if count > 0 {
			return nil
		}
		for _, d := range demos {
			b := &models.Builder{
				ID:          s.newID(),
				Name:        d.Name,
				Description: d.Description,
				CreatedAt:   models.EpochSeconds(s.now()),
				Metadata:    map[string]any{},
			}
			if err := insertBuilder(ctx, tx, b); err != nil {
				return err
			}
		}
		s.logger.Info("seeded demo builders", "count", len(demos))
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuilder(row rowScanner) (*models.Builder, error) {
	b := &models.Builder{}
	var meta []byte
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt, &meta); err != nil {
		return nil, err
	}
	b.Metadata = map[string]any{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &b.Metadata); err != nil {
			return nil, fmt.Errorf("decoding builder metadata: %w", err)
		}
	}
	return b, nil
}
