package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
)

func getTestDSN() string {
	return os.Getenv("TEST_DATABASE_URL")
}

// setupTestStore connects to the test database and resets the dashboard tables.
func setupTestStore(t *testing.T) *PostgresStore {
	t.Helper()

	dsn := getTestDSN()
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("failed to ping database: %v", err)
	}

	_, _ = db.Exec("DROP TABLE IF EXISTS activity CASCADE")
	_, _ = db.Exec("DROP TABLE IF EXISTS executions CASCADE")
	_, _ = db.Exec("DROP TABLE IF EXISTS builders CASCADE")
	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	s := newStore(db, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	t.Cleanup(func() { s.Close() })
	return s
}

func resetTables(s *PostgresStore) {
	s.db.Exec("DELETE FROM activity")
	s.db.Exec("DELETE FROM executions")
	s.db.Exec("DELETE FROM builders")
}

// TestExecutionLifecycle checks create, update and the activity items they record.
func TestExecutionLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	builder, err := s.Builders().Register(ctx, "gcc-arm", "cross compiler", nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := s.Executions().Create(ctx, "missing", nil); !errors.Is(err, store.ErrUnknownBuilder) {
		t.Fatalf("expected ErrUnknownBuilder, got %v", err)
	}

	exec, err := s.Executions().Create(ctx, builder.ID, map[string]any{"backend": "codex"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if exec.Status != models.ExecutionStatusQueued {
		t.Errorf("expected queued, got %s", exec.Status)
	}

	updated, err := s.Executions().Update(ctx, exec.ID, store.ExecutionUpdate{
		Status:  models.ExecutionStatusRunning,
		LogLine: "Execution started",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Status != models.ExecutionStatusRunning || len(updated.Logs) != 1 {
		t.Errorf("unexpected update result: %+v", updated)
	}

	got, err := s.Executions().Get(ctx, exec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Metadata["backend"] != "codex" || got.Logs[0] != "Execution started" {
		t.Errorf("unexpected stored execution: %+v", got)
	}

	items, err := s.Activity().List(ctx, 0)
	if err != nil {
		t.Fatalf("List activity failed: %v", err)
	}
	want := []models.ActivityType{
		models.ActivityBuilderRegistered,
		models.ActivityExecutionCreated,
		models.ActivityLog,
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d activity items, got %d", len(want), len(items))
	}
	for i, typ := range want {
		if items[i].Type != typ {
			t.Errorf("item %d: expected %s, got %s", i, typ, items[i].Type)
		}
	}

	if _, err := s.Executions().Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// TestActivityLimitKeepsMostRecent verifies that List returns the newest items in
// chronological order.
func TestActivityLimitKeepsMostRecent(t *testing.T) {
	s := setupTestStore(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("activity list is capped and ordered", prop.ForAll(
		func(count, limit int) bool {
			resetTables(s)
			ctx := context.Background()
			var names []string
			for i := 0; i < count; i++ {
				b, err := s.Builders().Register(ctx, "builder", "", nil)
				if err != nil {
					t.Logf("Register failed: %v", err)
					return false
				}
				names = append(names, b.ID)
			}

			items, err := s.Activity().List(ctx, limit)
			if err != nil {
				t.Logf("List failed: %v", err)
				return false
			}
			expected := count
			if expected > limit {
				expected = limit
			}
			if len(items) != expected {
				t.Logf("expected %d items, got %d", expected, len(items))
				return false
			}
			tail := names[len(names)-expected:]
			for i, item := range items {
				if item.BuilderID != tail[i] {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 12),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

// TestSeedOnlyWhenEmpty verifies demo builders are inserted once.
func TestSeedOnlyWhenEmpty(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Builders().Seed(ctx, store.DemoBuilders); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}
	builders, err := s.Builders().List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(builders) != len(store.DemoBuilders) {
		t.Errorf("expected %d builders, got %d", len(store.DemoBuilders), len(builders))
	}
	items, _ := s.Activity().List(ctx, 0)
	if len(items) != 0 {
		t.Errorf("seeding should not record activity, got %d items", len(items))
	}
}
