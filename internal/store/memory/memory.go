// Package memory provides a thread-safe in-memory implementation of the store
// interfaces. It is the default store when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/narvanalabs/builder-dashboard/internal/models"
	"github.com/narvanalabs/builder-dashboard/internal/store"
)

// DefaultActivityRetention is how many activity items the store keeps.
const DefaultActivityRetention = 1000

// Store implements store.Store in process memory.
type Store struct {
	mu         sync.Mutex
	builders   map[string]*models.Builder
	order      []string
	executions map[string]*models.Execution
	execOrder  []string
	activity   []models.ActivityItem
	retention  int
	now        func() time.Time
	newID      func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides the identifier source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// WithActivityRetention caps the activity log at n items. Older items are
// dropped first. Values below store.DefaultActivityLimit are raised to it.
func WithActivityRetention(n int) Option {
	return func(s *Store) {
		if n < store.DefaultActivityLimit {
			n = store.DefaultActivityLimit
		}
		s.retention = n
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) *Store {
	s := &Store{
		builders:   make(map[string]*models.Builder),
		executions: make(map[string]*models.Execution),
		retention:  DefaultActivityRetention,
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Builders returns the BuilderStore.
func (s *Store) Builders() store.BuilderStore { return builderStore{s} }

// Executions returns the ExecutionStore.
func (s *Store) Executions() store.ExecutionStore { return executionStore{s} }

// Activity returns the ActivityStore.
func (s *Store) Activity() store.ActivityStore { return activityStore{s} }

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Reset drops every builder, execution and activity item.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builders = make(map[string]*models.Builder)
	s.order = nil
	s.executions = make(map[string]*models.Execution)
	s.execOrder = nil
	s.activity = nil
}

func (s *Store) stamp() float64 {
	return models.EpochSeconds(s.now())
}

// appendActivity records item and drops the oldest items beyond the retention
// cap. Callers hold s.mu.
func (s *Store) appendActivity(item models.ActivityItem) {
	s.activity = append(s.activity, item)
	if over := len(s.activity) - s.retention; over > 0 {
		s.activity = append(s.activity[:0:0], s.activity[over:]...)
	}
}

type builderStore struct{ s *Store }

func (b builderStore) Register(ctx context.Context, name, description string, metadata map[string]any) (*models.Builder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()

	builder := s.addBuilder(name, description, metadata)
	s.appendActivity(models.ActivityItem{
		Type:      models.ActivityBuilderRegistered,
		BuilderID: builder.ID,
		Name:      name,
		Timestamp: s.stamp(),
	})
	return cloneBuilder(builder), nil
}

// addBuilder must be called with s.mu held.
func (s *Store) addBuilder(name, description string, metadata map[string]any) *models.Builder {
	if metadata == nil {
		metadata = map[string]any{}
	}
	builder := &models.Builder{
		ID:          s.newID(),
		Name:        name,
		Description: description,
		CreatedAt:   s.stamp(),
		Metadata:    metadata,
	}
	s.builders[builder.ID] = builder
	s.order = append(s.order, builder.ID)
	return builder
}

func (b builderStore) Get(ctx context.Context, id string) (*models.Builder, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	builder, ok := s.builders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBuilder(builder), nil
}

func (b builderStore) List(ctx context.Context) ([]*models.Builder, error) {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Builder, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneBuilder(s.builders[id]))
	}
	return out, nil
}

func (b builderStore) Seed(ctx context.Context, demos []store.DemoBuilder) error {
	s := b.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.builders) > 0 {
		return nil
	}
	for _, d := range demos {
		s.addBuilder(d.Name, d.Description, nil)
	}
	return nil
}

type executionStore struct{ s *Store }

func (e executionStore) Create(ctx context.Context, builderID string, metadata map[string]any) (*models.Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.builders[builderID]; !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrUnknownBuilder, builderID)
	}
	now := s.stamp()
	record := &models.Execution{
		ID:        s.newID(),
		BuilderID: builderID,
		Status:    models.ExecutionStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
		Logs:      []string{},
		Metadata:  make(map[string]any, len(metadata)),
	}
	for k, v := range metadata {
		record.Metadata[k] = v
	}
	s.executions[record.ID] = record
	s.execOrder = append(s.execOrder, record.ID)
	s.appendActivity(models.ActivityItem{
		Type:        models.ActivityExecutionCreated,
		ExecutionID: record.ID,
		BuilderID:   builderID,
		Timestamp:   now,
	})
	return record.Clone(), nil
}

func (e executionStore) Get(ctx context.Context, id string) (*models.Execution, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.executions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return record.Clone(), nil
}

func (e executionStore) List(ctx context.Context) ([]*models.Execution, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Execution, 0, len(s.execOrder))
	for _, id := range s.execOrder {
		out = append(out, s.executions[id].Clone())
	}
	return out, nil
}

func (e executionStore) Update(ctx context.Context, id string, u store.ExecutionUpdate) (*models.Execution, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.executions[id]
	if !ok {
		return nil, fmt.Errorf("%w: execution %s", store.ErrNotFound, id)
	}
	if u.Status != "" {
		record.Status = u.Status
	}
	for k, v := range u.Metadata {
		record.Metadata[k] = v
	}
	now := s.stamp()
	if u.LogLine != "" {
		record.Logs = append(record.Logs, u.LogLine)
		s.appendActivity(models.ActivityItem{
			Type:        models.ActivityLog,
			ExecutionID: id,
			Message:     u.LogLine,
			Timestamp:   now,
		})
	}
	record.UpdatedAt = now
	return record.Clone(), nil
}

type activityStore struct{ s *Store }

func (a activityStore) List(ctx context.Context, limit int) ([]models.ActivityItem, error) {
	s := a.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = store.DefaultActivityLimit
	}
	start := 0
	if len(s.activity) > limit {
		start = len(s.activity) - limit
	}
	return append([]models.ActivityItem(nil), s.activity[start:]...), nil
}

func cloneBuilder(b *models.Builder) *models.Builder {
	c := *b
	c.Metadata = make(map[string]any, len(b.Metadata))
	for k, v := range b.Metadata {
		c.Metadata[k] = v
	}
	return &c
}
