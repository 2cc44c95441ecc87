package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"cpfregistry/internal/cpf/models"
	id "cpfregistry/pkg/domain"
	"cpfregistry/pkg/platform/sentinel"
	"cpfregistry/pkg/requestcontext"
)

// InMemory keeps CPF records in a map guarded by a mutex. It enforces the same
// uniqueness and ordering contract as PostgresStore: IDs are assigned
// sequentially and ListAll sorts by ID.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.CPF]*models.Record
	nextID  int64
	clock   func(ctx context.Context) time.Time
}

// MemoryOption configures an InMemory store.
type MemoryOption func(*InMemory)

// WithClock overrides the creation timestamp source.
func WithClock(clock func(ctx context.Context) time.Time) MemoryOption {
	return func(s *InMemory) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(opts ...MemoryOption) *InMemory {
	s := &InMemory{
		records: make(map[id.CPF]*models.Record),
		clock:   requestcontext.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Insert(ctx context.Context, cpf id.CPF) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[cpf]; ok {
		return nil, sentinel.ErrAlreadyUsed
	}
	s.nextID++
	record := &models.Record{
		ID:        s.nextID,
		CPF:       cpf,
		CreatedAt: s.clock(ctx).UTC(),
	}
	s.records[cpf] = record
	clone := *record
	return &clone, nil
}

func (s *InMemory) FindByCPF(_ context.Context, cpf id.CPF) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[cpf]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, 0, len(s.records))
	for _, record := range s.records {
		clone := *record
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, cpf id.CPF) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[cpf]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, cpf)
	return nil
}

// Ping always succeeds.
func (s *InMemory) Ping(context.Context) error {
	return nil
}
