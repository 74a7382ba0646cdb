package services

import (
	"context"
	"sync"
	"sync/atomic"

	"resume-graph-service/models"
)

// EntityStore persists the deduplicated entity graph.
//
// ReplaceAll discards every stored entity and inserts the given ones deduplicated by
// name (the last occurrence's label wins). Concurrent ReadAll calls observe either the
// complete previous set or the complete new one, never a mix.
type EntityStore interface {
	ReplaceAll(ctx context.Context, entities []models.Entity) error
	ReadAll(ctx context.Context) ([]models.Entity, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// MemoryEntityStore keeps the graph as an immutable snapshot swapped atomically.
type MemoryEntityStore struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[[]models.Entity]
}

func NewMemoryEntityStore() *MemoryEntityStore {
	s := &MemoryEntityStore{}
	empty := []models.Entity{}
	s.snapshot.Store(&empty)
	return s
}

func (s *MemoryEntityStore) ReplaceAll(ctx context.Context, entities []models.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	next := models.DedupeByName(entities)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Store(&next)
	return nil
}

func (s *MemoryEntityStore) ReadAll(ctx context.Context) ([]models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	current := *s.snapshot.Load()
	out := make([]models.Entity, len(current))
	copy(out, current)
	return out, nil
}

func (s *MemoryEntityStore) Ping(context.Context) error { return nil }

func (s *MemoryEntityStore) Close(context.Context) error { return nil }
