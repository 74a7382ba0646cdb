package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-graph-service/models"
)

// SessionRegistry tracks uploaded resumes and which one is the latest.
//
// Concurrent uploads racing on MarkLatest resolve last-writer-wins; which upload ends up
// latest is not determined by arrival order.
type SessionRegistry interface {
	Create(ctx context.Context, raw []byte) (string, error)
	SetExtractedText(ctx context.Context, id, text string) error
	MarkLatest(ctx context.Context, id string) error
	Latest(ctx context.Context) (string, error)
	ExtractedText(ctx context.Context, id string) (string, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	Close() error
}

// RetentionOptions bound registry growth. The zero value keeps every session forever.
type RetentionOptions struct {
	// MaxCount evicts the oldest session that is not the latest once exceeded.
	MaxCount int
	// TTL expires sessions this long after creation.
	TTL time.Duration
}

type memorySession struct {
	session models.Session
	seq     uint64
}

// MemorySessionRegistry is a process-local SessionRegistry.
type MemorySessionRegistry struct {
	mu        sync.RWMutex
	sessions  map[string]*memorySession
	latest    string
	seq       uint64
	retention RetentionOptions
	now       func() time.Time
}

func NewMemorySessionRegistry(retention RetentionOptions) *MemorySessionRegistry {
	return &MemorySessionRegistry{
		sessions:  make(map[string]*memorySession),
		retention: retention,
		now:       time.Now,
	}
}

func (r *MemorySessionRegistry) Create(ctx context.Context, raw []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	blob := make([]byte, len(raw))
	copy(blob, raw)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.sessions[id] = &memorySession{
		session: models.Session{ID: id, Raw: blob, CreatedAt: r.now().UTC()},
		seq:     r.seq,
	}
	r.evictOverCapacity(id)
	return id, nil
}

func (r *MemorySessionRegistry) SetExtractedText(ctx context.Context, id, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.lookup(id)
	if !ok {
		return ErrUnknownSession
	}
	entry.session.Text = text
	entry.session.HasText = true
	return nil
}

func (r *MemorySessionRegistry) MarkLatest(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lookup(id); !ok {
		return ErrUnknownSession
	}
	r.latest = id
	return nil
}

func (r *MemorySessionRegistry) Latest(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.latest == "" {
		return "", ErrNoSession
	}
	if _, ok := r.lookup(r.latest); !ok {
		return "", ErrNoSession
	}
	return r.latest, nil
}

func (r *MemorySessionRegistry) ExtractedText(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.lookup(id)
	if !ok {
		return "", ErrUnknownSession
	}
	if !entry.session.HasText {
		return "", ErrTextNotReady
	}
	return entry.session.Text, nil
}

func (r *MemorySessionRegistry) Get(ctx context.Context, id string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.lookup(id)
	if !ok {
		return nil, ErrUnknownSession
	}
	s := entry.session
	return &s, nil
}

// Sweep drops sessions whose TTL elapsed at now and returns how many were removed.
func (r *MemorySessionRegistry) Sweep(now time.Time) int {
	if r.retention.TTL <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, entry := range r.sessions {
		if r.expiredAt(entry, now) {
			delete(r.sessions, id)
			removed++
		}
	}
	if _, ok := r.sessions[r.latest]; !ok {
		r.latest = ""
	}
	return removed
}

// SweepExpired runs Sweep at the registry's current time.
func (r *MemorySessionRegistry) SweepExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.Sweep(r.now()), nil
}

// Len returns the number of registered sessions, expired ones included until swept.
func (r *MemorySessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *MemorySessionRegistry) Close() error { return nil }

// lookup hides expired sessions. Callers hold r.mu.
func (r *MemorySessionRegistry) lookup(id string) (*memorySession, bool) {
	entry, ok := r.sessions[id]
	if !ok || r.expiredAt(entry, r.now()) {
		return nil, false
	}
	return entry, true
}

func (r *MemorySessionRegistry) expiredAt(entry *memorySession, now time.Time) bool {
	return r.retention.TTL > 0 && !now.Before(entry.session.CreatedAt.Add(r.retention.TTL))
}

// evictOverCapacity removes the oldest sessions other than the latest and keep until
// the registry fits MaxCount. Callers hold r.mu for writing.
func (r *MemorySessionRegistry) evictOverCapacity(keep string) {
	if r.retention.MaxCount <= 0 {
		return
	}
	for len(r.sessions) > r.retention.MaxCount {
		victim := ""
		var oldest uint64
		for id, entry := range r.sessions {
			if id == keep || id == r.latest {
				continue
			}
			if victim == "" || entry.seq < oldest {
				victim, oldest = id, entry.seq
			}
		}
		if victim == "" {
			return
		}
		delete(r.sessions, victim)
	}
}
