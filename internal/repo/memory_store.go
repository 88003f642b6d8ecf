package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-books-backend/internal/domain"
)

// MemoryStore keeps books in process, ordered by id. It is the default
// backend and loses its contents on restart.
type MemoryStore struct {
	mu    sync.RWMutex
	books []domain.Book
	idem  map[string]domain.Idempotency
}

// NewMemoryStore returns a store holding a copy of seed, sorted as given.
func NewMemoryStore(seed ...domain.Book) *MemoryStore {
	return &MemoryStore{
		books: append([]domain.Book(nil), seed...),
		idem:  make(map[string]domain.Idempotency),
	}
}

// ListBooks returns copies of the books matching filter, in store order.
func (m *MemoryStore) ListBooks(_ context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Book, 0, len(m.books))
	for _, b := range m.books {
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

// GetBook returns a copy of the book with id, or ErrNotFound.
func (m *MemoryStore) GetBook(_ context.Context, id int) (*domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(id); i >= 0 {
		b := m.books[i]
		return &b, nil
	}
	return nil, ErrNotFound
}

// CreateBook assigns max(id)+1 (or 1) to b and appends it.
func (m *MemoryStore) CreateBook(_ context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maxID := 0
	for _, existing := range m.books {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	b.ID = maxID + 1
	m.books = append(m.books, *b)
	return nil
}

// SaveBook replaces the stored book with the same id, in place.
func (m *MemoryStore) SaveBook(_ context.Context, b *domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(b.ID)
	if i < 0 {
		return ErrNotFound
	}
	m.books[i] = *b
	return nil
}

// DeleteBook removes the book with id, or returns ErrNotFound.
func (m *MemoryStore) DeleteBook(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	m.books = append(m.books[:i], m.books[i+1:]...)
	return nil
}

// GetIdempotency returns a live record for key, or ErrNotFound.
func (m *MemoryStore) GetIdempotency(_ context.Context, key string, now time.Time) (*domain.Idempotency, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.idem[key]
	if !ok || !rec.Live(now) {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// CreateIdempotency stores a record for key and its request fingerprint; a
// live record yields ErrDuplicate.
func (m *MemoryStore) CreateIdempotency(_ context.Context, key, requestHash string, bookID, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.idem[key]; ok && rec.Live(now) {
		return nil, ErrDuplicate
	}
	rec := domain.Idempotency{
		ID:          uuid.NewString(),
		Key:         key,
		RequestHash: requestHash,
		BookID:      bookID,
		Status:      status,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	m.idem[key] = rec
	return &rec, nil
}

// indexOf must be called with mu held.
func (m *MemoryStore) indexOf(id int) int {
	for i, b := range m.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}
