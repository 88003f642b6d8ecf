package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-books-backend/internal/domain"
)

// bookStore is the method set both backends share.
type bookStore interface {
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error)
	GetBook(ctx context.Context, id int) (*domain.Book, error)
	CreateBook(ctx context.Context, b *domain.Book) error
	SaveBook(ctx context.Context, b *domain.Book) error
	DeleteBook(ctx context.Context, id int) error
	GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, key, requestHash string, bookID, status int, ttl time.Duration) (*domain.Idempotency, error)
}

var (
	_ bookStore = (*MemoryStore)(nil)
	_ bookStore = (*GormStore)(nil)
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Unique in-memory database per test to avoid schema leakage across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// backends returns a fresh store of each kind, seeded with seed.
func backends(t *testing.T, seed []domain.Book) map[string]bookStore {
	t.Helper()
	gs := NewGormStore(newTestDB(t))
	if _, err := gs.SeedIfEmpty(context.Background(), seed); err != nil {
		t.Fatalf("seed gorm: %v", err)
	}
	return map[string]bookStore{
		"memory": NewMemoryStore(seed...),
		"gorm":   gs,
	}
}

func TestStores_CreateAssignsSequentialIDs(t *testing.T) {
	for name, s := range backends(t, nil) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b1 := &domain.Book{Title: "X", Author: "Y", Category: "Z"}
			if err := s.CreateBook(ctx, b1); err != nil {
				t.Fatalf("create: %v", err)
			}
			if b1.ID != 1 {
				t.Fatalf("first id = %d, want 1", b1.ID)
			}
			b2 := &domain.Book{Title: "X2", Author: "Y2", Category: "Z2"}
			if err := s.CreateBook(ctx, b2); err != nil {
				t.Fatalf("create: %v", err)
			}
			if b2.ID != 2 {
				t.Fatalf("second id = %d, want 2", b2.ID)
			}

			got, err := s.GetBook(ctx, 1)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if *got != *b1 {
				t.Fatalf("round trip mismatch: %+v vs %+v", got, b1)
			}
		})
	}
}

func TestStores_IDIsMaxPlusOne(t *testing.T) {
	seed := []domain.Book{
		{ID: 3, Title: "a", Author: "a", Category: "a"},
		{ID: 10, Title: "b", Author: "b", Category: "b"},
	}
	for name, s := range backends(t, seed) {
		s := s
		t.Run(name, func(t *testing.T) {
			b := &domain.Book{Title: "c", Author: "c", Category: "c"}
			if err := s.CreateBook(context.Background(), b); err != nil {
				t.Fatalf("create: %v", err)
			}
			if b.ID != 11 {
				t.Fatalf("id = %d, want 11", b.ID)
			}
		})
	}
}

func TestStores_ListFilters(t *testing.T) {
	for name, s := range backends(t, DefaultBooks()) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			all, err := s.ListBooks(ctx, domain.BookFilter{})
			if err != nil || len(all) != 6 {
				t.Fatalf("list all: n=%d err=%v", len(all), err)
			}
			for i, b := range all {
				if b.ID != i+1 {
					t.Fatalf("list not ordered by id: %+v", all)
				}
			}

			math, _ := s.ListBooks(ctx, domain.BookFilter{Category: "math"})
			if len(math) != 3 {
				t.Fatalf("category=math -> %d, want 3", len(math))
			}

			both, _ := s.ListBooks(ctx, domain.BookFilter{Category: "math", Author: "Author Two"})
			if len(both) != 1 || both[0].ID != 6 {
				t.Fatalf("category+author -> %+v, want only id 6", both)
			}

			exact, _ := s.ListBooks(ctx, domain.BookFilter{Category: "MATH"})
			if len(exact) != 0 {
				t.Fatalf("exact match should be case-sensitive, got %d", len(exact))
			}

			folded, _ := s.ListBooks(ctx, domain.BookFilter{Category: "MATH", FoldCase: true})
			if len(folded) != 3 {
				t.Fatalf("folded match -> %d, want 3", len(folded))
			}

			none, err := s.ListBooks(ctx, domain.BookFilter{Author: "nobody"})
			if err != nil || none == nil || len(none) != 0 {
				t.Fatalf("expected empty non-nil slice, got %#v err=%v", none, err)
			}
		})
	}
}

func TestStores_SaveAndDelete(t *testing.T) {
	for name, s := range backends(t, DefaultBooks()) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			upd := &domain.Book{ID: 2, Title: "New", Author: "Author Two", Category: "science"}
			if err := s.SaveBook(ctx, upd); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, _ := s.GetBook(ctx, 2)
			if got.Title != "New" {
				t.Fatalf("save not persisted: %+v", got)
			}

			if err := s.SaveBook(ctx, &domain.Book{ID: 999}); !errors.Is(err, ErrNotFound) {
				t.Fatalf("save missing: want ErrNotFound, got %v", err)
			}

			if err := s.DeleteBook(ctx, 2); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := s.GetBook(ctx, 2); !errors.Is(err, ErrNotFound) {
				t.Fatalf("get after delete: want ErrNotFound, got %v", err)
			}
			if err := s.DeleteBook(ctx, 2); !errors.Is(err, ErrNotFound) {
				t.Fatalf("second delete: want ErrNotFound, got %v", err)
			}

			rest, _ := s.ListBooks(ctx, domain.BookFilter{})
			if len(rest) != 5 {
				t.Fatalf("expected 5 books after delete, got %d", len(rest))
			}
		})
	}
}

func TestStores_Idempotency(t *testing.T) {
	for name, s := range backends(t, nil) {
		s := s
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Now().UTC()

			if _, err := s.GetIdempotency(ctx, "k1", now); !errors.Is(err, ErrNotFound) {
				t.Fatalf("missing key: want ErrNotFound, got %v", err)
			}

			rec, err := s.CreateIdempotency(ctx, "k1", "h1", 7, 201, time.Hour)
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if rec.ID == "" || rec.Key != "k1" || rec.BookID != 7 || rec.Status != 201 || rec.RequestHash != "h1" {
				t.Fatalf("unexpected record: %+v", rec)
			}

			got, err := s.GetIdempotency(ctx, "k1", time.Now().UTC())
			if err != nil || got.BookID != 7 || got.RequestHash != "h1" {
				t.Fatalf("get live: rec=%+v err=%v", got, err)
			}

			if _, err := s.CreateIdempotency(ctx, "k1", "h2", 8, 201, time.Hour); !errors.Is(err, ErrDuplicate) {
				t.Fatalf("duplicate: want ErrDuplicate, got %v", err)
			}

			if _, err := s.GetIdempotency(ctx, "k1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expired: want ErrNotFound, got %v", err)
			}
		})
	}
}

func TestGormStore_SeedIfEmpty_OnlyOnce(t *testing.T) {
	s := NewGormStore(newTestDB(t))
	ctx := context.Background()

	seeded, err := s.SeedIfEmpty(ctx, DefaultBooks())
	if err != nil || !seeded {
		t.Fatalf("first seed: seeded=%v err=%v", seeded, err)
	}
	seeded, err = s.SeedIfEmpty(ctx, DefaultBooks())
	if err != nil || seeded {
		t.Fatalf("second seed should be a no-op: seeded=%v err=%v", seeded, err)
	}
}

func TestGormStore_ErrorsWithoutSchema(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s := NewGormStore(db)
	if err := s.CreateBook(context.Background(), &domain.Book{Title: "t"}); err == nil {
		t.Fatalf("expected error without books table")
	}
	if _, err := s.ListBooks(context.Background(), domain.BookFilter{}); err == nil {
		t.Fatalf("expected list error without books table")
	}
}
