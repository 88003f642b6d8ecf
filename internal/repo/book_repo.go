// Package repo implements the storage backends for books.
//
// GormStore persists books in SQLite through GORM. Identifiers are allocated
// inside a transaction as one past the current maximum (1 for an empty table),
// so ids deleted from the top of the range are reused, exactly like the
// in-memory store.
//
// Error semantics:
//   - A missing book yields ErrNotFound (an alias of gorm.ErrRecordNotFound).
//   - Any other DB error is propagated unchanged.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-books-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so both backends share one sentinel.
var ErrNotFound = gorm.ErrRecordNotFound

// GormStore is the SQLite-backed book store.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore wraps db. The schema must already be migrated (see AutoMigrate).
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// ListBooks returns the books matching filter, ordered by id.
func (s *GormStore) ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	q := s.DB.WithContext(ctx).Order("id asc")
	if !filter.FoldCase {
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		if filter.Author != "" {
			q = q.Where("author = ?", filter.Author)
		}
	}

	out := []domain.Book{}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	if !filter.FoldCase || filter.IsZero() {
		return out, nil
	}

	// SQLite's lower() is ASCII-only, so folded comparisons happen here.
	matched := out[:0]
	for _, b := range out {
		if filter.Matches(b) {
			matched = append(matched, b)
		}
	}
	return matched, nil
}

// GetBook fetches a book by id, or ErrNotFound.
func (s *GormStore) GetBook(ctx context.Context, id int) (*domain.Book, error) {
	var b domain.Book
	if err := s.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook assigns the next id to b and inserts it.
func (s *GormStore) CreateBook(ctx context.Context, b *domain.Book) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID int
		if err := tx.Model(&domain.Book{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return err
		}
		b.ID = maxID + 1
		return tx.Create(b).Error
	})
}

// SaveBook overwrites the stored fields of b.ID. It returns ErrNotFound when
// no such book exists.
func (s *GormStore) SaveBook(ctx context.Context, b *domain.Book) error {
	res := s.DB.WithContext(ctx).
		Model(&domain.Book{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"title":    b.Title,
			"author":   b.Author,
			"category": b.Category,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBook removes the book with id, or returns ErrNotFound.
func (s *GormStore) DeleteBook(ctx context.Context, id int) error {
	res := s.DB.WithContext(ctx).Delete(&domain.Book{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedIfEmpty inserts books (with their own ids) when the table is empty.
// It reports whether anything was inserted.
func (s *GormStore) SeedIfEmpty(ctx context.Context, books []domain.Book) (bool, error) {
	var n int64
	if err := s.DB.WithContext(ctx).Model(&domain.Book{}).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 || len(books) == 0 {
		return false, nil
	}
	seed := append([]domain.Book(nil), books...)
	if err := s.DB.WithContext(ctx).Create(&seed).Error; err != nil {
		return false, err
	}
	return true, nil
}
