// Package services – BookService
//
// This file implements the BookService, which owns the book use-cases: list,
// get, create, replace/patch, and delete. It turns store results into typed
// failure signals so the HTTP layer can render them without knowing which
// backend is in use:
//
//   - a missing id becomes failure.NotFound ("Book with identifier 'N' not found")
//   - a domain rule violation becomes failure.Invalid
//   - any other store error is passed through and ends up as a 500
//
// Updates look the record up before applying domain rules, so a request for a
// nonexistent id is reported as 404 even when its body would also be rejected
// by a rule.
package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-books-backend/internal/domain"
	"github.com/tbourn/go-books-backend/internal/failure"
	"github.com/tbourn/go-books-backend/internal/repo"
)

// BookStore is the storage contract BookService depends on. Missing ids must
// be reported as repo.ErrNotFound.
type BookStore interface {
	// ListBooks returns the books matching filter, ordered by id.
	ListBooks(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error)
	// GetBook fetches one book.
	GetBook(ctx context.Context, id int) (*domain.Book, error)
	// CreateBook assigns an id to b and stores it.
	CreateBook(ctx context.Context, b *domain.Book) error
	// SaveBook overwrites an existing book.
	SaveBook(ctx context.Context, b *domain.Book) error
	// DeleteBook removes a book.
	DeleteBook(ctx context.Context, id int) error
}

// IdempotencyStore persists Idempotency-Key outcomes for create requests.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, key, requestHash string, bookID, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// BookService provides the book use-cases on top of an injected store.
type BookService struct {
	// Store holds the books.
	Store BookStore
	// Idem records idempotent creates; nil disables key handling.
	Idem IdempotencyStore
	// IdemTTL is how long an Idempotency-Key stays valid.
	IdemTTL time.Duration
	// FoldCase makes list filters compare case-insensitively.
	FoldCase bool
}

// NewBookService wires a BookService with a 24h idempotency window.
func NewBookService(store BookStore, idem IdempotencyStore) *BookService {
	return &BookService{Store: store, Idem: idem, IdemTTL: 24 * time.Hour}
}

// List returns the books matching filter. FoldCase from the service applies
// on top of the caller's filter.
func (s *BookService) List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	filter.FoldCase = filter.FoldCase || s.FoldCase
	books, err := s.Store.ListBooks(ctx, filter)
	observe("list", err)
	return books, err
}

// Get returns the book with id or a NotFound signal.
func (s *BookService) Get(ctx context.Context, id int) (*domain.Book, error) {
	b, err := s.Store.GetBook(ctx, id)
	err = notFound(err, id)
	observe("get", err)
	return b, err
}

// Create validates in and stores a new book.
func (s *BookService) Create(ctx context.Context, in domain.BookInput) (*domain.Book, error) {
	b, err := s.create(ctx, in)
	observe("create", err)
	return b, err
}

func (s *BookService) create(ctx context.Context, in domain.BookInput) (*domain.Book, error) {
	b := &domain.Book{}
	in.Patch().Apply(b)
	if err := validateBook(b); err != nil {
		return nil, err
	}
	if err := s.Store.CreateBook(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateIdempotent behaves like Create, except that a live record for key
// short-circuits to the book created earlier. replayed reports that case.
// An empty key, or a service without an IdempotencyStore, is a plain Create.
//
// A key reused with a different request is a ValidationError. Recording the
// key is best effort: once the book is stored the call succeeds even if the
// record cannot be written.
func (s *BookService) CreateIdempotent(ctx context.Context, key string, in domain.BookInput) (b *domain.Book, replayed bool, err error) {
	if key == "" || s.Idem == nil {
		b, err = s.Create(ctx, in)
		return b, false, err
	}

	hash := requestHash(in)
	if rec, err := s.Idem.GetIdempotency(ctx, key, time.Now().UTC()); err == nil {
		if rec.RequestHash != "" && rec.RequestHash != hash {
			observe("create_replay", errKeyReuse)
			return nil, false, errKeyReuse
		}
		if prior, err := s.Store.GetBook(ctx, rec.BookID); err == nil {
			observe("create_replay", nil)
			return prior, true, nil
		}
		// The earlier book is gone; fall through and create a new one.
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, false, err
	}

	b, err = s.Create(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.Idem.CreateIdempotency(ctx, key, hash, b.ID, http.StatusCreated, s.ttl()); err != nil && !errors.Is(err, repo.ErrDuplicate) {
		zerolog.Ctx(ctx).Warn().Err(err).Int("book_id", b.ID).Msg("idempotency record not stored")
	}
	return b, false, nil
}

// requestHash fingerprints a create request by its trimmed fields.
func requestHash(in domain.BookInput) string {
	h := sha256.New()
	for _, f := range []string{in.Title, in.Author, in.Category} {
		h.Write([]byte(strings.TrimSpace(f)))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Update applies fields to the book with id. When partial is false every
// field of patch must be set (replace semantics); the caller enforces that
// structurally. The id never changes.
func (s *BookService) Update(ctx context.Context, id int, patch domain.BookPatch, partial bool) (*domain.Book, error) {
	op := "replace"
	if partial {
		op = "patch"
	}
	b, err := s.update(ctx, id, patch)
	observe(op, err)
	return b, err
}

func (s *BookService) update(ctx context.Context, id int, patch domain.BookPatch) (*domain.Book, error) {
	b, err := s.Store.GetBook(ctx, id)
	if err != nil {
		return nil, notFound(err, id)
	}
	patch.Apply(b)
	b.ID = id
	if err := validateBook(b); err != nil {
		return nil, err
	}
	if err := s.Store.SaveBook(ctx, b); err != nil {
		return nil, notFound(err, id)
	}
	return b, nil
}

// Delete removes the book with id or returns a NotFound signal.
func (s *BookService) Delete(ctx context.Context, id int) error {
	err := notFound(s.Store.DeleteBook(ctx, id), id)
	observe("delete", err)
	return err
}

func (s *BookService) ttl() time.Duration {
	if s.IdemTTL > 0 {
		return s.IdemTTL
	}
	return 24 * time.Hour
}

// notFound converts the store's ErrNotFound into a NotFound signal for id.
func notFound(err error, id int) error {
	if errors.Is(err, repo.ErrNotFound) {
		return failure.NewNotFound(bookResource, id)
	}
	return err
}
