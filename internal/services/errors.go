// Package services defines the business logic for books. This file holds the
// domain rules a book must satisfy after trimming, reported as Invalid
// failure signals.
package services

import (
	"strings"
	"unicode/utf8"

	"github.com/tbourn/go-books-backend/internal/domain"
	"github.com/tbourn/go-books-backend/internal/failure"
)

const (
	// bookResource names books in NotFound messages.
	bookResource = "Book"
	// maxFieldRunes caps title, author and category.
	maxFieldRunes = 255
)

// errKeyReuse reports an Idempotency-Key replayed with a different body.
var errKeyReuse = failure.NewValidation("Idempotency-Key already used with a different request", map[string][]string{
	"Idempotency-Key": {"was used with a different request body"},
})

// validateBook trims every field in place and checks the domain rules:
// non-blank and at most maxFieldRunes runes. The first violation wins.
func validateBook(b *domain.Book) error {
	fields := []struct {
		name string
		val  *string
	}{
		{"title", &b.Title},
		{"author", &b.Author},
		{"category", &b.Category},
	}
	for _, f := range fields {
		*f.val = strings.TrimSpace(*f.val)
		if *f.val == "" {
			return failure.NewInvalid(f.name + " must not be blank")
		}
		if utf8.RuneCountInString(*f.val) > maxFieldRunes {
			return failure.NewInvalid(f.name + " must be at most 255 characters")
		}
	}
	return nil
}
