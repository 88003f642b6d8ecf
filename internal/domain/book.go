// Package domain defines the book record and the value types that travel
// between the HTTP layer, the service layer, and the stores. Book is mapped
// with GORM for the sqlite backend and used as-is by the in-memory store.
package domain

import "golang.org/x/text/cases"

// Book is a single catalogue record. ID is assigned by the store on create
// and never changes afterwards.
type Book struct {
	ID       int    `json:"id"       gorm:"primaryKey;autoIncrement:false" example:"1"`
	Title    string `json:"title"    gorm:"type:varchar(255);not null" example:"Title One"`
	Author   string `json:"author"   gorm:"type:varchar(255);not null;index:idx_books_author" example:"Author One"`
	Category string `json:"category" gorm:"type:varchar(255);not null;index:idx_books_category" example:"science"`
}

// TableName returns the database table name for Book.
func (Book) TableName() string { return "books" }

// Payload returns the record as a flat field map, ready to be merged into a
// response envelope.
func (b Book) Payload() map[string]any {
	return map[string]any{
		"id":       b.ID,
		"title":    b.Title,
		"author":   b.Author,
		"category": b.Category,
	}
}

// BookInput carries the full field set for create and replace operations.
type BookInput struct {
	Title    string
	Author   string
	Category string
}

// BookPatch carries optional field updates. A nil field is left untouched.
type BookPatch struct {
	Title    *string
	Author   *string
	Category *string
}

// Patch converts a full input into a patch that sets every field.
func (in BookInput) Patch() BookPatch {
	return BookPatch{Title: &in.Title, Author: &in.Author, Category: &in.Category}
}

// Apply writes the non-nil fields of p onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
}

// BookFilter narrows a listing. Empty fields are not applied; set fields are
// combined with AND. Comparison is exact unless FoldCase is set, in which case
// both sides are Unicode case-folded first.
type BookFilter struct {
	Category string
	Author   string
	FoldCase bool
}

// IsZero reports whether the filter matches every book.
func (f BookFilter) IsZero() bool {
	return f.Category == "" && f.Author == ""
}

// Matches reports whether b satisfies every set field of f.
func (f BookFilter) Matches(b Book) bool {
	return f.fieldMatches(f.Category, b.Category) && f.fieldMatches(f.Author, b.Author)
}

func (f BookFilter) fieldMatches(want, got string) bool {
	if want == "" {
		return true
	}
	if !f.FoldCase {
		return want == got
	}
	// Casers hold state; one per comparison keeps Matches safe for concurrent use.
	fold := cases.Fold()
	return fold.String(want) == fold.String(got)
}
