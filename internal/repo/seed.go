package repo

import "github.com/tbourn/go-books-backend/internal/domain"

// DefaultBooks returns the starter catalogue loaded when SEED_BOOKS is on.
func DefaultBooks() []domain.Book {
	return []domain.Book{
		{ID: 1, Title: "Title One", Author: "Author One", Category: "science"},
		{ID: 2, Title: "Title Two", Author: "Author Two", Category: "science"},
		{ID: 3, Title: "Title Three", Author: "Author Three", Category: "history"},
		{ID: 4, Title: "Title Four", Author: "Author Four", Category: "math"},
		{ID: 5, Title: "Title Five", Author: "Author Five", Category: "math"},
		{ID: 6, Title: "Title Six", Author: "Author Two", Category: "math"},
	}
}
