// Book HTTP handlers.
//
// This file exposes REST endpoints for the book collection:
//   - GET    /books           (list, optional category/author filters)
//   - GET    /books/{id}      (show)
//   - POST   /books           (create, Idempotency-Key aware)
//   - PUT    /books/{id}      (replace all fields)
//   - PATCH  /books/{id}      (update supplied fields)
//   - DELETE /books/{id}      (destroy)
//
// Handlers are transport-thin: they bind and structurally validate input,
// call the BookService, and hand every outcome to the response package.
// Failures of any kind go through response.Fail and never format bodies here.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/go-books-backend/internal/domain"
	"github.com/tbourn/go-books-backend/internal/failure"
	"github.com/tbourn/go-books-backend/internal/http/middleware"
	"github.com/tbourn/go-books-backend/internal/http/response"
	"github.com/tbourn/go-books-backend/internal/utils"
)

//
// Service contract
//

// BookService defines the book use-cases consumed by HTTP handlers. Missing
// records and rule violations come back as *failure.Signal errors.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type BookService interface {
	// List returns the books matching filter, ordered by id.
	List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error)
	// Get returns one book.
	Get(ctx context.Context, id int) (*domain.Book, error)
	// CreateIdempotent creates a book, or returns the one created earlier
	// under the same non-empty key (replayed=true).
	CreateIdempotent(ctx context.Context, key string, in domain.BookInput) (b *domain.Book, replayed bool, err error)
	// Update changes a book; partial selects PATCH semantics.
	Update(ctx context.Context, id int, patch domain.BookPatch, partial bool) (*domain.Book, error)
	// Delete removes a book.
	Delete(ctx context.Context, id int) error
}

// Handlers groups the book endpoints.
type Handlers struct {
	books         BookService
	rejectUnknown bool
}

// Option customizes Handlers.
type Option func(*Handlers)

// WithRejectUnknownParams makes unknown body keys and query parameters fail
// with 400 instead of being ignored.
func WithRejectUnknownParams() Option {
	return func(h *Handlers) { h.rejectUnknown = true }
}

// New constructs Handlers bound to the given service.
func New(books BookService, opts ...Option) *Handlers {
	h := &Handlers{books: books}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

//
// DTOs
//

// BookRequest is the JSON payload for create and replace. Unknown fields,
// including "id", are ignored unless unknown parameters are rejected.
type BookRequest struct {
	Title    string `json:"title"    binding:"required" example:"Title One"`
	Author   string `json:"author"   binding:"required" example:"Author One"`
	Category string `json:"category" binding:"required" example:"science"`
}

// PatchBookRequest is the JSON payload for partial updates. Omitted or null
// fields keep their current value.
type PatchBookRequest struct {
	Title    *string `json:"title"    example:"Renamed"`
	Author   *string `json:"author"   example:"Author Two"`
	Category *string `json:"category" example:"history"`
}

// BookResponse documents a single-book envelope.
type BookResponse struct {
	domain.Book
	Timestamp string `json:"timestamp" example:"2025-01-02T03:04:05.123456Z"`
}

// ListBooksResponse documents the list envelope.
type ListBooksResponse struct {
	Books     []domain.Book `json:"books"`
	Count     int           `json:"count" example:"6"`
	Timestamp string        `json:"timestamp" example:"2025-01-02T03:04:05.123456Z"`
}

func (r BookRequest) input() domain.BookInput {
	return domain.BookInput{Title: r.Title, Author: r.Author, Category: r.Category}
}

func (r PatchBookRequest) patch() domain.BookPatch {
	return domain.BookPatch{Title: r.Title, Author: r.Author, Category: r.Category}
}

// listParams are the query parameters ListBooks understands.
var listParams = map[string]bool{"category": true, "author": true}

// bindJSON binds the request body into dst, failing the request on error.
func (h *Handlers) bindJSON(c *gin.Context, dst any) bool {
	var err error
	if h.rejectUnknown {
		err = h.bindStrict(c, dst)
	} else if bErr := c.ShouldBindJSON(dst); bErr != nil {
		err = bindFailure(bErr)
	}
	if err != nil {
		response.Fail(c, err)
		return false
	}
	return true
}

func (h *Handlers) bindStrict(c *gin.Context, dst any) error {
	body, err := c.GetRawData()
	if err != nil {
		return bindFailure(err)
	}
	if err := rejectUnknownKeys(body, dst); err != nil {
		return err
	}
	if err := binding.JSON.BindBody(body, dst); err != nil {
		return bindFailure(err)
	}
	return nil
}

// listFilter reads the list filters. A filter given more than once is a bad
// request, as is any other parameter when unknown parameters are rejected.
func (h *Handlers) listFilter(c *gin.Context) (domain.BookFilter, error) {
	q := c.Request.URL.Query()
	var unknown []string
	for name, values := range q {
		if !listParams[name] {
			unknown = append(unknown, name)
			continue
		}
		if len(values) > 1 {
			return domain.BookFilter{}, failure.NewBadRequest(name + " must be given at most once")
		}
	}
	if h.rejectUnknown && len(unknown) > 0 {
		return domain.BookFilter{}, failure.NewUnknownParameters(unknown)
	}
	return domain.BookFilter{Category: q.Get("category"), Author: q.Get("author")}, nil
}

// pathID parses the :id parameter, failing the request when it is not an
// integer.
func pathID(c *gin.Context) (int, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		response.Fail(c, idFailure())
	}
	return id, ok
}

//
// Handlers
//

// ListBooks godoc
// @ID          listBooks
// @Summary     List books
// @Description Returns every book, optionally narrowed by exact category and/or author.
// @Tags        Books
// @Produce     json
// @Param       category  query  string  false  "Category filter"  example(math)
// @Param       author    query  string  false  "Author filter"    example(Author Two)
// @Success     200  {object}  handlers.ListBooksResponse
// @Failure     400  {object}  response.ErrorBody  "Repeated filter or unknown parameters"
// @Failure     429  {object}  response.ErrorBody  "Rate limited"
// @Failure     500  {object}  response.ErrorBody  "Internal error"
// @Router      /books [get]
func (h *Handlers) ListBooks(c *gin.Context) {
	filter, err := h.listFilter(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	books, err := h.books.List(c.Request.Context(), filter)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if books == nil {
		books = []domain.Book{}
	}
	response.JSON(c, http.StatusOK, map[string]any{"books": books, "count": len(books)})
}

// GetBook godoc
// @ID          getBook
// @Summary     Show a book
// @Tags        Books
// @Produce     json
// @Param       id   path      int  true  "Book ID"  example(1)
// @Success     200  {object}  handlers.BookResponse
// @Failure     404  {object}  response.ErrorBody  "Not found"
// @Failure     422  {object}  response.ErrorBody  "Invalid id"
// @Failure     500  {object}  response.ErrorBody  "Internal error"
// @Router      /books/{id} [get]
func (h *Handlers) GetBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := h.books.Get(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, b.Payload())
}

// CreateBook godoc
// @ID          createBook
// @Summary     Create a book
// @Description Assigns the next id. With an Idempotency-Key, retries within the TTL return the first result and set Idempotency-Replayed: true.
// @Tags        Books
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                    false  "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.BookRequest      true   "Book fields"
// @Success     201  {object}  handlers.BookResponse
// @Header      201  {string}  Idempotency-Replayed  "true when served from an earlier request"
// @Failure     400  {object}  response.ErrorBody  "Unknown parameters"
// @Failure     422  {object}  response.ErrorBody  "Validation failed"
// @Failure     429  {object}  response.ErrorBody  "Rate limited"
// @Failure     500  {object}  response.ErrorBody  "Internal error"
// @Router      /books [post]
func (h *Handlers) CreateBook(c *gin.Context) {
	var req BookRequest
	if !h.bindJSON(c, &req) {
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	b, replayed, err := h.books.CreateIdempotent(c.Request.Context(), key, req.input())
	if err != nil {
		response.Fail(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotencyReplayed, "true")
	}
	response.JSON(c, http.StatusCreated, b.Payload())
}

// ReplaceBook godoc
// @ID          replaceBook
// @Summary     Replace a book
// @Description All fields are required. The id cannot change.
// @Tags        Books
// @Accept      json
// @Produce     json
// @Param       id    path  int                   true  "Book ID"  example(1)
// @Param       body  body  handlers.BookRequest  true  "Book fields"
// @Success     200  {object}  handlers.BookResponse
// @Failure     400  {object}  response.ErrorBody  "Unknown parameters"
// @Failure     404  {object}  response.ErrorBody  "Not found"
// @Failure     422  {object}  response.ErrorBody  "Validation failed"
// @Failure     500  {object}  response.ErrorBody  "Internal error"
// @Router      /books/{id} [put]
func (h *Handlers) ReplaceBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req BookRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.update(c, id, req.input().Patch(), false)
}

// PatchBook godoc
// @ID          patchBook
// @Summary     Update a book
// @Description Only supplied fields change. The id cannot change.
// @Tags        Books
// @Accept      json
// @Produce     json
// @Param       id    path  int                        true  "Book ID"  example(1)
// @Param       body  body  handlers.PatchBookRequest  true  "Fields to change"
// @Success     200  {object}  handlers.BookResponse
// @Failure     400  {object}  response.ErrorBody  "Unknown parameters"
// @Failure     404  {object}  response.ErrorBody  "Not found"
// @Failure     422  {object}  response.ErrorBody  "Validation failed"
// @Failure     500  {object}  response.ErrorBody  "Internal error"
// @Router      /books/{id} [patch]
func (h *Handlers) PatchBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req PatchBookRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.update(c, id, req.patch(), true)
}

func (h *Handlers) update(c *gin.Context, id int, patch domain.BookPatch, partial bool) {
	b, err := h.books.Update(c.Request.Context(), id, patch, partial)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, b.Payload())
}

// DeleteBook godoc
// @ID          deleteBook
// @Summary     Delete a book
// @Tags        Books
// @Param       id   path  int  true  "Book ID"  example(1)
// @Success     204  "No Content"
// @Failure     404  {object}  response.ErrorBody  "Not found"
// @Failure     422  {object}  response.ErrorBody  "Invalid id"
// @Failure     500  {object}  response.ErrorBody  "Internal error"
// @Router      /books/{id} [delete]
func (h *Handlers) DeleteBook(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.books.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.NoContent(c)
}
