package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/book-review-service/internal/api/dto"
	"github.com/spec-kit/book-review-service/internal/auth"
	"github.com/spec-kit/book-review-service/internal/domain"
	"github.com/spec-kit/book-review-service/internal/service"
	apperrors "github.com/spec-kit/book-review-service/pkg/util/errorutil"
)

// BooksHandler manages book endpoints. Every route sits behind the auth gate.
type BooksHandler struct {
	books *service.BookService
}

// NewBooksHandler constructs handler.
func NewBooksHandler(bookService *service.BookService) *BooksHandler {
	return &BooksHandler{books: bookService}
}

// Create POST /books.
func (h *BooksHandler) Create(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateBookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	book, err := h.books.Create(c.UserContext(), identity, req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewBookResponse(*book))
}

// List GET /books?page=&limit=.
func (h *BooksHandler) List(c *fiber.Ctx) error {
	if _, err := requireIdentity(c); err != nil {
		return err
	}
	page := parseInt(c.Query("page"), service.DefaultPage)
	limit := parseInt(c.Query("limit"), service.DefaultLimit)

	result, err := h.books.List(c.UserContext(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewBookListResponse(result))
}

// ListOwned GET /books/user.
func (h *BooksHandler) ListOwned(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	books, err := h.books.ListOwned(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewBookResponses(books))
}

// Delete DELETE /books/:id.
func (h *BooksHandler) Delete(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	if err := h.books.Delete(c.UserContext(), identity, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Book deleted successfully"})
}

func requireIdentity(c *fiber.Ctx) (*domain.User, error) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized(auth.MsgAuthFailed)
	}
	return identity, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
