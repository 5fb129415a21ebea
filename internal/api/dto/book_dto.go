package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/spec-kit/book-review-service/internal/domain"
	"github.com/spec-kit/book-review-service/internal/service"
)

// CreateBookRequest payload for POST /books. Image is a data URI or bare base64.
type CreateBookRequest struct {
	Title   string `json:"title"`
	Caption string `json:"caption"`
	Rating  Rating `json:"rating"`
	Image   string `json:"image"`
}

// Rating accepts a JSON number or a numeric string; mobile clients send both.
type Rating int

func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*r = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		var f float64
		if jsonErr := json.Unmarshal(data, &f); jsonErr != nil {
			return err
		}
		n = int(f)
		if float64(n) != f {
			return strconv.ErrSyntax
		}
	}
	*r = Rating(n)
	return nil
}

// ToInput converts the payload to service input.
func (r CreateBookRequest) ToInput() service.CreateBookInput {
	return service.CreateBookInput{
		Title:   r.Title,
		Caption: r.Caption,
		Rating:  int(r.Rating),
		Image:   r.Image,
	}
}

// BookOwnerResponse summarizes the owning identity.
type BookOwnerResponse struct {
	ID           string `json:"_id"`
	Username     string `json:"username,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// BookResponse is the public book view. `_id` mirrors `id` for existing mobile clients.
type BookResponse struct {
	LegacyID  string            `json:"_id"`
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Caption   string            `json:"caption"`
	Rating    int               `json:"rating"`
	Image     string            `json:"image"`
	User      BookOwnerResponse `json:"user"`
	CreatedAt time.Time         `json:"createdAt"`
}

// BookListResponse is one page of GET /books.
type BookListResponse struct {
	Books       []BookResponse `json:"books"`
	CurrentPage int            `json:"currentPage"`
	TotalBooks  int            `json:"totalBooks"`
	TotalPages  int            `json:"totalPages"`
}

// MessageResponse carries a single human readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewBookResponse maps a domain book.
func NewBookResponse(b domain.Book) BookResponse {
	owner := BookOwnerResponse{ID: b.UserID}
	if b.Owner != nil {
		owner.Username = b.Owner.Username
		owner.ProfileImage = b.Owner.ProfileImage
	}
	return BookResponse{
		LegacyID:  b.ID,
		ID:        b.ID,
		Title:     b.Title,
		Caption:   b.Caption,
		Rating:    b.Rating,
		Image:     b.Image,
		User:      owner,
		CreatedAt: b.CreatedAt,
	}
}

// NewBookResponses maps a slice, never returning nil.
func NewBookResponses(books []domain.Book) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for _, b := range books {
		out = append(out, NewBookResponse(b))
	}
	return out
}

// NewBookListResponse maps a listing page.
func NewBookListResponse(page *service.BookPage) BookListResponse {
	return BookListResponse{
		Books:       NewBookResponses(page.Items),
		CurrentPage: page.Page,
		TotalBooks:  page.Total,
		TotalPages:  page.TotalPages,
	}
}
