package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/book-review-service/internal/domain"
	"github.com/spec-kit/book-review-service/internal/events"
	"github.com/spec-kit/book-review-service/internal/repository"
	"github.com/spec-kit/book-review-service/internal/storage"
	apperrors "github.com/spec-kit/book-review-service/pkg/util/errorutil"
)

const (
	DefaultPage  = 1
	DefaultLimit = 5
	MaxLimit     = 100

	minRating = 1
	maxRating = 5
)

// Client-facing messages for book operations.
const (
	MsgAllFieldsRequired = "All fields are required"
	MsgRatingOutOfRange  = "Rating must be between 1 and 5"
	MsgInvalidImage      = "Invalid image"
	MsgImageUploadFailed = "Error uploading image"
	MsgBookNotFound      = "Book not found"
	MsgNotBookOwner      = "You are not authorized to delete this book"
	MsgImageDeleteFailed = "Error deleting image"
)

// CreateBookInput carries the fields of a new book.
type CreateBookInput struct {
	Title   string
	Caption string
	Rating  int
	Image   string
}

// BookPage is one page of the global listing.
type BookPage struct {
	Items      []domain.Book
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// BookService implements book operations on behalf of an authenticated identity.
type BookService struct {
	books      repository.BookRepository
	images     storage.ImageStore
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewBookService wires dependencies.
func NewBookService(books repository.BookRepository, images storage.ImageStore, dispatcher events.Dispatcher, logger *zap.Logger) *BookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookService{books: books, images: images, dispatcher: dispatcher, logger: logger}
}

// Create uploads the image and stores a book owned by identity.
func (s *BookService) Create(ctx context.Context, identity *domain.User, input CreateBookInput) (*domain.Book, error) {
	title := strings.TrimSpace(input.Title)
	caption := strings.TrimSpace(input.Caption)
	if title == "" || caption == "" || input.Rating == 0 || strings.TrimSpace(input.Image) == "" {
		return nil, apperrors.NewValidationError(MsgAllFieldsRequired, nil)
	}
	if input.Rating < minRating || input.Rating > maxRating {
		return nil, apperrors.NewValidationError(MsgRatingOutOfRange, map[string]any{"field": "rating"})
	}

	imageURL, err := s.images.Upload(ctx, input.Image)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return nil, apperrors.NewValidationError(MsgInvalidImage, map[string]any{"field": "image"})
		}
		return nil, apperrors.NewInternalMessage(MsgImageUploadFailed, err)
	}

	book := &domain.Book{
		Title:   title,
		Caption: caption,
		Rating:  input.Rating,
		Image:   imageURL,
		UserID:  identity.ID,
	}
	if err := s.books.Create(ctx, book); err != nil {
		s.discardImage(ctx, imageURL)
		return nil, apperrors.NewInternalError(fmt.Errorf("create book: %w", err))
	}
	book.Owner = &domain.BookOwner{
		ID:           identity.ID,
		Username:     identity.Username,
		ProfileImage: identity.ProfileImage,
	}

	s.publish(ctx, events.Event{
		Type:      events.EventBookCreated,
		ActorID:   identity.ID,
		SubjectID: book.ID,
		Payload:   events.BookCreatedPayload{Title: book.Title, Rating: book.Rating},
	})
	return book, nil
}

// List returns a page of all books, newest first. Pages past the end are empty.
func (s *BookService) List(ctx context.Context, page, limit int) (*BookPage, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	total, err := s.books.Count(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("count books: %w", err))
	}
	result := &BookPage{
		Items:      []domain.Book{},
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	// past the end; also keeps the offset from overflowing
	if page > result.TotalPages {
		return result, nil
	}

	items, err := s.books.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list books: %w", err))
	}
	if items != nil {
		result.Items = items
	}
	return result, nil
}

// ListOwned returns the identity's books, newest first.
func (s *BookService) ListOwned(ctx context.Context, identity *domain.User) ([]domain.Book, error) {
	books, err := s.books.ListByOwner(ctx, identity.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("list owned books: %w", err))
	}
	if books == nil {
		books = []domain.Book{}
	}
	return books, nil
}

// Delete removes a book owned by identity, deleting its hosted image first.
func (s *BookService) Delete(ctx context.Context, identity *domain.User, bookID string) error {
	if _, err := uuid.Parse(bookID); err != nil {
		return apperrors.NewNotFound(MsgBookNotFound)
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound(MsgBookNotFound)
		}
		return apperrors.NewInternalError(fmt.Errorf("load book: %w", err))
	}
	if !book.OwnedBy(identity.ID) {
		return apperrors.NewForbidden(MsgNotBookOwner)
	}

	imageRemoved := false
	if imageID, ok := s.images.IDFromURL(book.Image); ok {
		if err := s.images.Delete(ctx, imageID); err != nil {
			s.logger.Error("failed to delete book image",
				zap.String("book_id", book.ID),
				zap.String("image_id", imageID),
				zap.Error(err))
			return apperrors.NewInternalMessage(MsgImageDeleteFailed, err)
		}
		imageRemoved = true
	}

	if err := s.books.Delete(ctx, book.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewNotFound(MsgBookNotFound)
		}
		return apperrors.NewInternalError(fmt.Errorf("delete book: %w", err))
	}

	s.publish(ctx, events.Event{
		Type:      events.EventBookDeleted,
		ActorID:   identity.ID,
		SubjectID: book.ID,
		Payload:   events.BookDeletedPayload{Title: book.Title, ImageRemoved: imageRemoved},
	})
	return nil
}

func (s *BookService) discardImage(ctx context.Context, imageURL string) {
	imageID, ok := s.images.IDFromURL(imageURL)
	if !ok {
		return
	}
	if err := s.images.Delete(ctx, imageID); err != nil {
		s.logger.Warn("failed to discard orphaned image", zap.String("image_id", imageID), zap.Error(err))
	}
}

func (s *BookService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("activity event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
