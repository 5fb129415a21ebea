package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/book-review-service/internal/domain"
)

// BookRepository encapsulates book persistence.
type BookRepository interface {
	Create(ctx context.Context, book *domain.Book) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	Delete(ctx context.Context, id string) error
	// List returns books newest first with the owner summary populated.
	List(ctx context.Context, limit, offset int) ([]domain.Book, error)
	Count(ctx context.Context) (int, error)
	ListByOwner(ctx context.Context, userID string) ([]domain.Book, error)
}

type bookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository instantiates repository.
func NewBookRepository(pool *pgxpool.Pool) BookRepository {
	return &bookRepository{pool: pool}
}

func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	const query = `
        INSERT INTO books (title, caption, rating, image, user_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		book.Title,
		book.Caption,
		book.Rating,
		book.Image,
		book.UserID,
	).Scan(&book.ID, &book.CreatedAt)
	if err != nil {
		return fmt.Errorf("create book: %w", mapPgError(err))
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	const query = `
        SELECT id, title, caption, rating, image, user_id, created_at
        FROM books WHERE id=$1`
	var book domain.Book
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Caption,
		&book.Rating,
		&book.Image,
		&book.UserID,
		&book.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("get book: %w", mapPgError(err))
	}
	return &book, nil
}

func (r *bookRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", mapPgError(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *bookRepository) List(ctx context.Context, limit, offset int) ([]domain.Book, error) {
	const query = `
        SELECT b.id, b.title, b.caption, b.rating, b.image, b.user_id, b.created_at,
               u.username, u.profile_image
        FROM books b
        JOIN users u ON u.id = b.user_id
        ORDER BY b.created_at DESC, b.id DESC
        LIMIT $1 OFFSET $2`

	if limit <= 0 {
		limit = 5
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Book, 0, limit)
	for rows.Next() {
		var book domain.Book
		owner := &domain.BookOwner{}
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Caption,
			&book.Rating,
			&book.Image,
			&book.UserID,
			&book.CreatedAt,
			&owner.Username,
			&owner.ProfileImage,
		); err != nil {
			return nil, err
		}
		owner.ID = book.UserID
		book.Owner = owner
		result = append(result, book)
	}
	return result, rows.Err()
}

func (r *bookRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return total, nil
}

func (r *bookRepository) ListByOwner(ctx context.Context, userID string) ([]domain.Book, error) {
	const query = `
        SELECT id, title, caption, rating, image, user_id, created_at
        FROM books WHERE user_id=$1
        ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list books by owner: %w", err)
	}
	defer rows.Close()
	return scanBooks(rows)
}

func scanBooks(rows pgx.Rows) ([]domain.Book, error) {
	result := []domain.Book{}
	for rows.Next() {
		var book domain.Book
		if err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Caption,
			&book.Rating,
			&book.Image,
			&book.UserID,
			&book.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, book)
	}
	return result, rows.Err()
}
