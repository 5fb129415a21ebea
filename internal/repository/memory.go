package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/book-review-service/internal/domain"
)

// MemoryStore is a process-local backing store used when no Postgres DSN is
// configured. It enforces the same uniqueness rules as the SQL schema.
type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	seq     int64
	users   map[string]domain.User
	books   map[string]memoryBook
	byName  map[string]string
	byEmail map[string]string
}

type memoryBook struct {
	book domain.Book
	seq  int64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     func() time.Time { return time.Now().UTC() },
		users:   make(map[string]domain.User),
		books:   make(map[string]memoryBook),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
	}
}

// Users exposes the store through the UserRepository interface.
func (s *MemoryStore) Users() UserRepository {
	return &memoryUserRepository{store: s}
}

// Books exposes the store through the BookRepository interface.
func (s *MemoryStore) Books() BookRepository {
	return &memoryBookRepository{store: s}
}

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[user.Username]; taken {
		return ErrConflict
	}
	if _, taken := s.byEmail[user.Email]; taken {
		return ErrConflict
	}

	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	s.users[user.ID] = *user
	s.byName[user.Username] = user.ID
	s.byEmail[user.Email] = user.ID
	return nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (r *memoryUserRepository) GetProfileByID(ctx context.Context, id string) (*domain.User, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	profile := user.Profile()
	return &profile, nil
}

func (r *memoryUserRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, nameTaken := s.byName[username]
	_, emailTaken := s.byEmail[email]
	return nameTaken || emailTaken, nil
}

type memoryBookRepository struct {
	store *MemoryStore
}

func (r *memoryBookRepository) Create(ctx context.Context, book *domain.Book) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[book.UserID]; !ok {
		return ErrNotFound
	}

	s.seq++
	book.ID = uuid.NewString()
	book.CreatedAt = s.now()
	stored := *book
	stored.Owner = nil
	s.books[book.ID] = memoryBook{book: stored, seq: s.seq}
	return nil
}

func (r *memoryBookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.books[id]
	if !ok {
		return nil, ErrNotFound
	}
	book := entry.book
	return &book, nil
}

func (r *memoryBookRepository) Delete(ctx context.Context, id string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return ErrNotFound
	}
	delete(s.books, id)
	return nil
}

func (r *memoryBookRepository) List(ctx context.Context, limit, offset int) ([]domain.Book, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}
	if offset < 0 {
		offset = 0
	}

	all := s.sortedLocked(func(domain.Book) bool { return true })
	if offset >= len(all) {
		return []domain.Book{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}

	page := make([]domain.Book, 0, end-offset)
	for _, book := range all[offset:end] {
		if owner, ok := s.users[book.UserID]; ok {
			book.Owner = &domain.BookOwner{
				ID:           owner.ID,
				Username:     owner.Username,
				ProfileImage: owner.ProfileImage,
			}
		}
		page = append(page, book)
	}
	return page, nil
}

func (r *memoryBookRepository) Count(ctx context.Context) (int, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books), nil
}

func (r *memoryBookRepository) ListByOwner(ctx context.Context, userID string) ([]domain.Book, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedLocked(func(b domain.Book) bool { return b.UserID == userID }), nil
}

// sortedLocked returns matching books newest first. Insertion order breaks ties.
func (s *MemoryStore) sortedLocked(match func(domain.Book) bool) []domain.Book {
	entries := make([]memoryBook, 0, len(s.books))
	for _, entry := range s.books {
		if match(entry.book) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].book.CreatedAt.Equal(entries[j].book.CreatedAt) {
			return entries[i].book.CreatedAt.After(entries[j].book.CreatedAt)
		}
		return entries[i].seq > entries[j].seq
	})

	result := make([]domain.Book, 0, len(entries))
	for _, entry := range entries {
		result = append(result, entry.book)
	}
	return result
}
