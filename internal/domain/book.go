package domain

import "time"

// Book is a review entry owned by the user who created it.
type Book struct {
	ID        string
	Title     string
	Caption   string
	Rating    int
	Image     string
	UserID    string
	CreatedAt time.Time

	// Owner is populated by listings that join the owner's profile.
	Owner *BookOwner
}

// BookOwner is the public slice of the owning user shown next to a book.
type BookOwner struct {
	ID           string
	Username     string
	ProfileImage string
}

// OwnedBy reports whether userID is the book's owner.
func (b *Book) OwnedBy(userID string) bool {
	return b != nil && userID != "" && b.UserID == userID
}
