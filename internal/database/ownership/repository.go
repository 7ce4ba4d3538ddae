// Package ownership maintains the relation between users and the books
// they own. A book belongs to at most one user, enforced by a unique
// index on book_id.
package ownership

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

var (
	// ErrUnknownUser indicates a grant for a user that does not exist.
	ErrUnknownUser = errors.New("unknown user")
	// ErrUnknownBook indicates a grant for a book that does not exist.
	ErrUnknownBook = errors.New("unknown book")
)

// Repository handles the user-owns-book relation.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new ownership repository. Pass a transaction
// handle to scope the repository to that transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Grant adds a book to a user's ownership set. Both referents must
// exist; a violation here is a bug or a race, not routine user error.
func (r *Repository) Grant(userID, bookID uint) error {
	var count int64
	if err := r.db.Model(&entities.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUnknownUser
	}

	if err := r.db.Model(&entities.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrUnknownBook
	}

	return r.db.Create(&entities.Ownership{UserID: userID, BookID: bookID}).Error
}

// Revoke removes a book from a user's ownership set. Revoking an absent
// entry is a no-op.
func (r *Repository) Revoke(userID, bookID uint) error {
	return r.db.Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&entities.Ownership{}).Error
}

// Owns reports whether the user owns the book.
func (r *Repository) Owns(userID, bookID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Ownership{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// ListOwned returns the user's book identifiers in insertion order.
func (r *Repository) ListOwned(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&entities.Ownership{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("book_id", &ids).Error
	return ids, err
}
