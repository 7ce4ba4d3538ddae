// Package books provides database operations for book records.
//
// The repository stores supplied fields verbatim: rating range and genre
// vocabulary are not validated here. Deletes are permanent, there is no
// tombstone row to restore from.
package books

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// ErrNotFound is returned when no book matches the given identifier.
var ErrNotFound = errors.New("book not found")

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository. Pass a transaction handle
// to scope the repository to that transaction.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new book and assigns it a fresh identifier and
// creation timestamp.
func (r *Repository) Create(fields entities.BookFields) (*entities.Book, error) {
	book := &entities.Book{
		Title:      fields.Title,
		Author:     fields.Author,
		Content:    fields.Content,
		Genre:      fields.Genre,
		Rating:     fields.Rating,
		CoverImage: fields.CoverImage,
	}

	if err := r.db.Create(book).Error; err != nil {
		return nil, err
	}

	return book, nil
}

// GetByID retrieves a book by its ID.
func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Update applies a partial update and returns the resulting book. Only
// fields present in the patch are replaced; a supplied empty value still
// counts as a replacement.
func (r *Repository) Update(id uint, patch entities.BookPatch) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	changes := patch.Changes()
	if len(changes) == 0 {
		return &book, nil
	}

	if err := r.db.Model(&book).Updates(changes).Error; err != nil {
		return nil, err
	}

	// Re-read so the caller sees exactly what was persisted
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// Delete removes a book permanently.
func (r *Repository) Delete(id uint) error {
	result := r.db.Delete(&entities.Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
